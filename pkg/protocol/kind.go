package protocol

import "github.com/trysourcetool/sourcetool/pkg/widget"

// Kind is the oneof discriminant of an envelope.
type Kind string

const (
	KindInitializeHost            Kind = "initializeHost"
	KindInitializeHostCompleted   Kind = "initializeHostCompleted"
	KindInitializeClient          Kind = "initializeClient"
	KindInitializeClientCompleted Kind = "initializeClientCompleted"
	KindRenderWidget              Kind = "renderWidget"
	KindRerunPage                 Kind = "rerunPage"
	KindCloseSession              Kind = "closeSession"
	KindScriptFinished            Kind = "scriptFinished"
	KindException                 Kind = "exception"
)

// Payload is implemented by the nine message kinds of this package.
type Payload interface {
	Kind() Kind
	isPayload()
}

// newPayload returns an empty payload for k, or nil if k is unknown.
func newPayload(k Kind) Payload {
	switch k {
	case KindInitializeHost:
		return &InitializeHost{}
	case KindInitializeHostCompleted:
		return &InitializeHostCompleted{}
	case KindInitializeClient:
		return &InitializeClient{}
	case KindInitializeClientCompleted:
		return &InitializeClientCompleted{}
	case KindRenderWidget:
		return &RenderWidget{}
	case KindRerunPage:
		return &RerunPage{}
	case KindCloseSession:
		return &CloseSession{}
	case KindScriptFinished:
		return &ScriptFinished{}
	case KindException:
		return &Exception{}
	}
	return nil
}

// Page is a script entry point as announced by a Host.
type Page struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Route  string   `json:"route"`
	Path   []int    `json:"path"`
	Groups []string `json:"groups,omitempty"`
}

// InitializeHost registers a Host and its pages with the relay.
type InitializeHost struct {
	APIKey     string `json:"apiKey"`
	SDKName    string `json:"sdkName"`
	SDKVersion string `json:"sdkVersion"`
	Pages      []Page `json:"pages"`
}

// InitializeHostCompleted acknowledges InitializeHost.
type InitializeHostCompleted struct {
	HostInstanceID string `json:"hostInstanceId"`
}

// InitializeClient opens a session on a page, or resumes SessionID if it is still live.
type InitializeClient struct {
	SessionID string `json:"sessionId,omitempty"`
	PageID    string `json:"pageId"`
}

// InitializeClientCompleted confirms the session a Client is attached to.
type InitializeClientCompleted struct {
	SessionID string `json:"sessionId"`
}

// RenderWidget places one widget of the current pass.
type RenderWidget struct {
	SessionID string         `json:"sessionId"`
	PageID    string         `json:"pageId"`
	Path      widget.Path    `json:"path"`
	Widget    *widget.Widget `json:"widget"`
}

// RerunPage asks the Host to execute the page again with States as committed input.
type RerunPage struct {
	SessionID string           `json:"sessionId"`
	PageID    string           `json:"pageId"`
	States    []*widget.Widget `json:"states"`
}

// CloseSession releases a session.
type CloseSession struct {
	SessionID string `json:"sessionId"`
}

// Status is the outcome of one script pass.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusSuccess || s == StatusFailure
}

// ScriptFinished ends one script pass.
type ScriptFinished struct {
	SessionID string `json:"sessionId"`
	Status    Status `json:"status"`
}

// Exception reports an error that is not tied to a widget.
type Exception struct {
	SessionID  string `json:"sessionId,omitempty"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace,omitempty"`
}

func (*InitializeHost) Kind() Kind            { return KindInitializeHost }
func (*InitializeHostCompleted) Kind() Kind   { return KindInitializeHostCompleted }
func (*InitializeClient) Kind() Kind          { return KindInitializeClient }
func (*InitializeClientCompleted) Kind() Kind { return KindInitializeClientCompleted }
func (*RenderWidget) Kind() Kind              { return KindRenderWidget }
func (*RerunPage) Kind() Kind                 { return KindRerunPage }
func (*CloseSession) Kind() Kind              { return KindCloseSession }
func (*ScriptFinished) Kind() Kind            { return KindScriptFinished }
func (*Exception) Kind() Kind                 { return KindException }

func (*InitializeHost) isPayload()            {}
func (*InitializeHostCompleted) isPayload()   {}
func (*InitializeClient) isPayload()          {}
func (*InitializeClientCompleted) isPayload() {}
func (*RenderWidget) isPayload()              {}
func (*RerunPage) isPayload()                 {}
func (*CloseSession) isPayload()              {}
func (*ScriptFinished) isPayload()            {}
func (*Exception) isPayload()                 {}
