package protocol

import "errors"

// StackTracer is implemented by errors that carry a script stack trace.
type StackTracer interface {
	StackTrace() string
}

// SessionOf returns the session a payload targets, or "" if it is not session scoped.
func SessionOf(m *Message) string {
	if m == nil {
		return ""
	}
	switch p := m.Payload.(type) {
	case *InitializeClient:
		return p.SessionID
	case *InitializeClientCompleted:
		return p.SessionID
	case *RenderWidget:
		return p.SessionID
	case *RerunPage:
		return p.SessionID
	case *CloseSession:
		return p.SessionID
	case *ScriptFinished:
		return p.SessionID
	case *Exception:
		return p.SessionID
	}
	return ""
}

// NewException builds an Exception payload from err.
func NewException(sessionID, title string, err error) *Exception {
	ex := &Exception{SessionID: sessionID, Title: title, Message: "unknown error"}
	if err == nil {
		return ex
	}
	ex.Message = err.Error()
	var st StackTracer
	if errors.As(err, &st) {
		ex.StackTrace = st.StackTrace()
	}
	return ex
}
