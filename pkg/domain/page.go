package domain

import (
	"slices"

	"github.com/google/uuid"

	"github.com/trysourcetool/sourcetool/pkg/protocol"
)

// pageNamespace scopes the deterministic page ids.
var pageNamespace = uuid.MustParse("5d2b7b4e-7c1a-4c39-9a57-1f0a6a3c2e10")

// Page is a script entry point exposed to the Client's navigation.
type Page struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Route  string   `json:"route"`
	Path   []int    `json:"path"`
	Groups []string `json:"groups,omitempty"`
}

// PageID derives the id of the page served at route.
// The same route always yields the same id, so sessions survive Host restarts.
func PageID(route string) string {
	return uuid.NewSHA1(pageNamespace, []byte(route)).String()
}

// NewPage returns a page with its id derived from route.
func NewPage(name, route string, groups ...string) Page {
	return Page{
		ID:     PageID(route),
		Name:   name,
		Route:  route,
		Groups: slices.Clone(groups),
	}
}

// Proto converts the page to its wire form.
func (p Page) Proto() protocol.Page {
	return protocol.Page{
		ID:     p.ID,
		Name:   p.Name,
		Route:  p.Route,
		Path:   slices.Clone(p.Path),
		Groups: slices.Clone(p.Groups),
	}
}

// PageFromProto converts a wire page.
func PageFromProto(p protocol.Page) Page {
	return Page{
		ID:     p.ID,
		Name:   p.Name,
		Route:  p.Route,
		Path:   slices.Clone(p.Path),
		Groups: slices.Clone(p.Groups),
	}
}
