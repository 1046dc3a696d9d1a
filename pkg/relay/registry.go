package relay

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/trysourcetool/sourcetool/pkg/protocol"
)

// HostInfo describes a connected Host.
type HostInfo struct {
	ID          string          `json:"id"`
	SDKName     string          `json:"sdkName"`
	SDKVersion  string          `json:"sdkVersion"`
	Pages       []protocol.Page `json:"pages"`
	ConnectedAt time.Time       `json:"connectedAt"`
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ID        string    `json:"id"`
	PageID    string    `json:"pageId"`
	HostID    string    `json:"hostId"`
	Clients   int       `json:"clients"`
	CreatedAt time.Time `json:"createdAt"`
}

type hostLink struct {
	info HostInfo
	peer *peer
}

type session struct {
	id        string
	pageID    string
	createdAt time.Time

	mu sync.Mutex
	// hostID is empty while the session is orphaned.
	hostID  string
	clients map[string]*peer
	closed  bool
}

func (s *session) owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID
}

func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{ID: s.id, PageID: s.pageID, HostID: s.hostID, Clients: len(s.clients), CreatedAt: s.createdAt}
}

// join adds a client if the session is open and owned by hostID. An orphaned
// session is adopted by hostID first; adopted reports that case.
func (s *session) join(p *peer, hostID string) (ok, adopted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, false
	}
	switch s.hostID {
	case hostID:
	case "":
		s.hostID = hostID
		adopted = true
	default:
		return false, false
	}
	s.clients[p.id] = p
	return true, adopted
}

// adopt hands an orphaned session that still has clients to hostID.
func (s *session) adopt(hostID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.hostID != "" || len(s.clients) == 0 {
		return false
	}
	s.hostID = hostID
	return true
}

// orphan detaches the session from hostID.
func (s *session) orphan(hostID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.hostID != hostID {
		return false
	}
	s.hostID = ""
	return true
}

// expire closes an orphaned session and returns its clients.
func (s *session) expire() ([]*peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.hostID != "" {
		return nil, false
	}
	s.closed = true
	out := make([]*peer, 0, len(s.clients))
	for _, p := range s.clients {
		out = append(out, p)
	}
	return out, true
}

// detach removes a client and reports whether it was the last one.
// An owned session is marked closed when it empties; an orphaned one waits
// for a client to reattach or for its grace period to end.
func (s *session) detach(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return false
	}
	delete(s.clients, id)
	if len(s.clients) == 0 && s.hostID != "" {
		s.closed = true
		return true
	}
	return false
}

// peers returns the attached clients in a stable order.
func (s *session) peers() []*peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*peer, 0, len(s.clients))
	for _, p := range s.clients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Registry maps pages to Hosts and sessions to their clients.
// Its maps are guarded by one RW lock; each session guards its own client set.
type Registry struct {
	mu       sync.RWMutex
	hosts    map[string]*hostLink
	routes   map[string]string
	sessions map[string]*session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hosts:    make(map[string]*hostLink),
		routes:   make(map[string]string),
		sessions: make(map[string]*session),
	}
}

// addHost registers a Host and routes its pages to it, replacing earlier
// owners. Orphaned sessions of those pages that still have clients are adopted
// and returned.
func (r *Registry) addHost(h *hostLink) []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts[h.info.ID] = h
	pages := make(map[string]bool, len(h.info.Pages))
	for _, p := range h.info.Pages {
		r.routes[p.ID] = h.info.ID
		pages[p.ID] = true
	}
	var adopted []*session
	for _, s := range r.sessions {
		if pages[s.pageID] && s.adopt(h.info.ID) {
			adopted = append(adopted, s)
		}
	}
	sortSessions(adopted)
	return adopted
}

// removeHost unregisters a Host and orphans the sessions it owned. They stay
// registered until adopted or expired.
func (r *Registry) removeHost(id string) []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hosts, id)
	for page, owner := range r.routes {
		if owner == id {
			delete(r.routes, page)
		}
	}
	var orphaned []*session
	for _, s := range r.sessions {
		if s.orphan(id) {
			orphaned = append(orphaned, s)
		}
	}
	sortSessions(orphaned)
	return orphaned
}

func sortSessions(list []*session) {
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
}

func (r *Registry) hostFor(pageID string) (*hostLink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.routes[pageID]
	if !ok {
		return nil, false
	}
	h, ok := r.hosts[owner]
	return h, ok
}

func (r *Registry) host(id string) (*hostLink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hosts[id]
	return h, ok
}

func (r *Registry) session(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// openSession registers a new session owned by hostID.
func (r *Registry) openSession(id, pageID, hostID string) *session {
	s := &session{id: id, pageID: pageID, hostID: hostID, createdAt: time.Now(), clients: make(map[string]*peer)}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s
}

// closeSession unregisters s if it is still the registered session under its id.
func (r *Registry) closeSession(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.id]; !ok || cur != s {
		return false
	}
	delete(r.sessions, s.id)
	return true
}

// Hosts lists the connected Hosts ordered by id.
func (r *Registry) Hosts() []HostInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]HostInfo, 0, len(r.hosts))
	for _, h := range r.hosts {
		info := h.info
		info.Pages = slices.Clone(info.Pages)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sessions lists the live sessions ordered by id.
func (r *Registry) Sessions() []SessionInfo {
	r.mu.RLock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Session returns a live session by id.
func (r *Registry) Session(id string) (SessionInfo, bool) {
	s, ok := r.session(id)
	if !ok {
		return SessionInfo{}, false
	}
	return s.info(), true
}
