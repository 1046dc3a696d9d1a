package host

import (
	"context"
	"sync"
	"time"

	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/reconcile"
	"github.com/trysourcetool/sourcetool/pkg/ui"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// passRequest is a pass waiting to run. Requests that arrive while a pass is
// running are merged: the latest state per widget id wins.
type passRequest struct {
	states map[string]*widget.Widget
	order  []string
}

func (r *passRequest) merge(states []*widget.Widget) {
	for _, s := range states {
		if s == nil {
			continue
		}
		if _, seen := r.states[s.ID]; !seen {
			r.order = append(r.order, s.ID)
		}
		r.states[s.ID] = s
	}
}

func (r *passRequest) list() []*widget.Widget {
	out := make([]*widget.Widget, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.states[id])
	}
	return out
}

type hostSession struct {
	id   string
	page *page
	host *Host

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}

	mu        sync.Mutex
	lifecycle *domain.Lifecycle
	tree      *reconcile.Tree
	pending   *passRequest
	closing   bool
	aborted   bool
	passes    int
}

func newHostSession(parent context.Context, h *Host, id string, pg *page, snap *domain.Snapshot) *hostSession {
	ctx, cancel := context.WithCancel(parent)
	s := &hostSession{
		id:        id,
		page:      pg,
		host:      h,
		ctx:       ctx,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		lifecycle: domain.NewLifecycle(),
	}
	if snap != nil && len(snap.Widgets) > 0 {
		tree, err := reconcile.NewTree(snap.Widgets...)
		if err != nil {
			h.logger.Warn("Discarding corrupt snapshot", "session_id", id, "err", err)
		} else {
			resetMomentary(tree)
			s.tree = tree
		}
	}
	return s
}

// resetMomentary clears clicks and submits so a kept tree never replays them.
func resetMomentary(t *reconcile.Tree) {
	for _, w := range t.Widgets() {
		widget.ResetMomentary(w.Content)
	}
}

func (s *hostSession) status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.Status()
}

// request queues a pass with the given committed states.
func (s *hostSession) request(states []*widget.Widget) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	if s.pending == nil {
		s.pending = &passRequest{states: make(map[string]*widget.Widget)}
	}
	s.pending.merge(states)
	s.mu.Unlock()
	s.signal()
}

// close releases the session once the running pass, if any, has finished.
func (s *hostSession) close() {
	s.mu.Lock()
	s.closing = true
	s.pending = nil
	s.mu.Unlock()
	s.signal()
}

// abort stops the session without deleting its snapshot.
func (s *hostSession) abort() {
	s.mu.Lock()
	s.closing = true
	s.aborted = true
	s.pending = nil
	s.mu.Unlock()
	s.cancel()
}

func (s *hostSession) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the session worker. It is the only goroutine executing passes for the session.
func (s *hostSession) run() {
	defer s.cancel()
	for {
		select {
		case <-s.wake:
		case <-s.ctx.Done():
			s.teardown()
			return
		}

		for {
			s.mu.Lock()
			if s.closing {
				s.mu.Unlock()
				s.teardown()
				return
			}
			req := s.pending
			s.pending = nil
			if req == nil {
				s.mu.Unlock()
				break
			}
			var err error
			if s.lifecycle.Status() == domain.StatusUninitialized {
				err = s.lifecycle.Initialize()
			} else {
				err = s.lifecycle.BeginRerun()
			}
			s.passes++
			pass := s.passes
			s.mu.Unlock()

			if err != nil {
				s.host.logger.Error("Refusing pass", "session_id", s.id, "err", err)
				continue
			}
			s.execute(pass, req.list())
		}
	}
}

func (s *hostSession) teardown() {
	s.mu.Lock()
	aborted := s.aborted
	_ = s.lifecycle.Close()
	s.tree = nil
	s.mu.Unlock()

	if !aborted {
		if err := s.host.manager.Delete(context.WithoutCancel(s.ctx), s.id); err != nil {
			s.host.logger.Warn("Failed to delete session snapshot", "session_id", s.id, "err", err)
		}
	}
	s.host.logger.Info("Session closed", "session_id", s.id, "aborted", aborted)
}

// execute runs one pass. Only the worker goroutine touches s.tree outside the lock.
func (s *hostSession) execute(pass int, states []*widget.Widget) {
	h := s.host
	ctx := s.ctx
	pageID := s.page.page.ID
	start := time.Now()

	h.fireScriptStart(ctx, &domain.ScriptEvent{
		EventBase: domain.EventBase{Timestamp: start, Type: domain.EventScriptStart, SessionID: s.id, PageID: pageID},
		Pass:      pass,
	})

	s.mu.Lock()
	prev := s.tree.Clone()
	s.mu.Unlock()
	if prev == nil {
		prev, _ = reconcile.NewTree()
	}
	for _, err := range reconcile.ApplyCommits(prev, states) {
		h.logger.Debug("Ignoring stale commit", "session_id", s.id, "err", err)
	}

	rec := reconcile.NewReconciler(prev, reconcile.WithIDGenerator(h.newID))
	p := ui.NewPass(ctx, s.id, pageID, rec, func(ctx context.Context, w *widget.Widget, created bool) error {
		err := h.sendErr(ctx, protocol.New(&protocol.RenderWidget{
			SessionID: s.id,
			PageID:    pageID,
			Path:      w.Path,
			Widget:    w,
		}))
		if err != nil {
			return err
		}
		h.fireWidgetRendered(ctx, &domain.WidgetEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventWidgetRendered, SessionID: s.id, PageID: pageID},
			WidgetID:  w.ID,
			Kind:      w.Kind(),
			Path:      w.Path,
			Created:   created,
		})
		return nil
	})

	err := runScript(s.page.script, p.Root())
	if err == nil {
		err = p.Err()
	}

	success := err == nil
	if success {
		prev = p.Result().Tree
	} else {
		h.logger.Error("Script failed", "session_id", s.id, "page_id", pageID, "pass", pass, "err", err)
		h.send(ctx, protocol.New(protocol.NewException(s.id, "Script error", err)))
	}
	resetMomentary(prev)
	status := protocol.StatusSuccess
	if !success {
		status = protocol.StatusFailure
	}
	h.send(ctx, protocol.New(&protocol.ScriptFinished{SessionID: s.id, Status: status}))

	s.mu.Lock()
	s.tree = prev
	_ = s.lifecycle.Finish(success)
	snap := &domain.Snapshot{
		SessionID: s.id,
		PageID:    pageID,
		Status:    s.lifecycle.Status(),
		Widgets:   prev.Clone().Widgets(),
	}
	s.mu.Unlock()

	if err := h.manager.Save(context.WithoutCancel(ctx), snap); err != nil {
		h.logger.Warn("Failed to persist session", "session_id", s.id, "err", err)
	}

	h.fireScriptFinish(ctx, &domain.ScriptEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventScriptFinish, SessionID: s.id, PageID: pageID},
		Pass:      pass,
		Status:    snap.Status,
		Duration:  time.Since(start),
		Err:       err,
	})
}

func (h *Host) fireScriptStart(ctx context.Context, e *domain.ScriptEvent) {
	if h.hooks.OnScriptStart != nil {
		h.hooks.OnScriptStart(ctx, e)
	}
}

func (h *Host) fireScriptFinish(ctx context.Context, e *domain.ScriptEvent) {
	if h.hooks.OnScriptFinish != nil {
		h.hooks.OnScriptFinish(ctx, e)
	}
}

func (h *Host) fireWidgetRendered(ctx context.Context, e *domain.WidgetEvent) {
	if h.hooks.OnWidgetRendered != nil {
		h.hooks.OnWidgetRendered(ctx, e)
	}
}
