package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/trysourcetool/sourcetool/internal/logging"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/reconcile"
	"github.com/trysourcetool/sourcetool/pkg/validation"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// entry tracks one widget of the displayed tree.
// committed is the value the Host knows about; local is what the user sees.
type entry struct {
	committed *widget.Widget
	local     widget.Content
	result    validation.Result
}

type change struct {
	id      string
	content widget.Content
}

// attempt remembers what a flush changed until its RerunPage is handed to
// the connection.
type attempt struct {
	msgID     string
	prev      domain.SessionStatus
	queued    map[string]widget.Content
	committed map[string]widget.Content
}

// Client mirrors one session of one page.
type Client struct {
	conn    ports.Conn
	logger  *slog.Logger
	now     func() time.Time
	windows map[widget.Kind]time.Duration

	mu        sync.Mutex
	lifecycle *domain.Lifecycle
	sessionID string
	pageID    string
	entries   map[string]*entry
	order     []string
	prevOrder []string
	rendering bool
	tree      *reconcile.Tree
	forms     map[string]map[string]widget.Content
	debouncer *Debouncer
	queued    map[string]widget.Content
	attempt   *attempt
	exception *protocol.Exception

	updates chan struct{}
	kick    chan struct{}
}

// New creates a Client that talks over conn.
func New(conn ports.Conn, opts ...Option) *Client {
	c := &Client{
		conn:      conn,
		logger:    logging.NewNop(),
		now:       time.Now,
		windows:   DefaultDebounce(),
		lifecycle: domain.NewLifecycle(),
		entries:   make(map[string]*entry),
		forms:     make(map[string]map[string]widget.Content),
		debouncer: NewDebouncer(),
		queued:    make(map[string]widget.Content),
		updates:   make(chan struct{}, 1),
		kick:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize opens a session of pageID. A non-empty sessionID asks the relay
// to reattach to that session.
func (c *Client) Initialize(ctx context.Context, pageID, sessionID string) error {
	c.mu.Lock()
	if err := c.lifecycle.Initialize(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pageID = pageID
	c.sessionID = sessionID
	c.mu.Unlock()

	err := c.send(ctx, protocol.New(&protocol.InitializeClient{SessionID: sessionID, PageID: pageID}))
	if err != nil {
		c.mu.Lock()
		if c.lifecycle.Status() == domain.StatusAwaitingFirstRender && !c.rendering {
			_ = c.lifecycle.Abort(domain.StatusUninitialized)
		}
		c.mu.Unlock()
	}
	return err
}

// Close releases the session.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if err := c.lifecycle.Close(); err != nil {
		c.mu.Unlock()
		return err
	}
	id := c.sessionID
	c.mu.Unlock()
	c.notify()

	if id == "" {
		return nil
	}
	return c.send(ctx, protocol.New(&protocol.CloseSession{SessionID: id}))
}

// Handle applies one message received from the relay.
func (c *Client) Handle(ctx context.Context, msg *protocol.Message) error {
	c.mu.Lock()
	out, err := c.handle(msg)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return c.send(ctx, out)
}

func (c *Client) handle(msg *protocol.Message) (*protocol.Message, error) {
	switch p := msg.Payload.(type) {
	case *protocol.InitializeClientCompleted:
		c.sessionID = p.SessionID
		return nil, nil
	case *protocol.RenderWidget:
		if c.foreign(p.SessionID) {
			return nil, nil
		}
		return nil, c.render(p)
	case *protocol.ScriptFinished:
		if c.foreign(p.SessionID) {
			return nil, nil
		}
		return c.finish(p.Status == protocol.StatusSuccess), nil
	case *protocol.Exception:
		if c.foreign(p.SessionID) {
			return nil, nil
		}
		cp := *p
		c.exception = &cp
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Kind())
}

func (c *Client) foreign(sessionID string) bool {
	if sessionID == "" || c.sessionID == "" {
		return false
	}
	if sessionID != c.sessionID {
		c.logger.Debug("Ignoring message for another session", "session_id", sessionID)
		return true
	}
	return false
}

func (c *Client) render(p *protocol.RenderWidget) error {
	if p.Widget == nil || p.Widget.Content == nil {
		return fmt.Errorf("%w: render without widget", protocol.ErrInvalidMessage)
	}
	if c.lifecycle.Status() == domain.StatusClosed {
		return nil
	}
	if !c.rendering {
		// Passes triggered by another client of the same session land here idle.
		if c.lifecycle.CanRerun() {
			_ = c.lifecycle.BeginRerun()
		}
		c.rendering = true
		c.prevOrder = c.order
		c.order = nil
	}

	w := p.Widget.Clone()
	e, ok := c.entries[w.ID]
	switch {
	case !ok:
		e = &entry{local: widget.Clone(w.Content)}
		c.entries[w.ID] = e
	case c.protected(w.ID) && e.local.Kind() == w.Kind():
		local := widget.Clone(w.Content)
		_ = widget.CopyValue(local, e.local)
		e.local = local
	default:
		e.local = widget.Clone(w.Content)
	}
	e.committed = w
	e.result = validation.Validate(e.local)

	c.order = append(c.order, w.ID)
	c.tree = nil
	return nil
}

// protected reports whether the local value of id must survive a render.
func (c *Client) protected(id string) bool {
	if c.debouncer.Pending(id) {
		return true
	}
	if _, ok := c.queued[id]; ok {
		return true
	}
	for _, buf := range c.forms {
		if _, ok := buf[id]; ok {
			return true
		}
	}
	return false
}

func (c *Client) finish(success bool) *protocol.Message {
	if c.lifecycle.Status() == domain.StatusClosed {
		return nil
	}
	if !c.rendering {
		// A pass that rendered nothing still replaces the tree.
		if c.lifecycle.CanRerun() {
			_ = c.lifecycle.BeginRerun()
		}
		c.prevOrder = c.order
		c.order = nil
	}
	c.rendering = false

	if success {
		c.exception = nil
	} else {
		c.order = c.prevOrder
		if c.exception == nil {
			c.exception = &protocol.Exception{SessionID: c.sessionID, Title: "Script failed", Message: "The page script did not complete."}
		}
	}
	c.prevOrder = nil
	c.tree = nil
	c.prune()

	if err := c.lifecycle.Finish(success); err != nil {
		c.logger.Warn("Unexpected ScriptFinished", "status", c.lifecycle.Status(), "err", err)
	}
	if len(c.queued) == 0 {
		return nil
	}
	return c.flush()
}

// prune drops every piece of state whose widget is no longer displayed.
func (c *Client) prune() {
	live := make(map[string]bool, len(c.order))
	for _, id := range c.order {
		live[id] = true
	}
	for id := range c.entries {
		if !live[id] {
			delete(c.entries, id)
			c.debouncer.Remove(id)
			delete(c.queued, id)
		}
	}
	for formID, buf := range c.forms {
		if !live[formID] {
			delete(c.forms, formID)
			continue
		}
		for id := range buf {
			if !live[id] {
				delete(buf, id)
			}
		}
	}
}

// flush sends the queued changes with every committed state of the tree.
func (c *Client) flush() *protocol.Message {
	prev := c.lifecycle.Status()
	if err := c.lifecycle.BeginRerun(); err != nil {
		return nil
	}
	a := &attempt{prev: prev, queued: maps.Clone(c.queued), committed: make(map[string]widget.Content)}
	states := make([]*widget.Widget, 0, len(c.order))
	for _, id := range c.order {
		e := c.entries[id]
		content := e.committed.Content
		if q, ok := c.queued[id]; ok {
			content = q
			if !content.Kind().IsMomentary() {
				a.committed[id] = e.committed.Content
				e.committed.Content = widget.Clone(q)
			}
		}
		states = append(states, widget.New(id, e.committed.Path.Clone(), widget.Clone(content)))
	}
	clear(c.queued)
	msg := protocol.New(&protocol.RerunPage{SessionID: c.sessionID, PageID: c.pageID, States: states})
	a.msgID = msg.ID
	c.attempt = a
	return msg
}

// rollback restores the state a flush changed when its RerunPage could not
// be sent. Changes queued since then win over the restored ones.
func (c *Client) rollback(a *attempt) {
	if c.lifecycle.Status() != domain.StatusRunning || c.rendering {
		return
	}
	if err := c.lifecycle.Abort(a.prev); err != nil {
		return
	}
	for id, content := range a.committed {
		if e, ok := c.entries[id]; ok {
			e.committed.Content = content
		}
	}
	for id, content := range a.queued {
		if _, ok := c.entries[id]; !ok {
			continue
		}
		if _, ok := c.queued[id]; !ok {
			c.queued[id] = content
		}
	}
}

// commit queues changes and flushes them unless a pass is in flight.
func (c *Client) commit(changes ...change) (*protocol.Message, error) {
	switch c.lifecycle.Status() {
	case domain.StatusClosed:
		return nil, ErrSessionClosed
	case domain.StatusUninitialized:
		return nil, ErrNotInitialized
	}
	for _, ch := range changes {
		c.debouncer.Remove(ch.id)
		c.queued[ch.id] = widget.Clone(ch.content)
	}
	if !c.lifecycle.CanRerun() {
		return nil, nil
	}
	return c.flush(), nil
}

func (c *Client) lookup(id string) (*entry, error) {
	if c.lifecycle.Status() == domain.StatusClosed {
		return nil, ErrSessionClosed
	}
	e, ok := c.entries[id]
	if !ok || !slices.Contains(c.order, id) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	return e, nil
}

func (c *Client) layout() *reconcile.Tree {
	if c.tree != nil {
		return c.tree
	}
	widgets := make([]*widget.Widget, 0, len(c.order))
	for _, id := range c.order {
		widgets = append(widgets, c.entries[id].committed)
	}
	tree, err := reconcile.NewTree(widgets...)
	if err != nil {
		c.logger.Warn("Displayed tree is inconsistent", "err", err)
	}
	c.tree = tree
	return tree
}

func (c *Client) formOf(e *entry) (string, bool) {
	form, ok := c.layout().FormOf(e.committed.Path)
	if !ok {
		return "", false
	}
	return form.ID, true
}

// Edit sets the value of an input widget.
func (c *Client) Edit(ctx context.Context, id string, value any) error {
	c.mu.Lock()
	out, err := c.edit(id, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	c.wake()
	return c.send(ctx, out)
}

func (c *Client) edit(id string, value any) (*protocol.Message, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	switch e.local.Kind() {
	case widget.KindButton, widget.KindForm, widget.KindTable:
		return nil, fmt.Errorf("%w: edit %s", ErrNotInteractive, e.local.Kind())
	}
	local := widget.Clone(e.local)
	if err := widget.SetValue(local, value); err != nil {
		return nil, err
	}
	return c.apply(id, e, local, true)
}

// apply stores a local value and routes it to a form buffer, the debouncer or
// an immediate commit.
func (c *Client) apply(id string, e *entry, local widget.Content, debounce bool) (*protocol.Message, error) {
	e.local = local
	e.result = validation.Validate(local)

	if formID, ok := c.formOf(e); ok {
		buf := c.forms[formID]
		if buf == nil {
			buf = make(map[string]widget.Content)
			c.forms[formID] = buf
		}
		buf[id] = widget.Clone(local)
		return nil, nil
	}
	if window, ok := c.windows[local.Kind()]; ok && debounce {
		c.debouncer.Push(id, widget.Clone(local), c.now().Add(window))
		return nil, nil
	}
	return c.commit(change{id: id, content: local})
}

// Click presses a button, or submits a form when id is a form.
func (c *Client) Click(ctx context.Context, id string) error {
	c.mu.Lock()
	out, err := c.click(id)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return c.send(ctx, out)
}

func (c *Client) click(id string) (*protocol.Message, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	switch b := e.committed.Content.(type) {
	case *widget.Button:
		if b.Disabled {
			return nil, fmt.Errorf("%w: %s", ErrDisabled, id)
		}
		pressed := widget.Clone(b).(*widget.Button)
		pressed.Value = true
		return c.commit(change{id: id, content: pressed})
	case *widget.Form:
		return c.submit(id)
	}
	return nil, fmt.Errorf("%w: click %s", ErrNotInteractive, e.committed.Kind())
}

// Submit flushes the buffered values of a form together with its submit flag.
func (c *Client) Submit(ctx context.Context, formID string) error {
	c.mu.Lock()
	out, err := c.submit(formID)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return c.send(ctx, out)
}

func (c *Client) submit(formID string) (*protocol.Message, error) {
	e, err := c.lookup(formID)
	if err != nil {
		return nil, err
	}
	form, ok := e.committed.Content.(*widget.Form)
	if !ok {
		return nil, fmt.Errorf("%w: submit %s", ErrNotInteractive, e.committed.Kind())
	}
	if form.ButtonDisabled {
		return nil, fmt.Errorf("%w: %s", ErrDisabled, formID)
	}

	var changes []change
	buf := c.forms[formID]
	for _, id := range c.order {
		if v, ok := buf[id]; ok {
			changes = append(changes, change{id: id, content: v})
		}
	}
	delete(c.forms, formID)

	submitted := widget.Clone(form).(*widget.Form)
	submitted.Value = true
	changes = append(changes, change{id: formID, content: submitted})
	return c.commit(changes...)
}

// SelectRow selects a single table row.
func (c *Client) SelectRow(ctx context.Context, tableID string, row int) error {
	return c.selectRows(ctx, tableID, widget.TableValue{Selection: &widget.TableSelection{Row: row}})
}

// SelectRows selects several table rows. An empty rows clears the selection.
func (c *Client) SelectRows(ctx context.Context, tableID string, rows []int) error {
	if len(rows) == 0 {
		return c.selectRows(ctx, tableID, widget.TableValue{})
	}
	return c.selectRows(ctx, tableID, widget.TableValue{Selection: &widget.TableSelection{Row: rows[0], Rows: slices.Clone(rows)}})
}

func (c *Client) selectRows(ctx context.Context, tableID string, value widget.TableValue) error {
	c.mu.Lock()
	out, err := c.selectTable(tableID, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return c.send(ctx, out)
}

func (c *Client) selectTable(id string, value widget.TableValue) (*protocol.Message, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	table, ok := e.local.(*widget.Table)
	if !ok {
		return nil, fmt.Errorf("%w: select rows of %s", ErrNotInteractive, e.local.Kind())
	}
	if err := checkSelection(table, value); err != nil {
		return nil, err
	}

	local := widget.Clone(table).(*widget.Table)
	local.Value = value.Clone()
	if table.OnSelect != widget.SelectActionIgnore {
		return c.apply(id, e, local, false)
	}

	// The selection rides along with the next rerun.
	e.local = local
	e.result = validation.Validate(local)
	if err := widget.CopyValue(e.committed.Content, local); err != nil {
		return nil, err
	}
	return nil, nil
}

func checkSelection(t *widget.Table, v widget.TableValue) error {
	if v.Selection == nil {
		return nil
	}
	if t.RowSelection == widget.RowSelectionNone {
		return fmt.Errorf("%w: table rows are not selectable", ErrNotInteractive)
	}
	rows := v.Selection.Rows
	if len(rows) == 0 {
		rows = []int{v.Selection.Row}
	}
	if t.RowSelection == widget.RowSelectionSingle && len(rows) > 1 {
		return &widget.ValueError{Kind: widget.KindTable, Value: rows, Reason: "table allows a single row"}
	}
	var data []json.RawMessage
	if err := json.Unmarshal(t.Data, &data); err != nil {
		return nil
	}
	for _, r := range rows {
		if r < 0 || r >= len(data) {
			return &widget.ValueError{Kind: widget.KindTable, Value: r, Reason: fmt.Sprintf("row out of range [0,%d)", len(data))}
		}
	}
	return nil
}

// Tick releases every debounced value due at now.
func (c *Client) Tick(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	out, err := c.tick(now)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return c.send(ctx, out)
}

func (c *Client) tick(now time.Time) (*protocol.Message, error) {
	due := c.debouncer.PopDue(now)
	changes := make([]change, 0, len(due))
	for _, d := range due {
		if _, ok := c.entries[d.ID]; ok {
			changes = append(changes, change{id: d.ID, content: d.Value})
		}
	}
	if len(changes) == 0 {
		return nil, nil
	}
	return c.commit(changes...)
}

// Run receives messages and drives the debounce timers until ctx is done or
// the connection closes.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type received struct {
		msg *protocol.Message
		err error
	}
	inbox := make(chan received)
	go func() {
		for {
			msg, err := c.conn.Receive(ctx)
			select {
			case inbox <- received{msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				if _, ok := protocol.IsDecodeError(err); !ok {
					return
				}
			}
		}
	}()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		var fire <-chan time.Time
		if next, ok := c.nextDeadline(); ok {
			timer.Reset(max(next.Sub(c.now()), 0))
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-inbox:
			if r.err != nil {
				if de, ok := protocol.IsDecodeError(r.err); ok {
					c.logger.Warn("Received undecodable message", "message_id", de.ID, "err", r.err)
					c.mu.Lock()
					c.exception = &protocol.Exception{SessionID: c.sessionID, Title: "Protocol error", Message: r.err.Error()}
					c.mu.Unlock()
					c.notify()
					continue
				}
				if errors.Is(r.err, ports.ErrConnClosed) {
					return nil
				}
				return r.err
			}
			if err := c.Handle(ctx, r.msg); err != nil {
				c.logger.Warn("Failed to handle message", "kind", r.msg.Kind(), "message_id", r.msg.ID, "err", err)
			}
		case <-fire:
			if err := c.Tick(ctx, c.now()); err != nil {
				c.logger.Warn("Failed to commit debounced values", "err", err)
			}
		case <-c.kick:
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

func (c *Client) nextDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.debouncer.Next()
}

// View returns what should be displayed right now.
func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{SessionID: c.sessionID, PageID: c.pageID, Status: c.lifecycle.Status()}
	if c.exception != nil {
		cp := *c.exception
		v.Exception = &cp
		return v
	}
	v.Widgets = make([]*widget.Widget, 0, len(c.order))
	for _, id := range c.order {
		e := c.entries[id]
		v.Widgets = append(v.Widgets, widget.New(id, e.committed.Path.Clone(), widget.Clone(e.local)))
		if !e.result.OK {
			if v.Errors == nil {
				v.Errors = make(map[string]string)
			}
			v.Errors[id] = e.result.Message
		}
	}
	return v
}

// State returns the displayed state of one widget.
func (c *Client) State(id string) (WidgetState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return WidgetState{}, false
	}
	return WidgetState{
		ID:      id,
		Kind:    e.local.Kind(),
		Path:    e.committed.Path.Clone(),
		Value:   widget.ValueOf(e.local),
		Error:   e.result.Message,
		Pending: c.protected(id),
	}, true
}

// Status returns the lifecycle state as seen by this Client.
func (c *Client) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle.Status()
}

// SessionID returns the session assigned by the relay, empty until confirmed.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Updates signals after every change to the view. Signals are coalesced.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

func (c *Client) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

func (c *Client) wake() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Client) send(ctx context.Context, msg *protocol.Message) error {
	if msg == nil {
		return nil
	}
	err := c.conn.Send(ctx, msg)

	c.mu.Lock()
	if a := c.attempt; a != nil && a.msgID == msg.ID {
		c.attempt = nil
		if err != nil {
			c.rollback(a)
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.notify()
		return fmt.Errorf("failed to send %s: %w", msg.Kind(), err)
	}
	return nil
}
