package relay_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trysourcetool/sourcetool/pkg/adapters/memory"
	"github.com/trysourcetool/sourcetool/pkg/client"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/host"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/relay"
	"github.com/trysourcetool/sourcetool/pkg/ui"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

const testPage = "page-1"

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

// endpoint is the remote side of a connection served by the relay.
type endpoint struct {
	t    *testing.T
	ctx  context.Context
	conn *memory.PipeConn
	done chan error
}

func (e *endpoint) send(p protocol.Payload) {
	e.t.Helper()
	require.NoError(e.t, e.conn.Send(e.ctx, protocol.New(p)))
}

func (e *endpoint) next() *protocol.Message {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(e.ctx, 2*time.Second)
	defer cancel()
	msg, err := e.conn.Receive(ctx)
	require.NoError(e.t, err)
	return msg
}

func (e *endpoint) none() {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(e.ctx, 50*time.Millisecond)
	defer cancel()
	if msg, err := e.conn.Receive(ctx); err == nil {
		e.t.Fatalf("unexpected %s", msg.Kind())
	}
}

func (e *endpoint) close() error {
	_ = e.conn.Close()
	select {
	case err := <-e.done:
		return err
	case <-time.After(5 * time.Second):
		e.t.Fatal("relay did not release the connection")
		return nil
	}
}

func serve(t *testing.T, fn func(context.Context, *memory.PipeConn) error) *endpoint {
	t.Helper()
	relayEnd, remote := memory.NewPipe(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	e := &endpoint{t: t, ctx: ctx, conn: remote, done: make(chan error, 1)}
	go func() { e.done <- fn(ctx, relayEnd) }()
	return e
}

func connectHost(t *testing.T, s *relay.Server, key string, pages ...string) (*endpoint, string) {
	t.Helper()
	e := serve(t, func(ctx context.Context, c *memory.PipeConn) error { return s.ServeHost(ctx, c) })
	wire := make([]protocol.Page, 0, len(pages))
	for _, id := range pages {
		wire = append(wire, protocol.Page{ID: id, Name: id, Route: "/" + id})
	}
	e.send(&protocol.InitializeHost{APIKey: key, SDKName: "test", SDKVersion: "0.0.0", Pages: wire})
	done, ok := e.next().Payload.(*protocol.InitializeHostCompleted)
	require.True(t, ok)
	return e, done.HostInstanceID
}

func connectClient(t *testing.T, s *relay.Server, pageID, sessionID string) (*endpoint, string) {
	t.Helper()
	e := serve(t, func(ctx context.Context, c *memory.PipeConn) error { return s.ServeClient(ctx, c) })
	e.send(&protocol.InitializeClient{SessionID: sessionID, PageID: pageID})
	done, ok := e.next().Payload.(*protocol.InitializeClientCompleted)
	require.True(t, ok)
	return e, done.SessionID
}

func expectInitialize(t *testing.T, h *endpoint, sessionID string) {
	t.Helper()
	init, ok := h.next().Payload.(*protocol.InitializeClient)
	require.True(t, ok)
	assert.Equal(t, sessionID, init.SessionID)
	assert.Equal(t, testPage, init.PageID)
}

func TestServer_HostHandshake(t *testing.T) {
	s := relay.NewServer(relay.WithAPIKeys("good"))

	_, id := connectHost(t, s, "good", testPage)
	assert.NotEmpty(t, id)
	hosts := s.Registry().Hosts()
	require.Len(t, hosts, 1)
	assert.Equal(t, id, hosts[0].ID)

	bad := serve(t, func(ctx context.Context, c *memory.PipeConn) error { return s.ServeHost(ctx, c) })
	bad.send(&protocol.InitializeHost{APIKey: "wrong"})
	ex, ok := bad.next().Payload.(*protocol.Exception)
	require.True(t, ok)
	assert.Equal(t, "Unauthorized", ex.Title)
	assert.ErrorIs(t, <-bad.done, domain.ErrUnauthorized)
}

func TestServer_HostHandshakeRequiresKey(t *testing.T) {
	s := relay.NewServer()

	_, id := connectHost(t, s, "anything", testPage)
	assert.NotEmpty(t, id)

	anon := serve(t, func(ctx context.Context, c *memory.PipeConn) error { return s.ServeHost(ctx, c) })
	anon.send(&protocol.InitializeHost{})
	_, ok := anon.next().Payload.(*protocol.Exception)
	require.True(t, ok)
	assert.ErrorIs(t, <-anon.done, domain.ErrUnauthorized)
}

func TestServer_HandshakeWrongKind(t *testing.T) {
	s := relay.NewServer()
	e := serve(t, func(ctx context.Context, c *memory.PipeConn) error { return s.ServeClient(ctx, c) })
	e.send(&protocol.CloseSession{SessionID: "x"})
	_, ok := e.next().Payload.(*protocol.Exception)
	require.True(t, ok)
	assert.ErrorIs(t, <-e.done, relay.ErrHandshake)
}

func TestServer_UnknownPage(t *testing.T) {
	s := relay.NewServer()
	e := serve(t, func(ctx context.Context, c *memory.PipeConn) error { return s.ServeClient(ctx, c) })
	e.send(&protocol.InitializeClient{PageID: "missing"})

	ex, ok := e.next().Payload.(*protocol.Exception)
	require.True(t, ok)
	assert.Equal(t, "Page not found", ex.Title)
	assert.ErrorIs(t, <-e.done, domain.ErrPageNotFound)
}

func TestServer_Routing(t *testing.T) {
	s := relay.NewServer(relay.WithIDGenerator(sequentialIDs()))
	h, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)

	w := widget.New("w1", widget.Path{0}, &widget.Markdown{Body: "hi"})
	h.send(&protocol.RenderWidget{SessionID: sid, PageID: testPage, Path: w.Path, Widget: w})
	h.send(&protocol.ScriptFinished{SessionID: sid, Status: protocol.StatusSuccess})

	render, ok := c.next().Payload.(*protocol.RenderWidget)
	require.True(t, ok)
	assert.Equal(t, "w1", render.Widget.ID)
	_, ok = c.next().Payload.(*protocol.ScriptFinished)
	require.True(t, ok)

	c.send(&protocol.RerunPage{SessionID: sid, States: []*widget.Widget{w}})
	rerun, ok := h.next().Payload.(*protocol.RerunPage)
	require.True(t, ok)
	assert.Equal(t, sid, rerun.SessionID)
	assert.Equal(t, testPage, rerun.PageID, "page defaults to the attached session")

	// Messages for sessions the host does not own are not delivered.
	h.send(&protocol.ScriptFinished{SessionID: "other", Status: protocol.StatusSuccess})
	c.none()
}

func TestServer_PreservesOrder(t *testing.T) {
	s := relay.NewServer(relay.WithOutboundBuffer(2))
	h, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)

	const n = 50
	go func() {
		for i := range n {
			w := widget.New(fmt.Sprintf("w%d", i), widget.Path{i}, &widget.Markdown{Body: "x"})
			_ = h.conn.Send(h.ctx, protocol.New(&protocol.RenderWidget{SessionID: sid, PageID: testPage, Path: w.Path, Widget: w}))
		}
	}()
	for i := range n {
		render, ok := c.next().Payload.(*protocol.RenderWidget)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("w%d", i), render.Widget.ID)
	}
}

func TestServer_SlowClientHoldsBackHost(t *testing.T) {
	s := relay.NewServer(relay.WithOutboundBuffer(1), relay.WithWriteTimeout(5*time.Second))
	h, _ := connectHost(t, s, "k", testPage)
	slow, slowID := connectClient(t, s, testPage, "")
	expectInitialize(t, h, slowID)
	fast, fastID := connectClient(t, s, testPage, "")
	expectInitialize(t, h, fastID)

	// Enough frames to fill the slow client's pipe and FIFO.
	n := memory.DefaultPipeBuffer + 8
	go func() {
		for i := range n {
			w := widget.New(fmt.Sprintf("w%d", i), widget.Path{i}, &widget.Markdown{Body: "x"})
			_ = h.conn.Send(h.ctx, protocol.New(&protocol.RenderWidget{SessionID: slowID, PageID: testPage, Path: w.Path, Widget: w}))
		}
		_ = h.conn.Send(h.ctx, protocol.New(&protocol.ScriptFinished{SessionID: fastID, Status: protocol.StatusSuccess}))
	}()

	fast.none()
	for i := range n {
		render, ok := slow.next().Payload.(*protocol.RenderWidget)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("w%d", i), render.Widget.ID, "nothing is dropped")
	}
	done, ok := fast.next().Payload.(*protocol.ScriptFinished)
	require.True(t, ok)
	assert.Equal(t, fastID, done.SessionID)
}

func TestServer_ReattachAndStaleSession(t *testing.T) {
	s := relay.NewServer()
	h, _ := connectHost(t, s, "k", testPage)
	first, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)

	second, again := connectClient(t, s, testPage, sid)
	assert.Equal(t, sid, again)
	expectInitialize(t, h, sid)

	info, ok := s.Registry().Session(sid)
	require.True(t, ok)
	assert.Equal(t, 2, info.Clients)

	h.send(&protocol.ScriptFinished{SessionID: sid, Status: protocol.StatusSuccess})
	first.next()
	second.next()

	_, fresh := connectClient(t, s, testPage, "no-such-session")
	assert.NotEqual(t, "no-such-session", fresh)
	assert.NotEqual(t, sid, fresh)
	expectInitialize(t, h, fresh)
}

func TestServer_LastClientClosesSession(t *testing.T) {
	s := relay.NewServer()
	h, _ := connectHost(t, s, "k", testPage)
	first, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)
	second, _ := connectClient(t, s, testPage, sid)
	expectInitialize(t, h, sid)

	require.NoError(t, first.close())
	h.none()

	second.send(&protocol.CloseSession{SessionID: sid})
	closeMsg, ok := h.next().Payload.(*protocol.CloseSession)
	require.True(t, ok)
	assert.Equal(t, sid, closeMsg.SessionID)
	assert.NoError(t, <-second.done)

	_, ok = s.Registry().Session(sid)
	assert.False(t, ok)
}

func expectHostLost(t *testing.T, c *endpoint, sid string) {
	t.Helper()
	ex, ok := c.next().Payload.(*protocol.Exception)
	require.True(t, ok)
	assert.Equal(t, sid, ex.SessionID)
	assert.Equal(t, "Host disconnected", ex.Title)
	done, ok := c.next().Payload.(*protocol.ScriptFinished)
	require.True(t, ok)
	assert.Equal(t, protocol.StatusFailure, done.Status)
}

func TestServer_HostLoss(t *testing.T) {
	s := relay.NewServer()
	h, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)

	require.NoError(t, h.close())
	expectHostLost(t, c, sid)
	assert.Empty(t, s.Registry().Hosts())

	info, ok := s.Registry().Session(sid)
	require.True(t, ok, "orphaned sessions wait for another host")
	assert.Empty(t, info.HostID)

	// A rerun nobody can run is finished as failed.
	c.send(&protocol.RerunPage{SessionID: sid})
	expectHostLost(t, c, sid)
}

func TestServer_HostLossAdoption(t *testing.T) {
	s := relay.NewServer()
	first, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, first, sid)

	require.NoError(t, first.close())
	expectHostLost(t, c, sid)

	second, hostID := connectHost(t, s, "k", testPage)
	expectInitialize(t, second, sid)
	info, ok := s.Registry().Session(sid)
	require.True(t, ok)
	assert.Equal(t, hostID, info.HostID)

	second.send(&protocol.ScriptFinished{SessionID: sid, Status: protocol.StatusSuccess})
	_, ok = c.next().Payload.(*protocol.ScriptFinished)
	assert.True(t, ok)

	c.send(&protocol.RerunPage{SessionID: sid})
	_, ok = second.next().Payload.(*protocol.RerunPage)
	assert.True(t, ok)
}

func TestServer_ReattachAdoptsOrphan(t *testing.T) {
	s := relay.NewServer()
	first, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, first, sid)

	require.NoError(t, first.close())
	expectHostLost(t, c, sid)
	require.NoError(t, c.close())
	_, ok := s.Registry().Session(sid)
	require.True(t, ok, "an orphan outlives its last client")

	second, hostID := connectHost(t, s, "k", testPage)
	second.none()

	_, again := connectClient(t, s, testPage, sid)
	assert.Equal(t, sid, again)
	expectInitialize(t, second, sid)
	info, _ := s.Registry().Session(sid)
	assert.Equal(t, hostID, info.HostID)
}

func TestServer_OrphanExpiry(t *testing.T) {
	var closed atomic.Int32
	s := relay.NewServer(
		relay.WithOrphanGrace(20*time.Millisecond),
		relay.WithHooks(relay.Hooks{OnSessionClosed: func(relay.SessionInfo) { closed.Add(1) }}),
	)
	h, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)

	require.NoError(t, h.close())
	expectHostLost(t, c, sid)

	select {
	case err := <-c.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client was not disconnected after the grace period")
	}
	assert.Empty(t, s.Registry().Sessions())
	assert.Equal(t, int32(1), closed.Load())
}

func TestServer_HostLossWithoutGrace(t *testing.T) {
	s := relay.NewServer(relay.WithOrphanGrace(0))
	h, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)

	require.NoError(t, h.close())
	expectHostLost(t, c, sid)
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not disconnected")
	}
	assert.Empty(t, s.Registry().Sessions())
}

func TestServer_MalformedAndMismatched(t *testing.T) {
	s := relay.NewServer()
	h, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)

	require.NoError(t, c.conn.SendRaw(c.ctx, []byte(`{"id":"x","bogus":{}}`)))
	ex, ok := c.next().Payload.(*protocol.Exception)
	require.True(t, ok)
	assert.Equal(t, "Malformed message", ex.Title)

	c.send(&protocol.RerunPage{SessionID: "someone-else"})
	ex, ok = c.next().Payload.(*protocol.Exception)
	require.True(t, ok)
	assert.Equal(t, "Session mismatch", ex.Title)

	c.send(&protocol.InitializeClient{PageID: testPage})
	ex, ok = c.next().Payload.(*protocol.Exception)
	require.True(t, ok)
	assert.Equal(t, "Unexpected message", ex.Title)

	h.none()

	// The session is still usable.
	c.send(&protocol.RerunPage{SessionID: sid})
	_, ok = h.next().Payload.(*protocol.RerunPage)
	assert.True(t, ok)
}

func TestServer_Hooks(t *testing.T) {
	var opened, closed, routed atomic.Int32
	s := relay.NewServer(relay.WithHooks(relay.Hooks{
		OnSessionOpened: func(relay.SessionInfo) { opened.Add(1) },
		OnSessionClosed: func(relay.SessionInfo) { closed.Add(1) },
		OnMessage:       func(relay.Direction, protocol.Kind) { routed.Add(1) },
	}))
	h, _ := connectHost(t, s, "k", testPage)
	c, sid := connectClient(t, s, testPage, "")
	expectInitialize(t, h, sid)

	require.NoError(t, c.close())
	h.next()

	assert.Equal(t, int32(1), opened.Load())
	assert.Equal(t, int32(1), closed.Load())
	assert.Equal(t, int32(1), routed.Load())
}

func TestServer_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := relay.NewServer(relay.WithAPIKeys("secret"))
	page := domain.NewPage("Greet", "/greet")
	hst := host.New(host.WithAPIKey("secret"))
	require.NoError(t, hst.Register(page, func(b *ui.UIBuilder) error {
		if name := b.TextInput("Name", nil); name != "" {
			b.Markdown("Hello, " + name + "!")
		}
		return nil
	}))

	hostRelay, hostEnd := memory.NewPipe(0)
	go func() { _ = s.ServeHost(ctx, hostRelay) }()
	go func() { _ = hst.Serve(ctx, hostEnd) }()
	require.Eventually(t, func() bool { return len(s.Registry().Hosts()) == 1 }, 2*time.Second, 5*time.Millisecond)

	clientRelay, clientEnd := memory.NewPipe(0)
	go func() { _ = s.ServeClient(ctx, clientRelay) }()
	c := client.New(clientEnd, client.WithDebounce(widget.KindTextInput, 0))
	go func() { _ = c.Run(ctx) }()

	require.NoError(t, c.Initialize(ctx, page.ID, ""))
	require.Eventually(t, func() bool { return c.Status() == domain.StatusIdle }, 2*time.Second, 5*time.Millisecond)

	view := c.View()
	require.Len(t, view.Widgets, 1)
	require.NoError(t, c.Edit(ctx, view.Widgets[0].ID, "Ada"))

	require.Eventually(t, func() bool {
		v := c.View()
		return c.Status() == domain.StatusSucceeded && len(v.Widgets) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "Hello, Ada!", c.View().Widgets[1].Content.(*widget.Markdown).Body)

	assert.Eventually(t, func() bool {
		status, ok := hst.SessionStatus(c.SessionID())
		return ok && status == domain.StatusSucceeded
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServer_EndToEndTableSelection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := relay.NewServer(relay.WithAPIKeys("secret"))
	page := domain.NewPage("Users", "/users")
	rows := []map[string]string{{"name": "ada"}, {"name": "grace"}, {"name": "alan"}}
	var passes atomic.Int32
	hst := host.New(host.WithAPIKey("secret"))
	require.NoError(t, hst.Register(page, func(b *ui.UIBuilder) error {
		passes.Add(1)
		picked := b.Table(rows, &ui.TableOptions{RowSelection: widget.RowSelectionSingle})
		if picked.Selection != nil {
			b.Markdown("Selected " + rows[picked.Selection.Row]["name"])
		}
		return nil
	}))

	hostRelay, hostEnd := memory.NewPipe(0)
	go func() { _ = s.ServeHost(ctx, hostRelay) }()
	go func() { _ = hst.Serve(ctx, hostEnd) }()
	require.Eventually(t, func() bool { return len(s.Registry().Hosts()) == 1 }, 2*time.Second, 5*time.Millisecond)

	clientRelay, clientEnd := memory.NewPipe(0)
	go func() { _ = s.ServeClient(ctx, clientRelay) }()
	c := client.New(clientEnd)
	go func() { _ = c.Run(ctx) }()

	require.NoError(t, c.Initialize(ctx, page.ID, ""))
	require.Eventually(t, func() bool { return c.Status() == domain.StatusIdle }, 2*time.Second, 5*time.Millisecond)
	view := c.View()
	require.Len(t, view.Widgets, 1)

	require.NoError(t, c.SelectRow(ctx, view.Widgets[0].ID, 2))
	require.Eventually(t, func() bool {
		return c.Status() == domain.StatusSucceeded && len(c.View().Widgets) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), passes.Load())
	assert.Equal(t, "Selected alan", c.View().Widgets[1].Content.(*widget.Markdown).Body)
}
