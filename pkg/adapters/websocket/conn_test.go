package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trysourcetool/sourcetool/pkg/adapters/websocket"
	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
)

// pair starts a server that hands its end of every upgraded connection to the test.
func pair(t *testing.T, settings websocket.Settings) (ports.Conn, ports.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	upgrader := websocket.NewUpgrader(settings, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := websocket.Dial(ctx, url, nil, settings)
	require.NoError(t, err)

	select {
	case server := <-accepted:
		return client, server
	case <-ctx.Done():
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func TestWebsocketConn_Contract(t *testing.T) {
	ports.RunConnContract(t, func(t *testing.T) (ports.Conn, ports.Conn) {
		return pair(t, websocket.DefaultSettings())
	})
}

func TestWebsocketConn_MalformedFrameKeepsConnection(t *testing.T) {
	a, b := pair(t, websocket.DefaultSettings())
	defer a.Close()
	defer b.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, ok := a.(*websocket.Conn)
	require.True(t, ok)
	require.NoError(t, raw.SendRaw(ctx, []byte(`{"id":"m1","bogus":{}}`)))
	require.NoError(t, a.Send(ctx, protocol.New(&protocol.CloseSession{SessionID: "s1"})))

	_, err := b.Receive(ctx)
	de, ok := protocol.IsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "m1", de.ID)

	msg, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", protocol.SessionOf(msg))
}

func TestWebsocketConn_SendAfterClose(t *testing.T) {
	a, b := pair(t, websocket.DefaultSettings())
	defer b.Close()

	require.NoError(t, a.Close())
	err := a.Send(context.Background(), protocol.New(&protocol.CloseSession{SessionID: "s1"}))
	assert.ErrorIs(t, err, ports.ErrConnClosed)
}

func TestWebsocketConn_KeepAlive(t *testing.T) {
	settings := websocket.DefaultSettings()
	settings.ReadTimeout = 200 * time.Millisecond
	a, b := pair(t, settings)
	defer a.Close()
	defer b.Close()

	// Pings keep both sides alive across several read timeouts.
	time.Sleep(600 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Send(ctx, protocol.New(&protocol.CloseSession{SessionID: "s1"})))
	msg, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", protocol.SessionOf(msg))
}
