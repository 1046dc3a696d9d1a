package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/trysourcetool/sourcetool/pkg/adapters/http"
	"github.com/trysourcetool/sourcetool/pkg/adapters/websocket"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/relay"
)

func newServer(t *testing.T, opts ...httpadapter.Option) (*httptest.Server, *relay.Server) {
	t.Helper()
	rel := relay.NewServer(relay.WithAPIKeys("secret"))
	srv := httptest.NewServer(httpadapter.NewHandler(rel, opts...))
	t.Cleanup(srv.Close)
	return srv, rel
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, err := websocket.Dial(ctx, url, nil, websocket.DefaultSettings())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHandler_Health(t *testing.T) {
	srv, _ := newServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandler_Info(t *testing.T) {
	srv, _ := newServer(t)

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/info", &body))
	assert.Equal(t, "sourcetool-relay", body["app"])
	assert.NotEmpty(t, body["version"])
	assert.EqualValues(t, 0, body["sessions"])
}

func TestHandler_MetricsOptional(t *testing.T) {
	srv, _ := newServer(t)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/metrics", nil))

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	withMetrics, _ := newServer(t, httpadapter.WithMetrics(metrics))
	assert.Equal(t, http.StatusOK, getJSON(t, withMetrics.URL+"/metrics", nil))
}

func TestHandler_CORSPreflight(t *testing.T) {
	srv, _ := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/sessions", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHandler_WebsocketRouting(t *testing.T) {
	srv, rel := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := dial(t, ctx, srv, "/ws/host")
	require.NoError(t, host.Send(ctx, protocol.New(&protocol.InitializeHost{
		APIKey:     "secret",
		SDKName:    "test",
		SDKVersion: "0.0.0",
		Pages:      []protocol.Page{{ID: "page-1", Name: "Hello", Route: "/hello", Path: []int{0}}},
	})))
	msg, err := host.Receive(ctx)
	require.NoError(t, err)
	_, ok := msg.Payload.(*protocol.InitializeHostCompleted)
	require.True(t, ok, "got %s", msg.Kind())

	client := dial(t, ctx, srv, "/ws/client")
	require.NoError(t, client.Send(ctx, protocol.New(&protocol.InitializeClient{PageID: "page-1"})))
	msg, err = client.Receive(ctx)
	require.NoError(t, err)
	done, ok := msg.Payload.(*protocol.InitializeClientCompleted)
	require.True(t, ok, "got %s", msg.Kind())

	msg, err = host.Receive(ctx)
	require.NoError(t, err)
	init, ok := msg.Payload.(*protocol.InitializeClient)
	require.True(t, ok, "got %s", msg.Kind())
	assert.Equal(t, done.SessionID, init.SessionID)

	var sessions []relay.SessionInfo
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/sessions", &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "page-1", sessions[0].PageID)
	assert.Equal(t, 1, sessions[0].Clients)

	var info relay.SessionInfo
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/sessions/"+done.SessionID, &info))
	assert.Equal(t, done.SessionID, info.ID)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/sessions/missing", nil))

	var hosts []relay.HostInfo
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/hosts", &hosts))
	require.Len(t, hosts, 1)
	assert.Equal(t, "test", hosts[0].SDKName)
	assert.Len(t, rel.Registry().Hosts(), 1)

	// The host's render reaches the client over the socket.
	require.NoError(t, host.Send(ctx, protocol.New(&protocol.ScriptFinished{
		SessionID: done.SessionID,
		Status:    protocol.StatusSuccess,
	})))
	msg, err = client.Receive(ctx)
	require.NoError(t, err)
	finished, ok := msg.Payload.(*protocol.ScriptFinished)
	require.True(t, ok, "got %s", msg.Kind())
	assert.Equal(t, protocol.StatusSuccess, finished.Status)
}

func TestHandler_RejectsPlainRequests(t *testing.T) {
	srv, _ := newServer(t)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/ws/host", nil))
}
