package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trysourcetool/sourcetool/internal/config"
	"github.com/trysourcetool/sourcetool/internal/logging"
	"github.com/trysourcetool/sourcetool/pkg/adapters/memory"
	"github.com/trysourcetool/sourcetool/pkg/adapters/tui"
	"github.com/trysourcetool/sourcetool/pkg/client"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/host"
	"github.com/trysourcetool/sourcetool/pkg/relay"
	"github.com/trysourcetool/sourcetool/pkg/ui"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAttach_EditAndQuit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rel := relay.NewServer()
	h := host.New(host.WithAPIKey("key"))
	page := domain.NewPage("Greet", "/greet")
	require.NoError(t, h.Register(page, func(b *ui.UIBuilder) error {
		name := b.TextInput("Name", nil)
		if name != "" {
			b.Markdown("Hello " + name)
		}
		return nil
	}))

	relayHost, hostEnd := memory.NewPipe(0)
	go func() { _ = rel.ServeHost(ctx, relayHost) }()
	go func() { _ = h.Serve(ctx, hostEnd) }()
	require.Eventually(t, func() bool { return len(rel.Registry().Hosts()) == 1 }, 2*time.Second, 5*time.Millisecond)

	relayClient, clientEnd := memory.NewPipe(0)
	go func() { _ = rel.ServeClient(ctx, relayClient) }()
	c := client.New(clientEnd, client.WithDebounce(widget.KindTextInput, 0))
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()
	require.NoError(t, c.Initialize(ctx, page.ID, ""))

	in, typed := io.Pipe()
	out := &syncBuffer{}
	r := tui.NewRenderer(tui.WithStyle("notty"), tui.WithProfile(termenv.Ascii))
	done := make(chan error, 1)
	go func() { done <- attach(ctx, c, r, in, out, runErr) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "[1] Name") }, 3*time.Second, 10*time.Millisecond)

	_, err := io.WriteString(typed, "1 Ada\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Hello Ada") }, 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(typed, "nonsense\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "error: unknown command") }, 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(typed, "quit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("attach did not return after quit")
	}
	assert.Equal(t, domain.StatusClosed, c.Status())
}

func TestOpenStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverBolt
	cfg.Store.BoltPath = t.TempDir() + "/sessions.db"

	store, opts, closer, err := openStore(cfg, logging.NewNop())
	require.NoError(t, err)
	defer closer.Close()
	assert.NotEmpty(t, opts)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, driver := range []string{config.DriverMemory, config.DriverFile} {
		cfg.Store.Driver = driver
		cfg.Store.Dir = t.TempDir()
		store, _, closer, err := openStore(cfg, logging.NewNop())
		require.NoError(t, err, driver)
		ids, err := store.List(context.Background())
		require.NoError(t, err, driver)
		assert.Empty(t, ids, driver)
		assert.NoError(t, closer.Close(), driver)
	}
}

func TestTransport(t *testing.T) {
	cfg := config.Default().Relay
	cfg.ReadTimeout = 0
	cfg.WriteTimeout = 3 * time.Second

	s := transport(cfg)
	assert.Equal(t, 3*time.Second, s.WriteTimeout)
	assert.Equal(t, 60*time.Second, s.ReadTimeout, "zero keeps the default")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "sourcetool version "))
}

func TestOpenStore_Encrypted(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store.Driver = config.DriverFile
	cfg.Store.Dir = t.TempDir()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	cfg.Store.Redact = []string{"(?i)password"}

	store, _, closer, err := openStore(cfg, logging.NewNop())
	require.NoError(t, err)
	defer closer.Close()

	snap := domain.NewSnapshot("s1", "page-1")
	snap.Widgets = []*widget.Widget{
		widget.New("pw", widget.Path{0}, &widget.TextInput{Label: "Password", Value: widget.Some("hunter2")}),
	}
	require.NoError(t, store.Save(ctx, "s1", snap))

	raw, err := os.ReadFile(filepath.Join(cfg.Store.Dir, "s1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sealed"`)
	assert.NotContains(t, string(raw), "Password")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Widgets, 1)
	assert.False(t, loaded.Widgets[0].Content.(*widget.TextInput).Value.IsSet())

	cfg.Store.EncryptionKey = "short"
	_, _, _, err = openStore(cfg, logging.NewNop())
	assert.Error(t, err)
}
