package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

func contractSnapshot(sessionID string) *domain.Snapshot {
	snap := domain.NewSnapshot(sessionID, "page-1")
	snap.Status = domain.StatusIdle
	snap.Widgets = []*widget.Widget{
		widget.New("w-name", widget.Path{0}, &widget.TextInput{Label: "Name", Value: widget.Some("Ada")}),
		widget.New("w-form", widget.Path{1}, &widget.Form{ButtonLabel: "Save"}),
		widget.New("w-age", widget.Path{1, 0}, &widget.NumberInput{Label: "Age", Value: widget.Some(36.0)}),
	}
	return snap
}

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, snap), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.PageID, loaded.PageID)
		assert.Equal(t, domain.StatusIdle, loaded.Status)
		require.Len(t, loaded.Widgets, 3)

		name, ok := loaded.Widgets[0].Content.(*widget.TextInput)
		require.True(t, ok, "widget variants must survive persistence")
		assert.Equal(t, "Ada", name.Value.OrElse(""))
		assert.Equal(t, widget.Path{1, 0}, loaded.Widgets[2].Path)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		snap := contractSnapshot(sessionID)
		snap.Status = domain.StatusFailed
		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, loaded.Status)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, contractSnapshot(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, contractSnapshot(id1))
		_ = store.Save(ctx, id2, contractSnapshot(id2))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunConnContract verifies a connected pair of Conns. newPair must return fresh,
// unused endpoints on every call.
func RunConnContract(t *testing.T, newPair func(t *testing.T) (Conn, Conn)) {
	t.Run("Ordered delivery", func(t *testing.T) {
		a, b := newPair(t)
		defer a.Close()
		defer b.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		const n = 50
		go func() {
			for i := 0; i < n; i++ {
				_ = a.Send(ctx, protocol.New(&protocol.RenderWidget{
					SessionID: "s",
					PageID:    "p",
					Path:      widget.Path{i},
					Widget:    widget.New("w", widget.Path{i}, &widget.Markdown{Body: "x"}),
				}))
			}
		}()
		for i := 0; i < n; i++ {
			msg, err := b.Receive(ctx)
			require.NoError(t, err)
			rw, ok := msg.Payload.(*protocol.RenderWidget)
			require.True(t, ok)
			assert.Equal(t, widget.Path{i}, rw.Path)
		}
	})

	t.Run("Bidirectional", func(t *testing.T) {
		a, b := newPair(t)
		defer a.Close()
		defer b.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		go func() { _ = b.Send(ctx, protocol.New(&protocol.CloseSession{SessionID: "from-b"})) }()
		msg, err := a.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "from-b", protocol.SessionOf(msg))
	})

	t.Run("Receive honours context", func(t *testing.T) {
		a, b := newPair(t)
		defer a.Close()
		defer b.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := a.Receive(ctx)
		assert.Error(t, err)
	})

	t.Run("Close unblocks peer", func(t *testing.T) {
		a, b := newPair(t)
		defer b.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, a.Close())
		_, err := b.Receive(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConnClosed), "got %v", err)
	})
}
