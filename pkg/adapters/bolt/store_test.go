package bolt_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trysourcetool/sourcetool/pkg/adapters/bolt"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/ports"
)

func open(t *testing.T, opts ...bolt.Option) (*bolt.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := bolt.Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestBoltStore_Contract(t *testing.T) {
	store, _ := open(t)
	ports.RunSessionStoreContract(t, store)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := bolt.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "s1", domain.NewSnapshot("s1", "page-1")))
	require.NoError(t, store.Close())

	reopened, err := bolt.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	snap, err := reopened.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "page-1", snap.PageID)
}

func TestBoltStore_TTL(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store, _ := open(t, bolt.WithTTL(time.Minute), bolt.WithClock(clock))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.NewSnapshot("s1", "page-1")))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
