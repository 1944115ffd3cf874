package checkpoint

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeConformance runs the same behavioral checks against any Store.
func storeConformance(t *testing.T, store Store) {
	t.Helper()

	// Missing thread
	_, err := store.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Save and load
	require.NoError(t, store.Save("thread-1", []byte("first")))
	data, err := store.Load("thread-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	// Save overwrites: only the latest checkpoint is kept
	require.NoError(t, store.Save("thread-1", []byte("second")))
	data, err = store.Load("thread-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// Threads are independent
	require.NoError(t, store.Save("thread-2", []byte("other")))
	data, err = store.Load("thread-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// Delete is idempotent
	require.NoError(t, store.Delete("thread-1"))
	_, err = store.Load("thread-1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete("thread-1"))

	// Closed store refuses operations
	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Save("thread-2", []byte("x")), ErrStoreClosed)
	_, err = store.Load("thread-2")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestMemoryStore(t *testing.T) {
	storeConformance(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	storeConformance(t, store)
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	storeConformance(t, NewRedisStore(srv.Addr()))
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	payload := []byte("original")
	require.NoError(t, store.Save("t", payload))
	payload[0] = 'X'

	data, err := store.Load("t")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	path := t.TempDir() + "/checkpoints.db"

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save("t", []byte("durable")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Load("t")
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), data)
}
