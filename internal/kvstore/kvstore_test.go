package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dompet/internal/common"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "dompet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		"sqlite": sqliteStore,
		"memory": NewMemoryStore(),
	}
}

func TestStore_LoadSave(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Load(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Save(ctx, "sqlite_db", []byte{1, 2, 3}))
			got, ok, err := store.Load(ctx, "sqlite_db")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte{1, 2, 3}, got)

			require.NoError(t, store.Save(ctx, "sqlite_db", []byte{9}))
			got, _, err = store.Load(ctx, "sqlite_db")
			require.NoError(t, err)
			assert.Equal(t, []byte{9}, got)

			require.NoError(t, store.Save(ctx, "empty", nil))
			got, ok, err = store.Load(ctx, "empty")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Empty(t, got)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dompet.db")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "settings_language", []byte("en")))
	require.NoError(t, store.Save(ctx, "budget_alert_2024_01", []byte("1")))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, _, err = store.Load(ctx, "settings_language")
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, ok, err := reopened.Load(ctx, "settings_language")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", string(got))

	keys, err := reopened.Keys(ctx, "budget_alert_")
	require.NoError(t, err)
	assert.Equal(t, []string{"budget_alert_2024_01"}, keys)
}

func TestStore_SaveAfterCloseIsPermanent(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Close())

			err := store.Save(ctx, "sqlite_db", []byte{1})
			assert.ErrorIs(t, err, ErrClosed)
			assert.True(t, common.IsPermanent(err))

			attempts := 0
			err = common.WithRetry(ctx, func() error {
				attempts++
				return store.Save(ctx, "sqlite_db", []byte{1})
			}, common.DefaultRetryOptions())
			assert.ErrorIs(t, err, ErrClosed)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	assert.Error(t, err)
}

func TestMemoryStore_SaveErr(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "k", []byte("a")))

	boom := errors.New("disk full")
	store.SetSaveErr(boom)
	assert.ErrorIs(t, store.Save(ctx, "k", []byte("b")), boom)

	got, _, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
	assert.Equal(t, 1, store.SaveCount("k"))
}
