package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	root := t.TempDir()
	store, err := NewFileStore(root, nil)
	require.NoError(t, err)
	return store, root
}

func key(tenant, period string) models.ArchiveKey {
	p, err := models.ParsePeriod(period)
	if err != nil {
		panic(err)
	}
	return models.ArchiveKey{TenantID: tenant, Period: p}
}

func collect(t *testing.T, s Store) []models.ArchiveEntry {
	var entries []models.ArchiveEntry
	for entry, err := range s.List(context.Background()) {
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return entries
}

func TestFileStore_PutGetOverwrite(t *testing.T) {
	store, root := newTestFileStore(t)
	ctx := context.Background()
	k := key("t1", "2024-01")

	require.NoError(t, store.Put(ctx, k, []byte("first")))
	require.NoError(t, store.Put(ctx, k, []byte("second")))

	data, err := store.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	files, err := os.ReadDir(filepath.Join(root, "t1"))
	require.NoError(t, err)
	require.Len(t, files, 1, "overwrite must not leave staging files or duplicates")
	assert.Equal(t, "2024-01-Rapport_HACCP.txt", files[0].Name())
}

func TestFileStore_GetMissing(t *testing.T) {
	store, _ := newTestFileStore(t)

	_, err := store.Get(context.Background(), key("t1", "2024-01"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFileStore_DeleteIsIdempotent(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()
	k := key("t1", "2024-01")

	require.NoError(t, store.Delete(ctx, k))
	require.NoError(t, store.Put(ctx, k, []byte("x")))
	require.NoError(t, store.Delete(ctx, k))
	require.NoError(t, store.Delete(ctx, k))

	_, err := store.Get(ctx, k)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFileStore_ListSkipsForeignNames(t *testing.T) {
	store, root := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, key("t1", "2024-01"), []byte("a")))
	require.NoError(t, store.Put(ctx, key("t2", "2023-12"), []byte("bb")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "t1", "readme.md"), []byte("?"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "t1", ".tmp-123"), []byte("?"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("?"), 0o644))

	entries := collect(t, store)
	require.Len(t, entries, 2)

	byKey := map[models.ArchiveKey]models.ArchiveEntry{}
	for _, e := range entries {
		byKey[e.Key] = e
	}
	assert.Equal(t, int64(1), byKey[key("t1", "2024-01")].Size)
	assert.Equal(t, int64(2), byKey[key("t2", "2023-12")].Size)
	assert.False(t, byKey[key("t1", "2024-01")].CreatedAt.IsZero())

	// restartable
	assert.Len(t, collect(t, store), 2)
}

func TestFileStore_ListStopsEarly(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()
	for _, p := range []string{"2024-01", "2024-02", "2024-03"} {
		require.NoError(t, store.Put(ctx, key("t1", p), []byte(p)))
	}

	seen := 0
	for range store.List(ctx) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestFileStore_ConcurrentPutsLastWriterWins(t *testing.T) {
	store, root := newTestFileStore(t)
	ctx := context.Background()
	k := key("t1", "2024-01")

	payloads := make([][]byte, 16)
	for i := range payloads {
		payloads[i] = bytes.Repeat([]byte(fmt.Sprintf("%02d", i)), 4096)
	}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p []byte) {
			defer wg.Done()
			assert.NoError(t, store.Put(ctx, k, p))
		}(p)
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			data, err := store.Get(ctx, k)
			if err != nil {
				continue
			}
			assert.Truef(t, isOneOf(data, payloads), "read torn content of %d bytes", len(data))
		}
	}()

	wg.Wait()
	close(stop)
	<-readerDone

	data, err := store.Get(ctx, k)
	require.NoError(t, err)
	assert.True(t, isOneOf(data, payloads))

	files, err := os.ReadDir(filepath.Join(root, "t1"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileStore_RejectsCancelledContext(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	assert.Error(t, store.Put(ctx, key("t1", "2024-01"), []byte("x")))
}

func isOneOf(data []byte, candidates [][]byte) bool {
	for _, c := range candidates {
		if bytes.Equal(data, c) {
			return true
		}
	}
	return false
}
