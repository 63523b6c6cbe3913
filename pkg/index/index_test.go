package index

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmscraper/pkg/errors"
)

func openTestIndex(t *testing.T, dir string) *Index {
	t.Helper()
	idx, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestPutAndContains(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t, t.TempDir())

	ok, err := idx.Contains(ctx, "US1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.Put(ctx, "US1", "US1.jpg"))

	ok, err = idx.Contains(ctx, "US1")
	require.NoError(t, err)
	assert.True(t, ok)

	filename, found, err := idx.Lookup(ctx, "US1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "US1.jpg", filename)
}

func TestPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t, t.TempDir())

	require.NoError(t, idx.Put(ctx, "US1", "US1.jpg"))
	require.NoError(t, idx.Put(ctx, "US1", "US1.jpg"))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPutFilenameConflict(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t, t.TempDir())

	require.NoError(t, idx.Put(ctx, "US1", "shared.jpg"))
	err := idx.Put(ctx, "US2", "shared.jpg")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConflict))

	ok, err := idx.Contains(ctx, "US2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutConcurrent(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t, t.TempDir())

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("US%d", i)
				errs <- idx.Put(ctx, id, id+".jpg")
			}(i)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t, t.TempDir())

	require.NoError(t, idx.Put(ctx, "A", "A.jpg"))

	inserted, err := idx.Reconcile(ctx, []string{"A.jpg", "B.jpg", "C.jpg", "readme.txt"})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	for _, id := range []string{"A", "B", "C"} {
		ok, err := idx.Contains(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}

	inserted, err = idx.Reconcile(ctx, []string{"A.jpg", "B.jpg", "C.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestIndexSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Put(ctx, "US7", "US7.jpg"))
	require.NoError(t, idx.Close())

	reopened := openTestIndex(t, dir)
	ok, err := reopened.Contains(ctx, "US7")
	require.NoError(t, err)
	assert.True(t, ok)
}
