package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/apigate/internal/apidb"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	d := apidb.Descriptor{IsStatic: true, Signature: "void Write(string msg)"}.With(apidb.FieldSince, "4")
	require.NoError(t, s.Put(ctx, "API9", "M:Tizen.Log.Write", d))

	got, err := s.Get(ctx, "API9", "M:Tizen.Log.Write")
	require.NoError(t, err)
	eq, err := got.Equal(d)
	require.NoError(t, err)
	assert.True(t, eq)

	_, err = s.Get(ctx, "API8", "M:Tizen.Log.Write")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "API9", "M:Tizen.Log.Write"))
	_, err = s.Get(ctx, "API9", "M:Tizen.Log.Write")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "API9", "M:Absent"))
}

func TestQuery_IsolatesCategories(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	require.NoError(t, s.Put(ctx, "API9", "A", apidb.Descriptor{Signature: "a9"}))
	require.NoError(t, s.Put(ctx, "API8", "A", apidb.Descriptor{Signature: "a8"}))
	require.NoError(t, s.Put(ctx, "API8", "B", apidb.Descriptor{Signature: "b8"}))
	// API10 shares the API1 prefix; the trailing slash keeps them apart.
	require.NoError(t, s.Put(ctx, "API10", "C", apidb.Descriptor{Signature: "c10"}))

	snap9, err := s.Query(ctx, "API9")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, snap9.Keys())
	d, _ := snap9.Get("A")
	assert.Equal(t, "a9", d.Signature)

	snap8, err := s.Query(ctx, "API8")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, snap8.Keys())

	snap1, err := s.Query(ctx, "API1")
	require.NoError(t, err)
	assert.Zero(t, snap1.Len())
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	first := apidb.NewSnapshot(map[string]apidb.Descriptor{
		"A": {Signature: "void A()"},
		"B": {Signature: "void B()"},
	})
	res, err := s.Import(ctx, "API9", first)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Added)

	second := apidb.NewSnapshot(map[string]apidb.Descriptor{
		"B": {Signature: "void B(int)"},
		"C": {IsHidden: true, Signature: "void C()"},
	})
	res, err = s.Import(ctx, "API9", second)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, res.Added)
	assert.Equal(t, []string{"B"}, res.Changed)
	assert.Equal(t, []string{"A"}, res.Removed)

	stored, err := s.Query(ctx, "API9")
	require.NoError(t, err)
	again, err := apidb.Compare(stored, second)
	require.NoError(t, err)
	assert.Zero(t, again.TotalChangedCount, "stored snapshot must equal the last import")

	res, err = s.Import(ctx, "API9", second)
	require.NoError(t, err)
	assert.Zero(t, res.TotalChangedCount)
}

func TestStatsAndClear(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, s.Put(ctx, "API9", id, apidb.Descriptor{Signature: id}))
	}
	require.NoError(t, s.Put(ctx, "API8", "A", apidb.Descriptor{Signature: "A"}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Entries)
	assert.Equal(t, map[string]int{"API9": 3, "API8": 1}, st.Categories)
	assert.Equal(t, []string{"API8", "API9"}, st.CategoryNames())
	assert.Positive(t, st.TotalBytes)

	n, err := s.Clear(ctx, "API9")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"API8": 1}, st.Categories)

	n, err = s.Clear(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Entries)
}

func TestInvalidCategory(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	for _, c := range []string{"", "API/9"} {
		_, err := s.Query(ctx, c)
		assert.ErrorIs(t, err, ErrInvalidCategory, c)
		assert.ErrorIs(t, s.Put(ctx, c, "A", apidb.Descriptor{}), ErrInvalidCategory, c)
	}
}

func TestCanceledContext(t *testing.T) {
	s := openMem(t)
	require.NoError(t, s.Put(context.Background(), "API9", "A", apidb.Descriptor{Signature: "a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Query(ctx, "API9")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.ErrorIs(t, s.Put(ctx, "API9", "B", apidb.Descriptor{}), context.Canceled)
}

func TestOpen_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")

	s, err := Open(Config{Dir: dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir())
	require.NoError(t, s.Put(ctx, "API9", "A", apidb.Descriptor{Signature: "persisted"}))
	require.NoError(t, s.Close())

	s, err = Open(Config{Dir: dir}, nil)
	require.NoError(t, err)
	defer s.Close()
	d, err := s.Get(ctx, "API9", "A")
	require.NoError(t, err)
	assert.Equal(t, "persisted", d.Signature)
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "apigate", "store"), dir)
}
