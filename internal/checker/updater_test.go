package checker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestUpdater_Run(t *testing.T) {
	st := newMemStore()
	u := NewUpdater(st, map[string]string{"devel/master": "API9"}, zaptest.NewLogger(t))
	ctx := context.Background()

	first := writeFile(t, "api1.json", `[{"DocId": "M:F", "Info": `+publicF+`}]`)
	res, err := u.Run(ctx, "devel/master", first)
	require.NoError(t, err)
	assert.Equal(t, []string{"M:F"}, res.Added)

	second := writeFile(t, "api2.json", `[{"DocId": "M:F", "Info": `+publicF2+`}, {"DocId": "M:G", "Info": `+hiddenG+`}]`)
	res, err = u.Run(ctx, "devel/master", second)
	require.NoError(t, err)
	assert.Equal(t, []string{"M:G"}, res.Added)
	assert.Equal(t, []string{"M:F"}, res.Changed)
	assert.Empty(t, res.Removed)

	stored, err := st.Query(ctx, "API9")
	require.NoError(t, err)
	assert.Equal(t, []string{"M:F", "M:G"}, stored.Keys())
}

func TestUpdater_UnmanagedBranch(t *testing.T) {
	st := newMemStore()
	u := NewUpdater(st, map[string]string{"master": "API9"}, nil)

	res, err := u.Run(context.Background(), "feature/y", filepath.Join(t.TempDir(), "never-read.json"))
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, st.snaps)
}

func TestUpdater_BadSnapshot(t *testing.T) {
	st := newMemStore()
	u := NewUpdater(st, map[string]string{"master": "API9"}, zaptest.NewLogger(t))

	_, err := u.Run(context.Background(), "master", writeFile(t, "api.json", `{"not": "an array"}`))
	require.Error(t, err)
	assert.Empty(t, st.snaps)
}
