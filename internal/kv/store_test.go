package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartaudit/internal/platform/sqlite"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "sra_rules")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "sra_rules", []byte(`[1]`)))
	require.NoError(t, s.Set(ctx, "sra_rules", []byte(`[1,2]`)))

	got, err := s.Get(ctx, "sra_rules")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(got))

	require.NoError(t, s.Delete(ctx, "sra_rules"))
	_, err = s.Get(ctx, "sra_rules")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestSQLiteStore(t *testing.T) {
	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}
