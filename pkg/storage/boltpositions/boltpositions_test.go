package boltpositions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twmb/flowgate/pkg/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "positions.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestUpdateFindAllRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers"}, 0, 10))
	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers"}, 1, 20))

	got, err := s.FindAll(ctx, "orders", storage.GroupID{Name: "workers"})
	require.NoError(t, err)
	require.Equal(t, map[uint32]uint64{0: 10, 1: 20}, got)
}

func TestFindAllIsScopedToExactGroupIDAndTopic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers", Version: 1}, 0, 10))
	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers", Version: 2}, 0, 99))
	require.NoError(t, s.Update(ctx, "other-topic", storage.GroupID{Name: "workers", Version: 1}, 0, 5))

	got, err := s.FindAll(ctx, "orders", storage.GroupID{Name: "workers", Version: 1})
	require.NoError(t, err)
	require.Equal(t, map[uint32]uint64{0: 10}, got)

	got, err = s.FindAll(ctx, "orders", storage.GroupID{Name: "workers", Version: 9})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFindAllVersionsByGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers", Version: 1}, 0, 10))
	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers", Version: 2}, 0, 20))
	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers-extra", Version: 1}, 0, 999))

	got, err := s.FindAllVersionsByGroup(ctx, "orders", "workers")
	require.NoError(t, err)
	require.Equal(t, map[uint32]map[uint32]uint64{
		1: {0: 10},
		2: {0: 20},
	}, got)
}

func TestUpdateOverwritesExistingOffset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers"}, 0, 10))
	require.NoError(t, s.Update(ctx, "orders", storage.GroupID{Name: "workers"}, 0, 11))

	got, err := s.FindAll(ctx, "orders", storage.GroupID{Name: "workers"})
	require.NoError(t, err)
	require.Equal(t, map[uint32]uint64{0: 11}, got)
}
