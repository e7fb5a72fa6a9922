package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/travel-relation/internal/model"
	"github.com/d60-Lab/travel-relation/internal/testutil"
)

func TestOverlayRepository_SetSemantics(t *testing.T) {
	repo := NewOverlayRepository(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "a", model.OverlayHiddenFriend, "b"))
	require.NoError(t, repo.Add(ctx, "a", model.OverlayHiddenFriend, "b"))
	require.NoError(t, repo.Add(ctx, "a", model.OverlayHidePinsFrom, "c"))

	hidden, err := repo.List(ctx, "a", model.OverlayHiddenFriend)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, hidden)

	require.NoError(t, repo.Remove(ctx, "a", model.OverlayHiddenFriend, "b"))
	require.NoError(t, repo.Remove(ctx, "a", model.OverlayHiddenFriend, "b"))

	hidden, err = repo.List(ctx, "a", model.OverlayHiddenFriend)
	require.NoError(t, err)
	assert.Empty(t, hidden)

	entries, err := repo.ListByOwner(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.OverlayHidePinsFrom, entries[0].Kind)
}

func TestOverlayRepository_OwnersTargetingAndRemoveBetween(t *testing.T) {
	repo := NewOverlayRepository(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "a", model.OverlayHidePinsFrom, "viewer"))
	require.NoError(t, repo.Add(ctx, "b", model.OverlayHiddenFriend, "viewer"))
	require.NoError(t, repo.Add(ctx, "viewer", model.OverlayHiddenFriend, "a"))

	owners, err := repo.OwnersTargeting(ctx, model.OverlayHidePinsFrom, "viewer", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, owners)

	n, err := repo.RemoveBetween(ctx, "a", "viewer")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := repo.ListByOwner(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
