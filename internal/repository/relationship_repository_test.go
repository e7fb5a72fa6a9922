package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/travel-relation/internal/model"
	"github.com/d60-Lab/travel-relation/internal/testutil"
)

func TestRelationshipRepository_CreateIsIdempotentPerPair(t *testing.T) {
	repo := NewRelationshipRepository(testutil.NewDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, model.NewRelationshipRequest("a", "Alice", "b"))
	require.NoError(t, err)
	assert.True(t, created)

	// 同方向、反方向都落在同一个主键上
	created, err = repo.Create(ctx, model.NewRelationshipRequest("a", "Alice", "b"))
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.Create(ctx, model.NewRelationshipRequest("b", "Bob", "a"))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.FindDirected(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FromUsername)
	assert.Equal(t, []string{"a", "b"}, got.Participants)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRelationshipRepository_Lookups(t *testing.T) {
	repo := NewRelationshipRepository(testutil.NewDB(t))
	ctx := context.Background()

	req := model.NewRelationshipRequest("zed", "Zed", "amy")
	_, err := repo.Create(ctx, req)
	require.NoError(t, err)

	_, err = repo.FindDirected(ctx, "amy", "zed")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := repo.FindByParticipants(ctx, "amy", "zed")
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	got, err = repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "zed", got.FromUID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := repo.ListByTo(ctx, "amy", model.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	accepted, err := repo.ListByFrom(ctx, "zed", model.StatusAccepted)
	require.NoError(t, err)
	assert.Empty(t, accepted)
}

func TestRelationshipRepository_GuardedTransitions(t *testing.T) {
	repo := NewRelationshipRepository(testutil.NewDB(t))
	ctx := context.Background()

	req := model.NewRelationshipRequest("a", "Alice", "b")
	_, err := repo.Create(ctx, req)
	require.NoError(t, err)

	ok, err := repo.UpdateStatus(ctx, req.ID, model.StatusPending, model.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, ok)

	// 已经 accepted，再次从 pending 迁移不生效
	ok, err = repo.UpdateStatus(ctx, req.ID, model.StatusPending, model.StatusAccepted)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteWithStatus(ctx, req.ID, model.StatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteWithStatus(ctx, req.ID, model.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteWithStatus(ctx, req.ID, model.StatusAccepted)
	require.NoError(t, err)
	assert.False(t, ok)
}
