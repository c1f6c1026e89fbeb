package library

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/storage"
	"github.com/prompthive/server/internal/store"
	"github.com/prompthive/server/internal/store/storetest"
)

func newTestService(t *testing.T) (*Service, *storetest.Memory, uuid.UUID) {
	t.Helper()
	mem := storetest.NewMemory()
	owner := mem.AddUser("lib@example.com")
	svc := NewService(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())))
	return svc, mem, owner
}

func TestCreatePrompt(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePrompt(ctx, owner, CreatePromptRequest{Title: "New", Content: "body"})
	require.NoError(t, err)
	require.Len(t, p.Versions, 1)
	assert.Equal(t, 1, p.Versions[0].VersionNumber)

	got, err := svc.GetPrompt(ctx, owner, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentVersionID)
	assert.Equal(t, p.Versions[0].ID, *got.CurrentVersionID)

	_, err = svc.CreatePrompt(ctx, owner, CreatePromptRequest{Title: "New", Content: "dup"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestCreateCollectionParentChecked(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	missing := uuid.New()
	_, err := svc.CreateCollection(ctx, owner, CreateCollectionRequest{Title: "Child", ParentID: &missing})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMoveCollection(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	root, err := svc.CreateCollection(ctx, owner, CreateCollectionRequest{Title: "Root"})
	require.NoError(t, err)
	mid, err := svc.CreateCollection(ctx, owner, CreateCollectionRequest{Title: "Mid", ParentID: &root.ID})
	require.NoError(t, err)
	leaf, err := svc.CreateCollection(ctx, owner, CreateCollectionRequest{Title: "Leaf", ParentID: &mid.ID})
	require.NoError(t, err)

	// Legal reparent.
	require.NoError(t, svc.MoveCollection(ctx, owner, leaf.ID, &root.ID))

	// Self-parent and ancestor cycles are refused.
	err = svc.MoveCollection(ctx, owner, root.ID, &root.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "own parent")

	err = svc.MoveCollection(ctx, owner, root.ID, &mid.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")

	// Detach to root level.
	require.NoError(t, svc.MoveCollection(ctx, owner, mid.ID, nil))
	cols, err := svc.ListCollections(ctx, owner)
	require.NoError(t, err)
	for _, c := range cols {
		if c.ID == mid.ID {
			assert.Nil(t, c.ParentID)
		}
	}
}

func TestMoveCollectionMissingParent(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCollection(ctx, owner, CreateCollectionRequest{Title: "Lonely"})
	require.NoError(t, err)

	missing := uuid.New()
	err = svc.MoveCollection(ctx, owner, c.ID, &missing)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
