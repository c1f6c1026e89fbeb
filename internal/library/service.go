// Package library is the thin CRUD surface over prompts, collections and
// tags. The heavy lifting lives in transfer and backup; these wrappers exist
// so the HTTP handlers stay trivial.
package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/models"
	"github.com/prompthive/server/internal/store"
)

type Service struct {
	store  store.Store
	assets *assets.Service
}

func NewService(s store.Store, a *assets.Service) *Service {
	return &Service{store: s, assets: a}
}

type CreatePromptRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	IsPrivate   bool   `json:"is_private"`
}

func (s *Service) CreatePrompt(ctx context.Context, ownerID uuid.UUID, req CreatePromptRequest) (*models.Prompt, error) {
	p, err := s.store.CreatePrompt(ctx, store.CreatePromptParams{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		Versions: []store.CreateVersionParams{{
			VersionNumber: 1,
			Content:       req.Content,
		}},
	})
	if err != nil {
		return nil, err
	}
	if len(p.Versions) > 0 {
		if err := s.store.SetCurrentVersion(ctx, p.ID, p.Versions[0].ID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *Service) GetPrompt(ctx context.Context, ownerID, id uuid.UUID) (*models.Prompt, error) {
	return s.store.PromptByID(ctx, ownerID, id)
}

func (s *Service) ListPrompts(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Prompt, error) {
	return s.store.ListPrompts(ctx, ownerID, limit, offset)
}

func (s *Service) DeletePrompt(ctx context.Context, ownerID, id uuid.UUID) error {
	p, err := s.store.PromptByID(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePrompt(ctx, ownerID, id); err != nil {
		return err
	}

	// Stored files and tags referenced by nothing else are dead weight; sweep
	// them with the delete.
	for _, v := range p.Versions {
		s.assets.Remove(ctx, v.ResultImage)
		for _, a := range v.Attachments {
			s.assets.Remove(ctx, a.FilePath)
		}
	}
	if err := s.store.DeleteOrphanTags(ctx); err != nil {
		slog.Warn("orphan tag sweep failed", "error", err)
	}
	return nil
}

type CreateCollectionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

func (s *Service) CreateCollection(ctx context.Context, ownerID uuid.UUID, req CreateCollectionRequest) (*models.Collection, error) {
	if req.ParentID != nil {
		if _, err := s.store.CollectionByID(ctx, ownerID, *req.ParentID); err != nil {
			return nil, fmt.Errorf("parent collection: %w", err)
		}
	}
	return s.store.CreateCollection(ctx, store.CreateCollectionParams{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
}

func (s *Service) ListCollections(ctx context.Context, ownerID uuid.UUID) ([]models.Collection, error) {
	return s.store.ListCollections(ctx, ownerID)
}

// MoveCollection reparents a collection. A move that would make the node its
// own ancestor is refused; the tree must stay acyclic.
func (s *Service) MoveCollection(ctx context.Context, ownerID, id uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return s.store.SetCollectionParent(ctx, ownerID, id, nil)
	}
	if *parentID == id {
		return fmt.Errorf("collection cannot be its own parent")
	}

	all, err := s.store.ListCollections(ctx, ownerID)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]models.Collection, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	if _, ok := byID[*parentID]; !ok {
		return fmt.Errorf("parent collection: %w", store.ErrNotFound)
	}

	// Walk up from the new parent; hitting the moved node means a cycle.
	cur := *parentID
	for range all {
		c, ok := byID[cur]
		if !ok || c.ParentID == nil {
			break
		}
		if *c.ParentID == id {
			return fmt.Errorf("move would create a cycle")
		}
		cur = *c.ParentID
	}

	return s.store.SetCollectionParent(ctx, ownerID, id, parentID)
}

func (s *Service) DeleteCollection(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.store.DeleteCollection(ctx, ownerID, id)
}

func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.store.ListTags(ctx)
}
