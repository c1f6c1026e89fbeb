package transfer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/store"
)

// Resolver batch-resolves tag and collection names referenced anywhere in an
// import batch to live ids. Missing entities are created optimistically; a
// unique-constraint race with a concurrent importer falls back to re-fetching
// the winner. No leading transaction required.
type Resolver struct {
	store store.Store
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// ResolveTags returns a name→id map covering every resolvable input name.
// Tags are global. A name that can neither be created nor found after the
// conflict retry is logged and left out of the map; the referencing record
// imports without it.
func (r *Resolver) ResolveTags(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(names))
	if len(names) == 0 {
		return out, nil
	}

	existing, err := r.store.TagsByName(ctx, names)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		out[t.Name] = t.ID
	}

	for _, name := range names {
		if _, ok := out[name]; ok {
			continue
		}
		created, err := r.store.CreateTag(ctx, name, "")
		if err == nil {
			out[name] = created.ID
			continue
		}
		if !errors.Is(err, store.ErrConflict) {
			slog.Warn("tag create failed", "name", name, "error", err)
			continue
		}
		winner, err := r.store.TagByName(ctx, name)
		if err != nil {
			slog.Warn("tag unresolvable after conflict", "name", name, "error", err)
			continue
		}
		out[name] = winner.ID
	}
	return out, nil
}

// ResolveCollections is the owner-scoped equivalent for collection names.
// Name-referenced collections resolve at the root level of the tree.
func (r *Resolver) ResolveCollections(ctx context.Context, ownerID uuid.UUID, names []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(names))
	if len(names) == 0 {
		return out, nil
	}

	existing, err := r.store.CollectionsByTitles(ctx, ownerID, names)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if _, ok := out[c.Title]; !ok {
			out[c.Title] = c.ID
		}
	}

	for _, name := range names {
		if _, ok := out[name]; ok {
			continue
		}
		created, err := r.store.CreateCollection(ctx, store.CreateCollectionParams{
			OwnerID: ownerID,
			Title:   name,
		})
		if err == nil {
			out[name] = created.ID
			continue
		}
		if !errors.Is(err, store.ErrConflict) {
			slog.Warn("collection create failed", "title", name, "error", err)
			continue
		}
		winner, err := r.store.CollectionByTitleAndParent(ctx, ownerID, name, nil)
		if err != nil {
			slog.Warn("collection unresolvable after conflict", "title", name, "error", err)
			continue
		}
		out[name] = winner.ID
	}
	return out, nil
}
