package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/store"
)

// maxStructureDepth aborts traversal of pathological (cyclic or absurdly deep)
// collection definitions instead of hanging.
const maxStructureDepth = 100

// StructureImporter recreates a serialized collection tree, producing a
// source-id→live-id map. Existing collections matching (title, parent, owner)
// are reused, so importing the same structure twice does not duplicate folders.
type StructureImporter struct {
	store store.Store
}

func NewStructureImporter(s store.Store) *StructureImporter {
	return &StructureImporter{store: s}
}

func (si *StructureImporter) ImportStructure(ctx context.Context, ownerID uuid.UUID, defs []CollectionDef) (map[string]uuid.UUID, error) {
	idMap := make(map[string]uuid.UUID, len(defs))
	if len(defs) == 0 {
		return idMap, nil
	}

	inBatch := make(map[string]bool, len(defs))
	for _, d := range defs {
		inBatch[string(d.ID)] = true
	}

	// Partition into roots and children grouped by parent source id. A parent
	// pointing outside the batch makes the node a root.
	var roots []CollectionDef
	children := make(map[string][]CollectionDef)
	for _, d := range defs {
		if d.ParentID == nil || !inBatch[string(*d.ParentID)] {
			roots = append(roots, d)
		} else {
			key := string(*d.ParentID)
			children[key] = append(children[key], d)
		}
	}

	for _, root := range roots {
		if err := si.materialize(ctx, ownerID, root, nil, children, idMap, 0); err != nil {
			return nil, err
		}
	}
	return idMap, nil
}

func (si *StructureImporter) materialize(ctx context.Context, ownerID uuid.UUID, def CollectionDef, liveParent *uuid.UUID, children map[string][]CollectionDef, idMap map[string]uuid.UUID, depth int) error {
	if depth > maxStructureDepth {
		return fmt.Errorf("collection structure exceeds depth %d", maxStructureDepth)
	}

	existing, err := si.store.CollectionByTitleAndParent(ctx, ownerID, def.Title, liveParent)
	var liveID uuid.UUID
	switch {
	case err == nil:
		liveID = existing.ID
	case errors.Is(err, store.ErrNotFound):
		created, err := si.store.CreateCollection(ctx, store.CreateCollectionParams{
			OwnerID:     ownerID,
			Title:       def.Title,
			Description: def.Description,
			ParentID:    liveParent,
		})
		if err != nil {
			return fmt.Errorf("create collection %q: %w", def.Title, err)
		}
		liveID = created.ID
	default:
		return fmt.Errorf("lookup collection %q: %w", def.Title, err)
	}

	idMap[string(def.ID)] = liveID

	for _, child := range children[string(def.ID)] {
		if err := si.materialize(ctx, ownerID, child, &liveID, children, idMap, depth+1); err != nil {
			return err
		}
	}
	return nil
}
