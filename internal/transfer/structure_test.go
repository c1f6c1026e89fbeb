package transfer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthive/server/internal/store/storetest"
)

func parentRef(id string) *FlexID {
	f := FlexID(id)
	return &f
}

func TestImportStructureTree(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	si := NewStructureImporter(mem)
	ctx := context.Background()

	defs := []CollectionDef{
		{ID: "3", Title: "Grandchild", ParentID: parentRef("2")},
		{ID: "1", Title: "Root"},
		{ID: "2", Title: "Child", ParentID: parentRef("1")},
	}
	idMap, err := si.ImportStructure(ctx, owner, defs)
	require.NoError(t, err)
	require.Len(t, idMap, 3)

	child, err := mem.CollectionByID(ctx, owner, idMap["2"])
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, idMap["1"], *child.ParentID)

	grandchild, err := mem.CollectionByID(ctx, owner, idMap["3"])
	require.NoError(t, err)
	require.NotNil(t, grandchild.ParentID)
	assert.Equal(t, idMap["2"], *grandchild.ParentID)

	root, err := mem.CollectionByID(ctx, owner, idMap["1"])
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)
}

func TestImportStructureIdempotent(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	si := NewStructureImporter(mem)
	ctx := context.Background()

	defs := []CollectionDef{
		{ID: "1", Title: "Root"},
		{ID: "2", Title: "Child", ParentID: parentRef("1")},
	}
	first, err := si.ImportStructure(ctx, owner, defs)
	require.NoError(t, err)
	second, err := si.ImportStructure(ctx, owner, defs)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-import maps onto the existing nodes")
	cols, err := mem.ListCollections(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, cols, 2, "no duplicate folders")
}

func TestImportStructureSameTitleDifferentParents(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	si := NewStructureImporter(mem)

	defs := []CollectionDef{
		{ID: "1", Title: "Work"},
		{ID: "2", Title: "Personal"},
		{ID: "3", Title: "Drafts", ParentID: parentRef("1")},
		{ID: "4", Title: "Drafts", ParentID: parentRef("2")},
	}
	idMap, err := si.ImportStructure(context.Background(), owner, defs)
	require.NoError(t, err)
	assert.NotEqual(t, idMap["3"], idMap["4"], "title reuse keyed on parent, not title alone")
}

func TestImportStructureExternalParent(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	si := NewStructureImporter(mem)
	ctx := context.Background()

	defs := []CollectionDef{{ID: "1", Title: "Orphan", ParentID: parentRef("not-in-batch")}}
	idMap, err := si.ImportStructure(ctx, owner, defs)
	require.NoError(t, err)

	c, err := mem.CollectionByID(ctx, owner, idMap["1"])
	require.NoError(t, err)
	assert.Nil(t, c.ParentID, "unresolvable parent falls back to root")
}

func TestImportStructureCycle(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	si := NewStructureImporter(mem)

	defs := []CollectionDef{
		{ID: "1", Title: "A", ParentID: parentRef("2")},
		{ID: "2", Title: "B", ParentID: parentRef("1")},
	}
	idMap, err := si.ImportStructure(context.Background(), owner, defs)
	require.NoError(t, err)
	assert.Empty(t, idMap, "cyclic definitions have no root and are never materialized")
}

func TestImportStructureDepthCap(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	si := NewStructureImporter(mem)

	var defs []CollectionDef
	for i := 0; i < maxStructureDepth+10; i++ {
		d := CollectionDef{ID: FlexID(fmt.Sprintf("n%d", i)), Title: fmt.Sprintf("Level %d", i)}
		if i > 0 {
			d.ParentID = parentRef(fmt.Sprintf("n%d", i-1))
		}
		defs = append(defs, d)
	}
	_, err := si.ImportStructure(context.Background(), owner, defs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth")
}
