package transfer

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

func newTestExporter(t *testing.T, mem *storetest.Memory) *Exporter {
	t.Helper()
	return NewExporter(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())))
}

// seedLibrary imports a small dataset: a two-level collection tree, two linked
// prompts and one uncollected prompt.
func seedLibrary(t *testing.T, imp *Importer, owner uuid.UUID) map[string]uuid.UUID {
	t.Helper()
	ctx := context.Background()

	idMap, err := imp.ImportStructure(ctx, owner, []CollectionDef{
		{ID: "root", Title: "Work"},
		{ID: "sub", Title: "Drafts", ParentID: parentRef("root")},
	})
	require.NoError(t, err)

	res, err := imp.Import(ctx, owner, []RawPrompt{
		{
			Title:          "Alpha",
			TechnicalID:    "WORK-1",
			Tags:           StringList{"daily"},
			CollectionIDs:  []FlexID{"sub"},
			RelatedPrompts: []string{"WORK-2"},
			Versions: []VersionDef{
				{VersionNumber: 1, Content: "alpha v1"},
				{VersionNumber: 2, Content: "alpha v2", ShortContent: "short"},
			},
		},
		{Title: "Beta", TechnicalID: "WORK-2", CollectionIDs: []FlexID{"root"}, Content: "beta body"},
		{Title: "Loose", TechnicalID: "GEN-9", Content: "no collection"},
	}, idMap)
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)
	return idMap
}

func TestBuildV2AllRoundTrip(t *testing.T) {
	mem := storetest.NewMemory()
	alice := mem.AddUser("alice@example.com")
	bob := mem.AddUser("bob@example.com")
	imp := NewImporter(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())))
	exp := newTestExporter(t, mem)
	ctx := context.Background()

	seedLibrary(t, imp, alice)

	doc, err := exp.BuildV2All(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)
	assert.Len(t, doc.Prompts, 3)
	assert.Len(t, doc.DefinedCollections, 2)

	// Re-import the export into a different account.
	res, err := imp.ImportDocument(ctx, bob, &Document{Prompts: doc.Prompts, Collections: doc.DefinedCollections})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 0, res.Skipped)

	// Hierarchy survives by shape, with freshly generated ids.
	drafts, err := mem.CollectionsByTitles(ctx, bob, []string{"Drafts"})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.NotNil(t, drafts[0].ParentID)
	parent, err := mem.CollectionByID(ctx, bob, *drafts[0].ParentID)
	require.NoError(t, err)
	assert.Equal(t, "Work", parent.Title)

	alphaA, err := mem.PromptByTitle(ctx, alice, "Alpha")
	require.NoError(t, err)
	alphaB, err := mem.PromptByTitle(ctx, bob, "Alpha")
	require.NoError(t, err)
	assert.NotEqual(t, alphaA.ID, alphaB.ID)
	assert.Len(t, alphaB.Versions, 2, "full version history round-trips")
	require.Len(t, alphaB.Tags, 1)
	assert.Equal(t, "daily", alphaB.Tags[0].Name)

	// The link graph is rebuilt through technical ids.
	betaB, err := mem.PromptByTitle(ctx, bob, "Beta")
	require.NoError(t, err)
	targets := mem.RelatedIDs(alphaB.ID)
	require.Len(t, targets, 1)
	assert.Equal(t, betaB.ID, targets[0])
}

func TestBuildV2SelectionIncludesAncestors(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	imp := NewImporter(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())))
	exp := newTestExporter(t, mem)
	ctx := context.Background()

	idMap := seedLibrary(t, imp, owner)

	doc, err := exp.BuildV2(ctx, owner, []uuid.UUID{idMap["sub"]})
	require.NoError(t, err)

	require.Len(t, doc.Prompts, 1)
	assert.Equal(t, "Alpha", doc.Prompts[0].Title)

	titles := make(map[string]CollectionDef)
	for _, c := range doc.DefinedCollections {
		titles[c.Title] = c
	}
	require.Contains(t, titles, "Drafts")
	require.Contains(t, titles, "Work", "ancestor chain exported for re-import")
	require.NotNil(t, titles["Drafts"].ParentID)
	assert.Equal(t, titles["Work"].ID, *titles["Drafts"].ParentID)
}

func TestBuildV2MintsMissingTechnicalID(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	exp := newTestExporter(t, mem)
	ctx := context.Background()

	created, err := mem.CreatePrompt(ctx, store.CreatePromptParams{
		OwnerID:  owner,
		Title:    "Bare",
		Versions: []store.CreateVersionParams{{VersionNumber: 1, Content: "x"}},
	})
	require.NoError(t, err)

	doc, err := exp.BuildV2All(ctx, owner)
	require.NoError(t, err)
	require.Len(t, doc.Prompts, 1)
	assert.Equal(t, "GEN-1", doc.Prompts[0].TechnicalID)

	stored, err := mem.PromptByID(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "GEN-1", stored.TechnicalID, "minted id persisted, not just emitted")
}

func TestBuildZero(t *testing.T) {
	mem := storetest.NewMemory()
	owner := mem.AddUser("a@example.com")
	imp := NewImporter(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())))
	exp := newTestExporter(t, mem)
	ctx := context.Background()

	idMap := seedLibrary(t, imp, owner)

	doc, err := exp.BuildZero(ctx, owner, []uuid.UUID{idMap["root"], idMap["sub"]})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Len(t, doc.Collections, 2)
	require.Len(t, doc.Prompts, 2, "uncollected prompts excluded from a scoped export")

	byTitle := make(map[string]ZeroPrompt)
	for _, p := range doc.Prompts {
		byTitle[p.Title] = p
	}
	alpha := byTitle["Alpha"]
	assert.Equal(t, "alpha v2", alpha.Body, "only the current version's content ships")
	assert.Equal(t, "short", alpha.ShortPrompt)
	assert.Equal(t, []string{"daily"}, alpha.Tags)
	assert.Equal(t, idMap["sub"].String(), alpha.CollectionID)

	beta := byTitle["Beta"]
	assert.Equal(t, "beta body", beta.Body)
	assert.Empty(t, beta.Tags)
}
