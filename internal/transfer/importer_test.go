package transfer

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/models"
	"github.com/prompthive/server/internal/storage"
	"github.com/prompthive/server/internal/store/storetest"
)

func newTestImporter(t *testing.T) (*Importer, *storetest.Memory, uuid.UUID) {
	t.Helper()
	mem := storetest.NewMemory()
	owner := mem.AddUser("importer@example.com")
	imp := NewImporter(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())))
	return imp, mem, owner
}

func TestImportBasic(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	res, err := imp.Import(ctx, owner, []RawPrompt{
		{Title: "Summarize", Content: "Summarize the following text.", Tags: StringList{"writing"}, Collection: "Work"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 0, res.Skipped)

	p, err := mem.PromptByTitle(ctx, owner, "Summarize")
	require.NoError(t, err)
	require.Len(t, p.Versions, 1)
	assert.Equal(t, 1, p.Versions[0].VersionNumber)
	assert.Equal(t, "Summarize the following text.", p.Versions[0].Content)
	require.NotNil(t, p.CurrentVersionID)
	assert.Equal(t, p.Versions[0].ID, *p.CurrentVersionID)

	require.Len(t, p.Tags, 1)
	assert.Equal(t, "writing", p.Tags[0].Name)
	require.Len(t, p.Collections, 1)
	assert.Equal(t, "Work", p.Collections[0].Title)

	assert.Equal(t, "WORK-1", p.TechnicalID, "minted from the first collection name")
}

func TestImportTitleDedup(t *testing.T) {
	imp, _, owner := newTestImporter(t)
	ctx := context.Background()

	records := []RawPrompt{
		{Title: "Same", Content: "first"},
		{Title: "Same", Content: "second copy in the same batch"},
	}
	res, err := imp.Import(ctx, owner, records, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, res.Skipped)

	// Re-importing the whole batch skips everything.
	res, err = imp.Import(ctx, owner, records, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, 2, res.Skipped)
}

func TestImportDropsUselessRecords(t *testing.T) {
	imp, _, owner := newTestImporter(t)

	res, err := imp.Import(context.Background(), owner, []RawPrompt{
		{Description: "no title, no content"},
		{},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, 0, res.Skipped, "useless records are dropped, not counted as skipped")
}

func TestImportDerivesTitleFromContent(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	long := strings.Repeat("abcdefghij", 10)
	res, err := imp.Import(ctx, owner, []RawPrompt{{Content: long}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	p, err := mem.PromptByTitle(ctx, owner, long[:60])
	require.NoError(t, err)
	assert.Equal(t, long, p.Versions[0].Content)
}

func TestImportFlatShape(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	// Legacy exports carry content fields directly on the record; they become
	// exactly one version numbered 1 with every field mapped across.
	res, err := imp.Import(ctx, owner, []RawPrompt{{
		Title:               "Flat",
		Content:             "full prompt body",
		ShortContent:        "short form",
		UsageExample:        "example output",
		VariableDefinitions: `{"vars":[{"name":"topic"}]}`,
		ResultText:          "expected result",
		ResultImage:         ImageRef{Path: "uploads/result.png"},
	}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	p, err := mem.PromptByTitle(ctx, owner, "Flat")
	require.NoError(t, err)
	require.Len(t, p.Versions, 1)

	v := p.Versions[0]
	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, "full prompt body", v.Content)
	assert.Equal(t, "short form", v.ShortContent)
	assert.Equal(t, "example output", v.UsageExample)
	assert.Equal(t, `{"vars":[{"name":"topic"}]}`, v.VariableDefinitions)
	assert.Equal(t, "expected result", v.ResultText)
	assert.Equal(t, "uploads/result.png", v.ResultImage, "path-only image refs pass through unchanged")
}

func TestImportVersionHistory(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	res, err := imp.Import(ctx, owner, []RawPrompt{{
		Title: "Versioned",
		Versions: []VersionDef{
			{Content: "v1 body"},
			{LongContent: "v2 body", Changelog: "rewrite"},
			{VersionNumber: 7, Content: "v7 body"},
		},
	}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	p, err := mem.PromptByTitle(ctx, owner, "Versioned")
	require.NoError(t, err)
	require.Len(t, p.Versions, 3)
	assert.Equal(t, 1, p.Versions[0].VersionNumber, "missing numbers fall back to position")
	assert.Equal(t, 2, p.Versions[1].VersionNumber)
	assert.Equal(t, "v2 body", p.Versions[1].Content, "longContent backs an empty content")
	assert.Equal(t, "rewrite", p.Versions[1].Changelog)

	require.NotNil(t, p.CurrentVersionID)
	assert.Equal(t, p.Versions[2].ID, *p.CurrentVersionID, "current points at the highest version number")
}

func TestImportDeferredLinks(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	// A references B before B exists; order inside the batch must not matter.
	res, err := imp.Import(ctx, owner, []RawPrompt{
		{Title: "A", Content: "a", TechnicalID: "AAA-1", RelatedPrompts: []string{"BBB-1", "AAA-1", "GONE-99"}},
		{Title: "B", Content: "b", TechnicalID: "BBB-1"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	a, err := mem.PromptByTitle(ctx, owner, "A")
	require.NoError(t, err)
	b, err := mem.PromptByTitle(ctx, owner, "B")
	require.NoError(t, err)

	targets := mem.RelatedIDs(a.ID)
	require.Len(t, targets, 1, "self references and dangling targets dropped silently")
	assert.Equal(t, b.ID, targets[0])
}

func TestImportCollectionIDMap(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	idMap, err := imp.ImportStructure(ctx, owner, []CollectionDef{
		{ID: "10", Title: "Parent"},
		{ID: "11", Title: "Nested", ParentID: parentRef("10")},
	})
	require.NoError(t, err)

	res, err := imp.Import(ctx, owner, []RawPrompt{
		{Title: "Filed", Content: "x", CollectionIDs: []FlexID{"11", "missing"}},
	}, idMap)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	p, err := mem.PromptByTitle(ctx, owner, "Filed")
	require.NoError(t, err)
	require.Len(t, p.Collections, 1)
	assert.Equal(t, idMap["11"], p.Collections[0].ID)
}

func TestImportAttachments(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	res, err := imp.Import(ctx, owner, []RawPrompt{{
		Title: "With files",
		Versions: []VersionDef{{
			Content: "body",
			Attachments: []AttachmentDef{
				{Data: base64.StdEncoding.EncodeToString([]byte("bytes")), Path: "doc.txt", FileType: "text/plain"},
				{Data: "!!!corrupt!!!", Path: "broken.png"},
				{Path: "kept/by-path.pdf", Role: "RESULT"},
			},
		}},
	}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count, "a corrupt attachment never fails the record")

	p, err := mem.PromptByTitle(ctx, owner, "With files")
	require.NoError(t, err)
	require.Len(t, p.Versions, 1)
	atts := p.Versions[0].Attachments
	require.Len(t, atts, 2)
	assert.True(t, strings.HasPrefix(atts[0].FilePath, "imported/"))
	assert.Equal(t, models.RoleAttachment, atts[0].Role)
	assert.Equal(t, "kept/by-path.pdf", atts[1].FilePath)
	assert.Equal(t, models.RoleResult, atts[1].Role)
}

func TestImportCarriedTechnicalID(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	res, err := imp.Import(ctx, owner, []RawPrompt{
		{Title: "Carried", Content: "x", TechnicalID: "LEGACY-42"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	p, err := mem.PromptByTitle(ctx, owner, "Carried")
	require.NoError(t, err)
	assert.Equal(t, "LEGACY-42", p.TechnicalID)
}

func TestImportDocument(t *testing.T) {
	imp, mem, owner := newTestImporter(t)
	ctx := context.Background()

	doc, err := ParseDocument([]byte(`{
		"version": 2,
		"prompts": [{"title":"From doc","content":"x","collectionIds":["c1"]}],
		"definedCollections": [{"id":"c1","title":"Imported"}]
	}`))
	require.NoError(t, err)

	res, err := imp.ImportDocument(ctx, owner, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	p, err := mem.PromptByTitle(ctx, owner, "From doc")
	require.NoError(t, err)
	require.Len(t, p.Collections, 1)
	assert.Equal(t, "Imported", p.Collections[0].Title)
}
