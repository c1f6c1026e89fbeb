package transfer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/models"
	"github.com/prompthive/server/internal/store"
	"github.com/prompthive/server/internal/techid"
)

// Result is the caller-visible outcome of an import batch. Per-record failures
// skip or drop; they never abort the batch.
type Result struct {
	Count   int `json:"count"`
	Skipped int `json:"skipped"`
}

// linkJob defers a prompt's relatedPrompts references until every prompt in
// the batch exists, so forward references resolve regardless of input order.
type linkJob struct {
	sourceID uuid.UUID
	targets  []string
}

type Importer struct {
	store     store.Store
	assets    *assets.Service
	minter    *techid.Minter
	resolver  *Resolver
	structure *StructureImporter
}

func NewImporter(s store.Store, a *assets.Service) *Importer {
	return &Importer{
		store:     s,
		assets:    a,
		minter:    techid.NewMinter(s),
		resolver:  NewResolver(s),
		structure: NewStructureImporter(s),
	}
}

// ImportDocument runs the full pipeline for one parsed document: structure
// first, then prompts. Chunked callers that already hold an id map should call
// ImportStructure and Import separately and thread the map through.
func (imp *Importer) ImportDocument(ctx context.Context, ownerID uuid.UUID, doc *Document) (*Result, error) {
	idMap, err := imp.structure.ImportStructure(ctx, ownerID, doc.Collections)
	if err != nil {
		return nil, err
	}
	return imp.Import(ctx, ownerID, doc.Prompts, idMap)
}

// ImportStructure exposes the collection-tree pass for chunking callers.
func (imp *Importer) ImportStructure(ctx context.Context, ownerID uuid.UUID, defs []CollectionDef) (map[string]uuid.UUID, error) {
	return imp.structure.ImportStructure(ctx, ownerID, defs)
}

// Import consumes validated prompt records plus the structural id map and
// creates prompts, versions and attachments. Dedup key is the title, scoped
// to the owner. Cross-prompt links are queued and resolved after every record
// has been processed.
func (imp *Importer) Import(ctx context.Context, ownerID uuid.UUID, records []RawPrompt, colIDMap map[string]uuid.UUID) (*Result, error) {
	res := &Result{}

	tagNames, colNames := collectNames(records)
	tagMap, err := imp.resolver.ResolveTags(ctx, tagNames)
	if err != nil {
		return nil, err
	}
	colNameMap, err := imp.resolver.ResolveCollections(ctx, ownerID, colNames)
	if err != nil {
		return nil, err
	}

	techIDs := make(map[string]uuid.UUID)
	var links []linkJob

	for i := range records {
		rec := &records[i]

		if rec.Title == "" && !rec.HasContent() {
			continue // useless record, dropped silently
		}
		title := rec.Title
		if title == "" {
			title = deriveTitle(rec)
		}

		if _, err := imp.store.PromptByTitle(ctx, ownerID, title); err == nil {
			res.Skipped++
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("dedup lookup failed", "title", title, "error", err)
			continue
		}

		var tagIDs []uuid.UUID
		for _, name := range rec.Tags {
			if id, ok := tagMap[name]; ok {
				tagIDs = append(tagIDs, id)
			}
		}

		colIDs := imp.resolveCollectionRefs(rec, colIDMap, colNameMap)

		technicalID := rec.TechnicalID
		if technicalID == "" {
			seed := ""
			if names := rec.CollectionNames(); len(names) > 0 {
				seed = names[0]
			}
			minted, err := imp.minter.Mint(ctx, seed)
			if err != nil {
				slog.Warn("technical id mint failed", "title", title, "error", err)
			} else {
				technicalID = minted
			}
		}

		created, err := imp.store.CreatePrompt(ctx, store.CreatePromptParams{
			OwnerID:       ownerID,
			Title:         title,
			Description:   rec.Description,
			TechnicalID:   technicalID,
			IsLocked:      rec.IsLocked,
			IsPrivate:     rec.IsPrivate,
			TagIDs:        tagIDs,
			CollectionIDs: colIDs,
			Versions:      imp.buildVersions(ctx, rec),
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				// Lost a dedup race within the call; same outcome as the
				// title check above.
				res.Skipped++
				continue
			}
			slog.Warn("prompt create failed", "title", title, "error", err)
			continue
		}
		res.Count++

		// The storage engine's default ordering of nested creates is not
		// trusted: point current explicitly at the highest version number.
		if v := highestVersion(created.Versions); v != nil {
			if err := imp.store.SetCurrentVersion(ctx, created.ID, v.ID); err != nil {
				slog.Warn("set current version failed", "prompt", created.ID, "error", err)
			}
		}

		if rec.TechnicalID != "" {
			techIDs[rec.TechnicalID] = created.ID
		}
		if len(rec.RelatedPrompts) > 0 {
			links = append(links, linkJob{sourceID: created.ID, targets: rec.RelatedPrompts})
		}
	}

	imp.resolveLinks(ctx, links, techIDs)
	return res, nil
}

// resolveLinks is the second pass: every prompt in the batch exists by now, so
// deferred technicalId references become foreign-key connections. Targets
// outside the batch are expected and dropped silently.
func (imp *Importer) resolveLinks(ctx context.Context, jobs []linkJob, techIDs map[string]uuid.UUID) {
	for _, job := range jobs {
		var targets []uuid.UUID
		seen := make(map[uuid.UUID]bool)
		for _, tid := range job.targets {
			id, ok := techIDs[tid]
			if !ok || id == job.sourceID || seen[id] {
				continue
			}
			seen[id] = true
			targets = append(targets, id)
		}
		if len(targets) == 0 {
			continue
		}
		if err := imp.store.ConnectRelated(ctx, job.sourceID, targets); err != nil {
			slog.Warn("link resolution failed", "prompt", job.sourceID, "error", err)
		}
	}
}

// resolveCollectionRefs unions both reference styles a record may carry:
// source-local ids through the structural id map, and plain names through the
// name map.
func (imp *Importer) resolveCollectionRefs(rec *RawPrompt, colIDMap, colNameMap map[string]uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	add := func(id uuid.UUID, ok bool) {
		if ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, ref := range rec.CollectionIDs {
		id, ok := colIDMap[string(ref)]
		add(id, ok)
	}
	for _, name := range rec.CollectionNames() {
		id, ok := colNameMap[name]
		add(id, ok)
	}
	return ids
}

func (imp *Importer) buildVersions(ctx context.Context, rec *RawPrompt) []store.CreateVersionParams {
	if len(rec.Versions) == 0 {
		// Legacy flat shape: synthesize a single version numbered 1 mapping
		// the record's content fields 1:1.
		return []store.CreateVersionParams{{
			VersionNumber:       1,
			Content:             rec.Content,
			ShortContent:        rec.ShortContent,
			UsageExample:        rec.UsageExample,
			VariableDefinitions: string(rec.VariableDefinitions),
			ResultText:          rec.ResultText,
			ResultImage:         imp.resolveImage(ctx, rec.ResultImage),
		}}
	}

	out := make([]store.CreateVersionParams, 0, len(rec.Versions))
	for i, v := range rec.Versions {
		number := v.VersionNumber
		if number <= 0 {
			number = i + 1
		}
		content := v.Content
		if content == "" {
			content = v.LongContent
		}

		var atts []store.CreateAttachmentParams
		for _, a := range v.Attachments {
			path := a.Path
			if a.Data != "" {
				path = imp.assets.SaveBase64(ctx, a.Data, a.Path)
			}
			if path == "" {
				continue
			}
			role := models.AttachmentRole(a.Role)
			if role != models.RoleResult {
				role = models.RoleAttachment
			}
			atts = append(atts, store.CreateAttachmentParams{
				FilePath: path,
				FileType: a.FileType,
				Role:     role,
			})
		}

		out = append(out, store.CreateVersionParams{
			VersionNumber:       number,
			Content:             content,
			ShortContent:        v.ShortContent,
			UsageExample:        v.UsageExample,
			VariableDefinitions: string(v.VariableDefinitions),
			ResultText:          v.ResultText,
			ResultImage:         imp.resolveImage(ctx, v.ResultImage),
			Changelog:           v.Changelog,
			Attachments:         atts,
		})
	}
	return out
}

func (imp *Importer) resolveImage(ctx context.Context, ref ImageRef) string {
	if ref.Data != "" {
		return imp.assets.SaveBase64(ctx, ref.Data, ref.Path)
	}
	return ref.Path
}

func highestVersion(versions []models.PromptVersion) *models.PromptVersion {
	var best *models.PromptVersion
	for i := range versions {
		if best == nil || versions[i].VersionNumber > best.VersionNumber {
			best = &versions[i]
		}
	}
	return best
}

func collectNames(records []RawPrompt) (tags, collections []string) {
	tagSeen := make(map[string]bool)
	colSeen := make(map[string]bool)
	for i := range records {
		for _, t := range records[i].Tags {
			if !tagSeen[t] {
				tagSeen[t] = true
				tags = append(tags, t)
			}
		}
		for _, c := range records[i].CollectionNames() {
			if !colSeen[c] {
				colSeen[c] = true
				collections = append(collections, c)
			}
		}
	}
	return tags, collections
}

func deriveTitle(rec *RawPrompt) string {
	content := rec.Content
	if content == "" {
		for _, v := range rec.Versions {
			if v.Content != "" {
				content = v.Content
				break
			}
			if v.LongContent != "" {
				content = v.LongContent
				break
			}
		}
	}
	runes := []rune(content)
	if len(runes) > 60 {
		runes = runes[:60]
	}
	return string(runes)
}
