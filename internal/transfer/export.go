package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/models"
	"github.com/prompthive/server/internal/store"
	"github.com/prompthive/server/internal/techid"
)

// V2Document is the full-fidelity export: complete version history, attachment
// bytes inlined as base64, related prompts cited by technicalId and a
// definedCollections array sufficient to rebuild the hierarchy on re-import.
type V2Document struct {
	Version            int             `json:"version"`
	ExportedAt         time.Time       `json:"exportedAt"`
	Prompts            []RawPrompt     `json:"prompts"`
	DefinedCollections []CollectionDef `json:"definedCollections"`
}

// ZeroDocument is the simplified, lossy interchange export: latest-version
// content only, flat collection list. Does not round-trip.
type ZeroDocument struct {
	Version     int              `json:"version"`
	Collections []ZeroCollection `json:"collections"`
	Prompts     []ZeroPrompt     `json:"prompts"`
}

type ZeroCollection struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

type ZeroPrompt struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	ShortPrompt    string    `json:"shortPrompt"`
	ExampleOutput  string    `json:"exampleOutput"`
	ExpectedResult string    `json:"expectedResult"`
	Tags           []string  `json:"tags"`
	CollectionID   string    `json:"collectionId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Exporter struct {
	store  store.Store
	assets *assets.Service
	minter *techid.Minter
}

func NewExporter(s store.Store, a *assets.Service) *Exporter {
	return &Exporter{store: s, assets: a, minter: techid.NewMinter(s)}
}

// BuildV2 exports the given collections plus every prompt associated with at
// least one of them. Ancestors of selected collections are included in
// definedCollections so parent chains survive re-import.
func (e *Exporter) BuildV2(ctx context.Context, ownerID uuid.UUID, collectionIDs []uuid.UUID) (*V2Document, error) {
	closure, err := e.collectionClosure(ctx, ownerID, collectionIDs)
	if err != nil {
		return nil, err
	}
	prompts, err := e.store.PromptsInCollections(ctx, ownerID, collectionIDs)
	if err != nil {
		return nil, err
	}
	return e.buildV2(ctx, prompts, closure)
}

// BuildV2All exports the owner's entire dataset, including prompts that sit in
// no collection. The backup engine builds on this.
func (e *Exporter) BuildV2All(ctx context.Context, ownerID uuid.UUID) (*V2Document, error) {
	all, err := e.store.ListCollections(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	closure := make(map[uuid.UUID]models.Collection, len(all))
	for _, c := range all {
		closure[c.ID] = c
	}
	prompts, err := e.store.PromptsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return e.buildV2(ctx, prompts, closure)
}

func (e *Exporter) collectionClosure(ctx context.Context, ownerID uuid.UUID, selected []uuid.UUID) (map[uuid.UUID]models.Collection, error) {
	all, err := e.store.ListCollections(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Collection, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	closure := make(map[uuid.UUID]models.Collection)
	for _, id := range selected {
		cur, ok := byID[id]
		for depth := 0; ok && depth <= maxStructureDepth; depth++ {
			if _, done := closure[cur.ID]; done {
				break
			}
			closure[cur.ID] = cur
			if cur.ParentID == nil {
				break
			}
			cur, ok = byID[*cur.ParentID]
		}
	}
	return closure, nil
}

func (e *Exporter) buildV2(ctx context.Context, prompts []models.Prompt, closure map[uuid.UUID]models.Collection) (*V2Document, error) {
	doc := &V2Document{
		Version:    2,
		ExportedAt: time.Now().UTC(),
	}

	for _, c := range closure {
		def := CollectionDef{
			ID:          FlexID(c.ID.String()),
			Title:       c.Title,
			Description: c.Description,
		}
		if c.ParentID != nil {
			if _, ok := closure[*c.ParentID]; ok {
				pid := FlexID(c.ParentID.String())
				def.ParentID = &pid
			}
		}
		doc.DefinedCollections = append(doc.DefinedCollections, def)
	}

	for i := range prompts {
		rec, err := e.exportPrompt(ctx, &prompts[i], closure)
		if err != nil {
			return nil, err
		}
		doc.Prompts = append(doc.Prompts, *rec)
	}
	return doc, nil
}

func (e *Exporter) exportPrompt(ctx context.Context, p *models.Prompt, closure map[uuid.UUID]models.Collection) (*RawPrompt, error) {
	// Links are exported by technicalId, not live id, so they survive in a
	// different target database. Prompts exported without one would be
	// unreferenceable; mint on the way out and persist it.
	technicalID := p.TechnicalID
	if technicalID == "" {
		seed := ""
		if len(p.Collections) > 0 {
			seed = p.Collections[0].Title
		}
		minted, err := e.minter.Mint(ctx, seed)
		if err != nil {
			return nil, fmt.Errorf("mint technical id for export: %w", err)
		}
		if err := e.store.SetTechnicalID(ctx, p.ID, minted); err != nil {
			return nil, fmt.Errorf("persist technical id: %w", err)
		}
		technicalID = minted
	}

	related, err := e.store.RelatedTechnicalIDs(ctx, p.ID)
	if err != nil {
		slog.Warn("related lookup failed", "prompt", p.ID, "error", err)
	}

	rec := &RawPrompt{
		Title:          p.Title,
		Description:    p.Description,
		TechnicalID:    technicalID,
		IsLocked:       p.IsLocked,
		IsPrivate:      p.IsPrivate,
		RelatedPrompts: related,
	}
	for _, t := range p.Tags {
		rec.Tags = append(rec.Tags, t.Name)
	}
	for _, c := range p.Collections {
		if _, ok := closure[c.ID]; ok {
			rec.CollectionIDs = append(rec.CollectionIDs, FlexID(c.ID.String()))
		}
	}

	for _, v := range p.Versions {
		def := VersionDef{
			VersionNumber:       v.VersionNumber,
			Content:             v.Content,
			ShortContent:        v.ShortContent,
			UsageExample:        v.UsageExample,
			VariableDefinitions: TextOrJSON(v.VariableDefinitions),
			ResultText:          v.ResultText,
			Changelog:           v.Changelog,
		}
		if v.ResultImage != "" {
			ref := ImageRef{Path: v.ResultImage}
			if data, ok := e.assets.Inline(ctx, v.ResultImage); ok {
				ref.Data = data
			}
			def.ResultImage = ref
		}
		for _, a := range v.Attachments {
			att := AttachmentDef{
				Path:     a.FilePath,
				FileType: a.FileType,
				Role:     string(a.Role),
			}
			if data, ok := e.assets.Inline(ctx, a.FilePath); ok {
				att.Data = data
			}
			def.Attachments = append(def.Attachments, att)
		}
		rec.Versions = append(rec.Versions, def)
	}
	return rec, nil
}

// BuildZero emits the simplified interchange document: one record per prompt
// holding only the latest version's content fields.
func (e *Exporter) BuildZero(ctx context.Context, ownerID uuid.UUID, collectionIDs []uuid.UUID) (*ZeroDocument, error) {
	closure, err := e.collectionClosure(ctx, ownerID, collectionIDs)
	if err != nil {
		return nil, err
	}
	prompts, err := e.store.PromptsInCollections(ctx, ownerID, collectionIDs)
	if err != nil {
		return nil, err
	}

	doc := &ZeroDocument{Version: 1}
	for _, c := range closure {
		zc := ZeroCollection{ID: c.ID.String(), Name: c.Title}
		if c.ParentID != nil {
			if _, ok := closure[*c.ParentID]; ok {
				pid := c.ParentID.String()
				zc.ParentID = &pid
			}
		}
		doc.Collections = append(doc.Collections, zc)
	}

	for i := range prompts {
		p := &prompts[i]
		zp := ZeroPrompt{
			ID:          p.ID.String(),
			Title:       p.Title,
			Description: p.Description,
			Tags:        []string{},
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		for _, t := range p.Tags {
			zp.Tags = append(zp.Tags, t.Name)
		}
		for _, c := range p.Collections {
			if _, ok := closure[c.ID]; ok {
				zp.CollectionID = c.ID.String()
				break
			}
		}
		if v := latestVersion(p); v != nil {
			zp.Body = v.Content
			zp.ShortPrompt = v.ShortContent
			zp.ExampleOutput = v.UsageExample
			zp.ExpectedResult = v.ResultText
		}
		doc.Prompts = append(doc.Prompts, zp)
	}
	return doc, nil
}

func latestVersion(p *models.Prompt) *models.PromptVersion {
	if p.CurrentVersionID != nil {
		for i := range p.Versions {
			if p.Versions[i].ID == *p.CurrentVersionID {
				return &p.Versions[i]
			}
		}
	}
	return highestVersion(p.Versions)
}
