// Package storetest provides an in-memory store.Store for tests of the
// import/export core. Semantics mirror the postgres implementation:
// unique-constraint violations surface as store.ErrConflict, missing rows as
// store.ErrNotFound, and sequence increments are atomic under the lock.
package storetest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/models"
	"github.com/prompthive/server/internal/store"
)

type Memory struct {
	mu sync.Mutex

	users       []models.User
	prompts     []*models.Prompt
	collections []*models.Collection
	tags        []*models.Tag
	promptTags  map[uuid.UUID][]uuid.UUID // prompt -> tag ids
	promptCols  map[uuid.UUID][]uuid.UUID // prompt -> collection ids
	links       map[uuid.UUID][]uuid.UUID // source -> target prompt ids
	sequences   map[string]int64
	settings    map[uuid.UUID]json.RawMessage
}

var _ store.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		promptTags: make(map[uuid.UUID][]uuid.UUID),
		promptCols: make(map[uuid.UUID][]uuid.UUID),
		links:      make(map[uuid.UUID][]uuid.UUID),
		sequences:  make(map[string]int64),
		settings:   make(map[uuid.UUID]json.RawMessage),
	}
}

// AddUser registers a user and returns its id.
func (m *Memory) AddUser(email string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: uuid.New(), Email: email, CreatedAt: time.Now()}
	m.users = append(m.users, u)
	return u.ID
}

func (m *Memory) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) UserIDs(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.users))
	for i := range m.users {
		ids = append(ids, m.users[i].ID)
	}
	return ids, nil
}

func (m *Memory) CreatePrompt(ctx context.Context, p store.CreatePromptParams) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.prompts {
		if existing.OwnerID == p.OwnerID && existing.Title == p.Title {
			return nil, store.ErrConflict
		}
	}

	now := time.Now()
	prompt := &models.Prompt{
		ID:          uuid.New(),
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		Description: p.Description,
		TechnicalID: p.TechnicalID,
		IsLocked:    p.IsLocked,
		IsPrivate:   p.IsPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, vp := range p.Versions {
		v := models.PromptVersion{
			ID:                  uuid.New(),
			PromptID:            prompt.ID,
			VersionNumber:       vp.VersionNumber,
			Content:             vp.Content,
			ShortContent:        vp.ShortContent,
			UsageExample:        vp.UsageExample,
			VariableDefinitions: vp.VariableDefinitions,
			ResultText:          vp.ResultText,
			ResultImage:         vp.ResultImage,
			Changelog:           vp.Changelog,
			CreatedAt:           now,
		}
		for _, ap := range vp.Attachments {
			v.Attachments = append(v.Attachments, models.Attachment{
				ID:        uuid.New(),
				VersionID: v.ID,
				FilePath:  ap.FilePath,
				FileType:  ap.FileType,
				Role:      ap.Role,
				CreatedAt: now,
			})
		}
		prompt.Versions = append(prompt.Versions, v)
	}

	m.prompts = append(m.prompts, prompt)
	m.promptTags[prompt.ID] = append([]uuid.UUID(nil), p.TagIDs...)
	m.promptCols[prompt.ID] = append([]uuid.UUID(nil), p.CollectionIDs...)

	out := *prompt
	return &out, nil
}

func (m *Memory) findPrompt(id uuid.UUID) *models.Prompt {
	for _, p := range m.prompts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// loadedCopy returns a deep-enough copy with tags, collections and versions
// attached, matching the postgres eager reads.
func (m *Memory) loadedCopy(p *models.Prompt) models.Prompt {
	out := *p
	out.Tags = nil
	out.Collections = nil
	out.Versions = append([]models.PromptVersion(nil), p.Versions...)
	for _, tagID := range m.promptTags[p.ID] {
		for _, t := range m.tags {
			if t.ID == tagID {
				out.Tags = append(out.Tags, *t)
			}
		}
	}
	for _, colID := range m.promptCols[p.ID] {
		for _, c := range m.collections {
			if c.ID == colID {
				out.Collections = append(out.Collections, *c)
			}
		}
	}
	return out
}

func (m *Memory) PromptByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPrompt(id)
	if p == nil || p.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	out := m.loadedCopy(p)
	return &out, nil
}

func (m *Memory) PromptByTitle(ctx context.Context, ownerID uuid.UUID, title string) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prompts {
		if p.OwnerID == ownerID && p.Title == title {
			out := m.loadedCopy(p)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) ListPrompts(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Prompt, error) {
	all, err := m.PromptsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) PromptsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Prompt
	for _, p := range m.prompts {
		if p.OwnerID == ownerID {
			out = append(out, m.loadedCopy(p))
		}
	}
	return out, nil
}

func (m *Memory) PromptsInCollections(ctx context.Context, ownerID uuid.UUID, collectionIDs []uuid.UUID) ([]models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(collectionIDs))
	for _, id := range collectionIDs {
		want[id] = true
	}
	var out []models.Prompt
	for _, p := range m.prompts {
		if p.OwnerID != ownerID {
			continue
		}
		for _, colID := range m.promptCols[p.ID] {
			if want[colID] {
				out = append(out, m.loadedCopy(p))
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) DeletePrompt(ctx context.Context, ownerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.prompts {
		if p.ID == id && p.OwnerID == ownerID {
			m.prompts = append(m.prompts[:i], m.prompts[i+1:]...)
			delete(m.promptTags, id)
			delete(m.promptCols, id)
			delete(m.links, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) SetCurrentVersion(ctx context.Context, promptID, versionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPrompt(promptID)
	if p == nil {
		return store.ErrNotFound
	}
	v := versionID
	p.CurrentVersionID = &v
	return nil
}

func (m *Memory) SetTechnicalID(ctx context.Context, promptID uuid.UUID, technicalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPrompt(promptID)
	if p == nil {
		return store.ErrNotFound
	}
	p.TechnicalID = technicalID
	return nil
}

func (m *Memory) ConnectRelated(ctx context.Context, promptID uuid.UUID, targetIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := make(map[uuid.UUID]bool)
	for _, id := range m.links[promptID] {
		existing[id] = true
	}
	for _, id := range targetIDs {
		if !existing[id] {
			m.links[promptID] = append(m.links[promptID], id)
		}
	}
	return nil
}

func (m *Memory) RelatedTechnicalIDs(ctx context.Context, promptID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, targetID := range m.links[promptID] {
		if t := m.findPrompt(targetID); t != nil && t.TechnicalID != "" {
			out = append(out, t.TechnicalID)
		}
	}
	return out, nil
}

// RelatedIDs exposes raw link targets for test assertions.
func (m *Memory) RelatedIDs(promptID uuid.UUID) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.links[promptID]...)
}

func (m *Memory) TagsByName(ctx context.Context, names []string) ([]models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []models.Tag
	for _, t := range m.tags {
		if want[t.Name] {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *Memory) TagByName(ctx context.Context, name string) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.Name == name {
			out := *t
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.Name == name {
			return nil, store.ErrConflict
		}
	}
	t := &models.Tag{ID: uuid.New(), Name: name, Color: color}
	m.tags = append(m.tags, t)
	out := *t
	return &out, nil
}

func (m *Memory) ListTags(ctx context.Context) ([]models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, *t)
	}
	return out, nil
}

func (m *Memory) DeleteOrphanTags(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteOrphanTagsLocked()
	return nil
}

func (m *Memory) deleteOrphanTagsLocked() {
	used := make(map[uuid.UUID]bool)
	for _, tagIDs := range m.promptTags {
		for _, id := range tagIDs {
			used[id] = true
		}
	}
	var kept []*models.Tag
	for _, t := range m.tags {
		if used[t.ID] {
			kept = append(kept, t)
		}
	}
	m.tags = kept
}

func (m *Memory) CollectionByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.ID == id && c.OwnerID == ownerID {
			out := *c
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) CollectionsByID(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Collection
	for _, c := range m.collections {
		if c.OwnerID == ownerID && want[c.ID] {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *Memory) CollectionByTitleAndParent(ctx context.Context, ownerID uuid.UUID, title string, parentID *uuid.UUID) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.OwnerID != ownerID || c.Title != title {
			continue
		}
		if (c.ParentID == nil) != (parentID == nil) {
			continue
		}
		if parentID != nil && *c.ParentID != *parentID {
			continue
		}
		out := *c
		return &out, nil
	}
	return nil, store.ErrNotFound
}

func (m *Memory) CollectionsByTitles(ctx context.Context, ownerID uuid.UUID, titles []string) ([]models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(titles))
	for _, t := range titles {
		want[t] = true
	}
	var out []models.Collection
	for _, c := range m.collections {
		if c.OwnerID == ownerID && want[c.Title] {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *Memory) CreateCollection(ctx context.Context, p store.CreateCollectionParams) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.OwnerID != p.OwnerID || c.Title != p.Title {
			continue
		}
		if (c.ParentID == nil) == (p.ParentID == nil) &&
			(c.ParentID == nil || *c.ParentID == *p.ParentID) {
			return nil, store.ErrConflict
		}
	}
	c := &models.Collection{
		ID:          uuid.New(),
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		Description: p.Description,
		ParentID:    p.ParentID,
		CreatedAt:   time.Now(),
	}
	m.collections = append(m.collections, c)
	out := *c
	return &out, nil
}

func (m *Memory) ListCollections(ctx context.Context, ownerID uuid.UUID) ([]models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Collection
	for _, c := range m.collections {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *Memory) SetCollectionParent(ctx context.Context, ownerID, id uuid.UUID, parentID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.ID == id && c.OwnerID == ownerID {
			c.ParentID = parentID
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) DeleteCollection(ctx context.Context, ownerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newParent *uuid.UUID
	idx := -1
	for i, c := range m.collections {
		if c.ID == id && c.OwnerID == ownerID {
			idx = i
			newParent = c.ParentID
			break
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}
	for _, c := range m.collections {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = newParent
		}
	}
	m.collections = append(m.collections[:idx], m.collections[idx+1:]...)
	for promptID, colIDs := range m.promptCols {
		var kept []uuid.UUID
		for _, colID := range colIDs {
			if colID != id {
				kept = append(kept, colID)
			}
		}
		m.promptCols[promptID] = kept
	}
	return nil
}

func (m *Memory) IncrementSequence(ctx context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[prefix]++
	return m.sequences[prefix], nil
}

func (m *Memory) SettingsByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.settings[ownerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.Settings{OwnerID: ownerID, Data: data}, nil
}

func (m *Memory) UpsertSettings(ctx context.Context, ownerID uuid.UUID, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[ownerID] = append(json.RawMessage(nil), data...)
	return nil
}

func (m *Memory) DeleteOwnerData(ctx context.Context, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keptPrompts []*models.Prompt
	for _, p := range m.prompts {
		if p.OwnerID == ownerID {
			delete(m.promptTags, p.ID)
			delete(m.promptCols, p.ID)
			delete(m.links, p.ID)
			for src, targets := range m.links {
				var kept []uuid.UUID
				for _, t := range targets {
					if t != p.ID {
						kept = append(kept, t)
					}
				}
				m.links[src] = kept
			}
			continue
		}
		keptPrompts = append(keptPrompts, p)
	}
	m.prompts = keptPrompts

	var keptCols []*models.Collection
	for _, c := range m.collections {
		if c.OwnerID != ownerID {
			keptCols = append(keptCols, c)
		}
	}
	m.collections = keptCols

	delete(m.settings, ownerID)
	m.deleteOrphanTagsLocked()
	return nil
}
