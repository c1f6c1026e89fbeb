// Package backup writes full-account snapshots and restores from them.
// Restore is a full replace, not a merge: the owner's live data is dropped
// before reconstruction. Confirmation is the caller's responsibility; once
// invoked the engine acts unconditionally.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/store"
	"github.com/prompthive/server/internal/transfer"
)

// FileSuffix names snapshot files. The ISO-8601 prefix (colons replaced with
// dashes) makes lexicographic order chronological order.
const FileSuffix = "_prompthive_autobackup.json"

type TagDef struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Snapshot is a V2 export scoped to one user's entire dataset, plus the
// pieces a merge-style export leaves out: tag colors and settings.
type Snapshot struct {
	transfer.V2Document
	UserID   uuid.UUID       `json:"userId"`
	Tags     []TagDef        `json:"tags,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

type Service struct {
	store    store.Store
	exporter *transfer.Exporter
	importer *transfer.Importer
	dir      string
}

func NewService(s store.Store, a *assets.Service, dir string) *Service {
	return &Service{
		store:    s,
		exporter: transfer.NewExporter(s, a),
		importer: transfer.NewImporter(s, a),
		dir:      dir,
	}
}

// Run snapshots the owner's full dataset into a timestamped file and returns
// the file name.
func (s *Service) Run(ctx context.Context, ownerID uuid.UUID) (string, error) {
	doc, err := s.exporter.BuildV2All(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("build snapshot: %w", err)
	}

	snap := Snapshot{V2Document: *doc, UserID: ownerID}

	tags, err := s.collectTags(ctx, doc)
	if err != nil {
		return "", err
	}
	snap.Tags = tags

	settings, err := s.store.SettingsByOwner(ctx, ownerID)
	switch {
	case err == nil:
		snap.Settings = settings.Data
	case !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("read settings: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	name := time.Now().UTC().Format("2006-01-02T15-04-05") + FileSuffix
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}

	slog.Info("backup written", "file", name, "prompts", len(snap.Prompts), "user", ownerID)
	return name, nil
}

func (s *Service) collectTags(ctx context.Context, doc *transfer.V2Document) ([]TagDef, error) {
	seen := make(map[string]bool)
	var names []string
	for i := range doc.Prompts {
		for _, n := range doc.Prompts[i].Tags {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	tags, err := s.store.TagsByName(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("collect tags: %w", err)
	}
	defs := make([]TagDef, 0, len(tags))
	for _, t := range tags {
		defs = append(defs, TagDef{Name: t.Name, Color: t.Color})
	}
	return defs, nil
}

// Files lists snapshot files, newest first.
func (s *Service) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), FileSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Restore rebuilds the owner's dataset from the latest snapshot, dropping all
// of their live data first. A snapshot taken for a different user is refused
// outright.
func (s *Service) Restore(ctx context.Context, ownerID uuid.UUID) (*transfer.Result, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no backup file found in %s", s.dir)
	}
	latest := files[0]

	data, err := os.ReadFile(filepath.Join(s.dir, latest))
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", latest, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse backup %s: %w", latest, err)
	}
	if snap.UserID != ownerID {
		return nil, fmt.Errorf("backup %s belongs to another user", latest)
	}

	if err := s.store.DeleteOwnerData(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("drop existing data: %w", err)
	}

	// Recreate tags up front so the importer's resolver reuses them with
	// their colors intact.
	for _, t := range snap.Tags {
		if _, err := s.store.CreateTag(ctx, t.Name, t.Color); err != nil && !errors.Is(err, store.ErrConflict) {
			slog.Warn("tag restore failed", "name", t.Name, "error", err)
		}
	}

	idMap, err := s.importer.ImportStructure(ctx, ownerID, snap.DefinedCollections)
	if err != nil {
		return nil, fmt.Errorf("restore collections: %w", err)
	}

	res, err := s.importer.Import(ctx, ownerID, snap.Prompts, idMap)
	if err != nil {
		return nil, fmt.Errorf("restore prompts: %w", err)
	}

	if len(snap.Settings) > 0 {
		if err := s.store.UpsertSettings(ctx, ownerID, snap.Settings); err != nil {
			slog.Warn("settings restore failed", "error", err)
		}
	}

	slog.Info("restore complete", "file", latest, "count", res.Count, "user", ownerID)
	return res, nil
}
