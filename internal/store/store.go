// Package store defines the typed storage surface the import/export core and
// the HTTP handlers are written against. The postgres subpackage implements it
// on pgx; storetest carries an in-memory implementation for tests.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique-constraint violation. Resolvers rely on it
	// to fall back to a re-fetch when two imports race on the same name.
	ErrConflict = errors.New("conflict")
)

type CreateAttachmentParams struct {
	FilePath string
	FileType string
	Role     models.AttachmentRole
}

type CreateVersionParams struct {
	VersionNumber       int
	Content             string
	ShortContent        string
	UsageExample        string
	VariableDefinitions string
	ResultText          string
	ResultImage         string
	Changelog           string
	Attachments         []CreateAttachmentParams
}

type CreatePromptParams struct {
	OwnerID       uuid.UUID
	Title         string
	Description   string
	TechnicalID   string
	IsLocked      bool
	IsPrivate     bool
	TagIDs        []uuid.UUID
	CollectionIDs []uuid.UUID
	Versions      []CreateVersionParams
}

type CreateCollectionParams struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	ParentID    *uuid.UUID
}

type Store interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserIDs(ctx context.Context) ([]uuid.UUID, error)

	// CreatePrompt inserts the prompt, its versions and attachments, and its
	// tag/collection links in one transaction. The returned prompt carries the
	// created versions.
	CreatePrompt(ctx context.Context, p CreatePromptParams) (*models.Prompt, error)
	PromptByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Prompt, error)
	PromptByTitle(ctx context.Context, ownerID uuid.UUID, title string) (*models.Prompt, error)
	ListPrompts(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Prompt, error)
	// PromptsByOwner and PromptsInCollections return prompts with tags,
	// collections and full version history (attachments included) loaded.
	PromptsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Prompt, error)
	PromptsInCollections(ctx context.Context, ownerID uuid.UUID, collectionIDs []uuid.UUID) ([]models.Prompt, error)
	DeletePrompt(ctx context.Context, ownerID, id uuid.UUID) error
	SetCurrentVersion(ctx context.Context, promptID, versionID uuid.UUID) error
	SetTechnicalID(ctx context.Context, promptID uuid.UUID, technicalID string) error
	ConnectRelated(ctx context.Context, promptID uuid.UUID, targetIDs []uuid.UUID) error
	RelatedTechnicalIDs(ctx context.Context, promptID uuid.UUID) ([]string, error)

	TagsByName(ctx context.Context, names []string) ([]models.Tag, error)
	TagByName(ctx context.Context, name string) (*models.Tag, error)
	CreateTag(ctx context.Context, name, color string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	DeleteOrphanTags(ctx context.Context) error

	CollectionByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Collection, error)
	CollectionsByID(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Collection, error)
	// CollectionByTitleAndParent matches on (title, parent, owner); parentID nil
	// means a root collection.
	CollectionByTitleAndParent(ctx context.Context, ownerID uuid.UUID, title string, parentID *uuid.UUID) (*models.Collection, error)
	CollectionsByTitles(ctx context.Context, ownerID uuid.UUID, titles []string) ([]models.Collection, error)
	CreateCollection(ctx context.Context, c CreateCollectionParams) (*models.Collection, error)
	ListCollections(ctx context.Context, ownerID uuid.UUID) ([]models.Collection, error)
	SetCollectionParent(ctx context.Context, ownerID, id uuid.UUID, parentID *uuid.UUID) error
	DeleteCollection(ctx context.Context, ownerID, id uuid.UUID) error

	// IncrementSequence atomically bumps the per-prefix counter and returns the
	// new value, creating the row at 1 when absent. Single statement at the
	// storage layer; concurrent mints for one prefix must never collide.
	IncrementSequence(ctx context.Context, prefix string) (int64, error)

	SettingsByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Settings, error)
	UpsertSettings(ctx context.Context, ownerID uuid.UUID, data json.RawMessage) error

	// DeleteOwnerData removes everything the owner has: favorites, workflows,
	// versions, attachments, prompts, collections and settings. Restore calls
	// this before rebuilding from a snapshot.
	DeleteOwnerData(ctx context.Context, ownerID uuid.UUID) error
}
