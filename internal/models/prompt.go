package models

import (
	"time"

	"github.com/google/uuid"
)

type AttachmentRole string

const (
	RoleAttachment AttachmentRole = "ATTACHMENT"
	RoleResult     AttachmentRole = "RESULT"
)

type Prompt struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	OwnerID          uuid.UUID  `json:"owner_id" db:"owner_id"`
	Title            string     `json:"title" db:"title"`
	Description      string     `json:"description,omitempty" db:"description"`
	TechnicalID      string     `json:"technical_id,omitempty" db:"technical_id"`
	IsLocked         bool       `json:"is_locked" db:"is_locked"`
	IsPrivate        bool       `json:"is_private" db:"is_private"`
	CurrentVersionID *uuid.UUID `json:"current_version_id,omitempty" db:"current_version_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`

	// Populated on eager reads, nil otherwise.
	Tags        []Tag           `json:"tags,omitempty"`
	Collections []Collection    `json:"collections,omitempty"`
	Versions    []PromptVersion `json:"versions,omitempty"`
}

type PromptVersion struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	PromptID            uuid.UUID `json:"prompt_id" db:"prompt_id"`
	VersionNumber       int       `json:"version_number" db:"version_number"`
	Content             string    `json:"content" db:"content"`
	ShortContent        string    `json:"short_content,omitempty" db:"short_content"`
	UsageExample        string    `json:"usage_example,omitempty" db:"usage_example"`
	VariableDefinitions string    `json:"variable_definitions,omitempty" db:"variable_definitions"`
	ResultText          string    `json:"result_text,omitempty" db:"result_text"`
	ResultImage         string    `json:"result_image,omitempty" db:"result_image"`
	Changelog           string    `json:"changelog,omitempty" db:"changelog"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`

	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	VersionID uuid.UUID      `json:"version_id" db:"version_id"`
	FilePath  string         `json:"file_path" db:"file_path"`
	FileType  string         `json:"file_type,omitempty" db:"file_type"`
	Role      AttachmentRole `json:"role" db:"role"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
