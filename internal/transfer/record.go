package transfer

import (
	"encoding/json"
	"strings"
)

// StringList accepts either a JSON array of strings or a single comma-joined
// string. It marshals back as a plain array.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}

// TextOrJSON keeps a field that is either a plain string or arbitrary JSON
// (historical exports serialized variable definitions both ways). Non-string
// values are preserved as their raw JSON text.
type TextOrJSON string

func (t *TextOrJSON) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TextOrJSON(s)
		return nil
	}
	*t = TextOrJSON(data)
	return nil
}

func (t TextOrJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

// ImageRef is a result image reference: either a bare path string or an object
// carrying the original path plus inlined base64 bytes.
type ImageRef struct {
	Path string
	Data string
}

func (r *ImageRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Path = s
		return nil
	}
	var obj struct {
		Path string `json:"path"`
		Data string `json:"data"`
		File struct {
			Data string `json:"data"`
		} `json:"file"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.Path = obj.Path
	r.Data = obj.Data
	if r.Data == "" {
		r.Data = obj.File.Data
	}
	return nil
}

func (r ImageRef) MarshalJSON() ([]byte, error) {
	if r.Data == "" {
		return json.Marshal(r.Path)
	}
	return json.Marshal(map[string]any{
		"path": r.Path,
		"file": map[string]string{"data": r.Data},
	})
}

func (r ImageRef) IsZero() bool { return r.Path == "" && r.Data == "" }

// FlexID accepts a source-local identifier serialized as string or number.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	*f = FlexID(strings.Trim(string(data), `"`))
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// RawPrompt is the single normalized record type every import dialect is
// decoded into before any business logic runs.
type RawPrompt struct {
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	TechnicalID    string     `json:"technicalId,omitempty"`
	IsLocked       bool       `json:"isLocked,omitempty"`
	IsPrivate      bool       `json:"isPrivate,omitempty"`
	Tags           StringList `json:"tags,omitempty"`
	Collections    StringList `json:"collections,omitempty"`
	Collection     string     `json:"collection,omitempty"`
	Categories     StringList `json:"categories,omitempty"`
	Category       string     `json:"category,omitempty"`
	CollectionIDs  []FlexID   `json:"collectionIds,omitempty"`
	RelatedPrompts []string   `json:"relatedPrompts,omitempty"`

	// Legacy flat shape: content fields directly on the record.
	Content             string     `json:"content,omitempty"`
	ShortContent        string     `json:"shortContent,omitempty"`
	UsageExample        string     `json:"usageExample,omitempty"`
	VariableDefinitions TextOrJSON `json:"variableDefinitions,omitempty"`
	ResultText          string     `json:"resultText,omitempty"`
	ResultImage         ImageRef   `json:"resultImage,omitzero"`

	Versions []VersionDef `json:"versions,omitempty"`
}

// CollectionNames unions every way a record can name its collections:
// collections/collection plus the category synonyms.
func (p *RawPrompt) CollectionNames() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, n := range p.Collections {
		add(n)
	}
	add(p.Collection)
	for _, n := range p.Categories {
		add(n)
	}
	add(p.Category)
	return names
}

// HasContent reports whether the record carries any prompt text at all.
// Records with neither a title nor content are useless and dropped.
func (p *RawPrompt) HasContent() bool {
	if p.Content != "" {
		return true
	}
	for _, v := range p.Versions {
		if v.Content != "" || v.LongContent != "" {
			return true
		}
	}
	return false
}

type VersionDef struct {
	VersionNumber       int             `json:"versionNumber,omitempty"`
	Content             string          `json:"content,omitempty"`
	LongContent         string          `json:"longContent,omitempty"`
	ShortContent        string          `json:"shortContent,omitempty"`
	UsageExample        string          `json:"usageExample,omitempty"`
	VariableDefinitions TextOrJSON      `json:"variableDefinitions,omitempty"`
	ResultText          string          `json:"resultText,omitempty"`
	ResultImage         ImageRef        `json:"resultImage,omitzero"`
	Changelog           string          `json:"changelog,omitempty"`
	Attachments         []AttachmentDef `json:"attachments,omitempty"`
}

type AttachmentDef struct {
	Path     string `json:"path,omitempty"`
	FileType string `json:"fileType,omitempty"`
	Role     string `json:"role,omitempty"`
	Data     string `json:"data,omitempty"`
}

type CollectionDef struct {
	ID          FlexID  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	ParentID    *FlexID `json:"parentId"`
}
