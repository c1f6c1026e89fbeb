package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Format tags the recognized import document shapes.
type Format string

const (
	// FormatStandard is a bare array of prompt records, a single record, or a
	// {prompts: [...]} wrapper. The fallback for anything unrecognized.
	FormatStandard Format = "STANDARD"
	// FormatV2 is the structured export: {version: 2, prompts, definedCollections}.
	FormatV2 Format = "V2_STRUCTURED"
	// FormatThirdParty is the external tool's {prompts, folders} shape,
	// normalized through the same record type on a best-effort basis.
	FormatThirdParty Format = "THIRD_PARTY"
)

// DetectFormat classifies parsed JSON into one of the known shapes. Pure and
// never fails: ambiguous shapes fall back to the standard interpretation.
// Malformed JSON is the caller's problem, caught in ParseDocument.
func DetectFormat(raw json.RawMessage) Format {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '[' {
		return FormatStandard
	}

	var probe struct {
		Version            int             `json:"version"`
		Prompts            json.RawMessage `json:"prompts"`
		DefinedCollections json.RawMessage `json:"definedCollections"`
		Folders            json.RawMessage `json:"folders"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return FormatStandard
	}

	if probe.Version == 2 && probe.Prompts != nil && probe.DefinedCollections != nil {
		return FormatV2
	}
	if probe.Prompts != nil && probe.Folders != nil {
		return FormatThirdParty
	}
	return FormatStandard
}

// Document is an import payload normalized into typed records.
type Document struct {
	Format      Format
	Prompts     []RawPrompt
	Collections []CollectionDef
}

// ParseDocument decodes raw JSON into a Document. The only error condition is
// genuinely malformed input; shape ambiguity never errors.
func ParseDocument(raw json.RawMessage) (*Document, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("malformed JSON")
	}

	format := DetectFormat(raw)
	doc := &Document{Format: format}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(raw, &doc.Prompts); err != nil {
			return nil, fmt.Errorf("decode prompt array: %w", err)
		}
		return doc, nil
	}

	var wrapper struct {
		Prompts            []RawPrompt     `json:"prompts"`
		DefinedCollections []CollectionDef `json:"definedCollections"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	if wrapper.Prompts != nil {
		doc.Prompts = wrapper.Prompts
		doc.Collections = wrapper.DefinedCollections
		return doc, nil
	}

	// Best effort: a single bare prompt object.
	var single RawPrompt
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decode prompt object: %w", err)
	}
	doc.Prompts = []RawPrompt{single}
	return doc, nil
}
