package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Document wraps a raw platform schema payload and its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(raw) == 0 {
		return Document{}, errors.New("schema: raw document is empty")
	}

	clone := append([]byte(nil), raw...)
	return Document{source: src, raw: clone}, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Format reports the encoding inferred from the document location.
func (d Document) Format() Format {
	return FormatOf(d.Location())
}

// Platform decodes the document into a PlatformSchema. Documents may either
// be a bare schema object or the schema endpoint envelope
// ({"platform": {"schema": {...}}}).
func (d Document) Platform() (PlatformSchema, error) {
	payload, err := d.jsonPayload()
	if err != nil {
		return PlatformSchema{}, err
	}
	return DecodePlatform(payload)
}

// Templates decodes the document as a list of catalog templates.
func (d Document) Templates() ([]Template, error) {
	payload, err := d.jsonPayload()
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Templates []Template `json:"templates"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Templates != nil {
		return envelope.Templates, nil
	}
	var list []Template
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("schema: decode templates %s: %w", d.Location(), err)
	}
	return list, nil
}

func (d Document) jsonPayload() ([]byte, error) {
	switch d.Format() {
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(d.raw, &raw); err != nil {
			return nil, fmt.Errorf("schema: decode yaml %s: %w", d.Location(), err)
		}
		payload, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("schema: re-encode yaml %s: %w", d.Location(), err)
		}
		return payload, nil
	case FormatJSONC:
		return jsonc.ToJSON(d.raw), nil
	default:
		return d.raw, nil
	}
}

// DecodePlatform decodes a JSON platform schema, unwrapping the
// {success, platform: {schema: {...}}} envelope when present.
func DecodePlatform(payload []byte) (PlatformSchema, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return PlatformSchema{}, fmt.Errorf("schema: decode platform: %w", err)
	}

	body := payload
	platformID := ""
	if raw, ok := probe["platform"]; ok && isJSONObject(raw) {
		var wrapped struct {
			ID     string          `json:"id"`
			Schema json.RawMessage `json:"schema"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return PlatformSchema{}, fmt.Errorf("schema: decode platform envelope: %w", err)
		}
		if len(wrapped.Schema) > 0 {
			body = wrapped.Schema
			platformID = wrapped.ID
		}
	}

	var out PlatformSchema
	if err := json.Unmarshal(body, &out); err != nil {
		return PlatformSchema{}, fmt.Errorf("schema: decode platform schema: %w", err)
	}
	if out.Platform == "" {
		out.Platform = platformID
	}
	return out, nil
}

func isJSONObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
