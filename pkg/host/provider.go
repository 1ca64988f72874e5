// Package host defines the capabilities the engine borrows from its host
// application. The engine never reads ambient globals: parsed event data,
// uploaded file references and the user locale are injected through a
// DataProvider.
package host

import (
	"context"
	"strings"

	"github.com/goliatone/go-postgen/pkg/content"
)

// FileRef identifies an uploaded file known to the host.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Type string `json:"type,omitempty"`
}

// DataProvider exposes host-owned data to the engine.
type DataProvider interface {
	// ParsedData returns the structured data extracted from uploaded material.
	ParsedData() map[string]any
	// UploadedFiles returns references to the uploaded files.
	UploadedFiles() []FileRef
	// Locale returns the ambient user locale, e.g. "en" or "de-AT".
	Locale() string
}

// StaticProvider is a DataProvider backed by fixed values.
type StaticProvider struct {
	Parsed   map[string]any
	Files    []FileRef
	Language string
}

var _ DataProvider = StaticProvider{}

// ParsedData returns the configured parsed data.
func (p StaticProvider) ParsedData() map[string]any { return p.Parsed }

// UploadedFiles returns the configured file references.
func (p StaticProvider) UploadedFiles() []FileRef { return p.Files }

// Locale returns the configured locale.
func (p StaticProvider) Locale() string { return p.Language }

// DefaultLocale is used when no provider or an empty locale is configured.
const DefaultLocale = "en"

// LocaleOf returns the provider locale, falling back to DefaultLocale.
func LocaleOf(p DataProvider) string {
	if p == nil {
		return DefaultLocale
	}
	if locale := strings.TrimSpace(p.Locale()); locale != "" {
		return locale
	}
	return DefaultLocale
}

// FileIDs returns the ids of the provided references.
func FileIDs(files []FileRef) []string {
	if len(files) == 0 {
		return nil
	}
	out := make([]string, 0, len(files))
	for _, file := range files {
		if file.ID == "" {
			continue
		}
		out = append(out, file.ID)
	}
	return out
}

// PlatformStore persists per-platform content. ReadPlatformData returns an
// empty State, not an error, for a platform that was never written.
type PlatformStore interface {
	ReadPlatformData(ctx context.Context, platform string) (content.State, error)
	WritePlatformData(ctx context.Context, platform string, state content.State) error
}
