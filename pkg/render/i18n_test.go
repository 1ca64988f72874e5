package render_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-postgen/pkg/render"
)

type stubTranslator map[string]string

func (t stubTranslator) Translate(_ string, key string, _ ...any) (string, error) {
	if msg, ok := t[key]; ok {
		return msg, nil
	}
	return "", errors.New("missing translation")
}

func TestLocalizerFallbacks(t *testing.T) {
	l := render.Localizer{Locale: "de", Translator: stubTranslator{"fields.subject": "Betreff"}}

	if got := l.Text("fields.subject"); got != "Betreff" {
		t.Fatalf("expected translated label, got %q", got)
	}
	if got := l.Text("fields.unknown"); got != "fields.unknown" {
		t.Fatalf("expected key fallback, got %q", got)
	}
	if got := l.TextOr("fields.unknown", "Unknown"); got != "Unknown" {
		t.Fatalf("expected explicit fallback, got %q", got)
	}
	if got := l.TextOr("", "Plain"); got != "Plain" {
		t.Fatalf("expected blank key to use fallback, got %q", got)
	}
}

func TestLocalizerWithoutTranslator(t *testing.T) {
	var seen error
	l := render.Localizer{OnMissing: func(_, key, fallback string, err error) string {
		seen = err
		return "[" + key + "]"
	}}
	if got := l.Text("fields.subject"); got != "[fields.subject]" {
		t.Fatalf("unexpected missing handler output %q", got)
	}
	if !errors.Is(seen, render.ErrMissingTranslator) {
		t.Fatalf("expected ErrMissingTranslator, got %v", seen)
	}
}
