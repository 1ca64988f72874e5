package render

import (
	"errors"
	"strings"

	"github.com/goliatone/go-postgen/pkg/schema"
)

// Translator resolves translatable label keys. Translation loading itself is
// owned by the host.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate delegates to the underlying function.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler decides what string to show when a key has no
// translation. fallback is the untranslated schema text, which may be empty.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

// ErrMissingTranslator is reported to MissingTranslationHandler when no
// Translator is configured.
var ErrMissingTranslator = errors.New("render: translator is not configured")

func missingTranslationDefault(_, key, fallback string, _ error) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

// Localizer resolves schema text through a Translator with fallbacks.
type Localizer struct {
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}

// Text translates key. Schema labels double as keys, so an untranslated key
// falls back to itself.
func (l Localizer) Text(key string, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return l.translate(key, key, args...)
}

// TextOr translates key and falls back to fallback when missing.
func (l Localizer) TextOr(key, fallback string, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	return l.translate(key, fallback, args...)
}

func (l Localizer) translate(key, fallback string, args ...any) string {
	onMissing := l.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	if l.Translator == nil {
		return onMissing(l.Locale, key, fallback, ErrMissingTranslator)
	}
	result, err := l.Translator.Translate(l.Locale, key, args...)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(l.Locale, key, fallback, err)
}

// FieldLabel translates the label of field, falling back to its name. It
// fits validation.WithLabeler.
func (l Localizer) FieldLabel(field schema.Field) string {
	if label := l.Text(field.Label); label != "" {
		return label
	}
	return field.Name
}
