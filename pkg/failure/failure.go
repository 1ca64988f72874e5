// Package failure defines the error taxonomy shared by the engine packages.
// Every error produced at an operation boundary is converted into an *Error
// carrying a Kind so hosts can decide between an inline message and a silent
// degradation without string matching.
package failure

import (
	"errors"
	"strings"
)

// Kind classifies engine failures.
type Kind string

const (
	// KindConfiguration marks schema references that cannot be resolved. These
	// are rendered inline and never abort a render pass.
	KindConfiguration Kind = "configuration"
	// KindValidation marks per-field validation failures.
	KindValidation Kind = "validation"
	// KindNetwork marks option, schema or apply transport failures.
	KindNetwork Kind = "network"
	// KindApply marks a template apply service that reported failure.
	KindApply Kind = "apply"
	// KindNameResolution marks best-effort display name lookups that failed.
	KindNameResolution Kind = "name_resolution"
)

// Error is the concrete error type used across the engine.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "composite.load".
	Op string
	// Message is the user-facing text, usually provided by the server.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "" && e.Err != nil:
		b.WriteString(e.Message)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
		b.WriteString(" failure")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by kind so callers can write
// errors.Is(err, &failure.Error{Kind: failure.KindApply}).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil || e == nil {
		return false
	}
	return other.Kind != "" && other.Kind == e.Kind && other.Op == "" && other.Message == "" && other.Err == nil
}

// New builds an error of the provided kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: strings.TrimSpace(message)}
}

// Wrap attaches a kind and operation to err. A nil err yields a nil error.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration, Network, Apply and NameResolution are kind shorthands for
// New and Wrap.
func Configuration(op, message string) *Error { return New(KindConfiguration, op, message) }

func Network(op string, err error) error { return Wrap(KindNetwork, op, err) }

func Apply(op, message string) *Error { return New(KindApply, op, message) }

func NameResolution(op string, err error) error { return Wrap(KindNameResolution, op, err) }

// KindOf reports the kind attached to err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target.Kind
	}
	return ""
}

// Is reports whether err carries the supplied kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage returns the server-provided message carried by err when one is
// available and fallback otherwise.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var target *Error
	if errors.As(err, &target) && target != nil {
		if msg := strings.TrimSpace(target.Message); msg != "" {
			return msg
		}
	}
	return fallback
}
