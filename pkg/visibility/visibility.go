// Package visibility decides whether schema fields are shown for the current
// content. A field is hidden when its UI hint says so or when its visibleWhen
// condition does not hold.
package visibility

import (
	"strings"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// Evaluator determines whether a field should be visible given the current
// values and optional host context.
type Evaluator interface {
	Eval(field schema.Field, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the current content
// while Extras lets hosts inject arbitrary context such as feature flags.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(field schema.Field, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(field schema.Field, ctx Context) (bool, error) {
	return fn(field, ctx)
}

// Default evaluates UI.Hidden and visibleWhen.
var Default Evaluator = EvaluatorFunc(func(field schema.Field, ctx Context) (bool, error) {
	return Visible(field, ctx.Values), nil
})

// Visible reports whether field is shown for values.
func Visible(field schema.Field, values map[string]any) bool {
	if field.UI.Hidden {
		return false
	}
	return Matches(field.VisibleWhen, values)
}

// Matches reports whether the condition holds. A nil condition always holds.
func Matches(rule *schema.VisibleWhen, values map[string]any) bool {
	if rule == nil || strings.TrimSpace(rule.Field) == "" {
		return true
	}
	return Equal(values[rule.Field], rule.Value)
}

// Equal compares a stored value against an expected condition value using
// the shared coercion rules: booleans compare through content.Bool, numbers
// numerically, lists by membership and everything else as text.
func Equal(actual, expected any) bool {
	switch want := expected.(type) {
	case nil:
		return content.IsEmpty(actual)
	case bool:
		return content.Bool(actual) == want
	case []any:
		for _, candidate := range want {
			if Equal(actual, candidate) {
				return true
			}
		}
		return false
	case []string:
		for _, candidate := range want {
			if Equal(actual, candidate) {
				return true
			}
		}
		return false
	}

	switch have := actual.(type) {
	case []any, []string:
		for _, item := range content.Strings(have) {
			if Equal(item, expected) {
				return true
			}
		}
		return false
	}

	if wantN, ok := content.Number(expected); ok {
		if _, isString := expected.(string); !isString {
			haveN, ok := content.Number(actual)
			return ok && haveN == wantN
		}
	}
	return content.String(actual) == content.String(expected)
}

// Filter returns the fields visible for ctx. Evaluation errors hide nothing.
func Filter(evaluator Evaluator, fields []schema.Field, ctx Context) []schema.Field {
	if evaluator == nil {
		evaluator = Default
	}
	out := make([]schema.Field, 0, len(fields))
	for _, field := range fields {
		visible, err := evaluator.Eval(field, ctx)
		if err != nil || visible {
			out = append(out, field)
		}
	}
	return out
}
