// Package validation evaluates a field's rule list against a candidate value.
// Rules run in declaration order and the first failure wins; a field yields
// at most one message.
package validation

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/visibility"
)

// Predicate implements a custom rule. A nil error means the value is valid;
// otherwise the error text becomes the message.
type Predicate func(value any, field schema.Field) error

var urlPattern = regexp.MustCompile(`^https?://`)

// DefaultMessages are the fallback templates per rule kind. %[1]s is the
// field label and %[2]v the rule parameter.
var DefaultMessages = map[string]string{
	schema.RuleRequired:  "%[1]s is required",
	schema.RuleMinLength: "%[1]s must be at least %[2]v characters",
	schema.RuleMaxLength: "%[1]s must be at most %[2]v characters",
	schema.RuleMin:       "%[1]s must be at least %[2]v",
	schema.RuleMax:       "%[1]s must be at most %[2]v",
	schema.RulePattern:   "%[1]s has an invalid format",
	schema.RuleURL:       "%[1]s must be a valid URL",
	schema.RuleCustom:    "%[1]s is invalid",
}

// Validator evaluates rules. The zero value is not usable; call New.
type Validator struct {
	predicates map[string]Predicate
	messages   map[string]string
	label      func(schema.Field) string
	logger     *slog.Logger

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// Option configures a Validator.
type Option func(*Validator)

// WithPredicate registers a custom rule under name. Rules of type custom
// reference it through their value.
func WithPredicate(name string, fn Predicate) Option {
	return func(v *Validator) {
		if name = strings.TrimSpace(name); name != "" && fn != nil {
			v.predicates[name] = fn
		}
	}
}

// WithMessage overrides the default template of a rule kind.
func WithMessage(rule, template string) Option {
	return func(v *Validator) {
		if template != "" {
			v.messages[rule] = template
		}
	}
}

// WithLabeler resolves the label used in default messages, typically by
// translating the field's label key.
func WithLabeler(fn func(schema.Field) string) Option {
	return func(v *Validator) {
		if fn != nil {
			v.label = fn
		}
	}
}

// WithLogger sets the logger used for rule configuration problems.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New constructs a Validator with the default message set.
func New(options ...Option) *Validator {
	v := &Validator{
		predicates: make(map[string]Predicate),
		messages:   make(map[string]string, len(DefaultMessages)),
		patterns:   make(map[string]*regexp.Regexp),
	}
	for kind, template := range DefaultMessages {
		v.messages[kind] = template
	}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	if v.label == nil {
		v.label = defaultLabel
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

func defaultLabel(field schema.Field) string {
	if label := strings.TrimSpace(field.Label); label != "" {
		return label
	}
	return field.Name
}

// Rules returns the effective rule list: the field's required flag acts as a
// leading required rule unless one is already declared.
func Rules(field schema.Field) []schema.ValidationRule {
	if !field.Required {
		return field.Validation
	}
	for _, rule := range field.Validation {
		if rule.Type == schema.RuleRequired {
			return field.Validation
		}
	}
	out := make([]schema.ValidationRule, 0, len(field.Validation)+1)
	out = append(out, schema.ValidationRule{Type: schema.RuleRequired})
	return append(out, field.Validation...)
}

// Validate returns the first failing rule's message, or "" when value
// satisfies every rule.
func (v *Validator) Validate(field schema.Field, value any) string {
	for _, rule := range Rules(field) {
		if msg, failed := v.check(field, rule, value); failed {
			return msg
		}
	}
	return ""
}

// ValidateFields validates every visible field against values and returns a
// field name → message map. Valid fields are absent.
func (v *Validator) ValidateFields(fields []schema.Field, values map[string]any) map[string]string {
	errs := make(map[string]string)
	for _, field := range fields {
		if !visibility.Visible(field, values) {
			continue
		}
		if msg := v.Validate(field, values[field.Name]); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

func (v *Validator) check(field schema.Field, rule schema.ValidationRule, value any) (string, bool) {
	empty := content.IsEmpty(value)
	if rule.Type == schema.RuleRequired {
		if empty {
			return v.message(field, rule), true
		}
		return "", false
	}
	if empty {
		return "", false
	}

	switch rule.Type {
	case schema.RuleMinLength:
		limit, ok := content.Number(rule.Value)
		if ok && float64(length(value)) < limit {
			return v.message(field, rule), true
		}
	case schema.RuleMaxLength:
		limit, ok := content.Number(rule.Value)
		if ok && float64(length(value)) > limit {
			return v.message(field, rule), true
		}
	case schema.RuleMin:
		bound, ok := content.Number(rule.Value)
		n, numeric := content.Number(value)
		if ok && (!numeric || n < bound) {
			return v.message(field, rule), true
		}
	case schema.RuleMax:
		bound, ok := content.Number(rule.Value)
		n, numeric := content.Number(value)
		if ok && (!numeric || n > bound) {
			return v.message(field, rule), true
		}
	case schema.RulePattern:
		text, isString := value.(string)
		if !isString {
			return "", false
		}
		re := v.pattern(content.String(rule.Value))
		if re != nil && !re.MatchString(text) {
			return v.message(field, rule), true
		}
	case schema.RuleURL:
		if !urlPattern.MatchString(strings.TrimSpace(content.String(value))) {
			return v.message(field, rule), true
		}
	case schema.RuleCustom:
		name := content.String(rule.Value)
		fn, ok := v.predicates[name]
		if !ok {
			v.logger.Warn("validation predicate not registered",
				slog.String("field", field.Name),
				slog.String("predicate", name),
			)
			return "", false
		}
		if err := fn(value, field); err != nil {
			if msg := strings.TrimSpace(err.Error()); msg != "" {
				return msg, true
			}
			return v.message(field, rule), true
		}
	default:
		v.logger.Warn("unknown validation rule",
			slog.String("field", field.Name),
			slog.String("rule", rule.Type),
		)
	}
	return "", false
}

func (v *Validator) message(field schema.Field, rule schema.ValidationRule) string {
	if msg := strings.TrimSpace(rule.Message); msg != "" {
		return msg
	}
	template, ok := v.messages[rule.Type]
	if !ok {
		template = v.messages[schema.RuleCustom]
	}
	if rule.Value == nil {
		return fmt.Sprintf(template, v.label(field), "")
	}
	return fmt.Sprintf(template, v.label(field), content.String(rule.Value))
}

func (v *Validator) pattern(expr string) *regexp.Regexp {
	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[expr]; ok {
		return re
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		v.logger.Warn("invalid validation pattern", slog.String("pattern", expr), slog.String("error", err.Error()))
		re = nil
	}
	v.patterns[expr] = re
	return re
}

func length(value any) int {
	switch typed := value.(type) {
	case string:
		return utf8.RuneCountInString(typed)
	case []any:
		return len(typed)
	case []string:
		return len(typed)
	default:
		return utf8.RuneCountInString(content.String(value))
	}
}
