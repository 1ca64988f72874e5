package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-postgen/pkg/schema"
)

// Operation is one OpenAPI operation with its request body converted to
// fields.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	Fields      []schema.Field
}

// Section returns the operation fields as a schema section.
func (op Operation) Section() schema.Section {
	return schema.Section{Fields: append([]schema.Field(nil), op.Fields...)}
}

// ParserOptions toggles document handling.
type ParserOptions struct {
	// ResolveReferences validates the document, which resolves $ref pointers.
	ResolveReferences bool
	// AllowPartialDocuments accepts documents without paths.
	AllowPartialDocuments bool
	// Labeler derives labels for properties without a title.
	Labeler func(name string) string
}

// ParserOption mutates ParserOptions.
type ParserOption func(*ParserOptions)

// WithReferenceResolution toggles validation and reference resolution.
func WithReferenceResolution(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.ResolveReferences = enabled
	}
}

// WithPartialDocuments toggles support for documents without paths.
func WithPartialDocuments(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.AllowPartialDocuments = enabled
	}
}

// WithLabeler overrides the property name labeler.
func WithLabeler(fn func(string) string) ParserOption {
	return func(opts *ParserOptions) {
		if fn != nil {
			opts.Labeler = fn
		}
	}
}

// Parser converts OpenAPI documents using kin-openapi.
type Parser struct {
	options ParserOptions
}

// NewParser constructs a Parser.
func NewParser(options ...ParserOption) *Parser {
	cfg := ParserOptions{ResolveReferences: true, Labeler: DefaultLabeler}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Parser{options: cfg}
}

// Operations converts every operation of doc, keyed by operationId. Unnamed
// operations are keyed "<method>:<path>".
func (p *Parser) Operations(ctx context.Context, doc schema.Document) (map[string]Operation, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: p.options.ResolveReferences}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if (spec.Paths == nil || spec.Paths.Len() == 0) && !p.options.AllowPartialDocuments {
		return nil, errors.New("openapi parser: document does not contain any paths")
	}
	if p.options.ResolveReferences {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}

	operations := make(map[string]Operation)
	if spec.Paths != nil {
		for path, item := range spec.Paths.Map() {
			if item == nil {
				continue
			}
			for method, operation := range item.Operations() {
				p.collect(operations, method, path, operation)
			}
		}
	}
	if len(operations) == 0 && !p.options.AllowPartialDocuments {
		return nil, errors.New("openapi parser: no operations extracted")
	}
	return operations, nil
}

// Operation returns a single operation by id.
func (p *Parser) Operation(ctx context.Context, doc schema.Document, id string) (Operation, error) {
	operations, err := p.Operations(ctx, doc)
	if err != nil {
		return Operation{}, err
	}
	op, ok := operations[id]
	if !ok {
		ids := make([]string, 0, len(operations))
		for key := range operations {
			ids = append(ids, key)
		}
		sort.Strings(ids)
		return Operation{}, fmt.Errorf("openapi parser: operation %q not found (have %s)", id, strings.Join(ids, ", "))
	}
	return op, nil
}

func (p *Parser) collect(target map[string]Operation, method, path string, operation *openapi3.Operation) {
	if operation == nil {
		return
	}
	id := operation.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	target[id] = Operation{
		ID:          id,
		Method:      strings.ToUpper(method),
		Path:        path,
		Summary:     operation.Summary,
		Description: operation.Description,
		Fields:      p.FieldsFromSchema(requestSchema(operation.RequestBody)),
	}
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.SchemaRef {
	if body == nil || body.Value == nil {
		return nil
	}
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := body.Value.Content[mediaType]; ok && mt != nil {
			return mt.Schema
		}
	}
	for _, mt := range body.Value.Content {
		if mt != nil {
			return mt.Schema
		}
	}
	return nil
}
