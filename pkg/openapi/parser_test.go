package openapi_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/openapi"
	"github.com/goliatone/go-postgen/pkg/schema"
)

const postsDocument = `
openapi: 3.0.3
info:
  title: Posts
  version: "1.0"
paths:
  /platforms/email/posts:
    post:
      operationId: createEmailPost
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [subject]
              properties:
                subject:
                  type: string
                  minLength: 3
                  maxLength: 120
                  x-postgen:
                    order: 1
                bodyHtml:
                  type: string
                  format: html
                  x-postgen:
                    order: 2
                sendAt:
                  type: string
                  format: date-time
                priority:
                  type: integer
                  minimum: 1
                  maximum: 5
                locale:
                  type: string
                  enum: [en, de]
                recipients:
                  type: array
                  items:
                    type: string
                  x-endpoint:
                    url: /platforms/:platformId/recipients
                    path: data
                pinned:
                  type: boolean
                id:
                  type: string
                  readOnly: true
                link:
                  type: string
                  format: uri
                  x-postgen:
                    visibleWhen:
                      field: pinned
                      value: true
      responses:
        "201":
          description: created
`

func TestOperationFields(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceFromFile("posts.yaml"), []byte(postsDocument))
	op, err := openapi.NewParser().Operation(context.Background(), doc, "createEmailPost")
	if err != nil {
		t.Fatalf("operation: %v", err)
	}
	if op.Method != "POST" || op.Path != "/platforms/email/posts" {
		t.Fatalf("unexpected operation %s %s", op.Method, op.Path)
	}

	got := make(map[string]schema.FieldType, len(op.Fields))
	var order []string
	for _, field := range op.Fields {
		got[field.Name] = field.Type
		order = append(order, field.Name)
	}
	want := map[string]schema.FieldType{
		"subject":    schema.FieldTypeText,
		"bodyHtml":   schema.FieldTypeTextarea,
		"sendAt":     schema.FieldTypeDatetime,
		"priority":   schema.FieldTypeNumber,
		"locale":     schema.FieldTypeSelect,
		"recipients": schema.FieldTypeMultiselect,
		"pinned":     schema.FieldTypeBoolean,
		"link":       schema.FieldTypeText,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("field types mismatch (-want +got):\n%s", diff)
	}
	wantOrder := []string{"link", "locale", "pinned", "priority", "recipients", "sendAt", "subject", "bodyHtml"}
	if diff := cmp.Diff(wantOrder, order); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	section := op.Section()
	subject, _ := section.Field("subject")
	if !subject.Required || subject.Label != "Subject" {
		t.Fatalf("unexpected subject %#v", subject)
	}
	wantRules := []schema.ValidationRule{
		{Type: schema.RuleMinLength, Value: 3},
		{Type: schema.RuleMaxLength, Value: 120},
	}
	if diff := cmp.Diff(wantRules, subject.Validation); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}

	recipients, _ := section.Field("recipients")
	if diff := cmp.Diff(&schema.OptionsSource{Endpoint: "/platforms/:platformId/recipients", Path: "data"}, recipients.OptionsSource); diff != "" {
		t.Fatalf("options source mismatch (-want +got):\n%s", diff)
	}

	locale, _ := section.Field("locale")
	if diff := cmp.Diff([]schema.Option{{Label: "en", Value: "en"}, {Label: "de", Value: "de"}}, locale.Options); diff != "" {
		t.Fatalf("enum options mismatch (-want +got):\n%s", diff)
	}

	link, _ := section.Field("link")
	if link.VisibleWhen == nil || link.VisibleWhen.Field != "pinned" || link.VisibleWhen.Value != true {
		t.Fatalf("unexpected visibleWhen %#v", link.VisibleWhen)
	}
	if len(link.Validation) != 1 || link.Validation[0].Type != schema.RuleURL {
		t.Fatalf("expected url rule, got %#v", link.Validation)
	}
	if _, ok := section.Field("id"); ok {
		t.Fatalf("read-only property imported")
	}
	if issues := schema.Lint(section); len(issues) != 0 {
		t.Fatalf("imported section has lint issues: %v", issues)
	}
}

func TestOperationNotFound(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceFromFile("posts.yaml"), []byte(postsDocument))
	if _, err := openapi.NewParser().Operation(context.Background(), doc, "missing"); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestDefaultLabeler(t *testing.T) {
	cases := map[string]string{
		"eventTitle":  "Event Title",
		"send_at":     "Send At",
		"bodyHtml":    "Body Html",
		"utm-source2": "Utm Source 2",
	}
	for input, want := range cases {
		if got := openapi.DefaultLabeler(input); got != want {
			t.Fatalf("DefaultLabeler(%q) = %q, want %q", input, got, want)
		}
	}
}
