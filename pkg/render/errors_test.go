package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/render"
	"github.com/goliatone/go-postgen/pkg/schema"
)

func TestMapServerErrors(t *testing.T) {
	section := schema.Section{Fields: []schema.Field{
		{Name: "subject", Type: schema.FieldTypeText},
		{
			Name: "targets",
			Type: schema.FieldTypeTargets,
			Schema: map[string]schema.SubField{
				"mode":       {FieldType: schema.FieldTypeSelect},
				"individual": {FieldType: schema.FieldTypeMultiselect, Source: "recipients"},
			},
		},
	}}

	got := render.MapServerErrors(section, map[string][]string{
		"/content/subject":             {"Subject is required", " Subject is required "},
		"existingContent.targets.mode": {"Mode invalid"},
		"targets.individual[0]":        {"Unknown recipient"},
		"data.targets":                 {"Targets missing"},
		"templateId":                   {"Template is archived"},
		"":                             {"  "},
	})

	want := render.ServerErrors{
		Fields: map[string][]string{
			"subject":            {"Subject is required"},
			"targets.mode":       {"Mode invalid"},
			"targets.individual": {"Unknown recipient"},
			"targets":            {"Targets missing"},
		},
		Section: []string{"Template is archived"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("server errors mismatch (-want +got):\n%s", diff)
	}
	if first := got.First()["subject"]; first != "Subject is required" {
		t.Fatalf("unexpected first message %q", first)
	}
}

func TestMapServerErrorsEmpty(t *testing.T) {
	got := render.MapServerErrors(schema.Section{}, nil)
	if !got.Empty() || got.First() != nil {
		t.Fatalf("expected empty mapping, got %#v", got)
	}
}
