package schemawiring

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/schema"
)

func TestEndpoint(t *testing.T) {
	if got := Endpoint("/api", "recipients", false); got != "/api/platforms/:platformId/recipients" {
		t.Fatalf("unexpected endpoint %q", got)
	}
	if got := Endpoint("", "locales", true); got != "/locales" {
		t.Fatalf("unexpected shared endpoint %q", got)
	}
}

func TestCompleteEndpointsKeepsExisting(t *testing.T) {
	section := schema.Section{Fields: []schema.Field{
		{Name: "subject", Type: schema.FieldTypeText},
		{
			Name: "targets",
			Type: schema.FieldTypeTargets,
			Schema: map[string]schema.SubField{
				"individual":     {FieldType: schema.FieldTypeMultiselect, Source: "recipients"},
				"groups":         {FieldType: schema.FieldTypeMultiselect, Source: "groups"},
				"templateLocale": {FieldType: schema.FieldTypeSelect, Source: "locales"},
			},
			DataEndpoints: map[string]string{"groups": "https://crm.example.com/groups"},
		},
	}}

	got := CompleteEndpoints(section, "/api", "locales")
	want := map[string]string{
		"groups":     "https://crm.example.com/groups",
		"recipients": "/api/platforms/:platformId/recipients",
		"locales":    "/api/locales",
	}
	if diff := cmp.Diff(want, got.Fields[1].DataEndpoints); diff != "" {
		t.Fatalf("endpoints mismatch (-want +got):\n%s", diff)
	}
	if len(section.Fields[1].DataEndpoints) != 1 {
		t.Fatalf("input section modified: %v", section.Fields[1].DataEndpoints)
	}
	if got.Fields[0].DataEndpoints != nil {
		t.Fatalf("plain field gained endpoints")
	}
	if issues := schema.Lint(got); len(issues) != 0 {
		t.Fatalf("completed section has lint issues: %v", issues)
	}
}
