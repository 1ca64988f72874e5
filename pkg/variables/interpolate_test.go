package variables_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/variables"
)

func TestInterpolate(t *testing.T) {
	values := map[string]string{"title": "<b>Gala</b>", "city": "Berlin"}

	if got := variables.Interpolate("{{ title }} in {{city}} {{missing}}", values, false); got != "<b>Gala</b> in Berlin {{missing}}" {
		t.Fatalf("unexpected text interpolation %q", got)
	}
	if got := variables.Interpolate("<p>{{title}}</p>", values, true); got != "<p>Gala</p>" {
		t.Fatalf("unexpected html interpolation %q", got)
	}
}

func TestInterpolateContent(t *testing.T) {
	body := map[string]string{"subject": "{{title}}", "bodyHtml": "<h1>{{title}}</h1>"}
	got := variables.InterpolateContent(body, map[string]string{"title": "<i>Gala</i>"})
	want := map[string]string{"subject": "<i>Gala</i>", "bodyHtml": "<h1>Gala</h1>"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("content mismatch (-want +got):\n%s", diff)
	}
}

func TestPlaceholders(t *testing.T) {
	got := variables.Placeholders("{{a}} {{ b }} {{a}} {{event.date}}")
	if diff := cmp.Diff([]string{"a", "b", "event.date"}, got); diff != "" {
		t.Fatalf("placeholders mismatch (-want +got):\n%s", diff)
	}
}
