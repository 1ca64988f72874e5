package content_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/content"
)

func TestStateHelpersNeverMutateReceiver(t *testing.T) {
	base := content.State{
		"title": "Launch",
		"tags":  []any{"a", "b"},
	}

	next := base.With("title", "Relaunch").Merge(map[string]any{"venue": "Hall"}).Without("tags")

	if base["title"] != "Launch" {
		t.Fatalf("expected receiver untouched, got %v", base["title"])
	}
	if _, ok := base["venue"]; ok {
		t.Fatalf("merge leaked into receiver")
	}
	want := content.State{"title": "Relaunch", "venue": "Hall"}
	if diff := cmp.Diff(want, next); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	clone := base.Clone()
	clone["tags"].([]any)[0] = "changed"
	if base["tags"].([]any)[0] != "a" {
		t.Fatalf("expected deep clone, nested slice was shared")
	}
}

func TestMergeKeepsUnrelatedKeys(t *testing.T) {
	base := content.State{"subject": "Old", "footer": "Keep me"}
	merged := base.Merge(map[string]any{"subject": "New", "body": "Hello"})

	want := content.State{"subject": "New", "footer": "Keep me", "body": "Hello"}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestBoolCoercion(t *testing.T) {
	truthy := []any{true, "true", 1, "1", float64(1), json.Number("1")}
	for _, value := range truthy {
		if !content.Bool(value) {
			t.Fatalf("expected %#v to coerce to true", value)
		}
	}
	falsy := []any{false, "false", 0, "0", "", nil, "yes", 2}
	for _, value := range falsy {
		if content.Bool(value) {
			t.Fatalf("expected %#v to coerce to false", value)
		}
	}
}

func TestNumberDistinguishesUnsetFromZero(t *testing.T) {
	if _, ok := content.Number(""); ok {
		t.Fatalf("expected blank string to be unset")
	}
	if _, ok := content.Number(nil); ok {
		t.Fatalf("expected nil to be unset")
	}
	if n, ok := content.Number("0"); !ok || n != 0 {
		t.Fatalf("expected zero to be set, got %v %v", n, ok)
	}
	if n, ok := content.Number(" 12.5 "); !ok || n != 12.5 {
		t.Fatalf("expected 12.5, got %v %v", n, ok)
	}
}

func TestStringAndStrings(t *testing.T) {
	if got := content.String(float64(42)); got != "42" {
		t.Fatalf("expected whole float to render as 42, got %q", got)
	}
	if got := content.String([]any{"a", nil, "b"}); got != "a, b" {
		t.Fatalf("unexpected joined string %q", got)
	}
	if diff := cmp.Diff([]string{"x", "y"}, content.Strings([]any{"x", "", "y"})); diff != "" {
		t.Fatalf("strings mismatch (-want +got):\n%s", diff)
	}
	if got := content.Strings("  "); got != nil {
		t.Fatalf("expected blank scalar to yield nil, got %#v", got)
	}
}

func TestPersistentVariables(t *testing.T) {
	state := content.State{
		"_var_title":      "Spring Gala",
		"_var_venue":      "",
		"_disabled_title": true,
		"body":            "text",
	}
	want := map[string]string{"title": "Spring Gala"}
	if diff := cmp.Diff(want, state.PersistentVariables()); diff != "" {
		t.Fatalf("persistent variables mismatch (-want +got):\n%s", diff)
	}
	if !state.IsDisabled("title") {
		t.Fatalf("expected title to be disabled")
	}
	if diff := cmp.Diff([]string{"body"}, state.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateHistoryAppendAndRemove(t *testing.T) {
	appliedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := content.AppliedTemplateEntry{ID: "1", TemplateID: "tpl-a", TemplateName: "A", Targets: content.DefaultTargets(), AppliedAt: appliedAt}
	b := content.AppliedTemplateEntry{ID: "2", TemplateID: "tpl-b", TemplateName: "B", Targets: content.DefaultTargets(), AppliedAt: appliedAt}

	state := content.State{}.WithTemplate(a).WithTemplate(b)
	history := state.Templates()
	if len(history) != 2 || history[0].TemplateID != "tpl-a" || history[1].TemplateID != "tpl-b" {
		t.Fatalf("unexpected history: %#v", history)
	}

	removed := state.WithoutTemplate("1")
	if got := removed.Templates(); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("unexpected history after removal: %#v", got)
	}
	if len(state.Templates()) != 2 {
		t.Fatalf("removal mutated the original state")
	}
}

func TestTemplatesDecodeFromJSON(t *testing.T) {
	raw := []byte(`{"_templates":[{"id":"x","templateId":"t1","templateName":"Promo","targets":{"mode":"groups","groups":["g1"],"groupNames":["VIP"]},"appliedAt":"2026-01-02T03:04:05Z"}]}`)
	var state content.State
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	history := state.Templates()
	if len(history) != 1 {
		t.Fatalf("expected one entry, got %d", len(history))
	}
	entry := history[0]
	if entry.Targets.Mode != content.TargetModeGroups || entry.Targets.GroupNames[0] != "VIP" {
		t.Fatalf("unexpected targets %#v", entry.Targets)
	}
}

func TestTargetsContentValueOmitsLocale(t *testing.T) {
	cfg := content.TargetsConfig{Mode: content.TargetModeIndividual, Individual: []string{"a"}, TemplateLocale: "de"}
	want := map[string]any{"mode": "individual", "individual": []string{"a"}}
	if diff := cmp.Diff(want, cfg.ContentValue()); diff != "" {
		t.Fatalf("content value mismatch (-want +got):\n%s", diff)
	}

	decoded, ok := content.TargetsFromValue(map[string]any{"mode": "groups", "groups": []any{"g"}, "templateLocale": "fr"})
	if !ok || decoded.Mode != content.TargetModeGroups || decoded.TemplateLocale != "fr" {
		t.Fatalf("unexpected decoded targets %#v", decoded)
	}
}
