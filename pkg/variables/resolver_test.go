package variables_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/variables"
)

func boolPtr(v bool) *bool { return &v }

func TestDefinitionsCollapseOntoCanonicalName(t *testing.T) {
	defs := []schema.TemplateDefinition{
		{Name: "eventTitle", CanonicalName: "title"},
		{Name: "title"},
		{Name: "date", Aliases: []string{"eventDate"}},
	}

	groups := variables.GroupDefinitions(defs)
	if len(groups) != 2 {
		t.Fatalf("expected 2 canonical variables, got %d", len(groups))
	}
	if groups[0].Canonical != "title" {
		t.Fatalf("unexpected canonical %q", groups[0].Canonical)
	}
	if diff := cmp.Diff([]string{"eventTitle", "title"}, groups[0].Aliases); diff != "" {
		t.Fatalf("alias set mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"date", "eventDate"}, groups[1].Aliases); diff != "" {
		t.Fatalf("alias set mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePrecedence(t *testing.T) {
	defs := []schema.TemplateDefinition{{Name: "eventTitle", CanonicalName: "title"}, {Name: "title"}}
	r := variables.New()

	cases := []struct {
		name     string
		state    content.State
		fallback map[string]string
		want     string
	}{
		{name: "override on any alias", state: content.State{"_var_title": "Manual"}, fallback: map[string]string{"eventTitle": "Parsed"}, want: "Manual"},
		{name: "fallback alias", state: content.State{"_var_title": ""}, fallback: map[string]string{"eventTitle": "Parsed", "title": "Other"}, want: "Parsed"},
		{name: "fallback canonical", fallback: map[string]string{"title": "Canonical"}, want: "Canonical"},
		{name: "empty", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Resolve(defs, tc.state, tc.fallback)
			if len(res.All) != 1 || res.All[0].Value != tc.want {
				t.Fatalf("expected %q, got %#v", tc.want, res.All)
			}
		})
	}
}

func TestWriteRoundTripsAcrossAliases(t *testing.T) {
	defs := []schema.TemplateDefinition{
		{Name: "eventTitle", CanonicalName: "title"},
		{Name: "title", Aliases: []string{"headline"}},
	}
	state := content.State{"body": "x"}

	next := variables.Write(state, defs, "headline", "Summer Gala")
	if _, ok := state[content.VarKey("title")]; ok {
		t.Fatalf("write mutated its input")
	}

	res := variables.New().Resolve(defs, next, nil)
	for _, alias := range []string{"eventTitle", "title", "headline"} {
		if next.Var(alias) != "Summer Gala" {
			t.Fatalf("alias %s not written: %#v", alias, next)
		}
		v, ok := res.Lookup(alias)
		if !ok || v.Value != "Summer Gala" || !v.Overridden {
			t.Fatalf("alias %s resolved to %#v", alias, v)
		}
	}
}

func TestPersistentVariablesSurviveTemplateRemoval(t *testing.T) {
	defs := []schema.TemplateDefinition{{Name: "title"}, {Name: "venue"}}
	state := variables.Write(content.State{}, defs, "title", "Gala")
	state = state.WithTemplate(content.AppliedTemplateEntry{ID: "e1", TemplateID: "t1"})

	cleared := state.WithoutTemplate("e1")
	want := map[string]string{"title": "Gala"}
	if diff := cmp.Diff(want, variables.PersistentVariables(cleared)); diff != "" {
		t.Fatalf("persistent set mismatch (-want +got):\n%s", diff)
	}

	// A different template that reuses the alias still sees the override.
	res := variables.New().Resolve([]schema.TemplateDefinition{{Name: "title"}}, cleared, map[string]string{"title": "Parsed"})
	if res.All[0].Value != "Gala" {
		t.Fatalf("override lost after template change: %#v", res.All[0])
	}
}

func TestAutoFilledDisabledAndEditable(t *testing.T) {
	provider := host.StaticProvider{Parsed: map[string]any{
		"event": map[string]any{"name": "Gala"},
		"venue": nil,
	}}
	defs := []schema.TemplateDefinition{
		{Name: "title", Source: schema.VariableSourceParsed, ParsedField: "event.name"},
		{Name: "venue", Source: schema.VariableSourceParsedOptional},
		{Name: "cta", Source: schema.VariableSourceManual, Editable: boolPtr(false)},
		{Name: "host", Aliases: []string{"organizer"}},
	}
	state := content.State{"_disabled_organizer": "true"}

	res := variables.New(variables.WithProvider(provider)).Resolve(defs, state, nil)
	got := map[string][3]bool{}
	for _, v := range res.All {
		got[v.Name] = [3]bool{v.AutoFilled, v.Disabled, v.Editable}
	}
	want := map[string][3]bool{
		"title": {true, false, true},
		"venue": {false, false, true},
		"cta":   {false, false, false},
		"host":  {false, true, false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}
}

func TestDisplaySuppression(t *testing.T) {
	provider := host.StaticProvider{Parsed: map[string]any{"title": "Gala", "venue": "Hall"}}
	defs := []schema.TemplateDefinition{
		{Name: "title", Source: schema.VariableSourceParsed},
		{Name: "venue", Source: schema.VariableSourceParsed},
		{Name: "promo", ShowWhenEmpty: boolPtr(false)},
		{Name: "notes"},
	}
	state := content.State{"_disabled_venue": true}
	fallback := variables.FallbackFromParsed(defs, provider)

	res := variables.New(variables.WithProvider(provider), variables.WithHideAutoFilled(true)).Resolve(defs, state, fallback)

	var visible []string
	for _, v := range res.Visible {
		visible = append(visible, v.Name)
	}
	if diff := cmp.Diff([]string{"venue", "notes"}, visible); diff != "" {
		t.Fatalf("visible mismatch (-want +got):\n%s", diff)
	}
	if len(res.All) != 4 {
		t.Fatalf("hidden variables must still resolve, got %d", len(res.All))
	}
	if v, _ := res.Lookup("title"); v.Value != "Gala" {
		t.Fatalf("auto-filled value missing: %#v", v)
	}
}

func TestSetDisabled(t *testing.T) {
	defs := []schema.TemplateDefinition{{Name: "title", Aliases: []string{"eventTitle"}}}
	locked := variables.SetDisabled(content.State{}, defs, "eventTitle", true)
	if !locked.IsDisabled("title") || !locked.IsDisabled("eventTitle") {
		t.Fatalf("expected every alias locked: %#v", locked)
	}
	unlocked := variables.SetDisabled(locked, defs, "title", false)
	if len(unlocked) != 0 {
		t.Fatalf("expected lock flags removed: %#v", unlocked)
	}
}

func TestFallbackFromParsed(t *testing.T) {
	provider := host.StaticProvider{
		Parsed: map[string]any{"event": map[string]any{"date": "2026-05-01"}, "city": "Berlin"},
		Files:  []host.FileRef{{ID: "f1", Name: "flyer.pdf"}},
	}
	defs := []schema.TemplateDefinition{
		{Name: "eventDate", CanonicalName: "date", Source: schema.VariableSourceParsed, ParsedField: "event.date"},
		{Name: "attachment", Source: schema.VariableSourceFile},
	}
	want := map[string]string{"city": "Berlin", "date": "2026-05-01", "attachment": "flyer.pdf"}
	if diff := cmp.Diff(want, variables.FallbackFromParsed(defs, provider)); diff != "" {
		t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
	}
}
