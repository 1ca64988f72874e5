package apply_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-postgen/pkg/apply"
	"github.com/goliatone/go-postgen/pkg/client"
	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/failure"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/schema"
)

type fakeMapper struct {
	content  map[string]any
	err      error
	requests []client.ApplyRequest
}

func (m *fakeMapper) ApplyTemplate(_ context.Context, _ string, req client.ApplyRequest) (map[string]any, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.content, nil
}

type fakeNames struct {
	options map[string][]schema.Option
	err     error
	calls   []string
}

func (n *fakeNames) FetchOptions(_ context.Context, endpoint, _ string, _ string) ([]schema.Option, error) {
	n.calls = append(n.calls, endpoint)
	if n.err != nil {
		return nil, n.err
	}
	return n.options[endpoint], nil
}

func editorSection() schema.Section {
	return schema.Section{Fields: []schema.Field{
		{Name: "subject", Type: schema.FieldTypeText},
		{
			Name: "audience",
			Type: schema.FieldTypeTargets,
			Schema: map[string]schema.SubField{
				"mode":       {FieldType: schema.FieldTypeSelect},
				"individual": {FieldType: schema.FieldTypeMultiselect, Source: "recipients"},
				"groups":     {FieldType: schema.FieldTypeMultiselect, Source: "lists"},
			},
			DataEndpoints: map[string]string{
				"recipients": "/platforms/:platformId/recipients",
				"lists":      "/platforms/:platformId/lists",
			},
		},
	}}
}

func newOrchestrator(mapper apply.Mapper, names apply.NameSource, extra ...apply.Option) *apply.Orchestrator {
	ids := []string{"entry-1", "entry-2", "entry-3"}
	next := 0
	opts := []apply.Option{
		apply.WithMapper(mapper),
		apply.WithNameSource(names),
		apply.WithProvider(host.StaticProvider{
			Parsed: map[string]any{"title": "Gala"},
			Files:  []host.FileRef{{ID: "f1", Name: "flyer.pdf"}, {ID: "f2", Name: "poster.png"}},
		}),
		apply.WithClock(func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }),
		apply.WithIDGenerator(func() string {
			id := ids[next]
			next++
			return id
		}),
	}
	return apply.New(append(opts, extra...)...)
}

func TestApplyFailureLeavesStateUnchanged(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := apply.NewMetrics(reg)
	mapper := &fakeMapper{err: failure.Apply("client.apply_template", "template not mapped")}
	o := newOrchestrator(mapper, &fakeNames{}, apply.WithMetrics(metrics))

	state := content.State{"subject": "Hello", content.VarKey("title"): "Manual"}
	before := state.Clone()

	result, err := o.Apply(context.Background(), apply.Request{
		Platform: "email",
		Template: schema.Template{ID: "t1", Name: "Launch"},
		Section:  editorSection(),
		State:    state,
	})
	if err == nil {
		t.Fatalf("expected apply failure")
	}
	if failure.UserMessage(err, "fallback") != "template not mapped" {
		t.Fatalf("expected service message, got %v", err)
	}
	if result.State != nil {
		t.Fatalf("expected no result state, got %#v", result.State)
	}
	if diff := cmp.Diff(before, state); diff != "" {
		t.Fatalf("state mutated on failure (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(metrics.Applies(apply.OutcomeFailure)); got != 1 {
		t.Fatalf("expected one failure observed, got %v", got)
	}
}

func TestApplyRequiresTemplateID(t *testing.T) {
	mapper := &fakeMapper{}
	_, err := newOrchestrator(mapper, nil).Apply(context.Background(), apply.Request{Platform: "email"})
	if !failure.Is(err, failure.KindApply) {
		t.Fatalf("expected apply failure, got %v", err)
	}
	if len(mapper.requests) != 0 {
		t.Fatalf("mapping service called without template id")
	}
}

func TestApplyMergesAndWritesTargets(t *testing.T) {
	mapper := &fakeMapper{content: map[string]any{
		"subject":            "Mapped subject",
		"body":               "Mapped body",
		content.TemplatesKey: []any{},
		"audience":           map[string]any{"mode": "ignored"},
	}}
	names := &fakeNames{options: map[string][]schema.Option{
		"/platforms/email/recipients": {{Label: "Alice", Value: "a"}, {Label: "Bob", Value: "b"}},
	}}
	o := newOrchestrator(mapper, names)

	state := content.State{"subject": "Old", "footer": "Keep me"}
	result, err := o.Apply(context.Background(), apply.Request{
		Platform:      "email",
		Template:      schema.Template{ID: "t1", Name: "Launch"},
		Section:       editorSection(),
		State:         state,
		Targets:       &content.TargetsConfig{Mode: content.TargetModeIndividual, Individual: []string{"a", "zz"}, TemplateLocale: "de"},
		SpecificFiles: []string{"f2"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	req := mapper.requests[0]
	if req.TemplateID != "t1" || req.ParsedData["title"] != "Gala" {
		t.Fatalf("unexpected mapping request %#v", req)
	}
	if len(req.UploadedFileRefs) != 1 || req.UploadedFileRefs[0].ID != "f2" {
		t.Fatalf("expected only the specific file, got %#v", req.UploadedFileRefs)
	}
	if diff := cmp.Diff(map[string]any{"subject": "Old", "footer": "Keep me"}, req.ExistingContent); diff != "" {
		t.Fatalf("existing content mismatch (-want +got):\n%s", diff)
	}

	got := result.State
	if got["subject"] != "Mapped subject" || got["body"] != "Mapped body" || got["footer"] != "Keep me" {
		t.Fatalf("unexpected merge %#v", got)
	}
	wantTargets := map[string]any{"mode": "individual", "individual": []string{"a", "zz"}}
	if diff := cmp.Diff(wantTargets, got["audience"]); diff != "" {
		t.Fatalf("targets content mismatch (-want +got):\n%s", diff)
	}

	wantEntry := content.AppliedTemplateEntry{
		ID:           "entry-1",
		TemplateID:   "t1",
		TemplateName: "Launch",
		Targets: content.TargetsConfig{
			Mode:           content.TargetModeIndividual,
			Individual:     []string{"a", "zz"},
			TargetNames:    []string{"Alice", "zz"},
			TemplateLocale: "de",
		},
		SpecificFiles: []string{"f2"},
		AppliedAt:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(wantEntry, result.Entry); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]content.AppliedTemplateEntry{wantEntry}, got.Templates()); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if _, ok := state["body"]; ok {
		t.Fatalf("input state mutated")
	}
}

func TestReapplyKeepsUserOverrides(t *testing.T) {
	mapper := &fakeMapper{content: map[string]any{
		content.VarKey("title"):      "Mapped title",
		content.DisabledKey("title"): true,
		content.VarKey("venue"):      "Mapped venue",
		content.DisabledKey("venue"): true,
	}}
	o := newOrchestrator(mapper, &fakeNames{})

	state := content.State{
		content.VarKey("title"):      "User title",
		content.DisabledKey("title"): false,
		content.VarKey("venue"):      "",
	}
	result, err := o.Apply(context.Background(), apply.Request{
		Platform: "email",
		Template: schema.Template{ID: "t1"},
		State:    state,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	got := result.State
	want := map[string]any{
		content.VarKey("title"):      "User title",
		content.DisabledKey("title"): false,
		content.VarKey("venue"):      "Mapped venue",
		content.DisabledKey("venue"): true,
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("%s = %#v, want %#v", key, got[key], value)
		}
	}
}

func TestApplyAppendsHistoryInOrder(t *testing.T) {
	mapper := &fakeMapper{content: map[string]any{"subject": "x"}}
	o := newOrchestrator(mapper, &fakeNames{})

	first, err := o.Apply(context.Background(), apply.Request{Platform: "email", Template: schema.Template{ID: "A"}, State: content.State{}})
	if err != nil {
		t.Fatalf("apply A: %v", err)
	}
	second, err := o.Apply(context.Background(), apply.Request{Platform: "email", Template: schema.Template{ID: "B"}, State: first.State})
	if err != nil {
		t.Fatalf("apply B: %v", err)
	}

	history := second.State.Templates()
	if len(history) != 2 || history[0].TemplateID != "A" || history[1].TemplateID != "B" {
		t.Fatalf("unexpected history %#v", history)
	}
	if history[0].TemplateName != "A" {
		t.Fatalf("expected id as fallback name, got %q", history[0].TemplateName)
	}

	removed := apply.Remove(second.State, history[0].ID)
	left := removed.Templates()
	if len(left) != 1 || left[0].TemplateID != "B" || removed["subject"] != "x" {
		t.Fatalf("unexpected state after removal %#v", removed)
	}
}

func TestNameResolution(t *testing.T) {
	options := map[string][]schema.Option{
		"/platforms/email/recipients": {{Label: "Alice", Value: "a"}, {Label: "Bob", Value: "b"}},
		"/platforms/email/lists":      {{Label: "VIP", Value: "g1"}},
	}
	cases := []struct {
		name    string
		targets *content.TargetsConfig
		names   *fakeNames
		want    content.TargetsConfig
	}{
		{
			name:  "all lists every recipient",
			names: &fakeNames{options: options},
			want:  content.TargetsConfig{Mode: content.TargetModeAll, TargetNames: []string{"Alice", "Bob"}},
		},
		{
			name:    "groups",
			targets: &content.TargetsConfig{Mode: content.TargetModeGroups, Groups: []string{"g1", "g9"}},
			names:   &fakeNames{options: options},
			want:    content.TargetsConfig{Mode: content.TargetModeGroups, Groups: []string{"g1", "g9"}, GroupNames: []string{"VIP", "g9"}},
		},
		{
			name:    "failure keeps raw ids and locale",
			targets: &content.TargetsConfig{Mode: content.TargetModeIndividual, Individual: []string{"a"}, TemplateLocale: "fr"},
			names:   &fakeNames{err: errors.New("unreachable")},
			want:    content.TargetsConfig{Mode: content.TargetModeIndividual, Individual: []string{"a"}, TargetNames: []string{"a"}, TemplateLocale: "fr"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := apply.NewMetrics(prometheus.NewRegistry())
			o := newOrchestrator(&fakeMapper{content: map[string]any{}}, tc.names, apply.WithMetrics(metrics))
			result, err := o.Apply(context.Background(), apply.Request{
				Platform: "email",
				Template: schema.Template{ID: "t1"},
				Section:  editorSection(),
				State:    content.State{},
				Targets:  tc.targets,
			})
			if err != nil {
				t.Fatalf("name resolution must not fail apply: %v", err)
			}
			if diff := cmp.Diff(tc.want, result.Entry.Targets); diff != "" {
				t.Fatalf("targets mismatch (-want +got):\n%s", diff)
			}
			failures := testutil.ToFloat64(metrics.NameFailures())
			if (tc.names.err != nil) != (failures == 1) {
				t.Fatalf("unexpected name failure count %v", failures)
			}
		})
	}
}

func TestApplyKeepsPreviousTemplateLocale(t *testing.T) {
	o := newOrchestrator(&fakeMapper{content: map[string]any{}}, &fakeNames{err: errors.New("down")})
	state := content.State{"audience": map[string]any{"mode": "all", "templateLocale": "de"}}

	result, err := o.Apply(context.Background(), apply.Request{
		Platform: "email",
		Template: schema.Template{ID: "t1"},
		Section:  editorSection(),
		State:    state,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Entry.Targets.TemplateLocale != "de" {
		t.Fatalf("expected preserved locale, got %#v", result.Entry.Targets)
	}
	if diff := cmp.Diff(map[string]any{"mode": "all"}, result.State["audience"]); diff != "" {
		t.Fatalf("locale leaked into content key (-want +got):\n%s", diff)
	}
}

func TestMetricsReuseRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := apply.NewMetrics(reg)
	second := apply.NewMetrics(reg)
	second.Applies(apply.OutcomeSuccess).Inc()
	if got := testutil.ToFloat64(first.Applies(apply.OutcomeSuccess)); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}
