package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/internal/store"
	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/host"
)

func openSQLite(t *testing.T, path string) *store.SQLite {
	t.Helper()
	db, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleState() content.State {
	applied := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return content.State{
		"subject":     "Spring Gala",
		"_var_title":  "Gala Night",
		"_disabled_x": true,
	}.WithTemplate(content.AppliedTemplateEntry{
		ID:           "entry-1",
		TemplateID:   "tpl-a",
		TemplateName: "Announcement",
		Targets:      content.TargetsConfig{Mode: content.TargetModeAll},
		AppliedAt:    applied,
	})
}

func exerciseStore(t *testing.T, s host.PlatformStore) {
	t.Helper()
	ctx := context.Background()

	empty, err := s.ReadPlatformData(ctx, "email")
	if err != nil {
		t.Fatalf("read empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty state, got %v", empty)
	}

	state := sampleState()
	if err := s.WritePlatformData(ctx, "email", state); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := s.ReadPlatformData(ctx, "email")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if content.String(got["subject"]) != "Spring Gala" || got.Var("title") != "Gala Night" || !got.IsDisabled("x") {
		t.Fatalf("unexpected state %v", got)
	}
	if diff := cmp.Diff(state.Templates(), got.Templates()); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	if err := s.WritePlatformData(ctx, "email", content.State{"subject": "Replaced"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.ReadPlatformData(ctx, "email")
	if diff := cmp.Diff(content.State{"subject": "Replaced"}, got); diff != "" {
		t.Fatalf("overwrite mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.ReadPlatformData(ctx, " "); !errors.Is(err, store.ErrPlatformRequired) {
		t.Fatalf("expected ErrPlatformRequired, got %v", err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	exerciseStore(t, openSQLite(t, ":memory:"))
}

func TestMemoryRoundTrip(t *testing.T) {
	exerciseStore(t, store.NewMemory())
}

func TestMemoryIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	state := content.State{"subject": "A"}
	_ = s.WritePlatformData(ctx, "email", state)
	state["subject"] = "mutated"

	got, _ := s.ReadPlatformData(ctx, "email")
	if content.String(got["subject"]) != "A" {
		t.Fatalf("store shares caller map: %v", got)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "postgen.db")

	first, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.WritePlatformData(ctx, "twitter", content.State{"text": "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := first.WritePlatformData(ctx, "email", content.State{"subject": "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := openSQLite(t, path)
	got, err := second.ReadPlatformData(ctx, "twitter")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if content.String(got["text"]) != "hello" {
		t.Fatalf("unexpected content %v", got)
	}
	platforms, err := second.Platforms(ctx)
	if err != nil {
		t.Fatalf("platforms: %v", err)
	}
	if diff := cmp.Diff([]string{"email", "twitter"}, platforms); diff != "" {
		t.Fatalf("platforms mismatch (-want +got):\n%s", diff)
	}

	if err := second.Delete(ctx, "email"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	platforms, _ = second.Platforms(ctx)
	if diff := cmp.Diff([]string{"twitter"}, platforms); diff != "" {
		t.Fatalf("platforms after delete mismatch (-want +got):\n%s", diff)
	}
}
