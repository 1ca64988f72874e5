package schemastore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/schemastore"
	"github.com/goliatone/go-postgen/pkg/testsupport"
)

type countingFetcher struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
}

func (f *countingFetcher) FetchSchema(_ context.Context, platformID string) (schema.PlatformSchema, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return schema.PlatformSchema{}, f.err
	}
	return schema.PlatformSchema{Editor: schema.Section{Fields: []schema.Field{{Name: "subject", Type: schema.FieldTypeText}}}}, nil
}

func TestGetCachesAndDedupes(t *testing.T) {
	fetcher := &countingFetcher{gate: make(chan struct{})}
	store := schemastore.New(schemastore.WithFetcher(fetcher))

	var wg sync.WaitGroup
	results := make([]schema.PlatformSchema, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Get(context.Background(), "email")
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			results[i] = got
		}()
	}
	for fetcher.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(fetcher.gate)
	wg.Wait()

	if got := fetcher.calls.Load(); got > 8 || got < 1 {
		t.Fatalf("unexpected fetch count %d", got)
	}
	for _, got := range results {
		if got.Platform != "email" || len(got.Editor.Fields) != 1 {
			t.Fatalf("unexpected schema %#v", got)
		}
	}

	before := fetcher.calls.Load()
	if _, err := store.Get(context.Background(), "email"); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if fetcher.calls.Load() != before {
		t.Fatalf("cached get fetched again")
	}

	store.Invalidate("email")
	if store.Cached("email") {
		t.Fatalf("expected eviction")
	}
	if _, err := store.Get(context.Background(), "email"); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if fetcher.calls.Load() != before+1 {
		t.Fatalf("expected refetch after invalidate")
	}
}

func TestGetDoesNotCacheFailures(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("down")}
	store := schemastore.New(schemastore.WithFetcher(fetcher))
	if _, err := store.Get(context.Background(), "email"); err == nil {
		t.Fatalf("expected error")
	}
	if store.Cached("email") {
		t.Fatalf("failure was cached")
	}
}

func TestGetWithoutSource(t *testing.T) {
	_, err := schemastore.New().Get(context.Background(), "email")
	if !errors.Is(err, schemastore.ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}

func TestDirectoryWinsOverFetcher(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "twitter.yaml", "editor:\n  fields:\n    - name: tweet\n      type: textarea\n")

	fetcher := &countingFetcher{}
	store := schemastore.New(schemastore.WithDirectory(dir), schemastore.WithFetcher(fetcher))

	got, err := store.Get(context.Background(), "twitter")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Platform != "twitter" || got.Editor.Fields[0].Name != "tweet" {
		t.Fatalf("unexpected schema %#v", got)
	}
	if fetcher.calls.Load() != 0 {
		t.Fatalf("fetcher used despite local file")
	}

	if _, err := store.Get(context.Background(), "email"); err != nil {
		t.Fatalf("fallback get: %v", err)
	}
	if fetcher.calls.Load() != 1 {
		t.Fatalf("expected fetcher fallback")
	}
}

func TestWatchEvictsChangedSchemas(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "email.json", `{"editor":{"fields":[{"name":"subject","type":"text"}]}}`)

	store := schemastore.New(schemastore.WithDirectory(dir))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := store.Get(ctx, "email"); err != nil {
		t.Fatalf("get: %v", err)
	}

	watcher, err := store.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer watcher.Close()

	writeSchema(t, dir, "email.json", `{"editor":{"fields":[{"name":"headline","type":"text"}]}}`)

	select {
	case platform := <-watcher.Events():
		if platform != "email" {
			t.Fatalf("unexpected eviction %q", platform)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for eviction")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := store.Get(ctx, "email")
		if err == nil && len(got.Editor.Fields) == 1 && got.Editor.Fields[0].Name == "headline" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected reloaded schema, got %#v (%v)", got.Editor.Fields, err)
		}
		store.Invalidate("email")
		time.Sleep(10 * time.Millisecond)
	}
}

func writeSchema(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectoryFormatsDecodeAlike(t *testing.T) {
	const yamlBody = `
platform: email
editor:
  fields:
    - name: subject
      type: text
      required: true
    - name: sendAt
      type: datetime
`
	const jsoncBody = `{
  // same schema, commented
  "platform": "email",
  "editor": {"fields": [
    {"name": "subject", "type": "text", "required": true},
    {"name": "sendAt", "type": "datetime"}, /* trailing comma */
  ]}
}`
	want := testsupport.MustDecodePlatform(t, "email.yaml", yamlBody)

	for name, body := range map[string]string{"email.yaml": yamlBody, "email.jsonc": jsoncBody} {
		dir := t.TempDir()
		testsupport.WriteFile(t, dir, name, body)
		got, err := schemastore.New(schemastore.WithDirectory(dir)).Get(context.Background(), "email")
		if err != nil {
			t.Fatalf("%s: get: %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s: schema mismatch (-want +got):\n%s", name, diff)
		}
	}
}
