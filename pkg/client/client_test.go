package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/client"
	"github.com/goliatone/go-postgen/pkg/failure"
	"github.com/goliatone/go-postgen/pkg/schema"
)

func newServer(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return client.New(client.WithBaseURL(server.URL+"/api"), client.WithHTTPClient(server.Client()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestFetchSchemaUnwrapsEnvelope(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/platforms/email/schema" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"platform": map[string]any{
				"id": "email",
				"schema": map[string]any{
					"editor": map[string]any{"fields": []any{map[string]any{"name": "subject", "type": "text"}}},
				},
			},
		})
	})

	got, err := c.FetchSchema(context.Background(), "email")
	if err != nil {
		t.Fatalf("fetch schema: %v", err)
	}
	if got.Platform != "email" || len(got.Editor.Fields) != 1 {
		t.Fatalf("unexpected schema %#v", got)
	}
}

func TestFetchOptionsUsesSourceKey(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"recipients": []any{map[string]any{"id": "a", "name": "Alice"}},
		})
	})

	got, err := c.FetchOptions(context.Background(), "/platforms/email/recipients", "recipients", "")
	if err != nil {
		t.Fatalf("fetch options: %v", err)
	}
	want := []schema.Option{{Label: "Alice", Value: "a"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterTargetSurfacesServerError(t *testing.T) {
	var posted map[string]string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&posted)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "error": "invalid e-mail address"})
	})

	err := c.RegisterTarget(context.Background(), "/platforms/email/recipients", "individual", "not-an-email")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !failure.Is(err, failure.KindNetwork) {
		t.Fatalf("expected network kind, got %q", failure.KindOf(err))
	}
	if got := failure.UserMessage(err, "fallback"); got != "invalid e-mail address" {
		t.Fatalf("expected server message, got %q", got)
	}
	if posted["individual"] != "not-an-email" {
		t.Fatalf("unexpected posted body %#v", posted)
	}
}

func TestApplyTemplate(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req client.ApplyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.TemplateID {
		case "ok":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "content": map[string]any{"subject": "Hi"}})
		case "soft-fail":
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "template not mapped"})
		default:
			writeJSON(w, http.StatusBadGateway, map[string]any{"message": "mapping service down"})
		}
	})

	content, err := c.ApplyTemplate(context.Background(), "email", client.ApplyRequest{TemplateID: "ok"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if content["subject"] != "Hi" {
		t.Fatalf("unexpected content %#v", content)
	}

	cases := map[string]string{
		"soft-fail": "template not mapped",
		"hard-fail": "mapping service down",
	}
	for id, message := range cases {
		_, err := c.ApplyTemplate(context.Background(), "email", client.ApplyRequest{TemplateID: id})
		if !failure.Is(err, failure.KindApply) {
			t.Fatalf("%s: expected apply failure, got %v", id, err)
		}
		if got := failure.UserMessage(err, ""); got != message {
			t.Fatalf("%s: expected message %q, got %q", id, message, got)
		}
	}

	if _, err := c.ApplyTemplate(context.Background(), "email", client.ApplyRequest{}); !failure.Is(err, failure.KindApply) {
		t.Fatalf("expected missing template id to fail, got %v", err)
	}
}

func TestApplyTemplateCarriesFieldErrors(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "content rejected",
			"errors": map[string]any{
				"content.subject": []string{"Subject is too long"},
				"templateId":      "Template is archived",
			},
		})
	})

	_, err := c.ApplyTemplate(context.Background(), "email", client.ApplyRequest{TemplateID: "welcome"})
	var status client.StatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected status error, got %v", err)
	}
	want := map[string][]string{
		"content.subject": {"Subject is too long"},
		"templateId":      {"Template is archived"},
	}
	if diff := cmp.Diff(want, status.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if got := failure.UserMessage(err, ""); got != "content rejected" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestListTemplatesAcceptsBareList(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/templates/categories":
			writeJSON(w, http.StatusOK, map[string]any{"categories": []any{map[string]any{"id": "promo", "name": "Promo"}}})
		default:
			writeJSON(w, http.StatusOK, []any{map[string]any{"id": "t1", "name": "Launch"}})
		}
	})

	templates, err := c.ListTemplates(context.Background(), "email")
	if err != nil || len(templates) != 1 || templates[0].ID != "t1" {
		t.Fatalf("unexpected templates %#v (err %v)", templates, err)
	}
	categories, err := c.ListCategories(context.Background())
	if err != nil || len(categories) != 1 || categories[0].ID != "promo" {
		t.Fatalf("unexpected categories %#v (err %v)", categories, err)
	}
}
