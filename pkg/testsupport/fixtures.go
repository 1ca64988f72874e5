// Package testsupport holds helpers shared by package tests: collaborator
// servers, JSON responses and fixture files.
package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-postgen/pkg/client"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// NewClient starts an httptest server for handler and returns a client whose
// base URL is the server URL plus "/api". The server closes on test cleanup.
func NewClient(t *testing.T, handler http.Handler, opts ...client.Option) *client.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	base := []client.Option{client.WithBaseURL(server.URL + "/api"), client.WithHTTPClient(server.Client())}
	return client.New(append(base, opts...)...)
}

// WriteJSON encodes payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteFile writes body to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// MustDecodePlatform parses a platform schema fixture in any supported
// format, named by location for format detection.
func MustDecodePlatform(t *testing.T, location, body string) schema.PlatformSchema {
	t.Helper()
	doc, err := schema.NewDocument(schema.SourceFromFile(location), []byte(body))
	if err != nil {
		t.Fatalf("document %s: %v", location, err)
	}
	ps, err := doc.Platform()
	if err != nil {
		t.Fatalf("platform %s: %v", location, err)
	}
	return ps
}
