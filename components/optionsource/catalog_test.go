package optionsource

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/schema"
)

func TestCatalogDedupesAndDefaultsLabels(t *testing.T) {
	catalog := NewCatalog()
	catalog.Set("email", "groups", []schema.Option{{Value: "vip"}, {Label: "VIP again", Value: "vip"}, {Label: "blank"}})

	want := []schema.Option{{Label: "vip", Value: "vip"}}
	if diff := cmp.Diff(want, catalog.List("email", "groups")); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogAddCopiesSharedList(t *testing.T) {
	catalog := NewCatalog()
	catalog.Set("", "locales", []schema.Option{{Label: "English", Value: "en"}})

	if !catalog.Add("email", "locales", schema.Option{Label: "Français", Value: "fr"}) {
		t.Fatalf("expected catalog change")
	}
	if catalog.Add("email", "locales", schema.Option{Label: "English", Value: "en"}) {
		t.Fatalf("duplicate value added")
	}
	if got := catalog.List("email", "locales"); len(got) != 2 {
		t.Fatalf("unexpected platform list %#v", got)
	}
	if got := catalog.List("twitter", "locales"); len(got) != 1 {
		t.Fatalf("shared list modified: %#v", got)
	}
	if diff := cmp.Diff([]string{"locales"}, catalog.Sources("email")); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
}
