package options_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-postgen/pkg/options"
	"github.com/goliatone/go-postgen/pkg/schema"
)

func TestDecodeNameIDShape(t *testing.T) {
	got, err := options.Decode([]byte(`[{"id":"a","name":"Alice"}]`), "recipients", "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []schema.Option{{Label: "Alice", Value: "a"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractLookupOrder(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		key     string
		path    string
		want    []schema.Option
	}{
		{
			name:    "options envelope",
			payload: `{"success":true,"options":[{"label":"Berlin","value":"ber"}]}`,
			want:    []schema.Option{{Label: "Berlin", Value: "ber"}},
		},
		{
			name:    "named source key",
			payload: `{"success":true,"groups":[{"id":7,"name":"VIP"}]}`,
			key:     "groups",
			want:    []schema.Option{{Label: "VIP", Value: "7"}},
		},
		{
			name:    "bare strings with duplicates",
			payload: `["en","de","en"," "]`,
			want:    []schema.Option{{Label: "en", Value: "en"}, {Label: "de", Value: "de"}},
		},
		{
			name:    "dotted path",
			payload: `{"data":{"items":[{"value":"x","title":"Ex"}]}}`,
			path:    "data.items",
			want:    []schema.Option{{Label: "Ex", Value: "x"}},
		},
		{
			name:    "missing path",
			payload: `{"data":{}}`,
			path:    "data.items",
			want:    nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := options.Decode([]byte(tc.payload), tc.key, tc.path)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandEndpoint(t *testing.T) {
	if got := options.ExpandEndpoint("/platforms/:platformId/recipients", "email"); got != "/platforms/email/recipients" {
		t.Fatalf("unexpected endpoint %q", got)
	}
	if !options.NeedsPlatform("/platforms/:platformId/groups") || options.NeedsPlatform("/locales") {
		t.Fatalf("unexpected NeedsPlatform result")
	}
}

func TestFind(t *testing.T) {
	opts := []schema.Option{{Label: "Alice", Value: "a@example.com"}}
	if _, ok := options.Find(opts, " alice "); !ok {
		t.Fatalf("expected case-insensitive label match")
	}
	if _, ok := options.Find(opts, "bob@example.com"); ok {
		t.Fatalf("unexpected match for unknown value")
	}
}
