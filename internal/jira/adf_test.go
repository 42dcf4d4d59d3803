package jira

import (
	"encoding/json"
	"testing"
)

func TestADFText(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			"single paragraph",
			`{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"hello"}]}]}`,
			"hello",
		},
		{
			"multiple runs join with spaces",
			`{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"hello"},{"type":"text","text":"world"}]}]}`,
			"hello world",
		},
		{
			"nested structures",
			`{"type":"doc","version":1,"content":[{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"first"}]}]},{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"second"}]}]}]}]}`,
			"first second",
		},
		{
			"empty doc",
			`{"type":"doc","version":1,"content":[]}`,
			"",
		},
		{
			"non text nodes skipped",
			`{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"hardBreak"},{"type":"text","text":"after break"}]}]}`,
			"after break",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v any
			if err := json.Unmarshal([]byte(tc.raw), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := adfText(v); got != tc.want {
				t.Errorf("adfText = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestADFText_PassThroughValues(t *testing.T) {
	if got := adfText("already plain"); got != "already plain" {
		t.Errorf("string passthrough = %q", got)
	}
	if got := adfText(nil); got != "" {
		t.Errorf("nil = %q", got)
	}
}

func TestADFRoundTrip(t *testing.T) {
	for _, text := range []string{"", "one line", "with spaces  preserved"} {
		doc := adfDoc(text)
		if got := adfText(doc); got != text {
			t.Errorf("round trip %q = %q", text, got)
		}
	}
}

func TestADFDoc_EmptyHasNoTextNodes(t *testing.T) {
	doc := adfDoc("")
	content, ok := doc["content"].([]any)
	if !ok || len(content) != 0 {
		t.Fatalf("empty doc content = %v", doc["content"])
	}
	if doc["type"] != "doc" || doc["version"] != 1 {
		t.Errorf("doc envelope = %v", doc)
	}
}
