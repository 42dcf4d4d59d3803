package jira

import "strings"

// adfText flattens an Atlassian Document Format value to plain text. Every
// text node in the tree is collected in document order and joined with
// single spaces; plain strings pass through unchanged.
func adfText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	var parts []string
	collectText(v, &parts)
	return strings.Join(parts, " ")
}

func collectText(node any, parts *[]string) {
	switch n := node.(type) {
	case map[string]any:
		if t, _ := getString(n, "type"); t == "text" {
			if txt, ok := getString(n, "text"); ok {
				*parts = append(*parts, txt)
			}
		}
		if content, ok := getSlice(n, "content"); ok {
			for _, child := range content {
				collectText(child, parts)
			}
		}
	case []any:
		for _, item := range n {
			collectText(item, parts)
		}
	}
}

// adfDoc wraps plain text in a single-paragraph ADF document, the shape the
// REST v3 write endpoints require. Empty text produces a document with no
// content because Jira rejects empty text nodes.
func adfDoc(text string) map[string]any {
	content := []any{}
	if text != "" {
		content = append(content, map[string]any{
			"type": "paragraph",
			"content": []any{
				map[string]any{"type": "text", "text": text},
			},
		})
	}
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": content,
	}
}
