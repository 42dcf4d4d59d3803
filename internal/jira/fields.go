package jira

import (
	"strings"
	"time"
)

// getString safely extracts a string value from a map
func getString(m map[string]any, k string) (string, bool) {
	if v, ok := m[k]; ok {
		if s, ok2 := v.(string); ok2 {
			return s, true
		}
	}
	return "", false
}

// getMap safely extracts a nested map from a map
func getMap(m map[string]any, k string) (map[string]any, bool) {
	if v, ok := m[k]; ok {
		if mm, ok2 := v.(map[string]any); ok2 {
			return mm, true
		}
	}
	return nil, false
}

// getSlice safely extracts a list value from a map
func getSlice(m map[string]any, k string) ([]any, bool) {
	if v, ok := m[k]; ok {
		if s, ok2 := v.([]any); ok2 {
			return s, true
		}
	}
	return nil, false
}

// nameOf reads the "name" of a nested object field ("status", "priority",
// "issuetype"), "" when absent.
func nameOf(fields map[string]any, key string) string {
	if obj, ok := getMap(fields, key); ok {
		if name, ok := getString(obj, "name"); ok {
			return name
		}
	}
	return ""
}

// namesOf reads the "name" of every element of a list field ("components",
// "fixVersions").
func namesOf(fields map[string]any, key string) []string {
	items, ok := getSlice(fields, key)
	if !ok {
		return nil
	}
	var names []string
	for _, it := range items {
		if obj, ok := it.(map[string]any); ok {
			if name, ok := getString(obj, "name"); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// stringsOf reads a list of plain strings ("labels").
func stringsOf(fields map[string]any, key string) []string {
	items, ok := getSlice(fields, key)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// customFields collects every populated customfield_* entry, unwrapping
// option objects ({"value": ...}) and lists of them so the stored value can
// be written back to the peer instance as-is.
func customFields(fields map[string]any) map[string]any {
	var out map[string]any
	for k, v := range fields {
		if !strings.HasPrefix(k, "customfield_") || v == nil {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = unwrapFieldValue(v)
	}
	return out
}

func unwrapFieldValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if inner, ok := val["value"]; ok {
			return inner
		}
		return val
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, unwrapFieldValue(item))
		}
		return out
	default:
		return v
	}
}

// jiraTimeLayout is the timestamp format Jira Cloud emits
// ("2024-01-15T10:30:00.000+0000").
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

// parseJiraTime accepts Jira's timestamp format plus RFC3339 variants.
func parseJiraTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{jiraTimeLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
