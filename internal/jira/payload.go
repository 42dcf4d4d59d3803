package jira

import (
	"reflect"
	"sort"
)

// PayloadOptions control how payload builders render fields for the target
// instance.
type PayloadOptions struct {
	// ProjectKey is the target project for created issues.
	ProjectKey string
	// SyncAssignee includes the assignee in payloads. Off by default
	// because the same person rarely has matching accounts on both
	// instances.
	SyncAssignee bool
}

// CreatePayload builds the fields for creating a mirror of src in the
// target project. Status is never part of a payload; it only moves through
// workflow transitions.
func CreatePayload(src Issue, opts PayloadOptions) map[string]any {
	issueType := src.IssueType
	if issueType == "" {
		issueType = "Task"
	}
	fields := map[string]any{
		"project":   map[string]any{"key": opts.ProjectKey},
		"summary":   src.Summary,
		"issuetype": map[string]any{"name": issueType},
	}
	if src.Description != "" {
		fields["description"] = adfDoc(src.Description)
	}
	if src.Priority != "" {
		fields["priority"] = map[string]any{"name": src.Priority}
	}
	if len(src.Labels) > 0 {
		fields["labels"] = src.Labels
	}
	if len(src.Components) > 0 {
		fields["components"] = nameObjects(src.Components)
	}
	if len(src.FixVersions) > 0 {
		fields["fixVersions"] = nameObjects(src.FixVersions)
	}
	if opts.SyncAssignee && src.Assignee != "" {
		fields["assignee"] = map[string]any{"emailAddress": src.Assignee}
	}
	for k, v := range src.CustomFields {
		fields[k] = v
	}
	return fields
}

// UpdatePayload diffs src against the target's current state and returns
// only the fields that need to change. An empty map means the issues
// already agree. List fields compare as sets so ordering differences do not
// produce writes.
func UpdatePayload(current, src Issue, opts PayloadOptions) map[string]any {
	fields := map[string]any{}

	if src.Summary != current.Summary {
		fields["summary"] = src.Summary
	}
	if src.Description != current.Description {
		fields["description"] = adfDoc(src.Description)
	}
	if src.Priority != current.Priority && src.Priority != "" {
		fields["priority"] = map[string]any{"name": src.Priority}
	}
	if !sameStringSet(src.Labels, current.Labels) {
		labels := src.Labels
		if labels == nil {
			labels = []string{}
		}
		fields["labels"] = labels
	}
	if !sameStringSet(src.Components, current.Components) {
		fields["components"] = nameObjects(src.Components)
	}
	if !sameStringSet(src.FixVersions, current.FixVersions) {
		fields["fixVersions"] = nameObjects(src.FixVersions)
	}
	if opts.SyncAssignee && src.Assignee != current.Assignee {
		if src.Assignee == "" {
			fields["assignee"] = nil
		} else {
			fields["assignee"] = map[string]any{"emailAddress": src.Assignee}
		}
	}
	for k, v := range src.CustomFields {
		if !reflect.DeepEqual(current.CustomFields[k], v) {
			fields[k] = v
		}
	}
	return fields
}

// nameObjects renders a name list in the {"name": ...} shape component and
// version fields require. Always returns a non-nil slice so cleared lists
// marshal as [] rather than null.
func nameObjects(names []string) []map[string]any {
	out := make([]map[string]any, 0, len(names))
	for _, n := range names {
		out = append(out, map[string]any{"name": n})
	}
	return out
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
