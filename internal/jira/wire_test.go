package jira

import (
	"encoding/json"
	"testing"
	"time"
)

const issueFixture = `{
  "id": "10001",
  "key": "PROJ-1",
  "fields": {
    "summary": "Payment webhook drops retries",
    "description": {
      "type": "doc", "version": 1,
      "content": [
        {"type": "paragraph", "content": [
          {"type": "text", "text": "Webhook retries are"},
          {"type": "text", "text": "silently dropped."}
        ]},
        {"type": "paragraph", "content": [
          {"type": "text", "text": "Seen on checkout."}
        ]}
      ]
    },
    "status": {"name": "In Progress"},
    "priority": {"name": "High"},
    "issuetype": {"name": "Bug"},
    "labels": ["payments", "webhook"],
    "components": [{"name": "billing"}, {"name": "gateway"}],
    "fixVersions": [{"name": "2024.2"}],
    "assignee": {"accountId": "5b10ac8d82e05b22cc7d4ef5", "displayName": "Dana Ops", "emailAddress": "dana@left.example.com"},
    "reporter": {"accountId": "5b10ac8d82e05b22cc7d4ef6", "displayName": "Rae Reporter"},
    "resolution": {"name": "Done"},
    "created": "2024-01-15T10:30:00.000+0000",
    "updated": "2024-02-01T08:00:00.000+0000",
    "customfield_10031": {"value": "Tier 2"},
    "customfield_10044": [{"value": "alpha"}, {"value": "beta"}],
    "customfield_10050": null,
    "customfield_10061": "plain string",
    "comment": {
      "comments": [
        {
          "id": "9001",
          "author": {"displayName": "Sam Writer"},
          "body": {"type": "doc", "version": 1, "content": [
            {"type": "paragraph", "content": [{"type": "text", "text": "Can reproduce."}]}
          ]},
          "created": "2024-01-16T09:00:00.000+0000",
          "updated": "2024-01-16T09:00:00.000+0000",
          "jsdPublic": true
        },
        {
          "id": "9002",
          "author": {"displayName": "Agent Internal"},
          "body": {"type": "doc", "version": 1, "content": [
            {"type": "paragraph", "content": [{"type": "text", "text": "internal note"}]}
          ]},
          "created": "2024-01-16T10:00:00.000+0000",
          "updated": "2024-01-16T10:00:00.000+0000",
          "jsdPublic": false
        }
      ],
      "total": 2
    }
  }
}`

func TestDecodeIssue(t *testing.T) {
	var w issueWire
	if err := json.Unmarshal([]byte(issueFixture), &w); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	is := decodeIssue(w)

	if is.Key != "PROJ-1" {
		t.Errorf("Key = %q", is.Key)
	}
	if is.Summary != "Payment webhook drops retries" {
		t.Errorf("Summary = %q", is.Summary)
	}
	if is.Description != "Webhook retries are silently dropped. Seen on checkout." {
		t.Errorf("Description = %q", is.Description)
	}
	if is.Status != "In Progress" || is.Priority != "High" || is.IssueType != "Bug" {
		t.Errorf("named fields = %q/%q/%q", is.Status, is.Priority, is.IssueType)
	}
	if len(is.Labels) != 2 || is.Labels[0] != "payments" {
		t.Errorf("Labels = %v", is.Labels)
	}
	if len(is.Components) != 2 || is.Components[1] != "gateway" {
		t.Errorf("Components = %v", is.Components)
	}
	if len(is.FixVersions) != 1 || is.FixVersions[0] != "2024.2" {
		t.Errorf("FixVersions = %v", is.FixVersions)
	}
	if is.Assignee != "dana@left.example.com" {
		t.Errorf("Assignee = %q", is.Assignee)
	}
	// Instances with email visibility restricted only expose display names.
	if is.Reporter != "Rae Reporter" {
		t.Errorf("Reporter = %q", is.Reporter)
	}
	if is.Resolution != "Done" {
		t.Errorf("Resolution = %q", is.Resolution)
	}

	wantUpdated := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	if !is.Updated.Equal(wantUpdated) {
		t.Errorf("Updated = %v, want %v", is.Updated, wantUpdated)
	}

	// Option objects unwrap to their value; nulls are dropped; plain
	// values pass through.
	if got := is.CustomFields["customfield_10031"]; got != "Tier 2" {
		t.Errorf("customfield_10031 = %v", got)
	}
	if got, ok := is.CustomFields["customfield_10044"].([]any); !ok || len(got) != 2 || got[0] != "alpha" {
		t.Errorf("customfield_10044 = %v", is.CustomFields["customfield_10044"])
	}
	if _, ok := is.CustomFields["customfield_10050"]; ok {
		t.Error("null custom field kept")
	}
	if got := is.CustomFields["customfield_10061"]; got != "plain string" {
		t.Errorf("customfield_10061 = %v", got)
	}

	// Internal comments never make it into the decoded issue.
	if len(is.Comments) != 1 {
		t.Fatalf("Comments = %d, want 1", len(is.Comments))
	}
	c := is.Comments[0]
	if c.ID != "9001" || c.Author != "Sam Writer" || c.Body != "Can reproduce." {
		t.Errorf("comment = %+v", c)
	}
}

func TestDecodeCommentPublicDefault(t *testing.T) {
	// Plain Jira (non-JSM) comments carry no jsdPublic flag at all.
	var w commentWire
	raw := `{"id":"7","author":{"displayName":"A"},"body":"plain text body","created":"2024-01-16T09:00:00.000+0000","updated":"2024-01-16T09:05:00.000+0000"}`
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	c, public := decodeComment(w)
	if !public || !c.Public {
		t.Error("comment without jsdPublic should be public")
	}
	if c.Body != "plain text body" {
		t.Errorf("Body = %q", c.Body)
	}
}

func TestParseJiraTime(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-15T10:30:00.000+0000", true},
		{"2024-01-15T10:30:00.000-0500", true},
		{"2024-01-15T10:30:00Z", true},
		{"2024-01-15T10:30:00.123456789Z", true},
		{"", false},
		{"yesterday", false},
	}
	for _, tc := range cases {
		got, ok := parseJiraTime(tc.in)
		if ok != tc.ok {
			t.Errorf("parseJiraTime(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got.IsZero() {
			t.Errorf("parseJiraTime(%q) returned zero time", tc.in)
		}
	}

	got, _ := parseJiraTime("2024-01-15T10:30:00.000-0500")
	if !got.Equal(time.Date(2024, 1, 15, 15, 30, 0, 0, time.UTC)) {
		t.Errorf("offset not honored: %v", got.UTC())
	}
}
