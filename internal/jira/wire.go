package jira

import (
	"time"
)

// Issue is the normalized view of a remote issue: object fields reduced to
// their names, ADF bodies flattened to text, custom fields unwrapped.
// Assignee and Reporter are email addresses when the instance exposes them,
// display names otherwise; email is the only identity that survives a hop
// between instances.
type Issue struct {
	Key          string
	Summary      string
	Description  string
	Status       string
	Priority     string
	IssueType    string
	Assignee     string
	Reporter     string
	Resolution   string
	Labels       []string
	Components   []string
	FixVersions  []string
	CustomFields map[string]any
	Created      time.Time
	Updated      time.Time
	Comments     []Comment
}

// Comment is the normalized view of one issue comment. Body is plain text.
// Public mirrors Jira Service Management's jsdPublic flag; comments without
// the flag are public.
type Comment struct {
	ID          string
	Author      string
	AuthorEmail string
	Body        string
	Created     time.Time
	Updated     time.Time
	Public      bool
}

// Transition is one workflow transition available on an issue.
type Transition struct {
	ID       string
	Name     string
	ToStatus string
}

// issueWire is the raw issue shape. Fields stays a map because custom
// fields have dynamic keys and the description is an ADF tree.
type issueWire struct {
	ID     string         `json:"id"`
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

type commentWire struct {
	ID      string         `json:"id"`
	Author  map[string]any `json:"author"`
	Body    any            `json:"body"`
	Created string         `json:"created"`
	Updated string         `json:"updated"`
	// Pointer so an absent flag (non-JSM projects) reads as public.
	JSDPublic *bool `json:"jsdPublic"`
}

type commentListWire struct {
	Comments []commentWire `json:"comments"`
	Total    int           `json:"total"`
}

type transitionWire struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   struct {
		Name string `json:"name"`
	} `json:"to"`
}

type transitionListWire struct {
	Transitions []transitionWire `json:"transitions"`
}

type createdIssueWire struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

type searchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []issueWire `json:"issues"`
}

// decodeIssue normalizes a wire issue, including its embedded comments when
// the comment field was expanded.
func decodeIssue(w issueWire) Issue {
	f := w.Fields
	if f == nil {
		f = map[string]any{}
	}

	is := Issue{
		Key:          w.Key,
		Status:       nameOf(f, "status"),
		Priority:     nameOf(f, "priority"),
		IssueType:    nameOf(f, "issuetype"),
		Resolution:   nameOf(f, "resolution"),
		Labels:       stringsOf(f, "labels"),
		Components:   namesOf(f, "components"),
		FixVersions:  namesOf(f, "fixVersions"),
		CustomFields: customFields(f),
	}
	is.Summary, _ = getString(f, "summary")
	is.Description = adfText(f["description"])

	is.Assignee = personOf(f, "assignee")
	is.Reporter = personOf(f, "reporter")
	if created, ok := getString(f, "created"); ok {
		is.Created, _ = parseJiraTime(created)
	}
	if updated, ok := getString(f, "updated"); ok {
		is.Updated, _ = parseJiraTime(updated)
	}

	if commentField, ok := getMap(f, "comment"); ok {
		if raw, ok := getSlice(commentField, "comments"); ok {
			for _, item := range raw {
				if cm, ok := item.(map[string]any); ok {
					if c, public := decodeCommentMap(cm); public {
						is.Comments = append(is.Comments, c)
					}
				}
			}
		}
	}
	return is
}

// personOf extracts a user identity from an object field, preferring the
// email address and falling back to the display name when the instance
// hides emails.
func personOf(f map[string]any, field string) string {
	person, ok := getMap(f, field)
	if !ok {
		return ""
	}
	if email, ok := getString(person, "emailAddress"); ok && email != "" {
		return email
	}
	name, _ := getString(person, "displayName")
	return name
}

// decodeComment normalizes a wire comment. The second return is false for
// non-public (internal service-desk) comments, which never sync.
func decodeComment(w commentWire) (Comment, bool) {
	c := Comment{
		ID:     w.ID,
		Body:   adfText(w.Body),
		Public: w.JSDPublic == nil || *w.JSDPublic,
	}
	if w.Author != nil {
		c.Author, _ = getString(w.Author, "displayName")
		c.AuthorEmail, _ = getString(w.Author, "emailAddress")
	}
	c.Created, _ = parseJiraTime(w.Created)
	c.Updated, _ = parseJiraTime(w.Updated)
	return c, c.Public
}

// decodeCommentMap is decodeComment for comments arriving inside an
// expanded issue payload, where they are part of the fields map.
func decodeCommentMap(m map[string]any) (Comment, bool) {
	c := Comment{Public: true}
	c.ID, _ = getString(m, "id")
	c.Body = adfText(m["body"])
	if author, ok := getMap(m, "author"); ok {
		c.Author, _ = getString(author, "displayName")
		c.AuthorEmail, _ = getString(author, "emailAddress")
	}
	if created, ok := getString(m, "created"); ok {
		c.Created, _ = parseJiraTime(created)
	}
	if updated, ok := getString(m, "updated"); ok {
		c.Updated, _ = parseJiraTime(updated)
	}
	if public, ok := m["jsdPublic"].(bool); ok {
		c.Public = public
	}
	return c, c.Public
}

func decodeTransition(w transitionWire) Transition {
	return Transition{ID: w.ID, Name: w.Name, ToStatus: w.To.Name}
}
