package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func commentBody(id, text string, public bool) string {
	b, _ := json.Marshal(map[string]any{
		"id":        id,
		"author":    map[string]any{"displayName": "Sam Writer"},
		"body":      adfDoc(text),
		"created":   "2024-01-16T09:00:00.000+0000",
		"updated":   "2024-01-16T09:05:00.000+0000",
		"jsdPublic": public,
	})
	return string(b)
}

func TestComments_FiltersInternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"comments":[` +
			commentBody("9001", "public one", true) + "," +
			commentBody("9002", "internal note", false) +
			`],"total":2}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	comments, err := c.Comments(context.Background(), "PROJ-1")
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 1 || comments[0].ID != "9001" {
		t.Fatalf("comments = %+v", comments)
	}
	if comments[0].Body != "public one" {
		t.Errorf("Body = %q", comments[0].Body)
	}
}

func TestGetComment_InternalReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(commentBody("9002", "internal note", false)))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	got, err := c.GetComment(context.Background(), "PROJ-1", "9002")
	if err != nil {
		t.Fatalf("GetComment: %v", err)
	}
	if got != nil {
		t.Fatalf("internal comment surfaced: %+v", got)
	}
}

func TestAddComment_SendsADF(t *testing.T) {
	var posted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&posted)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(commentBody("9005", "hello there", true)))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	created, err := c.AddComment(context.Background(), "PROJ-1", "hello there")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if created.ID != "9005" {
		t.Errorf("created ID = %q", created.ID)
	}

	body, _ := posted["body"].(map[string]any)
	if body["type"] != "doc" {
		t.Fatalf("posted body is not an ADF doc: %v", posted["body"])
	}
	if got := adfText(posted["body"]); got != "hello there" {
		t.Errorf("posted text = %q", got)
	}
}

func TestCreateSyncComment_MarksProvenance(t *testing.T) {
	var posted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&posted)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(commentBody("9006", "mirrored", true)))
	}))
	defer server.Close()

	src := Comment{
		ID:      "777",
		Author:  "Dana Ops",
		Body:    "please check the gateway",
		Created: time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
	}

	c := newTestClient(server.URL)
	if _, err := c.CreateSyncComment(context.Background(), "DEV-9", src, "right"); err != nil {
		t.Fatalf("CreateSyncComment: %v", err)
	}

	text := adfText(posted["body"])
	if !strings.HasPrefix(text, SyncMarker) {
		t.Errorf("mirrored body not marked: %q", text)
	}
	for _, want := range []string{"Dana Ops", "777", "right", "please check the gateway"} {
		if !strings.Contains(text, want) {
			t.Errorf("mirrored body missing %q: %q", want, text)
		}
	}
}

func TestDeleteComment(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if err := c.DeleteComment(context.Background(), "PROJ-1", "9001"); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/rest/api/3/issue/PROJ-1/comment/9001" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}
