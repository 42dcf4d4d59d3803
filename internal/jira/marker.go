package jira

import (
	"fmt"
	"strings"
	"time"
)

// SyncMarker prefixes every line of a mirrored comment's header. Any
// comment whose body starts with it was written by the sync service and is
// never propagated again.
const SyncMarker = "[JIRA-SYNC]"

const markerDivider = "\n---\n\n"

// SyncHeader is the provenance block parsed back out of a mirrored comment.
type SyncHeader struct {
	Author      string
	AuthorEmail string
	SourceID    string
	From        string
	Body        string
}

// RenderSyncBody builds the body for a mirrored copy of c: a marked
// provenance header, a divider, then the original text verbatim.
func RenderSyncBody(c Comment, sourceLabel string) string {
	return renderSyncBody(c, sourceLabel, false)
}

// RenderSyncBodyUpdated is RenderSyncBody plus an Updated line, used when
// re-rendering after the source comment was edited.
func RenderSyncBodyUpdated(c Comment, sourceLabel string) string {
	return renderSyncBody(c, sourceLabel, true)
}

func renderSyncBody(c Comment, sourceLabel string, withUpdated bool) string {
	author := c.Author
	if c.AuthorEmail != "" {
		author = fmt.Sprintf("%s (%s)", c.Author, c.AuthorEmail)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s Original author: %s\n", SyncMarker, author)
	fmt.Fprintf(&b, "%s Source ID: %s\n", SyncMarker, c.ID)
	fmt.Fprintf(&b, "%s From: %s\n", SyncMarker, sourceLabel)
	fmt.Fprintf(&b, "%s Created: %s\n", SyncMarker, markerTime(c.Created))
	if withUpdated {
		fmt.Fprintf(&b, "%s Updated: %s\n", SyncMarker, markerTime(c.Updated))
	}
	b.WriteString(markerDivider)
	b.WriteString(c.Body)
	return b.String()
}

// IsSyncBody reports whether body was written by the sync service. The
// check is a marker prefix on the first non-whitespace content, so partial
// or reformatted headers still suppress re-propagation.
func IsSyncBody(body string) bool {
	return strings.HasPrefix(strings.TrimSpace(body), SyncMarker)
}

// ParseSyncBody recovers the provenance header and original text from a
// mirrored comment body. ok is false when body was not produced by
// RenderSyncBody.
func ParseSyncBody(body string) (SyncHeader, bool) {
	if !IsSyncBody(body) {
		return SyncHeader{}, false
	}
	var h SyncHeader
	rest := body
	if i := strings.Index(body, markerDivider); i >= 0 {
		h.Body = body[i+len(markerDivider):]
		rest = body[:i]
	}
	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, SyncMarker) {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, SyncMarker))
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Original author":
			h.Author = value
			if i := strings.LastIndex(value, " ("); i >= 0 && strings.HasSuffix(value, ")") {
				h.Author = value[:i]
				h.AuthorEmail = value[i+2 : len(value)-1]
			}
		case "Source ID":
			h.SourceID = value
		case "From":
			h.From = value
		}
	}
	return h, true
}

// markerTime renders timestamps for the provenance header.
func markerTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
}
