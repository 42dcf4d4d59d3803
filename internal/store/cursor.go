package store

import "encoding/base64"

// Record scans paginate by sync_id, which is unique, so the cursor is just
// the last ID seen, base64-wrapped to keep it opaque in URLs.

// EncodeCursor creates an opaque cursor string. Empty in, empty out.
func EncodeCursor(syncID string) string {
	if syncID == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(syncID))
}

// DecodeCursor parses a cursor string. Returns "" and false when the cursor
// is empty or not valid base64, which callers treat as scan-from-start.
func DecodeCursor(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", false
	}
	return string(b), true
}
