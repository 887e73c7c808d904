// ABOUTME: Navigation adapter translating URL paths to and from conversation ids
// ABOUTME: Two addressable views: root (no selection) and /c/<conversation id>

// Package nav maps between browser addresses and conversation selection.
package nav

import "strings"

// RootPath is the address of the home view (no conversation selected).
const RootPath = "/"

const conversationPrefix = "/c/"

// Navigator is the session manager's outbound view of the address bar.
// The web layer implements it with push-URL headers; tests use a recorder.
type Navigator interface {
	Navigate(path string)
}

// PathFor returns the address for a conversation id, or the root path for
// an empty id.
func PathFor(conversationID string) string {
	if conversationID == "" {
		return RootPath
	}
	return conversationPrefix + conversationID
}

// ConversationID extracts the conversation id from an address. The root
// path yields an empty id with ok=true; any path outside the two addressable
// views yields ok=false.
func ConversationID(path string) (id string, ok bool) {
	if path == RootPath || path == "" {
		return "", true
	}
	if !strings.HasPrefix(path, conversationPrefix) {
		return "", false
	}
	id = strings.TrimPrefix(path, conversationPrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
