// Package registry is the durable catalog of conversation metadata.
//
// It owns the ordered sequence of Conversation summaries (newest first) and
// the current-selection pointer, distinct from any individual message log.
// Every mutation persists synchronously: the full catalog under the
// "conversations" record and the selection under "current_conversation".
// There is no batching or debounce.
//
// The deletion rule lives here: deleting the current conversation promotes
// the first remaining entry, or clears the selection when the catalog is
// empty. No conversation is auto-created.
package registry
