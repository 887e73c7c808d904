// ABOUTME: Store interface for durable key-value persistence
// ABOUTME: All conversation state is stored as string-valued records keyed by name

package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Well-known record keys. Message logs use MessagesKeyPrefix + conversation id.
const (
	KeyConversations       = "conversations"
	KeyCurrentConversation = "current_conversation"
	KeySidebarCollapsed    = "sidebar_collapsed"
	MessagesKeyPrefix      = "messages_"
)

// MessagesKey returns the record key for a conversation's message log.
func MessagesKey(conversationID string) string {
	return MessagesKeyPrefix + conversationID
}

// Store defines the interface for durable key-value persistence.
// Values are strings (JSON-encoded by the callers). Writes are synchronous:
// when Set returns, the record is durable.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store
	Close() error
}
