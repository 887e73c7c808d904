// ABOUTME: Conversation Registry owning the ordered catalog of conversation summaries
// ABOUTME: Persists the catalog and current selection as separate durable records

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strandchat/strand/internal/storage"
)

// ErrNotFound is returned when a conversation id is not in the registry
var ErrNotFound = errors.New("conversation not found")

// DefaultTitle is used when a conversation is created without seed text.
const DefaultTitle = "New conversation"

const (
	titleMaxLen   = 50
	previewMaxLen = 100
)

// Conversation is the metadata summary for one thread of messages.
// The message log itself is owned by the message package.
type Conversation struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	LastMessagePreview string    `json:"lastMessagePreview"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	MessageCount       int       `json:"messageCount"`
}

// Registry owns the ordered conversation catalog (newest first) and the
// current-selection pointer. Every mutation synchronously persists the full
// catalog and, where it changed, the selection, as separate records.
// The Registry is not safe for concurrent use; the session manager is its
// single writer.
type Registry struct {
	store  storage.Store
	logger *slog.Logger

	conversations []Conversation
	currentID     string
}

// New creates a Registry backed by the given store. Call Load before use.
func New(store storage.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		logger: logger.With("component", "registry"),
	}
}

// Load reads the persisted catalog and selection. Missing or unreadable
// records degrade to an empty catalog and no selection; a persisted
// selection pointing at a conversation that no longer exists is cleared.
// Load never fails.
func (r *Registry) Load(ctx context.Context) {
	r.conversations = nil
	r.currentID = ""

	raw, err := r.store.Get(ctx, storage.KeyConversations)
	if err == nil {
		var conversations []Conversation
		if jsonErr := json.Unmarshal([]byte(raw), &conversations); jsonErr != nil {
			r.logger.Warn("conversation catalog unreadable, starting empty", "error", jsonErr)
		} else {
			r.conversations = conversations
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("failed to read conversation catalog, starting empty", "error", err)
	}

	current, err := r.store.Get(ctx, storage.KeyCurrentConversation)
	if err != nil {
		return
	}
	if _, ok := r.Get(current); !ok {
		r.logger.Warn("persisted selection no longer exists, clearing", "conversation_id", current)
		return
	}
	r.currentID = current
}

// Create adds a new conversation at the head of the catalog and makes it
// current. The title derives from seedText, or DefaultTitle when empty.
func (r *Registry) Create(ctx context.Context, seedText string) (Conversation, error) {
	now := time.Now()
	conv := Conversation{
		ID:        newID(now),
		Title:     DeriveTitle(seedText),
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.conversations = append([]Conversation{conv}, r.conversations...)
	r.currentID = conv.ID

	if err := r.persistConversations(ctx); err != nil {
		return conv, err
	}
	if err := r.persistCurrent(ctx); err != nil {
		return conv, err
	}

	r.logger.Debug("conversation created", "conversation_id", conv.ID, "title", conv.Title)
	return conv, nil
}

// newID combines creation time with a random suffix so two conversations
// created in the same millisecond still get distinct ids.
func newID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Select makes the given conversation current.
func (r *Registry) Select(ctx context.Context, id string) error {
	if _, ok := r.Get(id); !ok {
		return ErrNotFound
	}
	r.currentID = id
	return r.persistCurrent(ctx)
}

// ClearSelection clears the current conversation pointer.
func (r *Registry) ClearSelection(ctx context.Context) error {
	r.currentID = ""
	return r.persistCurrent(ctx)
}

// Rename updates a conversation's title. A title that trims to empty is
// silently ignored.
func (r *Registry) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	idx := r.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}
	r.conversations[idx].Title = title
	r.conversations[idx].UpdatedAt = time.Now()
	return r.persistConversations(ctx)
}

// Delete removes a conversation from the catalog. When the deleted
// conversation was current, the first remaining conversation in sequence
// order becomes current; with nothing left the selection clears. Returns
// the id now current (empty for none).
func (r *Registry) Delete(ctx context.Context, id string) (string, error) {
	idx := r.indexOf(id)
	if idx < 0 {
		return r.currentID, ErrNotFound
	}

	r.conversations = append(r.conversations[:idx], r.conversations[idx+1:]...)

	if r.currentID == id {
		if len(r.conversations) > 0 {
			r.currentID = r.conversations[0].ID
		} else {
			r.currentID = ""
		}
		if err := r.persistCurrent(ctx); err != nil {
			return r.currentID, err
		}
	}

	if err := r.persistConversations(ctx); err != nil {
		return r.currentID, err
	}

	r.logger.Debug("conversation deleted", "conversation_id", id, "now_current", r.currentID)
	return r.currentID, nil
}

// RecordMessage updates a conversation's preview, message count, and
// timestamp after a completed send.
func (r *Registry) RecordMessage(ctx context.Context, id, lastMessageText string, messageCount int) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}

	r.conversations[idx].LastMessagePreview = truncate(collapseWhitespace(lastMessageText), previewMaxLen)
	r.conversations[idx].MessageCount = messageCount
	r.conversations[idx].UpdatedAt = time.Now()
	return r.persistConversations(ctx)
}

// List returns the catalog in order, newest first.
func (r *Registry) List() []Conversation {
	out := make([]Conversation, len(r.conversations))
	copy(out, r.conversations)
	return out
}

// Get returns the conversation with the given id.
func (r *Registry) Get(id string) (Conversation, bool) {
	idx := r.indexOf(id)
	if idx < 0 {
		return Conversation{}, false
	}
	return r.conversations[idx], true
}

// CurrentID returns the id of the current conversation, or "" for none.
func (r *Registry) CurrentID() string {
	return r.currentID
}

// Len returns the number of conversations in the catalog.
func (r *Registry) Len() int {
	return len(r.conversations)
}

func (r *Registry) indexOf(id string) int {
	for i, c := range r.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) persistConversations(ctx context.Context) error {
	data, err := json.Marshal(r.conversations)
	if err != nil {
		return fmt.Errorf("encoding conversation catalog: %w", err)
	}
	if err := r.store.Set(ctx, storage.KeyConversations, string(data)); err != nil {
		return fmt.Errorf("persisting conversation catalog: %w", err)
	}
	return nil
}

func (r *Registry) persistCurrent(ctx context.Context) error {
	if r.currentID == "" {
		if err := r.store.Delete(ctx, storage.KeyCurrentConversation); err != nil {
			return fmt.Errorf("clearing persisted selection: %w", err)
		}
		return nil
	}
	if err := r.store.Set(ctx, storage.KeyCurrentConversation, r.currentID); err != nil {
		return fmt.Errorf("persisting selection: %w", err)
	}
	return nil
}

// DeriveTitle builds a conversation title from seed text: whitespace
// collapsed to single spaces, truncated to the first 50 characters with an
// ellipsis when longer. Empty seed text yields DefaultTitle.
func DeriveTitle(seedText string) string {
	collapsed := collapseWhitespace(seedText)
	if collapsed == "" {
		return DefaultTitle
	}
	return truncate(collapsed, titleMaxLen)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
