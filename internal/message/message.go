// ABOUTME: Message type and per-conversation log with monotonic id assignment
// ABOUTME: Each log persists independently under its own messages_<id> record

package message

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/strandchat/strand/internal/storage"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// DefaultGreeting is the assistant message a log falls back to when its
// persisted record is missing or unreadable.
const DefaultGreeting = "Hello! How can I help you today?"

// Message is a single entry in a conversation's log. Immutable once created.
// IDs are unique within a conversation and strictly increasing.
type Message struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// Log holds one conversation's ordered message log and persists it after
// every mutation. A Log is owned by the session manager and is not safe for
// concurrent use on its own.
type Log struct {
	store          storage.Store
	conversationID string
	logger         *slog.Logger
	messages       []Message
}

// New creates an empty log for a freshly created conversation.
// Nothing is persisted until the first Append.
func New(store storage.Store, conversationID string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		store:          store,
		conversationID: conversationID,
		logger:         logger.With("component", "message", "conversation_id", conversationID),
	}
}

// Open loads the persisted log for an existing conversation. A missing or
// unreadable record falls back to a single assistant greeting with id 1; the
// failure is logged, never returned.
func Open(ctx context.Context, store storage.Store, conversationID string, logger *slog.Logger) *Log {
	l := New(store, conversationID, logger)

	raw, err := store.Get(ctx, storage.MessagesKey(conversationID))
	if err != nil {
		l.logger.Warn("message log missing, using default greeting", "error", err)
		l.messages = defaultLog()
		return l
	}

	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		l.logger.Warn("message log unreadable, using default greeting", "error", err)
		l.messages = defaultLog()
		return l
	}

	l.messages = messages
	return l
}

func defaultLog() []Message {
	return []Message{{
		ID:        1,
		Text:      DefaultGreeting,
		Sender:    SenderAssistant,
		CreatedAt: time.Now(),
	}}
}

// Append adds a message to the end of the log and synchronously persists the
// full log. The new id is one past the maximum id present, never derived
// from the count, so a log reloaded with gaps still assigns fresh ids.
// A persistence failure is logged and not retried; the in-memory append
// stands either way.
func (l *Log) Append(ctx context.Context, text string, sender Sender) Message {
	msg := Message{
		ID:        l.nextID(),
		Text:      text,
		Sender:    sender,
		CreatedAt: time.Now(),
	}
	l.messages = append(l.messages, msg)

	if err := l.persist(ctx); err != nil {
		l.logger.Error("failed to persist message log", "error", err, "message_id", msg.ID)
	}
	return msg
}

func (l *Log) nextID() int {
	max := 0
	for _, m := range l.messages {
		if m.ID > max {
			max = m.ID
		}
	}
	return max + 1
}

func (l *Log) persist(ctx context.Context) error {
	data, err := json.Marshal(l.messages)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, storage.MessagesKey(l.conversationID), string(data))
}

// Messages returns a copy of the log in order.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	return len(l.messages)
}
