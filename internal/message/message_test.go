// ABOUTME: Tests for the per-conversation message log
// ABOUTME: Verifies id assignment, persistence round trips, and corrupt-record fallback

package message

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandchat/strand/internal/storage"
)

func TestAppend_AssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	log := New(storage.NewMemStore(), "conv-1", nil)

	first := log.Append(ctx, "hello", SenderUser)
	second := log.Append(ctx, "hi there", SenderAssistant)
	third := log.Append(ctx, "how are you", SenderUser)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 3, third.ID)
	assert.Equal(t, 3, log.Len())
}

func TestAppend_PersistsAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	log := New(store, "conv-1", nil)

	log.Append(ctx, "hello", SenderUser)

	raw, err := store.Get(ctx, storage.MessagesKey("conv-1"))
	require.NoError(t, err)
	assert.Contains(t, raw, `"hello"`)
	assert.Contains(t, raw, `"user"`)
}

func TestOpen_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()

	log := New(store, "conv-1", nil)
	log.Append(ctx, "first", SenderUser)
	log.Append(ctx, "second", SenderAssistant)

	reloaded := Open(ctx, store, "conv-1", nil)
	require.Equal(t, 2, reloaded.Len())

	messages := reloaded.Messages()
	assert.Equal(t, log.Messages()[0].ID, messages[0].ID)
	assert.Equal(t, "first", messages[0].Text)
	assert.Equal(t, SenderUser, messages[0].Sender)
	assert.Equal(t, "second", messages[1].Text)
	assert.Equal(t, SenderAssistant, messages[1].Sender)
}

func TestOpen_MissingRecordFallsBackToGreeting(t *testing.T) {
	log := Open(context.Background(), storage.NewMemStore(), "conv-1", nil)

	require.Equal(t, 1, log.Len())
	msg := log.Messages()[0]
	assert.Equal(t, 1, msg.ID)
	assert.Equal(t, SenderAssistant, msg.Sender)
	assert.Equal(t, DefaultGreeting, msg.Text)
}

func TestOpen_CorruptRecordFallsBackToGreeting(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	require.NoError(t, store.Set(ctx, storage.MessagesKey("conv-1"), "{not json"))

	log := Open(ctx, store, "conv-1", nil)

	require.Equal(t, 1, log.Len())
	assert.Equal(t, DefaultGreeting, log.Messages()[0].Text)
}

func TestAppend_DerivesNextIDFromMaxNotCount(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()

	// Persisted log with a gap: ids [1, 3]
	require.NoError(t, store.Set(ctx, storage.MessagesKey("conv-1"),
		`[{"id":1,"text":"a","sender":"user"},{"id":3,"text":"b","sender":"assistant"}]`))

	log := Open(ctx, store, "conv-1", nil)
	next := log.Append(ctx, "c", SenderUser)

	assert.Equal(t, 4, next.ID)
}

func TestAppend_PersistFailureKeepsInMemoryMessage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	store.FailSet = assert.AnError

	log := New(store, "conv-1", nil)
	msg := log.Append(ctx, "hello", SenderUser)

	assert.Equal(t, 1, msg.ID)
	assert.Equal(t, 1, log.Len())
}

func TestMessages_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	log := New(storage.NewMemStore(), "conv-1", nil)
	log.Append(ctx, "hello", SenderUser)

	snapshot := log.Messages()
	snapshot[0].Text = "mutated"

	assert.Equal(t, "hello", log.Messages()[0].Text)
}
