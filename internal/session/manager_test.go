// ABOUTME: Tests for the session manager state machine
// ABOUTME: Covers first-send creation, navigation reconciliation, deletion, and the pending-reply race

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandchat/strand/internal/message"
	"github.com/strandchat/strand/internal/nav"
	"github.com/strandchat/strand/internal/registry"
	"github.com/strandchat/strand/internal/storage"
)

// fakeResponder implements responder.Responder for testing. When release is
// set, ProcessMessage blocks until the channel is closed.
type fakeResponder struct {
	mu      sync.Mutex
	reply   string
	err     error
	release chan struct{}
	calls   []string
}

func (f *fakeResponder) ProcessMessage(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return f.reply, f.err
}

func (f *fakeResponder) Busy() bool { return false }

func (f *fakeResponder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeNavigator records address changes.
type fakeNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeNavigator) Navigate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeNavigator) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.paths) == 0 {
		return ""
	}
	return f.paths[len(f.paths)-1]
}

func (f *fakeNavigator) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func newTestManager(t *testing.T) (*Manager, *fakeResponder, *fakeNavigator, *storage.MemStore) {
	t.Helper()
	store := storage.NewMemStore()
	reg := registry.New(store, nil)
	resp := &fakeResponder{reply: "test reply"}
	navigator := &fakeNavigator{}
	m := NewManager(store, reg, resp, navigator, nil)
	m.Boot(context.Background())
	return m, resp, navigator, store
}

func TestSend_FirstMessageCreatesConversation(t *testing.T) {
	m, resp, navigator, _ := newTestManager(t)
	resp.reply = "Hi! Nice to meet you."
	ctx := context.Background()

	id, sent := m.Send(ctx, "Hello")
	require.True(t, sent)
	require.NotEmpty(t, id)

	state := m.State()
	require.Len(t, state.Conversations, 1)
	assert.Equal(t, "Hello", state.Conversations[0].Title)
	assert.Equal(t, id, state.CurrentID)
	assert.Equal(t, 2, state.Conversations[0].MessageCount)

	messages := m.Messages(ctx, id)
	require.Len(t, messages, 2)
	assert.Equal(t, 1, messages[0].ID)
	assert.Equal(t, message.SenderUser, messages[0].Sender)
	assert.Equal(t, "Hello", messages[0].Text)
	assert.Equal(t, 2, messages[1].ID)
	assert.Equal(t, message.SenderAssistant, messages[1].Sender)
	assert.Equal(t, "Hi! Nice to meet you.", messages[1].Text)

	assert.Equal(t, nav.PathFor(id), navigator.last())
}

func TestSend_EmptyTextRejectedBeforeAnyStateChange(t *testing.T) {
	m, resp, navigator, _ := newTestManager(t)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\t\n"} {
		_, sent := m.Send(ctx, text)
		assert.False(t, sent, "input %q", text)
	}

	assert.Empty(t, m.State().Conversations)
	assert.Zero(t, resp.callCount())
	assert.Empty(t, navigator.all())
}

func TestSend_FromSelectedAppendsAndRecords(t *testing.T) {
	m, resp, _, _ := newTestManager(t)
	ctx := context.Background()

	id, _ := m.Send(ctx, "first")
	resp.reply = "second reply"
	_, sent := m.Send(ctx, "follow up")
	require.True(t, sent)

	messages := m.Messages(ctx, id)
	require.Len(t, messages, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{messages[0].ID, messages[1].ID, messages[2].ID, messages[3].ID})

	conv, ok := m.Conversation(id)
	require.True(t, ok)
	assert.Equal(t, 4, conv.MessageCount)
	assert.Equal(t, "second reply", conv.LastMessagePreview)
}

func TestSend_ResponderFailure(t *testing.T) {
	m, resp, _, _ := newTestManager(t)
	ctx := context.Background()

	id, _ := m.Send(ctx, "works")

	resp.err = assert.AnError
	resp.reply = ""
	_, sent := m.Send(ctx, "will fail")
	require.True(t, sent)

	// User message kept, fixed error reply appended
	messages := m.Messages(ctx, id)
	require.Len(t, messages, 4)
	assert.Equal(t, "will fail", messages[2].Text)
	assert.Equal(t, message.SenderUser, messages[2].Sender)
	assert.Equal(t, ErrorReply, messages[3].Text)
	assert.Equal(t, message.SenderAssistant, messages[3].Sender)

	// Banner surfaced and dismissible; busy cleared
	assert.NotEmpty(t, m.LastError())
	assert.False(t, m.Busy(id))
	m.DismissError()
	assert.Empty(t, m.LastError())

	// Registry metadata untouched by the failed send
	conv, _ := m.Conversation(id)
	assert.Equal(t, 2, conv.MessageCount)
}

func TestSend_BusyWhilePending(t *testing.T) {
	m, resp, _, _ := newTestManager(t)
	ctx := context.Background()

	id, _ := m.Send(ctx, "seed")

	resp.release = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Send(ctx, "slow one")
	}()

	require.Eventually(t, func() bool { return m.Busy(id) }, time.Second, time.Millisecond)

	close(resp.release)
	<-done
	assert.False(t, m.Busy(id))
}

func TestNewChat(t *testing.T) {
	m, _, navigator, _ := newTestManager(t)
	ctx := context.Background()

	m.Send(ctx, "something")
	require.NotEmpty(t, m.State().CurrentID)

	m.NewChat(ctx)

	state := m.State()
	assert.Empty(t, state.CurrentID)
	assert.Len(t, state.Conversations, 1, "new chat must not create a conversation")
	assert.Equal(t, nav.RootPath, navigator.last())
}

func TestHandleNavigation_SelectsExisting(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	a, _ := m.Send(ctx, "A")
	m.NewChat(ctx)
	b, _ := m.Send(ctx, "B")
	require.NotEqual(t, a, b)

	m.HandleNavigation(ctx, nav.PathFor(a))
	assert.Equal(t, a, m.State().CurrentID)
}

func TestHandleNavigation_UnknownIDRedirectsHome(t *testing.T) {
	m, _, navigator, _ := newTestManager(t)
	ctx := context.Background()

	// Two conversations, A with three messages, B with one
	a, _ := m.Send(ctx, "A one")
	m.Send(ctx, "A two")
	m.NewChat(ctx)
	m.Send(ctx, "B one")

	m.HandleNavigation(ctx, nav.PathFor(a))
	require.Equal(t, a, m.State().CurrentID)

	m.HandleNavigation(ctx, "/c/Z-does-not-exist")

	assert.Empty(t, m.State().CurrentID)
	assert.Equal(t, nav.RootPath, navigator.last())
}

func TestHandleNavigation_RootWinsOverSelection(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	m.Send(ctx, "something")
	require.NotEmpty(t, m.State().CurrentID)

	m.HandleNavigation(ctx, nav.RootPath)
	assert.Empty(t, m.State().CurrentID)
}

func TestDelete_CurrentReassignsAndNavigates(t *testing.T) {
	m, _, navigator, store := newTestManager(t)
	ctx := context.Background()

	a, _ := m.Send(ctx, "A")
	m.NewChat(ctx)
	b, _ := m.Send(ctx, "B")
	m.NewChat(ctx)
	c, _ := m.Send(ctx, "C")

	m.HandleNavigation(ctx, nav.PathFor(b))
	m.Delete(ctx, b)

	// First remaining entry in sequence order (newest first: [C, A])
	state := m.State()
	assert.Equal(t, c, state.CurrentID)
	require.Len(t, state.Conversations, 2)
	assert.Equal(t, nav.PathFor(c), navigator.last())

	// Durable message record discarded
	_, err := store.Get(ctx, storage.MessagesKey(b))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Untouched conversation still intact
	assert.NotEmpty(t, m.Messages(ctx, a))
}

func TestDelete_LastConversationGoesHome(t *testing.T) {
	m, _, navigator, _ := newTestManager(t)
	ctx := context.Background()

	id, _ := m.Send(ctx, "only")
	m.Delete(ctx, id)

	state := m.State()
	assert.Empty(t, state.CurrentID)
	assert.Empty(t, state.Conversations)
	assert.Equal(t, nav.RootPath, navigator.last())
}

func TestDelete_NonCurrentLeavesAddressAlone(t *testing.T) {
	m, _, navigator, _ := newTestManager(t)
	ctx := context.Background()

	a, _ := m.Send(ctx, "A")
	m.NewChat(ctx)
	b, _ := m.Send(ctx, "B")

	before := len(navigator.all())
	m.Delete(ctx, a)

	assert.Equal(t, b, m.State().CurrentID)
	assert.Len(t, navigator.all(), before, "deleting a non-current conversation must not navigate")
}

func TestRename(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	id, _ := m.Send(ctx, "original title")
	m.Rename(ctx, id, "better title")

	conv, _ := m.Conversation(id)
	assert.Equal(t, "better title", conv.Title)

	m.Rename(ctx, id, "   ")
	conv, _ = m.Conversation(id)
	assert.Equal(t, "better title", conv.Title)
}

func TestSend_ReplyLandsInConversationCapturedAtSendTime(t *testing.T) {
	m, resp, _, _ := newTestManager(t)
	ctx := context.Background()

	a, _ := m.Send(ctx, "seed A")
	m.NewChat(ctx)
	b, _ := m.Send(ctx, "seed B")

	m.HandleNavigation(ctx, nav.PathFor(a))

	resp.release = make(chan struct{})
	resp.reply = "slow reply"
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Send(ctx, "question for A")
	}()
	require.Eventually(t, func() bool { return m.Busy(a) }, time.Second, time.Millisecond)

	// Navigate away while the reply is pending
	m.HandleNavigation(ctx, nav.PathFor(b))

	close(resp.release)
	<-done

	aMessages := m.Messages(ctx, a)
	require.Len(t, aMessages, 4)
	assert.Equal(t, "slow reply", aMessages[3].Text)

	bMessages := m.Messages(ctx, b)
	assert.Len(t, bMessages, 2, "reply must not leak into the conversation viewed at settle time")
}

func TestSend_ReplyForDeletedConversationIsDiscarded(t *testing.T) {
	m, resp, _, store := newTestManager(t)
	ctx := context.Background()

	a, _ := m.Send(ctx, "seed A")

	resp.release = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Send(ctx, "pending question")
	}()
	require.Eventually(t, func() bool { return m.Busy(a) }, time.Second, time.Millisecond)

	m.Delete(ctx, a)

	close(resp.release)
	<-done

	assert.False(t, m.Busy(a))
	_, err := store.Get(ctx, storage.MessagesKey(a))
	assert.ErrorIs(t, err, storage.ErrNotFound, "pending reply must not resurrect a deleted log")
}

func TestBoot_RestoresPersistedState(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()

	first := NewManager(store, registry.New(store, nil), &fakeResponder{reply: "r"}, &fakeNavigator{}, nil)
	first.Boot(ctx)
	id, _ := first.Send(ctx, "persisted conversation")

	second := NewManager(store, registry.New(store, nil), &fakeResponder{reply: "r"}, &fakeNavigator{}, nil)
	second.Boot(ctx)

	state := second.State()
	require.Len(t, state.Conversations, 1)
	assert.Equal(t, id, state.CurrentID)

	messages := second.Messages(ctx, id)
	require.Len(t, messages, 2)
	assert.Equal(t, "persisted conversation", messages[0].Text)
}

func TestBoot_StaleSelectionYieldsNoSelection(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, storage.KeyConversations, `[]`))
	require.NoError(t, store.Set(ctx, storage.KeyCurrentConversation, "long-gone"))

	m := NewManager(store, registry.New(store, nil), &fakeResponder{}, &fakeNavigator{}, nil)
	m.Boot(ctx)

	assert.Empty(t, m.State().CurrentID)
}
