// ABOUTME: Conversation Session Manager, the core state machine of strand
// ABOUTME: Keeps registry, message logs, and the address bar consistent through every mutation

package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/strandchat/strand/internal/message"
	"github.com/strandchat/strand/internal/nav"
	"github.com/strandchat/strand/internal/registry"
	"github.com/strandchat/strand/internal/responder"
	"github.com/strandchat/strand/internal/storage"
)

// ErrorReply is the fixed assistant message appended when the responder
// fails. The user message that triggered it is never rolled back.
const ErrorReply = "Sorry, something went wrong while generating a response. Please try again."

// responderFailureBanner is the dismissible banner text for responder failures.
const responderFailureBanner = "Failed to generate a response."

// State is a snapshot of the session: the ordered conversation catalog
// (newest first) and the current selection, empty for none.
type State struct {
	Conversations []registry.Conversation
	CurrentID     string
}

// Manager composes the registry, per-conversation message logs, the
// responder, and the navigation adapter. All transitions run to completion
// behind one mutex - the single logical writer - except the responder call,
// which is the sole suspension point. It is held outside the lock so the
// session stays readable while a reply is pending.
type Manager struct {
	mu        sync.Mutex
	store     storage.Store
	registry  *registry.Registry
	responder responder.Responder
	nav       nav.Navigator
	logger    *slog.Logger

	logs      map[string]*message.Log
	busy      map[string]bool
	lastError string
}

// NewManager creates a session manager. All collaborators are injected so
// tests can substitute fakes.
func NewManager(store storage.Store, reg *registry.Registry, resp responder.Responder, navigator nav.Navigator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		registry:  reg,
		responder: resp,
		nav:       navigator,
		logger:    logger.With("component", "session"),
		logs:      make(map[string]*message.Log),
		busy:      make(map[string]bool),
	}
}

// Boot restores the persisted conversation catalog and selection. A
// persisted selection that no longer resolves leaves the session with no
// selection. Boot never fails; unreadable records degrade to empty state.
func (m *Manager) Boot(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry.Load(ctx)
	m.logger.Info("session restored",
		"conversations", m.registry.Len(),
		"current", m.registry.CurrentID())
}

// NewChat clears the selection and returns the address to the root path.
// No conversation is created; the first message will create one.
func (m *Manager) NewChat(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.registry.ClearSelection(ctx); err != nil {
		m.logger.Error("failed to clear selection", "error", err)
	}
	m.nav.Navigate(nav.RootPath)
}

// Send delivers a user message to the current conversation, creating one
// first when nothing is selected. It returns the id of the conversation the
// message went to and whether a send actually happened: empty or
// whitespace-only text is rejected before any state change.
//
// The reply lands in the conversation captured here, even if the selection
// changes while the responder is working.
func (m *Manager) Send(ctx context.Context, text string) (conversationID string, sent bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	m.mu.Lock()
	id := m.registry.CurrentID()
	if id == "" {
		conv, err := m.registry.Create(ctx, text)
		if err != nil {
			m.logger.Error("failed to persist new conversation", "error", err)
		}
		id = conv.ID
		m.logs[id] = message.New(m.store, id, m.logger)
		m.nav.Navigate(nav.PathFor(id))
	}

	log := m.logLocked(ctx, id)
	log.Append(ctx, text, message.SenderUser)
	m.busy[id] = true
	m.mu.Unlock()

	// Sole suspension point. Not cancellable once issued: the reply is
	// written to the conversation captured above regardless of where the
	// user navigated meanwhile.
	reply, err := m.responder.ProcessMessage(ctx, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer delete(m.busy, id)

	if _, exists := m.registry.Get(id); !exists {
		// Conversation deleted while the reply was pending; drop it.
		m.logger.Debug("discarding reply for deleted conversation", "conversation_id", id)
		return id, true
	}

	log = m.logLocked(ctx, id)
	if err != nil {
		m.logger.Warn("responder failed", "error", err, "conversation_id", id)
		log.Append(ctx, ErrorReply, message.SenderAssistant)
		m.lastError = responderFailureBanner
		return id, true
	}

	log.Append(ctx, reply, message.SenderAssistant)
	if recErr := m.registry.RecordMessage(ctx, id, reply, log.Len()); recErr != nil {
		m.logger.Error("failed to record message metadata", "error", recErr, "conversation_id", id)
	}
	return id, true
}

// HandleNavigation reacts to an address change, whether user-triggered or
// external (back/forward). An address naming an existing conversation
// selects it; the root address clears any selection; anything else redirects
// to the root. The address always wins over in-memory selection.
func (m *Manager) HandleNavigation(ctx context.Context, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := nav.ConversationID(path)
	if !ok || (id != "" && !m.exists(id)) {
		m.logger.Debug("address does not resolve, redirecting home", "path", path)
		if err := m.registry.ClearSelection(ctx); err != nil {
			m.logger.Error("failed to clear selection", "error", err)
		}
		m.nav.Navigate(nav.RootPath)
		return
	}

	if id == "" {
		if err := m.registry.ClearSelection(ctx); err != nil {
			m.logger.Error("failed to clear selection", "error", err)
		}
		return
	}

	if err := m.registry.Select(ctx, id); err != nil {
		m.logger.Error("failed to select conversation", "error", err, "conversation_id", id)
	}
}

// Delete removes a conversation, its in-memory log, and its durable message
// record. Deleting the current conversation moves the selection per the
// registry's reassignment rule and updates the address to match.
func (m *Manager) Delete(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasCurrent := m.registry.CurrentID() == id

	newCurrent, err := m.registry.Delete(ctx, id)
	if errors.Is(err, registry.ErrNotFound) {
		return
	}
	if err != nil {
		m.logger.Error("failed to persist deletion", "error", err, "conversation_id", id)
	}

	delete(m.logs, id)
	if err := m.store.Delete(ctx, storage.MessagesKey(id)); err != nil {
		m.logger.Error("failed to delete message log", "error", err, "conversation_id", id)
	}

	if wasCurrent {
		m.nav.Navigate(nav.PathFor(newCurrent))
	}
}

// Rename updates a conversation's title. Pure metadata mutation; a title
// that trims to empty is silently ignored.
func (m *Manager) Rename(ctx context.Context, id, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.registry.Rename(ctx, id, title); err != nil && !errors.Is(err, registry.ErrNotFound) {
		m.logger.Error("failed to rename conversation", "error", err, "conversation_id", id)
	}
}

// State returns a snapshot of the conversation catalog and selection.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return State{
		Conversations: m.registry.List(),
		CurrentID:     m.registry.CurrentID(),
	}
}

// Conversation returns the metadata for one conversation.
func (m *Manager) Conversation(id string) (registry.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Get(id)
}

// Messages returns the message log for a conversation, loading it from
// durable storage on first access. Unknown ids yield nil.
func (m *Manager) Messages(ctx context.Context, id string) []message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists(id) {
		return nil
	}
	return m.logLocked(ctx, id).Messages()
}

// Busy reports whether a send is in flight for the given conversation. The
// UI disables the input surface while busy; the manager itself does not
// defend against a caller bypassing that.
func (m *Manager) Busy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy[id]
}

// LastError returns the current error banner text, empty for none.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// DismissError clears the error banner.
func (m *Manager) DismissError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = ""
}

// exists reports whether a conversation id is in the registry. Callers hold m.mu.
func (m *Manager) exists(id string) bool {
	_, ok := m.registry.Get(id)
	return ok
}

// logLocked returns the cached log for a conversation, opening it from
// durable storage on first access. Callers hold m.mu.
func (m *Manager) logLocked(ctx context.Context, id string) *message.Log {
	if log, ok := m.logs[id]; ok {
		return log
	}
	log := message.Open(ctx, m.store, id, m.logger)
	m.logs[id] = log
	return log
}
