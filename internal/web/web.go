// ABOUTME: HTTP server exposing the chat UI over HTMX partials
// ABOUTME: Translates session manager navigation into HX-Push-Url headers and redirects

package web

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/strandchat/strand/internal/nav"
	"github.com/strandchat/strand/internal/session"
	"github.com/strandchat/strand/internal/storage"
)

// addressBar records navigation requests issued by the session manager so
// handlers can translate them into HTMX push-url headers or HTTP redirects.
// It implements nav.Navigator.
type addressBar struct {
	mu   sync.Mutex
	path string
	set  bool
}

func (a *addressBar) Navigate(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.path = path
	a.set = true
}

// Take returns the most recent recorded path and clears it.
func (a *addressBar) Take() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	path, set := a.path, a.set
	a.path, a.set = "", false
	return path, set
}

// Server serves the chat UI
type Server struct {
	manager   *session.Manager
	store     storage.Store
	addr      *addressBar
	templates *template.Template
	logger    *slog.Logger
}

// NewServer creates a web server backed by the given session manager.
// The addressBar must be the same Navigator the manager was constructed with.
func NewServer(manager *session.Manager, store storage.Store, addr *addressBar, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		manager:   manager,
		store:     store,
		addr:      addr,
		templates: parseTemplates(),
		logger:    logger.With("component", "web"),
	}
}

// NewAddressBar creates the Navigator shared between the session manager and
// the web server.
func NewAddressBar() *addressBar {
	return &addressBar{}
}

// Routes returns the HTTP handler for the chat UI
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Full page loads
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /c/{id}", s.handleConversation)

	// Chat actions
	mux.HandleFunc("POST /send", s.handleSend)
	mux.HandleFunc("POST /new", s.handleNew)
	mux.HandleFunc("POST /c/{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /c/{id}/rename", s.handleRename)

	// Partials
	mux.HandleFunc("GET /partials/sidebar", s.handleSidebar)
	mux.HandleFunc("GET /partials/messages/{id}", s.handleMessages)
	mux.HandleFunc("GET /search", s.handleSearch)

	// UI state
	mux.HandleFunc("POST /sidebar/toggle", s.handleSidebarToggle)
	mux.HandleFunc("POST /error/dismiss", s.handleErrorDismiss)

	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.manager.HandleNavigation(r.Context(), nav.RootPath)
	s.addr.Take()
	s.render(w, "base", s.shell(r.Context(), ""))
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.manager.HandleNavigation(r.Context(), nav.PathFor(id))

	// An unresolvable id makes the manager navigate home; follow it.
	if path, ok := s.addr.Take(); ok && path != nav.PathFor(id) {
		http.Redirect(w, r, path, http.StatusSeeOther)
		return
	}

	s.render(w, "base", s.shell(r.Context(), id))
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	text := r.FormValue("text")

	id, sent := s.manager.Send(r.Context(), text)
	if !sent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Sending from the home page creates a conversation and navigates to it.
	if path, ok := s.addr.Take(); ok {
		w.Header().Set("HX-Push-Url", path)
	}
	w.Header().Set("HX-Trigger", "conversations-changed")

	view := s.view(r.Context(), id)
	if view == nil {
		// The conversation was deleted while the reply was pending.
		w.Header().Set("HX-Redirect", nav.RootPath)
		return
	}
	s.render(w, "chat_view", view)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	s.manager.NewChat(r.Context())
	s.addr.Take()

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", nav.RootPath)
		return
	}
	http.Redirect(w, r, nav.RootPath, http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.manager.Delete(r.Context(), id)

	target := nav.RootPath
	if path, ok := s.addr.Take(); ok {
		target = path
	} else if current := s.manager.State().CurrentID; current != "" {
		target = nav.PathFor(current)
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	title := r.FormValue("title")

	s.manager.Rename(r.Context(), id, title)

	w.Header().Set("HX-Trigger", "conversations-changed")
	view := s.view(r.Context(), id)
	if view == nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, "chat_view", view)
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	active := r.URL.Query().Get("active")
	if active == "" {
		active = s.manager.State().CurrentID
	}
	s.render(w, "sidebar", buildSidebar(s.manager.State(), active))
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view := s.view(r.Context(), id)
	if view == nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, "messages", view)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var results []convItem
	if query != "" {
		results = searchConversations(s.manager.State(), query)
	}
	s.render(w, "search_results", searchResultsData{Query: query, Results: results})
}

func (s *Server) handleSidebarToggle(w http.ResponseWriter, r *http.Request) {
	collapsed := s.sidebarCollapsed(r.Context())

	raw, err := json.Marshal(!collapsed)
	if err != nil {
		http.Error(w, "failed to persist sidebar state", http.StatusInternalServerError)
		return
	}
	if err := s.store.Set(r.Context(), storage.KeySidebarCollapsed, string(raw)); err != nil {
		s.logger.Error("failed to persist sidebar state", "error", err)
		http.Error(w, "failed to persist sidebar state", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleErrorDismiss(w http.ResponseWriter, _ *http.Request) {
	s.manager.DismissError()
	// The dismiss button swaps the banner's outerHTML; an empty body removes it.
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// shell builds the full page data for the active conversation, or the empty
// state when no conversation is selected.
func (s *Server) shell(ctx context.Context, activeID string) shellData {
	state := s.manager.State()
	if activeID == "" {
		activeID = state.CurrentID
	}

	data := shellData{
		Title:            "New conversation",
		ActiveID:         activeID,
		SidebarCollapsed: s.sidebarCollapsed(ctx),
		Sidebar:          buildSidebar(state, activeID),
	}
	if activeID != "" {
		if view := s.view(ctx, activeID); view != nil {
			data.Title = view.Conversation.Title
			data.View = view
			data.Busy = view.Busy
		}
	}
	return data
}

// view builds the chat view data for one conversation, nil if it doesn't exist
func (s *Server) view(ctx context.Context, id string) *viewData {
	conv, ok := s.manager.Conversation(id)
	if !ok {
		return nil
	}
	return &viewData{
		Conversation: conv,
		Messages:     s.manager.Messages(ctx, id),
		Busy:         s.manager.Busy(id),
		Error:        s.manager.LastError(),
	}
}

func (s *Server) sidebarCollapsed(ctx context.Context) bool {
	raw, err := s.store.Get(ctx, storage.KeySidebarCollapsed)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read sidebar state", "error", err)
		}
		return false
	}

	var collapsed bool
	if err := json.Unmarshal([]byte(raw), &collapsed); err != nil {
		s.logger.Warn("ignoring corrupt sidebar state", "error", err)
		return false
	}
	return collapsed
}
