// ABOUTME: Template data types and rendering helpers for the chat UI
// ABOUTME: Builds the date-grouped sidebar and renders assistant markdown via goldmark

package web

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/strandchat/strand/internal/message"
	"github.com/strandchat/strand/internal/registry"
	"github.com/strandchat/strand/internal/session"
)

// shellData holds data for the full page shell
type shellData struct {
	Title            string
	ActiveID         string
	SidebarCollapsed bool
	Sidebar          sidebarData
	View             *viewData
	Busy             bool
}

// viewData holds data for the chat view partial
type viewData struct {
	Conversation registry.Conversation
	Messages     []message.Message
	Busy         bool
	Error        string
}

// sidebarData holds data for the conversation list sidebar
type sidebarData struct {
	HasConversations bool
	Today            []convItem
	Yesterday        []convItem
	Week             []convItem
	Older            []convItem
}

// convItem represents a single conversation in the sidebar
type convItem struct {
	ID        string
	Title     string
	Preview   string
	Active    bool
	UpdatedAt time.Time
}

// searchResultsData holds data for conversation search results
type searchResultsData struct {
	Query   string
	Results []convItem
}

func parseTemplates() *template.Template {
	return template.Must(template.New("strand").
		Funcs(template.FuncMap{"markdown": renderMarkdown}).
		ParseFS(templateFS, "templates/*.html", "templates/partials/*.html"))
}

// renderMarkdown converts assistant message text to HTML
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// buildSidebar groups conversations by last-activity date, newest groups first
func buildSidebar(state session.State, activeID string) sidebarData {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	var data sidebarData
	for _, c := range state.Conversations {
		item := convItem{
			ID:        c.ID,
			Title:     c.Title,
			Preview:   c.LastMessagePreview,
			Active:    c.ID == activeID,
			UpdatedAt: c.UpdatedAt,
		}

		switch {
		case !c.UpdatedAt.Before(today):
			data.Today = append(data.Today, item)
		case !c.UpdatedAt.Before(yesterday):
			data.Yesterday = append(data.Yesterday, item)
		case c.UpdatedAt.After(weekAgo):
			data.Week = append(data.Week, item)
		default:
			data.Older = append(data.Older, item)
		}
	}

	data.HasConversations = len(state.Conversations) > 0
	return data
}

// searchConversations filters the catalog by title and preview, capped at 10 results
func searchConversations(state session.State, query string) []convItem {
	queryLower := strings.ToLower(query)

	var results []convItem
	for _, c := range state.Conversations {
		if strings.Contains(strings.ToLower(c.Title), queryLower) ||
			strings.Contains(strings.ToLower(c.LastMessagePreview), queryLower) {
			results = append(results, convItem{
				ID:        c.ID,
				Title:     c.Title,
				Preview:   c.LastMessagePreview,
				UpdatedAt: c.UpdatedAt,
			})
		}
		if len(results) >= 10 {
			break
		}
	}
	return results
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("failed to render template", "template", name, "error", err)
	}
}
