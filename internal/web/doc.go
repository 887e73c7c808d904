// ABOUTME: Package documentation for the web UI server
// ABOUTME: Describes the HTMX-based chat interface and its routes

// Package web serves the browser chat interface.
//
// The UI is server-rendered html/template with HTMX for partial updates.
// Full page loads live at "/" and "/c/{id}"; everything else is an HTMX
// action or partial. Navigation decisions belong to the session manager:
// handlers hand it the requested path, then read back the path it recorded
// on the shared address bar and translate that into an HX-Push-Url header
// or a redirect.
package web
