package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// sessionCookie identifies one page view's conversation controller.
const sessionCookie = "showroom_session"

type homePageData struct {
	SessionID    string
	AvatarIdle   string
	AvatarTyping string
}

// HandleHome serves the chat page on GET and the reply endpoint on POST,
// mirroring the single route the original site used for both.
func (m *Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		m.serveHome(w, r)
	case http.MethodPost:
		m.HandleReply(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (m *Main) serveHome(w http.ResponseWriter, r *http.Request) {
	sid := m.ensureSessionCookie(w, r)
	m.ensureCSRFCookie(w, r)

	data := homePageData{
		SessionID:    sid,
		AvatarIdle:   m.opts.AvatarIdle,
		AvatarTyping: m.opts.AvatarTyping,
	}
	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home page", slog.String("err", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m *Main) ensureSessionCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	sid := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

func (m *Main) ensureCSRFCookie(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(m.opts.CSRFCookie); err == nil && c.Value != "" {
		return
	}
	// Readable by the page script, which echoes it into the request header.
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CSRFCookie,
		Value:    newCSRFToken(),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}
