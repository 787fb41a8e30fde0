package handlers

import (
	"log/slog"
	"net/http"
)

// HandleChats accepts a chat submission from the page form and runs one
// conversation turn. The rendered result reaches the browser over SSE, so the
// response body carries nothing.
func (m *Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !m.verifyCSRF(r) {
		http.Error(w, "CSRF token missing or incorrect.", http.StatusForbidden)
		return
	}

	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		http.Error(w, "Missing session cookie", http.StatusBadRequest)
		return
	}

	sess, err := m.session(r, c.Value)
	if err != nil {
		m.logger.Error("Failed to create session", slog.String("err", err.Error()))
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	// Turn failures surface in the chat itself as an apology message, so the
	// submission still succeeds from the form's point of view.
	if err := sess.controller.Submit(r.Context(), r.FormValue("message")); err != nil {
		m.logger.Error("Chat turn failed", slog.String("err", err.Error()))
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSSE upgrades the request to a server-sent events stream.
func (m *Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}
