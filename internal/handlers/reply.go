package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/c2smotors/showroom/internal/catalog"
	"github.com/c2smotors/showroom/internal/models"
)

// candidateLimit caps how many vehicles feed the stock snapshot and the
// suggestions list on each turn.
const candidateLimit = 8

// offlineReplyPrefix heads the deterministic reply used when no generator is
// configured.
const offlineReplyPrefix = "Nosso consultor inteligente está indisponível agora. Seguem opções do nosso estoque:\n\n"

type replyRequest struct {
	Message string           `json:"message"`
	History []models.Message `json:"history"`
}

type replyResponse struct {
	Reply       string           `json:"reply"`
	Suggestions []models.Vehicle `json:"suggestions"`
}

// HandleReply answers one consultant turn: it parses showroom filters out of
// the message, picks candidate vehicles, and asks the generator to compose a
// reply over that stock excerpt. Without a generator it answers with the
// excerpt alone.
func (m *Main) HandleReply(w http.ResponseWriter, r *http.Request) {
	if !m.verifyCSRF(r) {
		http.Error(w, "CSRF token missing or incorrect.", http.StatusForbidden)
		return
	}

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Payload inválido.", http.StatusBadRequest)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		http.Error(w, "Mensagem vazia.", http.StatusBadRequest)
		return
	}

	filters := catalog.ParseFilters(message)
	candidates, err := m.catalog.Search(r.Context(), filters, candidateLimit)
	if err != nil {
		m.logger.Error("Catalog search failed", slog.String("err", err.Error()))
		http.Error(w, "Falha ao consultar o estoque.", http.StatusInternalServerError)
		return
	}
	// Too restrictive a request still gets something to talk about.
	if len(candidates) == 0 {
		all, err := m.catalog.Vehicles(r.Context())
		if err != nil {
			m.logger.Error("Catalog listing failed", slog.String("err", err.Error()))
			http.Error(w, "Falha ao consultar o estoque.", http.StatusInternalServerError)
			return
		}
		if len(all) > candidateLimit {
			all = all[:candidateLimit]
		}
		candidates = all
	}

	snapshot := catalog.Snapshot(candidates, candidateLimit)

	if m.generator == nil {
		m.respondReply(w, replyResponse{
			Reply:       offlineReplyPrefix + snapshot,
			Suggestions: candidates,
		})
		return
	}

	prompt := fmt.Sprintf(
		"Pergunta do cliente: %s\n\n%s\n\nMonte sua resposta considerando apenas o estoque acima.",
		message, snapshot,
	)
	reply, err := m.generator.Reply(r.Context(), req.History, prompt)
	if err != nil {
		m.logger.Error("Reply generation failed", slog.String("err", err.Error()))
		http.Error(w, "Falha ao gerar a resposta.", http.StatusInternalServerError)
		return
	}

	m.respondReply(w, replyResponse{Reply: reply, Suggestions: candidates})
}

func (m *Main) respondReply(w http.ResponseWriter, resp replyResponse) {
	if resp.Suggestions == nil {
		resp.Suggestions = []models.Vehicle{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		m.logger.Error("Failed to encode reply response", slog.String("err", err.Error()))
	}
}
