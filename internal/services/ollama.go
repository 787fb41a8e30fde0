package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/c2smotors/showroom/internal/models"
)

// Ollama produces consultant replies through a local Ollama server, for
// running the showroom without a hosted API key.
type Ollama struct {
	host         string
	model        string
	systemPrompt string

	client *api.Client
}

// NewOllama creates an Ollama generator. The host parameter should be a
// valid URL pointing to an Ollama server; if it is invalid, the function
// will panic.
func NewOllama(host, model, systemPrompt string) Ollama {
	u, err := url.Parse(host)
	if err != nil {
		panic(err)
	}

	return Ollama{
		host:         host,
		model:        model,
		systemPrompt: systemPrompt,
		client:       api.NewClient(u, &http.Client{}),
	}
}

// Reply sends the conversation history and the composed turn prompt to the
// model and returns the reply text.
func (o Ollama) Reply(ctx context.Context, history []models.Message, prompt string) (string, error) {
	msgs := make([]api.Message, 0, len(history)+2)
	msgs = append(msgs, api.Message{Role: "system", Content: o.systemPrompt})
	if len(history) > historyMaxEntries {
		history = history[len(history)-historyMaxEntries:]
	}
	for _, m := range history {
		msgs = append(msgs, api.Message{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	var sb strings.Builder
	err := o.client.Chat(ctx, &api.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return sb.String(), nil
}
