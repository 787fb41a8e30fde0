package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/c2smotors/showroom/internal/models"
)

// Sampling parameters of the original consultant.
const (
	replyTemperature = 0.6
	replyMaxTokens   = 600
)

// History sent as context is capped both by entry count and token budget.
const (
	historyMaxEntries  = 6
	historyTokenBudget = 3500
)

// OpenAI produces consultant replies through OpenAI's chat completion API.
type OpenAI struct {
	model        string
	systemPrompt string

	client *goopenai.Client

	logger *slog.Logger
}

// NewOpenAI creates an OpenAI generator. baseURL may be empty for the public
// API.
func NewOpenAI(apiKey, baseURL, model, systemPrompt string, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return OpenAI{
		model:        model,
		systemPrompt: systemPrompt,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With(slog.String("module", "openai")),
	}
}

// Reply sends the trimmed conversation history and the composed turn prompt
// to the model and returns the reply text.
func (o OpenAI) Reply(ctx context.Context, history []models.Message, prompt string) (string, error) {
	msgs := []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: o.systemPrompt},
	}
	for _, m := range o.trimHistory(history) {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	msgs = append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := o.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
		Messages:    msgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// trimHistory keeps the most recent entries, dropping the oldest while the
// token count exceeds the budget. When the tokenizer is unavailable the
// entry cap alone applies.
func (o OpenAI) trimHistory(history []models.Message) []models.Message {
	if len(history) > historyMaxEntries {
		history = history[len(history)-historyMaxEntries:]
	}
	for len(history) > 0 {
		n, err := countTokens(history, o.model)
		if err != nil {
			o.logger.Debug("Token count unavailable", slog.String("err", err.Error()))
			break
		}
		if n < historyTokenBudget {
			break
		}
		history = history[1:]
	}
	return history
}

func countTokens(history []models.Message, model string) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	total := 0
	for _, m := range history {
		// Role framing costs a few tokens per message.
		total += len(enc.Encode(m.Content, nil, nil)) + 4
	}
	return total, nil
}
