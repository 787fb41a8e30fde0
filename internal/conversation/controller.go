package conversation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/c2smotors/showroom/internal/models"
)

// Fixed user-facing strings for resolved turns.
const (
	// FallbackReply is rendered when a successful response carries no reply
	// text. The log keeps the payload's (empty) content in that case.
	FallbackReply = "Certo! Me conte mais sobre o carro que você procura."
	// ApologyReply is rendered and appended when the round-trip fails.
	ApologyReply = "Desculpe, tivemos um problema para falar com o consultor. Pode tentar de novo?"
)

// Renderer maps conversation entries and transient typing placeholders to
// whatever surface hosts the conversation. ShowTyping returns a removal
// function; calling it more than once is harmless.
type Renderer interface {
	RenderMessage(role models.Role, content string)
	ShowTyping() (remove func())
}

// ReplyClient performs the network round-trip to the reply endpoint. It
// returns the reply text from the payload, which may be empty when the
// response carried none.
type ReplyClient interface {
	Reply(ctx context.Context, message string, history []models.Message) (string, error)
}

// Controller owns the submit lifecycle: it validates input, appends to the
// log, coordinates the typing placeholder and avatar transition around the
// network call, and reconciles the outcome back into the log and renderer.
type Controller struct {
	log      *Log
	avatar   *Avatar
	renderer Renderer
	client   ReplyClient

	logger *slog.Logger
}

// NewController wires a controller over its collaborators.
func NewController(log *Log, avatar *Avatar, renderer Renderer, client ReplyClient, logger *slog.Logger) *Controller {
	return &Controller{
		log:      log,
		avatar:   avatar,
		renderer: renderer,
		client:   client,
		logger:   logger.With(slog.String("module", "controller")),
	}
}

// Log exposes the conversation log owned by this controller.
func (c *Controller) Log() *Log {
	return c.log
}

// Submit runs one full turn. Empty or whitespace-only input is ignored with
// no visible effect. The user entry is appended and rendered before the
// network call begins; a failed turn keeps it in the log. Nothing prevents a
// second Submit while one is outstanding.
func (c *Controller) Submit(ctx context.Context, input string) error {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil
	}

	c.log.Append(models.RoleUser, text)
	c.renderer.RenderMessage(models.RoleUser, text)
	remove := c.renderer.ShowTyping()
	c.avatar.SetState(ctx, StateTyping)

	reply, err := c.client.Reply(ctx, text, c.log.Messages())

	remove()
	c.avatar.SetState(ctx, StateIdle)

	if err != nil {
		c.logger.Error("Turn failed", slog.String("err", err.Error()))
		c.renderer.RenderMessage(models.RoleAssistant, ApologyReply)
		c.log.Append(models.RoleAssistant, ApologyReply)
		return err
	}

	shown := reply
	if shown == "" {
		shown = FallbackReply
	}
	c.renderer.RenderMessage(models.RoleAssistant, shown)
	c.log.Append(models.RoleAssistant, reply)
	return nil
}
