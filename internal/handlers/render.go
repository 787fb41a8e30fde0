package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"

	"github.com/c2smotors/showroom/internal/models"
)

// SSE event types for real-time updates.
var (
	messageSSEType = sse.Type("message")
	removeSSEType  = sse.Type("remove")
	avatarSSEType  = sse.Type("avatar")
)

type messageView struct {
	ID        string
	Role      string
	Content   template.HTML
	Timestamp time.Time
}

// sseRenderer translates controller output into rendered partials pushed to
// the browser over the session's SSE topic. The shell script appends them to
// the chat container and pins its scroll position to the bottom.
type sseRenderer struct {
	srv       *sse.Server
	templates *template.Template
	topic     string

	logger *slog.Logger
}

func (r *sseRenderer) RenderMessage(role models.Role, content string) {
	var sb strings.Builder
	err := r.templates.ExecuteTemplate(&sb, "message", messageView{
		ID:        uuid.New().String(),
		Role:      string(role),
		Content:   breakLines(content),
		Timestamp: time.Now(),
	})
	if err != nil {
		r.logger.Error("Failed to render message partial", slog.String("err", err.Error()))
		return
	}
	r.publish(messageSSEType, sb.String())
}

func (r *sseRenderer) ShowTyping() func() {
	id := "typing-" + uuid.New().String()

	var sb strings.Builder
	err := r.templates.ExecuteTemplate(&sb, "typing", struct{ ID string }{ID: id})
	if err != nil {
		r.logger.Error("Failed to render typing partial", slog.String("err", err.Error()))
		return func() {}
	}
	r.publish(messageSSEType, sb.String())

	var once sync.Once
	return func() {
		once.Do(func() {
			r.publish(removeSSEType, id)
		})
	}
}

func (r *sseRenderer) publish(eventType sse.EventType, data string) {
	msg := sse.Message{Type: eventType}
	msg.AppendData(data)
	if err := r.srv.Publish(&msg, r.topic); err != nil {
		r.logger.Error("Failed to publish event",
			slog.String("topic", r.topic),
			slog.String("err", err.Error()))
	}
}

// breakLines escapes structural markup and converts literal newlines to <br>
// tags; everything else stays opaque text.
func breakLines(text string) template.HTML {
	esc := template.HTMLEscapeString(text)
	esc = strings.ReplaceAll(esc, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(esc, "\n", "<br>"))
}

type avatarEvent struct {
	Src     string  `json:"src,omitempty"`
	Opacity float64 `json:"opacity"`
	Scale   float64 `json:"scale,omitempty"`
}

// sseAvatar is the avatar surface for a session. It mirrors the source the
// page currently displays and publishes opacity/scale/source changes; the
// shell script applies the source swap on the next animation frame.
type sseAvatar struct {
	srv   *sse.Server
	topic string

	mu  sync.Mutex
	src string

	logger *slog.Logger
}

func newSSEAvatar(srv *sse.Server, topic, initialSrc string, logger *slog.Logger) *sseAvatar {
	return &sseAvatar{srv: srv, topic: topic, src: initialSrc, logger: logger}
}

func (s *sseAvatar) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

func (s *sseAvatar) Dim(opacity, scale float64) {
	s.publish(avatarEvent{Opacity: opacity, Scale: scale})
}

func (s *sseAvatar) Swap(src string) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
	s.publish(avatarEvent{Src: src, Opacity: 1})
}

func (s *sseAvatar) Restore() {
	s.publish(avatarEvent{Opacity: 1})
}

func (s *sseAvatar) publish(ev avatarEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("Failed to marshal avatar event", slog.String("err", err.Error()))
		return
	}
	msg := sse.Message{Type: avatarSSEType}
	msg.AppendData(string(raw))
	if err := s.srv.Publish(&msg, s.topic); err != nil {
		s.logger.Error("Failed to publish avatar event",
			slog.String("topic", s.topic),
			slog.String("err", err.Error()))
	}
}

// assetFetcher preloads avatar assets over HTTP, resolving paths against the
// page URL. It warms the cache and keeps broken assets off the page.
type assetFetcher struct {
	base *url.URL
	hc   *http.Client
}

func (f assetFetcher) Fetch(ctx context.Context, src string) error {
	ref, err := url.Parse(src)
	if err != nil {
		return fmt.Errorf("failed to parse asset url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base.ResolveReference(ref).String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build asset request: %w", err)
	}
	resp, err := f.hc.Do(req)
	if err != nil {
		return fmt.Errorf("asset fetch failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("asset %s returned %s", src, resp.Status)
	}
	return nil
}
