package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"

	showroom "github.com/c2smotors/showroom"
	"github.com/c2smotors/showroom/internal/catalog"
	"github.com/c2smotors/showroom/internal/conversation"
	"github.com/c2smotors/showroom/internal/models"
	"github.com/c2smotors/showroom/internal/transport"
)

// Generator produces the consultant reply text for a turn. It receives the
// conversation history sent by the client and the composed turn prompt.
type Generator interface {
	Reply(ctx context.Context, history []models.Message, prompt string) (string, error)
}

// Catalog provides vehicle lookup for the reply endpoint.
type Catalog interface {
	Vehicles(ctx context.Context) ([]models.Vehicle, error)
	Search(ctx context.Context, f catalog.Filters, limit int) ([]models.Vehicle, error)
}

// Options configures Main. The host page injects nothing ambient; everything
// the conversation controller needs arrives through here.
type Options struct {
	// Endpoint is where controllers post turns. Empty means the page route
	// itself, which this server also implements.
	Endpoint string
	// CSRFCookie names the anti-forgery cookie.
	CSRFCookie string
	// AvatarIdle and AvatarTyping are the avatar asset pair, as paths
	// resolved against the page URL.
	AvatarIdle   string
	AvatarTyping string
}

func (o *Options) setDefaults() {
	if o.CSRFCookie == "" {
		o.CSRFCookie = "csrftoken"
	}
	if o.AvatarIdle == "" {
		o.AvatarIdle = "/static/avatar-idle.svg"
	}
	if o.AvatarTyping == "" {
		o.AvatarTyping = "/static/avatar-typing.svg"
	}
}

// Main handles the core functionality of the showroom chat, managing
// server-sent events, HTML templates, per-session conversation controllers,
// and the reply endpoint backed by the Generator and Catalog components.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	generator Generator
	catalog   Catalog
	opts      Options

	mu       sync.Mutex
	sessions map[string]*session

	logger *slog.Logger
}

type session struct {
	controller *conversation.Controller
}

// NewMain creates a Main instance with the provided Generator and Catalog
// implementations. It parses the required HTML templates from the embedded
// filesystem and configures the SSE server so each client subscribes to its
// own session topic.
func NewMain(generator Generator, cat Catalog, opts Options, logger *slog.Logger) (*Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		showroom.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return nil, err
	}

	opts.setDefaults()

	return &Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				if sid := s.Req.URL.Query().Get("session_id"); sid != "" {
					topics = append(topics, sessionTopic(sid))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates: tmpl,
		generator: generator,
		catalog:   cat,
		opts:      opts,
		sessions:  make(map[string]*session),
		logger:    logger.With(slog.String("module", "handlers")),
	}, nil
}

func sessionTopic(sid string) string {
	return fmt.Sprintf("session-%s", sid)
}

// session returns the conversation controller for sid, creating it on first
// use with its own reply client, renderer, and avatar surface.
func (m *Main) session(r *http.Request, sid string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sid]; ok {
		return s, nil
	}

	base, err := url.Parse(baseURL(r))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}

	client, err := transport.NewClient(base.String(), m.opts.Endpoint, m.opts.CSRFCookie, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reply client: %w", err)
	}
	if err := client.Prime(r.Context()); err != nil {
		// The controller still works; the endpoint may reject posts until
		// a token is available.
		m.logger.Warn("Failed to prime reply client", slog.String("err", err.Error()))
	}

	topic := sessionTopic(sid)
	renderer := &sseRenderer{
		srv:       m.sseSrv,
		templates: m.templates,
		topic:     topic,
		logger:    m.logger,
	}
	surface := newSSEAvatar(m.sseSrv, topic, m.opts.AvatarIdle, m.logger)
	fetcher := assetFetcher{base: base, hc: http.DefaultClient}

	avatar := conversation.NewAvatar(surface, fetcher, m.opts.AvatarIdle, m.opts.AvatarTyping, m.logger)
	go avatar.Warm(context.Background())

	s := &session{
		controller: conversation.NewController(
			conversation.NewLog(), avatar, renderer, client, m.logger,
		),
	}
	m.sessions[sid] = s
	return s, nil
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/", scheme, r.Host)
}

// Shutdown gracefully terminates the SSE server. It broadcasts a close
// message to all connected clients and waits up to 5 seconds for connections
// to terminate.
func (m *Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeChat")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
