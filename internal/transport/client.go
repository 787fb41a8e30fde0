package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/c2smotors/showroom/internal/models"
)

// CSRFHeader is the request header carrying the anti-forgery token, matching
// what the reply endpoint expects.
const CSRFHeader = "X-CSRFToken"

// Client performs the round-trip to the reply endpoint. An empty endpoint
// means the same route as the page. The client keeps a cookie jar so the
// endpoint can issue the CSRF cookie on the priming request; the token is
// read once and cached for the session.
type Client struct {
	page     *url.URL
	endpoint *url.URL
	cookie   string
	token    string

	// No timeout: the reply endpoint dictates turn latency and
	// cancellation is not supported.
	hc *http.Client

	logger *slog.Logger
}

type replyRequest struct {
	Message string           `json:"message"`
	History []models.Message `json:"history"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// NewClient builds a client for the page at pageURL. endpoint may be empty
// (the page route itself), a path resolved against the page, or an absolute
// URL. cookieName names the CSRF cookie to read.
func NewClient(pageURL, endpoint, cookieName string, logger *slog.Logger) (*Client, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page url: %w", err)
	}

	target := page
	if endpoint != "" {
		ref, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to parse endpoint: %w", err)
		}
		target = page.ResolveReference(ref)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		page:     page,
		endpoint: target,
		cookie:   cookieName,
		hc:       &http.Client{Jar: jar},
		logger:   logger.With(slog.String("module", "transport")),
	}, nil
}

// Prime fetches the host page once so the server can issue the CSRF cookie,
// then caches the token for the rest of the session. The token is not
// refreshed if the cookie rotates later.
func (c *Client) Prime(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.page.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build priming request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("priming request failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if token, ok := CookieValue(rawCookieHeader(c.hc.Jar.Cookies(c.page)), c.cookie); ok {
		c.token = token
	}
	return nil
}

// Token reports the cached CSRF token, if any.
func (c *Client) Token() string {
	return c.token
}

// Reply posts the new user text together with the entire conversation log and
// returns the reply text from the response payload. Any non-2xx status is a
// uniform failure; a 2xx body of another shape is tolerated and yields an
// empty reply for the caller to substitute.
func (c *Client) Reply(ctx context.Context, message string, history []models.Message) (string, error) {
	if history == nil {
		history = []models.Message{}
	}
	body, err := json.Marshal(replyRequest{Message: message, History: history})
	if err != nil {
		return "", fmt.Errorf("failed to marshal reply request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(CSRFHeader, c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("reply request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("reply endpoint returned %s", resp.Status)
	}

	var rr replyResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		c.logger.Debug("Unexpected reply payload shape", slog.String("err", err.Error()))
		return "", nil
	}
	return rr.Reply, nil
}

func rawCookieHeader(cookies []*http.Cookie) string {
	var sb strings.Builder
	for i, ck := range cookies {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(ck.Name)
		sb.WriteString("=")
		sb.WriteString(ck.Value)
	}
	return sb.String()
}
