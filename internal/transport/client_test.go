package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/c2smotors/showroom/internal/models"
	"github.com/c2smotors/showroom/internal/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPageServer(t *testing.T, token string, reply http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: token, Path: "/"})
			w.Write([]byte("<html></html>"))
			return
		}
		reply(w, r)
	}))
}

func TestClientPrimeReadsToken(t *testing.T) {
	srv := newPageServer(t, "tok-123", nil)
	defer srv.Close()

	client, err := transport.NewClient(srv.URL+"/", "", "csrftoken", discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := client.Prime(context.Background()); err != nil {
		t.Fatalf("Prime() error = %v", err)
	}
	if got := client.Token(); got != "tok-123" {
		t.Errorf("Token() = %q, want %q", got, "tok-123")
	}
}

func TestClientReplyPostsLogAndToken(t *testing.T) {
	type gotRequest struct {
		token       string
		contentType string
		message     string
		history     []models.Message
	}
	var got gotRequest

	srv := newPageServer(t, "tok-123", func(w http.ResponseWriter, r *http.Request) {
		got.token = r.Header.Get(transport.CSRFHeader)
		got.contentType = r.Header.Get("Content-Type")

		var req struct {
			Message string           `json:"message"`
			History []models.Message `json:"history"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		got.message = req.Message
		got.history = req.History

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"reply":       "Temos sim!",
			"suggestions": []string{},
		})
	})
	defer srv.Close()

	client, err := transport.NewClient(srv.URL+"/", "", "csrftoken", discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Prime(context.Background()); err != nil {
		t.Fatal(err)
	}

	history := []models.Message{
		{Role: models.RoleUser, Content: "Tem SUV?"},
	}
	reply, err := client.Reply(context.Background(), "Tem SUV?", history)
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	if reply != "Temos sim!" {
		t.Errorf("Reply() = %q, want %q", reply, "Temos sim!")
	}
	if got.token != "tok-123" {
		t.Errorf("CSRF header = %q, want %q", got.token, "tok-123")
	}
	if got.contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got.contentType)
	}
	if got.message != "Tem SUV?" {
		t.Errorf("posted message = %q, want %q", got.message, "Tem SUV?")
	}
	if len(got.history) != 1 || got.history[0] != history[0] {
		t.Errorf("posted history = %+v, want %+v", got.history, history)
	}
}

func TestClientReplyNilHistoryPostsEmptyArray(t *testing.T) {
	var rawBody map[string]json.RawMessage

	srv := newPageServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&rawBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reply":"ok"}`))
	})
	defer srv.Close()

	client, err := transport.NewClient(srv.URL+"/", "", "csrftoken", discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Reply(context.Background(), "oi", nil); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if string(rawBody["history"]) != "[]" {
		t.Errorf("history field = %s, want []", rawBody["history"])
	}
}

func TestClientReplyNon2xxFails(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "Bad request", status: http.StatusBadRequest},
		{name: "Forbidden", status: http.StatusForbidden},
		{name: "Server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newPageServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			defer srv.Close()

			client, err := transport.NewClient(srv.URL+"/", "", "csrftoken", discardLogger())
			if err != nil {
				t.Fatal(err)
			}

			if _, err := client.Reply(context.Background(), "oi", nil); err == nil {
				t.Errorf("Reply() error = nil, want failure for status %d", tt.status)
			}
		})
	}
}

func TestClientReplyToleratesUnexpectedPayload(t *testing.T) {
	srv := newPageServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})
	defer srv.Close()

	client, err := transport.NewClient(srv.URL+"/", "", "csrftoken", discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	reply, err := client.Reply(context.Background(), "oi", nil)
	if err != nil {
		t.Fatalf("Reply() error = %v, want nil", err)
	}
	if reply != "" {
		t.Errorf("Reply() = %q, want empty", reply)
	}
}

func TestClientResolvesRelativeEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			path = r.URL.Path
		}
		w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()

	client, err := transport.NewClient(srv.URL+"/", "/api/chat", "csrftoken", discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Reply(context.Background(), "oi", nil); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if path != "/api/chat" {
		t.Errorf("posted path = %q, want /api/chat", path)
	}
}
