package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	showroom "github.com/c2smotors/showroom"
	"github.com/c2smotors/showroom/internal/catalog"
	"github.com/c2smotors/showroom/internal/handlers"
	"github.com/c2smotors/showroom/internal/models"
)

type generatorCall struct {
	history []models.Message
	prompt  string
}

type mockGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []generatorCall
}

func (g *mockGenerator) Reply(_ context.Context, history []models.Message, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, generatorCall{history: history, prompt: prompt})
	return g.reply, g.err
}

func (g *mockGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type mockCatalog struct {
	vehicles []models.Vehicle
	err      error
}

func (c *mockCatalog) Vehicles(context.Context) ([]models.Vehicle, error) {
	return c.vehicles, c.err
}

func (c *mockCatalog) Search(_ context.Context, f catalog.Filters, limit int) ([]models.Vehicle, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []models.Vehicle
	for _, v := range c.vehicles {
		if !f.Match(v) {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func testVehicles() []models.Vehicle {
	return []models.Vehicle{
		{
			Brand: "Jeep", Model: "Compass", Year: 2021,
			FuelType: "flex", Doors: 4, Transmission: "Automática",
			BodyType: "SUV", Price: 119000, VIN: "VIN001AAAAAAAAAAA",
		},
		{
			Brand: "Toyota", Model: "Corolla", Year: 2019,
			FuelType: "gasolina", Doors: 4, Transmission: "Automática",
			BodyType: "Sedan", Price: 98000, VIN: "VIN002AAAAAAAAAAA",
		},
	}
}

func newTestServer(t *testing.T, generator handlers.Generator, cat handlers.Catalog) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := handlers.NewMain(generator, cat, handlers.Options{}, logger)
	if err != nil {
		t.Fatalf("NewMain() error = %v", err)
	}
	t.Cleanup(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})

	staticFS, err := fs.Sub(showroom.StaticFS, "static")
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/chats", m.HandleChats)
	mux.HandleFunc("/sse/messages", m.HandleSSE)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleHomeIssuesCookies(t *testing.T) {
	srv := newTestServer(t, &mockGenerator{}, &mockCatalog{})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var gotSession, gotCSRF bool
	for _, c := range resp.Cookies() {
		switch c.Name {
		case "showroom_session":
			gotSession = c.Value != ""
		case "csrftoken":
			gotCSRF = c.Value != ""
		}
	}
	if !gotSession {
		t.Error("GET / did not set the session cookie")
	}
	if !gotCSRF {
		t.Error("GET / did not set the CSRF cookie")
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "chat-app") {
		t.Error("GET / body does not contain the chat shell")
	}
}

func TestHandleHomeUnknownPath(t *testing.T) {
	srv := newTestServer(t, &mockGenerator{}, &mockCatalog{})

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func postReply(t *testing.T, url, token, payload string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Cookie", "csrftoken="+token)
		req.Header.Set("X-CSRFToken", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHandleReply(t *testing.T) {
	generator := &mockGenerator{reply: "Recomendo o Jeep Compass 2021."}
	srv := newTestServer(t, generator, &mockCatalog{vehicles: testVehicles()})

	tests := []struct {
		name       string
		token      string
		payload    string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "Missing CSRF token",
			token:      "",
			payload:    `{"message":"Quero um SUV"}`,
			wantStatus: http.StatusForbidden,
			wantBody:   "CSRF token missing or incorrect.",
		},
		{
			name:       "Invalid payload",
			token:      "tok",
			payload:    "not json",
			wantStatus: http.StatusBadRequest,
			wantBody:   "Payload inválido.",
		},
		{
			name:       "Empty message",
			token:      "tok",
			payload:    `{"message":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "Mensagem vazia.",
		},
		{
			name:       "Successful turn",
			token:      "tok",
			payload:    `{"message":"Quero um SUV automático até 120 mil"}`,
			wantStatus: http.StatusOK,
			wantBody:   "Recomendo o Jeep Compass 2021.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postReply(t, srv.URL+"/", tt.token, tt.payload)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("POST / status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("POST / body = %q, want to contain %q", body, tt.wantBody)
			}
		})
	}
}

func TestHandleReplySuggestionsAndPrompt(t *testing.T) {
	generator := &mockGenerator{reply: "Segue a opção."}
	srv := newTestServer(t, generator, &mockCatalog{vehicles: testVehicles()})

	resp := postReply(t, srv.URL+"/", "tok", `{"message":"Quero um SUV automático"}`)
	defer resp.Body.Close()

	var rr struct {
		Reply       string           `json:"reply"`
		Suggestions []models.Vehicle `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if rr.Reply != "Segue a opção." {
		t.Errorf("reply = %q, want the generator output", rr.Reply)
	}
	if len(rr.Suggestions) != 1 || rr.Suggestions[0].VIN != "VIN001AAAAAAAAAAA" {
		t.Errorf("suggestions = %+v, want only the Compass", rr.Suggestions)
	}

	if generator.callCount() != 1 {
		t.Fatalf("generator called %d times, want 1", generator.callCount())
	}
	prompt := generator.calls[0].prompt
	if !strings.Contains(prompt, "Pergunta do cliente: Quero um SUV automático") {
		t.Errorf("prompt = %q, want the customer question", prompt)
	}
	if !strings.Contains(prompt, "Estoque relevante:") || !strings.Contains(prompt, "Compass") {
		t.Errorf("prompt = %q, want the stock snapshot", prompt)
	}
}

func TestHandleReplyFallsBackToRecentCatalog(t *testing.T) {
	generator := &mockGenerator{reply: "ok"}
	srv := newTestServer(t, generator, &mockCatalog{vehicles: testVehicles()})

	// Nothing in the catalog is a pickup; the reply still gets stock context.
	resp := postReply(t, srv.URL+"/", "tok", `{"message":"quero uma pickup diesel"}`)
	defer resp.Body.Close()

	var rr struct {
		Suggestions []models.Vehicle `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		t.Fatal(err)
	}
	if len(rr.Suggestions) != 2 {
		t.Errorf("suggestions len = %d, want the whole recent catalog", len(rr.Suggestions))
	}
}

func TestHandleReplyWithoutGenerator(t *testing.T) {
	srv := newTestServer(t, nil, &mockCatalog{vehicles: testVehicles()})

	resp := postReply(t, srv.URL+"/", "tok", `{"message":"Quero um SUV"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST / status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var rr struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rr.Reply, "indisponível") || !strings.Contains(rr.Reply, "Estoque relevante:") {
		t.Errorf("reply = %q, want the deterministic stock reply", rr.Reply)
	}
}

func TestHandleChats(t *testing.T) {
	generator := &mockGenerator{reply: "Temos sim!"}
	srv := newTestServer(t, generator, &mockCatalog{vehicles: testVehicles()})

	tests := []struct {
		name       string
		method     string
		withCSRF   bool
		session    string
		wantStatus int
	}{
		{
			name:       "Invalid method",
			method:     http.MethodGet,
			withCSRF:   true,
			session:    "sess-1",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "Missing CSRF",
			method:     http.MethodPost,
			withCSRF:   false,
			session:    "sess-1",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "Missing session cookie",
			method:     http.MethodPost,
			withCSRF:   true,
			session:    "",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Full turn",
			method:     http.MethodPost,
			withCSRF:   true,
			session:    "sess-1",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+"/chats", strings.NewReader("message=Tem+SUV%3F"))
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			cookies := []string{}
			if tt.withCSRF {
				cookies = append(cookies, "csrftoken=tok")
				req.Header.Set("X-CSRFToken", "tok")
			}
			if tt.session != "" {
				cookies = append(cookies, "showroom_session="+tt.session)
			}
			if len(cookies) > 0 {
				req.Header.Set("Cookie", strings.Join(cookies, "; "))
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("POST /chats status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}

	// The full turn above went through the whole loop: session creation,
	// priming, and the self-addressed reply round-trip.
	if generator.callCount() != 1 {
		t.Errorf("generator called %d times, want 1", generator.callCount())
	}
}

func TestHandleChatsBlankMessageIsSilent(t *testing.T) {
	generator := &mockGenerator{reply: "ok"}
	srv := newTestServer(t, generator, &mockCatalog{vehicles: testVehicles()})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/chats", strings.NewReader("message=+++"))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cookie", "csrftoken=tok; showroom_session=sess-2")
	req.Header.Set("X-CSRFToken", "tok")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("POST /chats status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if generator.callCount() != 0 {
		t.Errorf("generator called %d times, want 0 for blank input", generator.callCount())
	}
}
