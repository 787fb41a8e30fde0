package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	showroom "github.com/c2smotors/showroom"
	"github.com/c2smotors/showroom/internal/catalog"
	"github.com/c2smotors/showroom/internal/handlers"
	"github.com/c2smotors/showroom/internal/services"
)

func main() {
	// Local development keeps API keys in a .env file; absence is fine.
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatal(fmt.Errorf("error loading config: %w", err))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := catalog.NewStore(cfg.CatalogPath)
	if err != nil {
		log.Fatal(fmt.Errorf("error opening catalog store: %w", err))
	}
	defer store.Close()

	var generator handlers.Generator
	if cfg.LLM != nil {
		generator, err = cfg.LLM.generator(cfg.SystemPrompt, logger)
		if err != nil {
			log.Fatal(fmt.Errorf("error building reply generator: %w", err))
		}
	} else {
		logger.Warn("No LLM configured, replies fall back to the stock excerpt")
	}

	var limiter *services.RateLimiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		limiter = services.NewRateLimiter(rdb, cfg.Redis.Limit, cfg.Redis.windowDuration(), logger)
	}

	m, err := handlers.NewMain(generator, store, handlers.Options{
		Endpoint:     cfg.Endpoint,
		CSRFCookie:   cfg.CSRFCookie,
		AvatarIdle:   cfg.Avatar.Idle,
		AvatarTyping: cfg.Avatar.Typing,
	}, logger)
	if err != nil {
		log.Fatal(fmt.Errorf("error creating handlers: %w", err))
	}

	// Serve static files
	staticFS, err := fs.Sub(showroom.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	// Create custom mux
	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.Handle("/chats", limiter.Middleware(http.HandlerFunc(m.HandleChats)))
	mux.HandleFunc("/sse/messages", m.HandleSSE)

	// Create custom server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to shutdown sse server: %v", err)
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Println("Server starting on :" + cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt/terminate signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking select waiting for either interrupt or server error
	select {
	case err := <-serverErrors:
		log.Printf("Server error: %v", err)

	case sig := <-shutdown:
		log.Printf("Start shutdown, signal: %v", sig)

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Gracefully shutdown the server
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
			if err := srv.Close(); err != nil {
				log.Printf("Forcing server close: %v", err)
			}
		}
	}
}

// loadConfig reads the YAML config, falling back to defaults when the file
// does not exist.
func loadConfig(path string) (config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	if err != nil {
		return config{}, err
	}
	defer f.Close()

	cfg := config{}
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}
