package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/salesdesk/salesdesk/db"
	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/chat"
	"github.com/salesdesk/salesdesk/internal/config"
	"github.com/salesdesk/salesdesk/internal/conversation"
	"github.com/salesdesk/salesdesk/internal/kb"
	"github.com/salesdesk/salesdesk/internal/llm"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // slow model backends need headroom
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port, overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	if err := validateAddr(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cfg)
	logger.Info("starting HTTP API server", "version", Version)

	if err := db.Migrate(cfg.PostgresURL(), logger.With("component", "migrate")); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	store := kb.NewStore(cfg.KBPath, cfg.ChunkSize, logger.With("component", "kb"))
	if err := store.Load(); err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}

	registry := llm.NewRegistry(
		llm.NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIAPIKey,
			time.Duration(cfg.OpenAITimeout)*time.Second, logger.With("provider", "openai")),
		llm.NewOllama(cfg.OllamaBaseURL, cfg.OllamaModel,
			time.Duration(cfg.OllamaTimeout)*time.Second, logger.With("provider", "ollama")),
	)
	selector := llm.NewSelector(registry, cfg.Provider, logger.With("component", "llm"))

	orchestrator := chat.NewOrchestrator(
		store,
		kb.NewRetriever(cfg.TopK),
		selector,
		chat.NewPromptLoader(cfg.PromptPath),
		logger.With("component", "chat"),
	)

	conversations := conversation.NewService(
		conversation.NewStore(pool, logger.With("component", "conversation")),
		orchestrator,
		logger.With("component", "conversation"),
	)

	users, err := auth.NewUserStore()
	if err != nil {
		return fmt.Errorf("seeding users: %w", err)
	}
	tokens := auth.NewTokenService(cfg.JWTIssuer, cfg.JWTSecret, cfg.JWTExpiresMinutes)
	authSvc := auth.NewService(users, tokens, logger.With("component", "auth"))

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		Auth:          authSvc,
		Tokens:        tokens,
		Asker:         orchestrator,
		Conversations: conversations,
		Pool:          pool,
		CORSOrigins:   cfg.CORSOrigins,
		TrustProxy:    cfg.TrustProxy,
		RateBurst:     cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/v1/*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
