package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	httpadapter "github.com/whitman-labs/parley/internal/adapters/http"
	"github.com/whitman-labs/parley/internal/adapters/identity"
	"github.com/whitman-labs/parley/internal/adapters/llm"
	firestorestore "github.com/whitman-labs/parley/internal/adapters/storage/firestore"
	memstore "github.com/whitman-labs/parley/internal/adapters/storage/memory"
	redisstore "github.com/whitman-labs/parley/internal/adapters/storage/redis"
	"github.com/whitman-labs/parley/internal/app/chat"
	"github.com/whitman-labs/parley/internal/config"
	"github.com/whitman-labs/parley/internal/domain"
	"github.com/whitman-labs/parley/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := observability.Logger()

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize chat store", "error", err)
		os.Exit(1)
	}
	log.Info("chat store ready", "backend", cfg.StorageBackend)

	completion, err := buildCompletion(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize completion client", "error", err)
		os.Exit(1)
	}
	log.Info("completion client ready", "backend", cfg.CompletionBackend, "model", cfg.ModelName)

	registry := chat.NewRegistry(store, completion, chat.WithTimeout(cfg.SubmitTimeout))

	// Sign-out drops the user's controller so no active session survives
	// a lost identity. The notifier is the plug point for the upstream auth
	// proxy: the provider adapter that verifies credentials calls
	// SignIn/SignOut here. Until one is wired, identity arrives per-request
	// via the X-User-ID header and this path stays quiet.
	notifier := identity.NewNotifier()
	go func() {
		for ev := range notifier.Watch() {
			if !ev.SignedIn {
				registry.Evict(ev.User)
			}
		}
	}()

	handler := httpadapter.NewServer(registry, store)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		log.Info("parley API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (domain.ChatStore, error) {
	switch cfg.StorageBackend {
	case config.StorageFirestore:
		return firestorestore.NewStore(ctx, cfg.GCPProjectID)
	case config.StorageRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return redisstore.NewStore(client, redisstore.WithTTL(cfg.RedisTTL)), nil
	default:
		return memstore.NewStore(), nil
	}
}

func buildCompletion(ctx context.Context, cfg *config.Config) (domain.CompletionClient, error) {
	switch cfg.CompletionBackend {
	case config.CompletionOpenAI:
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:     cfg.OpenAIBaseURL,
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.ModelName,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case config.CompletionVertex:
		return llm.NewVertexClient(ctx, llm.VertexConfig{
			ProjectID:   cfg.GCPProjectID,
			Location:    cfg.GCPLocation,
			Model:       cfg.ModelName,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	default:
		return llm.NewMockClient(), nil
	}
}
