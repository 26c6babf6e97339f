// cmd/orchestrator/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"portlink-orchestrator/internal/agents"
	"portlink-orchestrator/internal/audit"
	"portlink-orchestrator/internal/common/config"
	"portlink-orchestrator/internal/common/database"
	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/common/observability"
	"portlink-orchestrator/internal/common/retry"
	"portlink-orchestrator/internal/genai"
	"portlink-orchestrator/internal/pipeline"
	"portlink-orchestrator/internal/pipeline/classify"
	"portlink-orchestrator/internal/pipeline/decompose"
	"portlink-orchestrator/internal/pipeline/execute"
	"portlink-orchestrator/internal/pipeline/redact"
	"portlink-orchestrator/internal/pipeline/sanitize"
	"portlink-orchestrator/internal/pipeline/synthesize"
	"portlink-orchestrator/internal/server"
	"portlink-orchestrator/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zlog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zlog.Sync()
	log := logger.NewZapAdapter(zlog)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Init Clients ---
	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zlog.Fatal("redis client failed", zap.Error(err))
	}
	if err := waitFor(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zlog, "redis connection"); err != nil {
		zlog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zlog.Info("redis connected")

	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zlog.Fatal("elasticsearch client failed", zap.Error(err))
	}
	if err := waitFor(esClient.Ping, 5, 2*time.Second, zlog, "elasticsearch connection"); err != nil {
		// The audit sink is best effort; a missing cluster only loses audit records.
		zlog.Warn("elasticsearch unreachable, audit records will be dropped", zap.Error(err))
	} else {
		zlog.Info("elasticsearch connected")
	}

	sessions := session.NewStore(redisClient.Client, cfg.Session.TTLDuration(), log)

	genaiClient := genai.NewClient(&genai.Config{
		BaseURL:    cfg.Providers.GenAI.BaseURL,
		APIKey:     cfg.Providers.GenAI.APIKey,
		Timeout:    time.Duration(cfg.Providers.GenAI.Timeout) * time.Millisecond,
		MaxRetries: cfg.Pipeline.MaxRetries,
	}, log)

	registry := agents.NewRegistry()
	registry.Register(agents.NewHTTPProvider(agents.HTTPProviderConfig{
		Name:    agents.AgentBookingOps,
		BaseURL: cfg.Providers.BookingOps.BaseURL,
		Timeout: time.Duration(cfg.Providers.BookingOps.Timeout) * time.Millisecond,
	}, sessions.TokenSource(), log))
	registry.Register(agents.NewHTTPProvider(agents.HTTPProviderConfig{
		Name:    agents.AgentCapacityAnalytics,
		BaseURL: cfg.Providers.CapacityAnalytics.BaseURL,
		Timeout: time.Duration(cfg.Providers.CapacityAnalytics.Timeout) * time.Millisecond,
	}, sessions.TokenSource(), log))
	zlog.Info("capability providers registered", zap.Strings("agents", registry.Names()))

	policy := &retry.Policy{
		MaxAttempts: cfg.Pipeline.MaxRetries + 1,
		BaseDelay:   time.Duration(cfg.Pipeline.RetryBaseDelay) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Pipeline.RetryMaxDelay) * time.Millisecond,
		Multiplier:  cfg.Pipeline.RetryMultiplier,
		RetryIf:     stderrors.IsRetryable,
	}

	pipe := pipeline.New(pipeline.Deps{
		Sanitizer:     sanitize.New(cfg.Pipeline.StrictSanitizer, log),
		Classifier:    classify.New(genaiClient, cfg.Pipeline.ClassifierThreshold, log),
		Decomposer:    decompose.New(cfg.Pipeline.MaxRetries, log),
		Executor:      execute.New(registry, policy, cfg.Pipeline.ExecutionTimeoutDuration(), log),
		Synthesizer:   synthesize.New(genaiClient, log),
		Validator:     redact.New(cfg.Pipeline.StrictConfidentiality, log),
		Audit:         audit.NewSink(esClient.Client, "", log),
		Observability: obs,
	}, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.New(pipe, sessions, log).Handler(),
	}

	go func() {
		zlog.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zlog.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("http server shutdown failed", zap.Error(err))
	}
	zlog.Info("orchestrator stopped")
}

// waitFor retries a connectivity check with a fixed delay between attempts.
func waitFor(check func() error, attempts int, delay time.Duration, log *zap.Logger, name string) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = check(); err == nil {
			return nil
		}
		log.Warn("connection attempt failed",
			zap.String("target", name),
			zap.Int("attempt", i),
			zap.Int("maxAttempts", attempts),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	return err
}
