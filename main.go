package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore"
	_ "github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore/mssql"
	_ "github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore/postgres"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/config"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/database"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/handlers"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/llm"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/logging"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/mcp"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/mcp/tools"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/middleware"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/repositories"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/retry"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		// No logger yet; the config decides between development and production output.
		_, _ = os.Stderr.WriteString("Failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", cfg.Database.User+"@"+cfg.Database.Host+"/"+cfg.Database.Database),
		zap.String("entity_store", cfg.EntityStore.Type),
		zap.String("redis", cfg.Redis.Host),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.String("error", logging.SanitizeError(err)))
	}
}

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("binding-engine")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Engine database: templates, bindings, datasets.
	// Postgres and Redis often boot alongside the engine, so connecting retries.
	dbURL := cfg.Database.ConnectionString()
	if err := retry.Do(ctx, retry.StartupConfig(), func() error {
		return database.MigrateURL(dbURL, logger.Named("migrations"))
	}); err != nil {
		return err
	}
	db, err := retry.DoWithResult(ctx, retry.StartupConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            dbURL,
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := retry.DoWithResult(ctx, retry.StartupConfig(), func() (*redis.Client, error) {
		return database.NewRedisClient(ctx, &cfg.Redis)
	})
	if err != nil {
		// The shared cache is optional; the in-process LRU still works.
		logger.Warn("Redis unavailable, binding cache is process-local", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	c, err := classifier.Build(cfg.Binding.RulesFile, logger.Named("classifier"))
	if err != nil {
		return err
	}
	registry := c.Registry()

	storeCfg := entitystore.Config{
		Type:         cfg.EntityStore.Type,
		DSN:          cfg.EntityStore.DSN,
		MaxOpenConns: cfg.EntityStore.MaxOpenConns,
	}
	if storeCfg.Type == "postgres" && storeCfg.DSN == "" {
		storeCfg.Pool = db.Pool
	}
	entities, err := entitystore.New(ctx, storeCfg, logger.Named("entity-store"))
	if err != nil {
		return err
	}
	defer func() { _ = entities.Close() }()

	// The assisting model is optional; a nil client yields an assistant that
	// always reports itself unavailable.
	client, err := llm.NewClientFromConfig(&cfg.AI, logger.Named("llm"))
	if err != nil {
		return err
	}
	assistant := llm.NewAssistant(client, llm.AssistantConfig{
		DefaultTimeout:    cfg.AI.SuggestionTimeout,
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
		Breaker: llm.CircuitBreakerConfig{
			Threshold:  cfg.AI.BreakerThreshold,
			ResetAfter: cfg.AI.BreakerReset,
		},
	}, logger)

	templates := repositories.NewTemplateRepository(db)
	datasets := repositories.NewDatasetRepository(db)
	bindingRepo := repositories.NewCachedBindingRepository(
		repositories.NewBindingRepository(db), cfg.Binding.CacheSize, rdb, cfg.Redis.TTL, logger)

	store := services.NewBindingStore(bindingRepo, datasets, registry, logger)
	matcher := services.NewSemanticMatcher(assistant, c, services.SemanticMatcherConfig{
		BatchSize:     cfg.Binding.SuggestionBatchSize,
		Timeout:       cfg.AI.SuggestionTimeout,
		MaxConcurrent: cfg.AI.MaxConcurrent,
	}, logger)
	suggestion := services.NewBindingSuggestionService(templates, datasets, store, c, matcher, logger)
	synthetic := services.NewSyntheticGenerator(assistant, services.SyntheticConfig{
		Enrich:  cfg.AI.SyntheticEnrichment,
		Timeout: cfg.AI.SyntheticTimeout,
	}, logger)
	resolution := services.NewResolutionService(templates, store, datasets, entities, c, synthetic,
		services.ResolutionConfig{MaxConcurrentEnrichment: cfg.AI.MaxConcurrent}, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, db, assistant, logger)
	healthHandler.RegisterRoutes(mux)
	handlers.NewTemplateHandler(templates, suggestion, logger).RegisterRoutes(mux)
	handlers.NewBindingsHandler(suggestion, store, logger).RegisterRoutes(mux)
	handlers.NewResolveHandler(resolution, logger).RegisterRoutes(mux)
	handlers.NewDatasetHandler(datasets, registry, logger).RegisterRoutes(mux)

	mcpServer := mcp.NewServer("binding-engine", cfg.Version, logger)
	mcpServer.RegisterEngineTools(&tools.BindingToolDeps{
		Suggestion: suggestion,
		Store:      store,
		Resolution: resolution,
		Logger:     logger.Named("mcp-tools"),
	}, cfg.Version, healthHandler)
	handlers.NewMCPHandler(mcpServer, logger.Named("mcp")).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger.Named("http"))(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting binding engine",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
