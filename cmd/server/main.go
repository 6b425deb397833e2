// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Corphon/ArtVistas/internal/api"
	"github.com/Corphon/ArtVistas/internal/catalog"
	"github.com/Corphon/ArtVistas/internal/config"
	"github.com/Corphon/ArtVistas/internal/guide"
	"github.com/Corphon/ArtVistas/internal/llm"
	_ "github.com/Corphon/ArtVistas/internal/llm/providers/google"
	_ "github.com/Corphon/ArtVistas/internal/llm/providers/openai"
	"github.com/Corphon/ArtVistas/internal/utils"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting ArtVistas server", zap.String("port", cfg.Port), zap.Bool("debug", cfg.DebugMode))

	cat, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal("failed to load gallery catalog", zap.Error(err))
	}
	logger.Info("gallery catalog loaded", zap.Int("galleries", len(cat.Galleries())))

	window, err := contextWindow(cfg, logger)
	if err != nil {
		logger.Fatal("invalid guide context window", zap.Error(err))
	}

	// A missing or broken provider leaves the guide in its not-configured
	// state; galleries keep working.
	var gen guide.Generator
	var configErr error
	providerName := cfg.LLMProvider
	if generator, err := newGenerator(cfg, logger); err != nil {
		logger.Warn("guide chat disabled", zap.String("provider", providerName), zap.Error(err))
		configErr = err
	} else {
		gen = generator
		logger.Info("llm provider ready", zap.String("provider", generator.ProviderName()))
	}

	manager := guide.NewManager(gen, guide.ManagerConfig{
		SessionTTL:  cfg.GuideSessionTTL,
		Timeout:     cfg.GuideRequestTimeout,
		Window:      window,
		ConfigError: configErr,
		Logger:      logger,
	})
	defer manager.Close()

	server, err := api.SetupRouter(api.Dependencies{
		Config:       cfg,
		Catalog:      cat,
		Guide:        manager,
		Logger:       logger,
		ProviderName: providerName,
		GuideReady:   gen != nil,
	})
	if err != nil {
		logger.Fatal("failed to set up router", zap.Error(err))
	}
	defer server.Close()

	runServer(server.Engine, cfg.Port, logger)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		return catalog.LoadFile(cfg.CatalogFile)
	}
	return catalog.Default()
}

func newGenerator(cfg *config.Config, logger *zap.Logger) (*llm.Generator, error) {
	if !cfg.HasCredential() {
		return nil, fmt.Errorf("%w for provider %s", llm.ErrMissingAPIKey, cfg.LLMProvider)
	}
	provider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig())
	if err != nil {
		return nil, err
	}
	return llm.NewGenerator(provider,
		llm.WithModel(cfg.LLMModel),
		llm.WithLogger(logger.Named("llm")),
	), nil
}

func contextWindow(cfg *config.Config, logger *zap.Logger) (guide.ContextWindow, error) {
	spec, err := cfg.ContextWindow()
	if err != nil {
		return nil, err
	}
	switch spec.Kind {
	case "last":
		return guide.LastN{N: spec.Limit}, nil
	case "tokens":
		var counter guide.TokenCounter = guide.ApproxCounter{}
		if tk, err := guide.NewTiktokenCounter("cl100k_base"); err != nil {
			logger.Warn("tiktoken unavailable, approximating token counts", zap.Error(err))
		} else {
			counter = tk
		}
		return guide.TokenBudget{Budget: spec.Limit, Counter: counter}, nil
	default:
		return guide.Unbounded{}, nil
	}
}

func runServer(handler http.Handler, port string, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
