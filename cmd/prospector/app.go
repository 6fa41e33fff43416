package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/catalog"
	"github.com/jonathan/prospect-analyzer/internal/config"
	"github.com/jonathan/prospect-analyzer/internal/contacts"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/enrichment"
	"github.com/jonathan/prospect-analyzer/internal/fetch"
	"github.com/jonathan/prospect-analyzer/internal/llm"
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"github.com/jonathan/prospect-analyzer/internal/onepager"
	"github.com/jonathan/prospect-analyzer/internal/relay"
	"github.com/jonathan/prospect-analyzer/internal/salesrocks"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app holds the wired services shared by the commands.
type app struct {
	db         *db.DB
	metrics    *observability.Metrics
	relay      *relay.Relay
	enrichment *enrichment.Service
	contacts   *contacts.Service
	catalog    *catalog.Store
	onePager   *onepager.Builder
	llm        llm.Client
	logger     *zap.Logger
}

// newApp connects to the database and wires the provider, enrichment,
// contact and one-pager services. Callers must Close it.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	providerCfg, err := config.NewProviderConfig()
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		database.Close()
		return nil, err
	}

	client := salesrocks.NewClient(salesrocks.Options{
		BaseURL:           providerCfg.BaseURL,
		Username:          providerCfg.Username,
		Password:          providerCfg.Password,
		RequestsPerSecond: providerCfg.RequestsPerSecond,
		Timeout:           providerCfg.Timeout,
	})
	rel := relay.New(client, database, database, logger, metrics)

	enrich := enrichment.NewService(database, rel, enrichment.Config{
		BatchSize:   providerCfg.BatchSize,
		BatchDelay:  providerCfg.BatchDelay,
		MaxContacts: providerCfg.MaxContacts,
	}, logger, metrics)

	a := &app{
		db:         database,
		metrics:    metrics,
		relay:      rel,
		enrichment: enrich,
		contacts:   contacts.NewService(database, logger),
		catalog:    catalog.NewStore(),
		logger:     logger,
	}

	opts := onepager.Options{
		Website: fetch.NewSiteReader(fetch.DefaultOptions(), fetch.NewBrowser(0, logger), logger),
		Logger:  logger,
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.llm = gemini
		opts.LLM = gemini
	} else {
		logger.Info("GEMINI_API_KEY not set; one-pager insights use website metadata only")
	}
	if cfg.PDFEnabled {
		opts.PDF = fetch.NewBrowser(0, logger)
	}
	a.onePager = onepager.NewBuilder(enrich, a.catalog, opts)
	return a, nil
}

// Close releases the LLM client and the database pool
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.logger.Warn("Failed to close LLM client", zap.Error(err))
		}
	}
	a.db.Close()
}

// userByEmail resolves the user a CLI command acts for
func (a *app) userByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	if email == "" {
		return uuid.Nil, fmt.Errorf("--user is required")
	}
	u, err := a.db.GetUserByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if u == nil {
		return uuid.Nil, fmt.Errorf("no user registered with email %s", email)
	}
	return u.ID, nil
}
