package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jonathan/prospect-analyzer/internal/config"
	"github.com/jonathan/prospect-analyzer/internal/server"
	"github.com/jonathan/prospect-analyzer/internal/server/ratelimit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort    int
	servePDF     bool
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the company analysis, contact, catalog, one-pager and provider relay endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT or 8080)")
	serveCmd.Flags().BoolVar(&servePDF, "pdf", false, "Enable one-pager PDF export (requires Chrome)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Apply the database schema on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if servePDF {
		cfg.PDFEnabled = true
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	passwordCfg, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveMigrate {
		if err := a.db.Migrate(ctx); err != nil {
			return err
		}
	}

	srv := server.New(server.Config{Port: cfg.Port}, server.Deps{
		Users:     a.db,
		Password:  passwordCfg,
		JWT:       server.NewJWTService(jwtCfg),
		Companies: a.enrichment,
		Contacts:  a.contacts,
		Catalog:   a.catalog,
		OnePager:  a.onePager,
		Relay:     a.relay,
		Limiter:   ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Metrics:   a.metrics,
		Logger:    logger,
	})

	logger.Info("Starting prospector",
		zap.Int("port", cfg.Port),
		zap.Bool("pdf_enabled", cfg.PDFEnabled),
		zap.Bool("ai_insights", cfg.GeminiAPIKey != ""))
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

