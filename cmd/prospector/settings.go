package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jonathan/prospect-analyzer/internal/config"
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"go.uber.org/zap"
)

const defaultPort = 8080

// envDefaults reads the settings that can come from the environment.
func envDefaults() (config.Config, error) {
	cfg := config.Config{
		Port:         defaultPort,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// loadSettings merges the config file (if any) over the environment, then
// applies the global flags.
func loadSettings() (config.Config, error) {
	defaults, err := envDefaults()
	if err != nil {
		return config.Config{}, err
	}

	file := &config.Config{}
	if configPath != "" {
		file, err = config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := file.MergeWithDefaults(defaults)

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
