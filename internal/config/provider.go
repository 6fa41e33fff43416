package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultProviderBaseURL is the Sales.rocks API root.
const DefaultProviderBaseURL = "https://api.sales.rocks"

// ProviderConfig holds the contact-lookup provider credentials and the
// enrichment batching knobs.
type ProviderConfig struct {
	BaseURL  string
	Username string
	Password string

	// RequestsPerSecond throttles outbound provider calls. Zero disables throttling.
	RequestsPerSecond float64
	Timeout           time.Duration

	BatchSize   int           // email lookups run concurrently within a batch
	BatchDelay  time.Duration // pause between batches
	MaxContacts int           // handles kept per company
}

// DefaultProviderConfig returns the built-in enrichment settings.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		BaseURL:           DefaultProviderBaseURL,
		RequestsPerSecond: 5,
		Timeout:           30 * time.Second,
		BatchSize:         3,
		BatchDelay:        1500 * time.Millisecond,
		MaxContacts:       10,
	}
}

// NewProviderConfig reads SALES_ROCKS_* and ENRICH_* environment variables
// on top of DefaultProviderConfig.
func NewProviderConfig() (*ProviderConfig, error) {
	cfg := DefaultProviderConfig()

	if v := os.Getenv("SALES_ROCKS_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	cfg.Username = os.Getenv("SALES_ROCKS_USERNAME")
	cfg.Password = os.Getenv("SALES_ROCKS_PASSWORD")

	if v := os.Getenv("SALES_ROCKS_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SALES_ROCKS_RPS: %v", err)
		}
		cfg.RequestsPerSecond = rps
	}
	if v := os.Getenv("SALES_ROCKS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SALES_ROCKS_TIMEOUT: %v", err)
		}
		cfg.Timeout = d
	}

	var err error
	if cfg.BatchSize, err = envInt("ENRICH_BATCH_SIZE", cfg.BatchSize); err != nil {
		return nil, err
	}
	if cfg.MaxContacts, err = envInt("ENRICH_MAX_CONTACTS", cfg.MaxContacts); err != nil {
		return nil, err
	}
	if v := os.Getenv("ENRICH_BATCH_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ENRICH_BATCH_DELAY: %v", err)
		}
		cfg.BatchDelay = d
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ProviderConfig) normalize() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("SALES_ROCKS_USERNAME and SALES_ROCKS_PASSWORD are required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("ENRICH_BATCH_SIZE must be at least 1, got: %d", c.BatchSize)
	}
	if c.MaxContacts < 1 {
		return fmt.Errorf("ENRICH_MAX_CONTACTS must be at least 1, got: %d", c.MaxContacts)
	}
	if c.BatchDelay < 0 {
		return fmt.Errorf("ENRICH_BATCH_DELAY cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("SALES_ROCKS_RPS cannot be negative")
	}
	return nil
}
