package sqlledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/evslot/core/factory"
	"github.com/kilianp07/evslot/core/ledger"
)

// DefaultSQLitePath is used when no DSN is configured for the sqlite backend.
const DefaultSQLitePath = "evslot.db"

// Config holds connection settings decoded from the ledger module config.
type Config struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
	// ConnectTimeoutSeconds bounds the schema migration on startup.
	ConnectTimeoutSeconds int `json:"connect_timeout_seconds"`
}

// SetDefaults fills unset fields for the given driver.
func (c *Config) SetDefaults(driver string) {
	if c.DSN == "" && driver == "sqlite" {
		c.DSN = DefaultSQLitePath
	}
	if c.ConnectTimeoutSeconds == 0 {
		c.ConnectTimeoutSeconds = 10
	}
}

// Validate checks the connection settings.
func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("ledger dsn is required")
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("max_open_conns must be >= 0")
	}
	if c.ConnectTimeoutSeconds < 0 {
		return fmt.Errorf("connect_timeout_seconds must be >= 0")
	}
	return nil
}

func init() {
	for name := range dialects {
		driver := name
		_ = ledger.Register(driver, func(conf map[string]any) (ledger.Ledger, error) {
			var cfg Config
			if err := factory.Decode(conf, &cfg); err != nil {
				return nil, fmt.Errorf("decode %s ledger config: %w", driver, err)
			}
			cfg.SetDefaults(driver)
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ConnectTimeoutSeconds)*time.Second)
			defer cancel()
			return Open(ctx, driver, cfg)
		})
	}
}
