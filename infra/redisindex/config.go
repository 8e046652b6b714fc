package redisindex

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/evslot/core/completion"
	"github.com/kilianp07/evslot/core/factory"
)

// DefaultKeyPrefix namespaces completion keys.
const DefaultKeyPrefix = "evslot:completion:"

// Config holds Redis connection settings.
type Config struct {
	Addr               string `json:"addr"`
	Password           string `json:"password"`
	DB                 int    `json:"db"`
	KeyPrefix          string `json:"key_prefix"`
	DialTimeoutSeconds int    `json:"dial_timeout_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.DialTimeoutSeconds == 0 {
		c.DialTimeoutSeconds = 5
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.DB < 0 {
		return fmt.Errorf("redis db must be >= 0")
	}
	if c.DialTimeoutSeconds < 0 {
		return fmt.Errorf("dial_timeout_seconds must be >= 0")
	}
	return nil
}

func init() {
	_ = completion.Register("redis", func(conf map[string]any) (completion.Index, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, fmt.Errorf("decode redis config: %w", err)
		}
		cfg.SetDefaults()
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DialTimeoutSeconds)*time.Second)
		defer cancel()
		return Open(ctx, cfg)
	})
}
