package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evslot/core/factory"
	"github.com/kilianp07/evslot/infra/logger"
	"github.com/kilianp07/evslot/infra/mqtt"
)

// EnvPrefix marks environment overrides. EVSLOT_HTTP__ADDRESS sets
// http.address.
const EnvPrefix = "EVSLOT_"

type Config struct {
	Ledger     factory.ModuleConfig `json:"ledger"`
	Completion factory.ModuleConfig `json:"completion"`
	HTTP       HTTPConfig           `json:"http"`
	Import     ImportConfig         `json:"import"`
	Refresh    RefreshConfig        `json:"refresh"`
	Metrics    MetricsConfig        `json:"metrics"`
	MQTT       mqtt.Config          `json:"mqtt"`
	Sentry     SentryConfig         `json:"sentry"`
	Logging    logger.Config        `json:"logging"`
}

// defaults are loaded before the file so that partial files inherit them.
// Backends default their own connection settings.
var defaults = map[string]any{
	"ledger.type":     "sqlite",
	"completion.type": "redis",
}

// Load reads the YAML or JSON file at path, applies EVSLOT_ environment
// overrides, fills defaults and validates every section. An empty path loads
// defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, err
	}
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Import.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and names the failing one.
func (c Config) Validate() error {
	if c.Ledger.Type == "" {
		return fmt.Errorf("ledger: type is required")
	}
	if c.Completion.Type == "" {
		return fmt.Errorf("completion: type is required")
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"http", c.HTTP.Validate},
		{"import", c.Import.Validate},
		{"refresh", c.Refresh.Validate},
		{"metrics", c.Metrics.Validate},
		{"mqtt", c.MQTT.Validate},
		{"sentry", c.Sentry.Validate},
		{"logging", c.Logging.Validate},
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("%s: %w", chk.name, err)
		}
	}
	return nil
}
