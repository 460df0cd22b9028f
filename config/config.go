// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rec-operation/lem-api/api"
	"github.com/rec-operation/lem-api/core/scheduling"
	"github.com/rec-operation/lem-api/infra/dataspace"
	"github.com/rec-operation/lem-api/infra/metrics"
	"github.com/rec-operation/lem-api/infra/mqtt"
	"github.com/rec-operation/lem-api/infra/pvgis"
)

// StoreConfig carries the order store parameters.
type StoreConfig struct {
	Path string `json:"path"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "orders.db"
	}
}

// EngineConfig tunes the scheduling engine and the order workflow.
type EngineConfig struct {
	scheduling.Config
	OrderTimeout string `json:"order_timeout"`
}

func (c *EngineConfig) SetDefaults() {
	c.Config.SetDefaults()
	if c.OrderTimeout == "" {
		c.OrderTimeout = "10m"
	}
}

func (c *EngineConfig) Validate() error {
	if _, err := time.ParseDuration(c.OrderTimeout); err != nil {
		return fmt.Errorf("engine: invalid order_timeout: %w", err)
	}
	return nil
}

// Timeout returns the parsed order timeout.
func (c *EngineConfig) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.OrderTimeout)
	return d
}

// MetricsConfig selects the workflow measurement sinks.
type MetricsConfig struct {
	PromAddr string               `json:"prom_addr"`
	Influx   metrics.InfluxConfig `json:"influx"`
}

// RetentionConfig controls the periodic purge of old orders.
type RetentionConfig struct {
	// Schedule is a cron expression; empty disables the purge.
	Schedule string `json:"schedule"`
	MaxAge   string `json:"max_age"`
}

func (c *RetentionConfig) SetDefaults() {
	if c.MaxAge == "" {
		c.MaxAge = "2160h" // 90 days
	}
}

func (c *RetentionConfig) Validate() error {
	if _, err := time.ParseDuration(c.MaxAge); err != nil {
		return fmt.Errorf("retention: invalid max_age: %w", err)
	}
	return nil
}

// MaxAgeDuration returns the parsed retention age.
func (c *RetentionConfig) MaxAgeDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxAge)
	return d
}

// Config is the root configuration of the service.
type Config struct {
	API       api.Config             `json:"api"`
	Store     StoreConfig            `json:"store"`
	Indata    dataspace.IndataConfig `json:"indata"`
	SEL       dataspace.SELConfig    `json:"sel"`
	PVGIS     pvgis.Config           `json:"pvgis"`
	MQTT      mqtt.Config            `json:"mqtt"`
	Metrics   MetricsConfig          `json:"metrics"`
	Engine    EngineConfig           `json:"engine"`
	Retention RetentionConfig        `json:"retention"`
}

// Load reads the configuration file, applies LEM_-prefixed environment
// overrides, then defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
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
	// Optional environment overrides, e.g. LEM_SEL__PASSWORD
	if err := k.Load(env.Provider("LEM_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "lem_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	c.API.SetDefaults()
	c.Store.SetDefaults()
	c.Indata.SetDefaults()
	c.SEL.SetDefaults()
	c.PVGIS.SetDefaults()
	c.MQTT.SetDefaults()
	c.Engine.SetDefaults()
	c.Retention.SetDefaults()
}

// Validate checks every section. The MQTT section is only validated when a
// broker is configured, since the notifier is optional.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Indata.Validate(); err != nil {
		return err
	}
	if err := c.SEL.Validate(); err != nil {
		return err
	}
	if err := c.PVGIS.Validate(); err != nil {
		return err
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return c.Retention.Validate()
}
