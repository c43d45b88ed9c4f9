// CLAUDE:SUMMARY Defines revive config structs and parses YAML configuration files with defaults.
// Package config handles revive configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level revive configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"` // debug | info | warn | error
	Document DocumentConfig `yaml:"document"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Brokers  []BrokerConfig `yaml:"brokers"`
	HTTP     HTTPConfig     `yaml:"http"`
	Codec    CodecConfig    `yaml:"codec"`
}

// DocumentConfig selects the DOM the controller works against.
type DocumentConfig struct {
	Source   string        `yaml:"source"`   // file | browser
	Path     string        `yaml:"path"`     // for file
	URL      string        `yaml:"url"`      // for browser
	Remote   string        `yaml:"remote"`   // DevTools websocket; empty launches Chrome
	Stealth  bool          `yaml:"stealth"`  // for browser
	Sanitize string        `yaml:"sanitize"` // none | ugc | strict, applied to inner HTML writes
	Timeout  time.Duration `yaml:"timeout"`  // page load
}

// ArchiveConfig points at the SQLite label archive. Empty path disables it.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// BrokerConfig defines one broker backend.
type BrokerConfig struct {
	Type    string `yaml:"type"` // memory | webhook | stdout
	URL     string `yaml:"url"`  // for webhook
	Retries int    `yaml:"retries"`
}

// HTTPConfig controls the JSON API listener.
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	MaxBody int64  `yaml:"max_body"`
}

// CodecConfig controls how snapshot fields are interpreted on apply.
type CodecConfig struct {
	Presence string `yaml:"presence"` // strict | truthy
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Document.Source == "" {
		c.Document.Source = "file"
	}
	if c.Document.Sanitize == "" {
		c.Document.Sanitize = "none"
	}
	if c.Document.Timeout <= 0 {
		c.Document.Timeout = 30 * time.Second
	}
	if len(c.Brokers) == 0 {
		c.Brokers = []BrokerConfig{{Type: "memory"}}
	}
	for i := range c.Brokers {
		if c.Brokers[i].Type == "webhook" && c.Brokers[i].Retries <= 0 {
			c.Brokers[i].Retries = 3
		}
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxBody <= 0 {
		c.HTTP.MaxBody = 1 << 20
	}
	if c.Codec.Presence == "" {
		c.Codec.Presence = "strict"
	}
}

func (c *Config) validate() error {
	switch c.Document.Source {
	case "file":
		if c.Document.Path == "" {
			return fmt.Errorf("config: document.path required for source file")
		}
	case "browser":
		if c.Document.URL == "" {
			return fmt.Errorf("config: document.url required for source browser")
		}
	default:
		return fmt.Errorf("config: unknown document.source %q", c.Document.Source)
	}
	switch c.Document.Sanitize {
	case "none", "ugc", "strict":
	default:
		return fmt.Errorf("config: unknown document.sanitize %q", c.Document.Sanitize)
	}
	for i, b := range c.Brokers {
		switch b.Type {
		case "memory", "stdout":
		case "webhook":
			if b.URL == "" {
				return fmt.Errorf("config: brokers[%d]: webhook needs url", i)
			}
		default:
			return fmt.Errorf("config: brokers[%d]: unknown type %q", i, b.Type)
		}
	}
	return nil
}
