package revive

import (
	"github.com/hazyhaar/domstate/revive/internal/config"
)

// Config is the top-level revive configuration. Re-exported from internal.
type Config = config.Config

// DocumentConfig selects the DOM source.
type DocumentConfig = config.DocumentConfig

// ArchiveConfig points at the SQLite label archive.
type ArchiveConfig = config.ArchiveConfig

// BrokerConfig defines a broker backend.
type BrokerConfig = config.BrokerConfig

// HTTPConfig controls the JSON API listener.
type HTTPConfig = config.HTTPConfig

// CodecConfig controls snapshot field interpretation.
type CodecConfig = config.CodecConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ParseConfig decodes YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}
