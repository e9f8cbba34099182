// Package config loads the snowflake CLI and server configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env. NodeID values
// above snowflake.MaxNodeID are replaced by a random node; negative values
// select the degraded no-node layout. StatePath, when set, names the file
// backing shared cross-process state. A non-zero ObfuscationKey is XORed
// into every ID the CLI and server print or parse.
type Config struct {
	NodeID         int64    `yaml:"nodeId" json:"nodeId"`
	StatePath      string   `yaml:"statePath" json:"statePath"`
	Postgres       Postgres `yaml:"postgres" json:"postgres"`
	Format         string   `yaml:"format" json:"format"`
	ObfuscationKey int64    `yaml:"obfuscationKey" json:"obfuscationKey"`
	Log            Log      `yaml:"log" json:"log"`
	HTTP           HTTP     `yaml:"http" json:"http"`
}

// Postgres configures the database accelerated backend.
type Postgres struct {
	DSN     string `yaml:"dsn" json:"dsn"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type HTTP struct {
	Addr    string `yaml:"addr" json:"addr"`
	MaxMint int    `yaml:"maxMint" json:"maxMint"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Format: "base58",
		Postgres: Postgres{
			Timeout: "5s",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTP{
			Addr:    ":8080",
			MaxMint: 1000,
		},
	}
}

// Load reads configuration from a YAML or JSON file (by extension) on top of
// Default. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		err = yaml.Unmarshal(b, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
