package config

import (
	"os"
	"strconv"
)

const (
	EnvNodeID         = "SNOWFLAKE_NODE_ID"
	EnvStatePath      = "SNOWFLAKE_STATE_PATH"
	EnvPostgresDSN    = "SNOWFLAKE_POSTGRES_DSN"
	EnvFormat         = "SNOWFLAKE_FORMAT"
	EnvObfuscationKey = "SNOWFLAKE_OBFUSCATION_KEY"
	EnvLogLevel       = "SNOWFLAKE_LOG_LEVEL"
	EnvLogFormat      = "SNOWFLAKE_LOG_FORMAT"
	EnvHTTPAddr       = "SNOWFLAKE_HTTP_ADDR"
)

// ApplyEnv overlays SNOWFLAKE_* environment variables onto cfg. Unparseable
// numbers are ignored.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvNodeID); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.NodeID = n
		}
	}
	if v := os.Getenv(EnvStatePath); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv(EnvObfuscationKey); v != "" {
		// base prefix allowed, e.g. 0x5DEECE66D
		if n, err := strconv.ParseInt(v, 0, 64); err == nil {
			cfg.ObfuscationKey = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTP.Addr = v
	}
}
