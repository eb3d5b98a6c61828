// Package config loads runtime configuration for the serve and mcp
// commands from a config file, SWITCHBACK_* environment variables, and
// bound CLI flags, in ascending precedence.
package config

import "github.com/spf13/viper"

// Config holds every setting the server commands understand. Values are
// populated from .switchback.yaml, SWITCHBACK_* env vars, and flags.
type Config struct {
	// Port is the HTTP listen port of the serve command.
	Port int `mapstructure:"port"`

	// RedisAddr switches snapshot persistence from the in-memory store
	// to redis when non-empty ("host:port").
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// SnapshotKey enables snapshot encryption at rest: 64 hex characters
	// decoding to a 32-byte AES-256 key.
	SnapshotKey string `mapstructure:"snapshot_key"`

	// RedactParams lists regular expressions; params whose key matches
	// any of them are masked before snapshots leave the process.
	RedactParams []string `mapstructure:"redact_params"`

	// MCPTransport selects how the mcp command serves: stdio or sse.
	MCPTransport string `mapstructure:"mcp_transport"`
	MCPPort      int    `mapstructure:"mcp_port"`
}

// Load reads configuration from viper, applying built-in defaults for
// any values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("port", 8080)
	viper.SetDefault("redis_addr", "")
	viper.SetDefault("redis_password", "")
	viper.SetDefault("redis_db", 0)
	viper.SetDefault("snapshot_key", "")
	viper.SetDefault("redact_params", []string{})
	viper.SetDefault("mcp_transport", "stdio")
	viper.SetDefault("mcp_port", 8081)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
