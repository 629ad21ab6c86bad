// Package config loads server settings from, in ascending priority:
// built-in defaults, an optional config file, environment variables
// prefixed LIGHTWEB_, and CLI flags bound by the caller. It is the
// single source of truth for both the HTTP and WebSocket server's
// tunables.
//
// Grounded on the teacher's Config/DefaultConfig/functional-options
// idiom (wsconnsrv's Config/ServerOption), generalized from a
// zero-copy/NUMA server's tunables to this server's port/timeout/
// upload settings and loaded through viper instead of being built by
// hand, since the teacher itself never wired a config-file/env loader
// for any of its Config structs.
//
// Author: momentics <momentics@gmail.com>
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the HTTP server, the WebSocket server, and
// the CLI share.
type Config struct {
	// HTTP server
	HTTPPort    int           `mapstructure:"http_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WebSocket server
	WSPort            int           `mapstructure:"ws_port"`
	MaxInactivityTime time.Duration `mapstructure:"max_inactivity_time"`
	MaxMessageSize    int           `mapstructure:"max_message_size"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// Process-wide
	UploadDir       string        `mapstructure:"upload_dir"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Default returns the built-in defaults, used as the base layer before
// a file, environment variables, or flags are applied.
func Default() *Config {
	return &Config{
		HTTPPort:          8080,
		ReadTimeout:       30 * time.Second,
		WSPort:            8081,
		MaxInactivityTime: 5 * time.Minute,
		MaxMessageSize:    16 << 20,
		HeartbeatInterval: 30 * time.Second,
		UploadDir:         "temp",
		LogLevel:          "info",
		ShutdownTimeout:   5 * time.Second,
	}
}

// Load builds a Config from defaults, then (if present) configFile,
// then LIGHTWEB_-prefixed environment variables. v may be nil, in
// which case a fresh viper.Viper is used; the CLI passes its own
// viper instance so flags bound to it (via BindPFlag) take final
// priority.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	def := Default()
	v.SetDefault("http_port", def.HTTPPort)
	v.SetDefault("read_timeout", def.ReadTimeout)
	v.SetDefault("ws_port", def.WSPort)
	v.SetDefault("max_inactivity_time", def.MaxInactivityTime)
	v.SetDefault("max_message_size", def.MaxMessageSize)
	v.SetDefault("heartbeat_interval", def.HeartbeatInterval)
	v.SetDefault("upload_dir", def.UploadDir)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("shutdown_timeout", def.ShutdownTimeout)

	v.SetEnvPrefix("LIGHTWEB")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
