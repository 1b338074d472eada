// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration loaded from environment
// variables, with flags taking precedence.
type Config struct {
	Addr        string
	PublicURL   string
	LogLevel    string
	SendTimeout time.Duration
	IdleTimeout time.Duration
}

// LoadConfig reads configuration from the environment. A .env file is
// loaded first when present.
func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Addr:        getEnvOrDefault("DICEBOT_ADDR", ":8080"),
		PublicURL:   os.Getenv("DICEBOT_PUBLIC_URL"),
		LogLevel:    getEnvOrDefault("DICEBOT_LOG_LEVEL", "info"),
		SendTimeout: getEnvDurationOrDefault("DICEBOT_SEND_TIMEOUT", 30*time.Second),
		IdleTimeout: getEnvDurationOrDefault("DICEBOT_IDLE_TIMEOUT", 5*time.Minute),
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost" + cfg.Addr + "/"
	}
	return cfg, nil
}

// SlogLevel maps the configured level name onto a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDurationOrDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
