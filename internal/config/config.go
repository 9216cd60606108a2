// Package config loads client configuration from a YAML file and the
// environment. Environment variables always win over file values.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Backend
	ServerURL string
	Model     string

	// Per-call API key overrides forwarded opaquely to the backend.
	APIKeys map[string]string

	// Credential cache
	TokenFile string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the YAML layout of the optional config file at
// ~/.config/streamchat/config.yaml (or STREAMCHAT_CONFIG).
type fileConfig struct {
	ServerURL string            `yaml:"server_url"`
	Model     string            `yaml:"model"`
	APIKeys   map[string]string `yaml:"api_keys"`
	TokenFile string            `yaml:"token_file"`
	LogFile   string            `yaml:"log_file"`
	LogLevel  string            `yaml:"log_level"`
}

// Load reads configuration: defaults, then the config file, then
// environment variables.
func Load() (Config, error) {
	cfg := Config{
		ServerURL: "http://localhost:8000",
		TokenFile: defaultPath("token"),
		LogFile:   "/tmp/streamchat.log",
		LogLevel:  slog.LevelInfo,
	}

	path := os.Getenv("STREAMCHAT_CONFIG")
	if path == "" {
		path = defaultPath("config.yaml")
	}
	if err := applyFile(&cfg, path); err != nil {
		return Config{}, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyFile merges the config file into cfg. A missing file is fine;
// a malformed one is not.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if len(fc.APIKeys) > 0 {
		cfg.APIKeys = fc.APIKeys
	}
	if fc.TokenFile != "" {
		cfg.TokenFile = fc.TokenFile
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(fc.LogLevel)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServerURL = getEnv("STREAMCHAT_SERVER_URL", cfg.ServerURL)
	cfg.Model = getEnv("STREAMCHAT_MODEL", cfg.Model)
	cfg.TokenFile = getEnv("STREAMCHAT_TOKEN_FILE", cfg.TokenFile)
	cfg.LogFile = getEnv("STREAMCHAT_LOG_FILE", cfg.LogFile)
	if lvl := os.Getenv("STREAMCHAT_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = parseLogLevel(lvl)
	}
}

// defaultPath resolves a file under the user config directory,
// falling back to the working directory when the home dir is unknown.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", "streamchat", name)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
