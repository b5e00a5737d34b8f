package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// EnvBaseURL overrides base_url when set.
const EnvBaseURL = "BOOKDESK_BASE_URL"

// Config holds the bookdesk settings.
type Config struct {
	Path            string
	BaseURL         string
	StaleTime       time.Duration
	RequestTimeout  time.Duration
	RefreshInterval time.Duration
	PageSize        int
	LogFile         string
	LogLevel        string
}

const (
	defaultConfigPath      = "~/.config/bookdesk/config.toml"
	defaultBaseURL         = "http://127.0.0.1:5513"
	defaultStaleTime       = 10 * time.Second
	defaultRequestTimeout  = 15 * time.Second
	defaultRefreshInterval = 30 * time.Second
	defaultPageSize        = 10
	defaultLogFile         = "~/.local/state/bookdesk/bookdesk.log"
	defaultLogLevel        = "info"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:         defaultBaseURL,
		StaleTime:       defaultStaleTime,
		RequestTimeout:  defaultRequestTimeout,
		RefreshInterval: defaultRefreshInterval,
		PageSize:        defaultPageSize,
		LogFile:         mustExpand(defaultLogFile),
		LogLevel:        defaultLogLevel,
	}
}

// Load reads the config file at path (or the default location), falling
// back to defaults when it is missing, then applies BOOKDESK_BASE_URL.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv(os.Getenv)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BaseURL         string `toml:"base_url"`
		StaleTime       string `toml:"stale_time"`
		RequestTimeout  string `toml:"request_timeout"`
		RefreshInterval string `toml:"refresh_interval"`
		PageSize        int    `toml:"page_size"`
		LogFile         string `toml:"log_file"`
		LogLevel        string `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"stale_time", raw.StaleTime, &cfg.StaleTime},
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
		{"refresh_interval", raw.RefreshInterval, &cfg.RefreshInterval},
	} {
		if err := parseDuration(d.key, d.raw, d.dst); err != nil {
			return Config{}, err
		}
	}
	if raw.PageSize > 0 {
		cfg.PageSize = raw.PageSize
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// OverrideBaseURL applies a command-line base URL. Blank values are ignored.
func (c *Config) OverrideBaseURL(v string) {
	if v = strings.TrimSpace(v); v != "" {
		c.BaseURL = strings.TrimRight(v, "/")
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	c.OverrideBaseURL(getenv(EnvBaseURL))
}

func parseDuration(key, raw string, dst *time.Duration) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("parse %s: must be positive, got %s", key, raw)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
