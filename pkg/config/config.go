// Package config holds runtime configuration, loaded from the
// environment with eager validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	// APIKey authenticates against the Gemini API. Read from
	// GEMINI_API_KEY, falling back to GOOGLE_API_KEY.
	APIKey string

	// Model is the default chat model.
	Model string

	// ImageModel is the model used for image generation.
	ImageModel string

	// LiveModel is the native-audio model used for live sessions.
	LiveModel string

	// System is an optional system instruction applied to every turn.
	System string

	// MaxTokens caps response length. 0 leaves it to the provider
	// default.
	MaxTokens int

	// StorePath is the SQLite database location for sessions.
	StorePath string

	// MaxAttachmentBytes caps inline attachment size (decoded bytes).
	MaxAttachmentBytes int64

	// LiveVoice selects the prebuilt voice for live sessions.
	LiveVoice string

	// LiveConnectTimeout bounds the live dial + handshake.
	LiveConnectTimeout time.Duration

	// LogLevel is one of debug|info|warn|error.
	LogLevel string
}

// LoadFromEnv builds a Config from PULSE_* environment variables and
// validates it.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIKey:             firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		Model:              envOr("PULSE_MODEL", "gemini-2.5-flash"),
		ImageModel:         envOr("PULSE_IMAGE_MODEL", "gemini-2.5-flash-image"),
		LiveModel:          envOr("PULSE_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
		System:             strings.TrimSpace(os.Getenv("PULSE_SYSTEM")),
		MaxTokens:          envIntOr("PULSE_MAX_TOKENS", 0),
		StorePath:          envOr("PULSE_STORE_PATH", defaultStorePath()),
		MaxAttachmentBytes: envInt64Or("PULSE_MAX_ATTACHMENT_BYTES", 20<<20), // 20 MiB
		LiveVoice:          strings.TrimSpace(os.Getenv("PULSE_LIVE_VOICE")),
		LiveConnectTimeout: envDurationOr("PULSE_LIVE_CONNECT_TIMEOUT", 15*time.Second),
		LogLevel:           strings.ToLower(envOr("PULSE_LOG_LEVEL", "info")),
	}

	if cfg.Model == "" {
		return Config{}, fmt.Errorf("PULSE_MODEL must not be empty")
	}
	if cfg.ImageModel == "" {
		return Config{}, fmt.Errorf("PULSE_IMAGE_MODEL must not be empty")
	}
	if cfg.LiveModel == "" {
		return Config{}, fmt.Errorf("PULSE_LIVE_MODEL must not be empty")
	}
	if cfg.MaxTokens < 0 {
		return Config{}, fmt.Errorf("PULSE_MAX_TOKENS must be >= 0")
	}
	if cfg.StorePath == "" {
		return Config{}, fmt.Errorf("PULSE_STORE_PATH must not be empty")
	}
	if cfg.MaxAttachmentBytes <= 0 {
		return Config{}, fmt.Errorf("PULSE_MAX_ATTACHMENT_BYTES must be > 0")
	}
	if cfg.LiveConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("PULSE_LIVE_CONNECT_TIMEOUT must be > 0")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("PULSE_LOG_LEVEL must be one of debug|info|warn|error")
	}

	return cfg, nil
}

// RequireAPIKey returns an error naming the expected variables when the
// key is missing. Commands that never hit the API skip this check.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("missing API key (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	}
	return nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pulse.db"
	}
	return filepath.Join(home, ".gemini-pulse", "sessions.db")
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
