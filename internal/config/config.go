package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	AppEnv          string
	APIBaseURL      string
	WebSocketURL    string
	SessionFile     string
	LogLevel        string
	LogFormat       string
	HTTPTimeout     time.Duration
	QRDecodeTimeout time.Duration
	ReconnectDelay  time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		APIBaseURL:      getEnv("BANK_API_URL", ""),
		WebSocketURL:    getEnv("BANK_WS_URL", ""),
		SessionFile:     getEnv("SESSION_FILE", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		HTTPTimeout:     10 * time.Second,
		QRDecodeTimeout: 5 * time.Second,
		ReconnectDelay:  5 * time.Second,
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("BANK_API_URL is required")
	}
	if cfg.WebSocketURL == "" {
		return nil, fmt.Errorf("BANK_WS_URL is required")
	}

	if cfg.SessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory for session file: %w", err)
		}
		cfg.SessionFile = filepath.Join(home, ".bankapp", "session.json")
	}

	var err error
	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.QRDecodeTimeout, err = getDuration("QR_DECODE_TIMEOUT", cfg.QRDecodeTimeout); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay, err = getDuration("RECONNECT_DELAY", cfg.ReconnectDelay); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 5s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
