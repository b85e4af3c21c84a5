package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr        = "127.0.0.1:8614"
	defaultShutdownTimeout = 5 * time.Second
	defaultBaseURL         = "https://openrouter.ai/api/v1"
	defaultModel           = "google/gemini-3-flash-preview"
	defaultStreamTimeout   = 2 * time.Minute

	// DefaultMaxIterations bounds the agent loop. Reaching it is a
	// warning, not an error: the last-known draft is still returned.
	DefaultMaxIterations = 25
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Config is built once in main and passed by reference; there are no
// lazily initialized globals behind it.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	APIKey        string
	BaseURL       string
	Model         string
	MaxIterations int
	StreamTimeout time.Duration

	DBPath string

	LogLevel  slog.Level
	LogFormat LogFormat
}

// Load reads runtime configuration from ATELIER_* environment variables.
func Load() (Config, error) {
	cfg := Default()

	if addr := strings.TrimSpace(os.Getenv("ATELIER_HTTP_ADDR")); addr != "" {
		cfg.HTTPAddr = addr
	}
	if timeout := strings.TrimSpace(os.Getenv("ATELIER_SHUTDOWN_TIMEOUT")); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse ATELIER_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = parsed
	}
	if key := strings.TrimSpace(os.Getenv("ATELIER_API_KEY")); key != "" {
		cfg.APIKey = key
	} else if key := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")); key != "" {
		cfg.APIKey = key
	}
	if url := strings.TrimSpace(os.Getenv("ATELIER_BASE_URL")); url != "" {
		cfg.BaseURL = url
	}
	if model := strings.TrimSpace(os.Getenv("ATELIER_MODEL")); model != "" {
		cfg.Model = model
	}
	if raw := strings.TrimSpace(os.Getenv("ATELIER_MAX_ITERATIONS")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse ATELIER_MAX_ITERATIONS: %w", err)
		}
		cfg.MaxIterations = parsed
	}
	if timeout := strings.TrimSpace(os.Getenv("ATELIER_STREAM_TIMEOUT")); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse ATELIER_STREAM_TIMEOUT: %w", err)
		}
		cfg.StreamTimeout = parsed
	}
	if path := strings.TrimSpace(os.Getenv("ATELIER_DB_PATH")); path != "" {
		cfg.DBPath = path
	}
	if level := strings.TrimSpace(os.Getenv("ATELIER_LOG_LEVEL")); level != "" {
		parsed, err := parseLogLevel(level)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = parsed
	}
	if format := strings.TrimSpace(os.Getenv("ATELIER_LOG_FORMAT")); format != "" {
		parsed, err := parseLogFormat(format)
		if err != nil {
			return Config{}, err
		}
		cfg.LogFormat = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Default() Config {
	return Config{
		HTTPAddr:        defaultHTTPAddr,
		ShutdownTimeout: defaultShutdownTimeout,
		BaseURL:         defaultBaseURL,
		Model:           defaultModel,
		MaxIterations:   DefaultMaxIterations,
		StreamTimeout:   defaultStreamTimeout,
		DBPath:          defaultDBPath(),
		LogLevel:        slog.LevelInfo,
		LogFormat:       LogFormatText,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("validate config: empty ATELIER_HTTP_ADDR")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("validate config: ATELIER_SHUTDOWN_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("validate config: empty ATELIER_BASE_URL")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("validate config: empty ATELIER_MODEL")
	}
	if c.MaxIterations <= 0 {
		return errors.New("validate config: ATELIER_MAX_ITERATIONS must be > 0")
	}
	if c.StreamTimeout <= 0 {
		return errors.New("validate config: ATELIER_STREAM_TIMEOUT must be > 0")
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf(
			"validate config: unsupported ATELIER_LOG_FORMAT %q (allowed: %q, %q)",
			c.LogFormat, LogFormatText, LogFormatJSON,
		)
	}
	return nil
}

func defaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "atelier.db"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "atelier", "atelier.db")
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("parse ATELIER_LOG_LEVEL: unsupported value %q", input)
	}
}

func parseLogFormat(input string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("parse ATELIER_LOG_FORMAT: unsupported value %q", input)
	}
}
