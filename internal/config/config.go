package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"chuck/internal/utils"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.json"

var ErrKeyNotFound = errors.New("config key not found")

type Config struct {
	DSN                string            `yaml:"DSN"`
	Token              string            `yaml:"token"`
	AlexAPIKey         string            `yaml:"alex_api_key"`
	PerspectiveKey     string            `yaml:"perspective_key"`
	DefaultPrefix      string            `yaml:"default_prefix"`
	OwnerIDs           []string          `yaml:"owner_ids"`
	LogLevel           string            `yaml:"log_level"`
	EmbedColor         int               `yaml:"embed_color"`
	ErrorWebhookURL    string            `yaml:"error_webhook_url"`
	PasteURL           string            `yaml:"paste_url"`
	SupportInvite      string            `yaml:"support_invite"`
	Maintenance        bool              `yaml:"maintenance"`
	Blacklist          map[string]string `yaml:"blacklist"`
	HTTPTimeoutSeconds int               `yaml:"http_timeout_seconds"`
	TracebackLimit     int               `yaml:"traceback_limit"`
	ImageAPIURL        string            `yaml:"image_api_url"`
	AnimePicsURL       string            `yaml:"anime_pics_url"`
	Health             HealthConfig      `yaml:"health"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func DefaultConfig() Config {
	return Config{
		DefaultPrefix:      "p!",
		LogLevel:           "info",
		EmbedColor:         0x89CFF0,
		PasteURL:           "https://mystb.in",
		SupportInvite:      "",
		Blacklist:          map[string]string{},
		HTTPTimeoutSeconds: 15,
		TracebackLimit:     1700,
		ImageAPIURL:        "https://api.alexflipnote.dev",
		AnimePicsURL:       "https://waifu.pics/api/sfw",
		Health:             HealthConfig{Enabled: false, Addr: ":8080"},
	}
}

// File reads settings from a JSON document. It never caches: every call goes
// back to disk so edits are visible without a restart of the reader.
type File struct {
	path string
}

func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Get returns a single top-level value of the config document as a string.
func (f *File) Get(key string) (string, error) {
	raw, err := f.read()
	if err != nil {
		return "", err
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

// Accessor returns a function reading key from the file on every call. A
// missing file or key yields fallback.
func (f *File) Accessor(key, fallback string) func() (string, error) {
	return func() (string, error) {
		value, err := f.Get(key)
		if errors.Is(err, ErrKeyNotFound) || errors.Is(err, os.ErrNotExist) {
			return fallback, nil
		}
		return value, err
	}
}

// Load decodes the whole document over the defaults and applies environment
// overrides. A missing file is not an error; missing credentials are.
func (f *File) Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(f.path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", f.path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	applyEnv(&cfg)
	if cfg.Token == "" {
		return Config{}, errors.New("token is required")
	}
	if cfg.DSN == "" {
		return Config{}, errors.New("DSN is required")
	}
	if cfg.DefaultPrefix == "" {
		cfg.DefaultPrefix = "p!"
	}
	if cfg.TracebackLimit <= 0 {
		cfg.TracebackLimit = 1700
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		cfg.HTTPTimeoutSeconds = 15
	}
	if cfg.Blacklist == nil {
		cfg.Blacklist = map[string]string{}
	}

	for _, endpoint := range []*string{&cfg.PasteURL, &cfg.ImageAPIURL, &cfg.AnimePicsURL} {
		normalized, err := utils.NormalizeEndpoint(*endpoint)
		if err != nil {
			return Config{}, fmt.Errorf("invalid endpoint %q: %w", *endpoint, err)
		}
		*endpoint = normalized
	}
	if cfg.ErrorWebhookURL != "" {
		if _, _, err := utils.ParseWebhookURL(cfg.ErrorWebhookURL); err != nil {
			return Config{}, fmt.Errorf("error_webhook_url: %w", err)
		}
	}

	return cfg, nil
}

func (f *File) read() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return raw, nil
}

// Load reads CONFIG_PATH (default config.json) after loading an optional .env.
// The file is returned too, for values that are read on every access.
func Load() (*File, Config, error) {
	_ = godotenv.Load()
	file := NewFile(os.Getenv("CONFIG_PATH"))
	cfg, err := file.Load()
	if err != nil {
		return nil, Config{}, err
	}
	return file, cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Token = envString("DISCORD_TOKEN", cfg.Token)
	cfg.DSN = envString("DATABASE_DSN", cfg.DSN)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultPrefix = envString("DEFAULT_PREFIX", cfg.DefaultPrefix)
	cfg.ErrorWebhookURL = envString("ERROR_WEBHOOK_URL", cfg.ErrorWebhookURL)
	cfg.Maintenance = envBool("MAINTENANCE", cfg.Maintenance)
	cfg.HTTPTimeoutSeconds = envInt("HTTP_TIMEOUT_SECONDS", cfg.HTTPTimeoutSeconds)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
