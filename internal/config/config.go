// Package config resolves runtime configuration from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file in the working directory. Command-line flags in cmd/ override
// what is loaded here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fpang/toon-nation/internal/gemini"
)

// Store backends.
const (
	BackendFile = "file"
	BackendAWS  = "aws"
)

// Config holds everything a front end needs to assemble a studio.
type Config struct {
	DataDir  string
	CacheDir string

	StoreBackend string
	DynamoTable  string
	S3Bucket     string
	SSMKeyParam  string

	ImageModel string
	TextModel  string
	VideoModel string

	PollInterval time.Duration
	MaxPolls     int
	MaxDimension int

	Pro     bool
	Metrics bool

	WebAddr          string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dataDir := getEnv("TOON_DATA_DIR", filepath.Join(home, ".toon-nation"))

	cfg := &Config{
		DataDir:          dataDir,
		CacheDir:         getEnv("TOON_CACHE_DIR", filepath.Join(dataDir, "cache")),
		StoreBackend:     strings.ToLower(getEnv("TOON_STORE", BackendFile)),
		DynamoTable:      os.Getenv("TOON_DYNAMO_TABLE"),
		S3Bucket:         os.Getenv("TOON_S3_BUCKET"),
		SSMKeyParam:      os.Getenv("TOON_SSM_API_KEY_PARAM"),
		ImageModel:       getEnv("TOON_IMAGE_MODEL", gemini.ModelImage),
		TextModel:        getEnv("TOON_TEXT_MODEL", gemini.ModelText),
		VideoModel:       getEnv("TOON_VIDEO_MODEL", gemini.ModelVideo),
		PollInterval:     time.Second * time.Duration(getEnvInt("TOON_VIDEO_POLL_SECONDS", 10)),
		MaxPolls:         getEnvInt("TOON_VIDEO_MAX_POLLS", 30),
		MaxDimension:     getEnvInt("TOON_MAX_DIMENSION", 1024),
		Pro:              getEnvBool("TOON_PRO", true),
		Metrics:          getEnvBool("TOON_METRICS", false),
		WebAddr:          getEnv("TOON_WEB_ADDR", "127.0.0.1:8420"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("TOON_HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("TOON_HTTP_WRITE_TIMEOUT_SECONDS", 360)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("TOON_HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile:
	case BackendAWS:
		if c.DynamoTable == "" {
			return fmt.Errorf("TOON_DYNAMO_TABLE is required when TOON_STORE=aws")
		}
		if c.S3Bucket == "" {
			return fmt.Errorf("TOON_S3_BUCKET is required when TOON_STORE=aws")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want %q or %q)", c.StoreBackend, BackendFile, BackendAWS)
	}
	if c.MaxPolls < 1 {
		return fmt.Errorf("TOON_VIDEO_MAX_POLLS must be at least 1, got %d", c.MaxPolls)
	}
	if c.MaxDimension < 1 {
		return fmt.Errorf("TOON_MAX_DIMENSION must be positive, got %d", c.MaxDimension)
	}
	return nil
}

// CreationsDir is where the file store keeps saved creations.
func (c *Config) CreationsDir() string {
	return filepath.Join(c.DataDir, "creations")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-integer environment value")
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-boolean environment value")
	}
	return fallback
}
