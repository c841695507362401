// Package config loads runtime settings: defaults, then an optional YAML
// file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "SHELFSCAN_CONFIG"

// Config holds settings shared by cmd/api and cmd/shelfscan.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	OpenLibrary OpenLibraryConfig `yaml:"openlibrary"`
	Placeholder PlaceholderConfig `yaml:"placeholder"`
	Covers      CoversConfig      `yaml:"covers"`
	Cache       CacheConfig       `yaml:"cache"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxUploadBytes int64    `yaml:"maxUploadBytes"`
	CORSOrigins    []string `yaml:"corsOrigins"`
	RateLimitRPS   float64  `yaml:"rateLimitRps"`
	RateLimitBurst int      `yaml:"rateLimitBurst"`
}

// OpenAIConfig describes how to reach the vision model. A zero Timeout
// leaves requests bounded only by the caller's context.
type OpenAIConfig struct {
	APIKey      string        `yaml:"apiKey"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type OpenLibraryConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	CoversURL string        `yaml:"coversUrl"`
	UserAgent string        `yaml:"userAgent"`
	RPS       int           `yaml:"rps"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PlaceholderConfig struct {
	BaseURL string `yaml:"baseUrl"`
}

// CoversConfig bounds background cover resolution; 0 means one per book.
type CoversConfig struct {
	MaxInFlight int `yaml:"maxInFlight"`
}

// CacheConfig selects the resolved-cover cache: memory, redis or none.
type CacheConfig struct {
	Driver        string        `yaml:"driver"`
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"maxEntries"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 10 << 20,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		OpenAI: OpenAIConfig{
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o",
			MaxTokens:   4096,
			Temperature: 0.3,
		},
		OpenLibrary: OpenLibraryConfig{
			BaseURL:   "https://openlibrary.org",
			CoversURL: "https://covers.openlibrary.org",
			UserAgent: "shelfscan/1.0",
		},
		Placeholder: PlaceholderConfig{
			BaseURL: "https://placehold.co",
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadEnvFiles reads .env and .env.local without overriding variables
// already present in the environment.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds the configuration. A missing or malformed file named by
// SHELFSCAN_CONFIG is an error; env overrides always apply last.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.OpenAI.Endpoint, "OPENAI_ENDPOINT")
	setString(&c.Server.Addr, "APP_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Cache.Driver, "CACHE_DRIVER")
	setString(&c.Cache.RedisAddr, "REDIS_ADDR")
	setString(&c.Cache.RedisPassword, "REDIS_PASSWORD")

	if v := os.Getenv("COVERS_MAX_IN_FLIGHT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("config: COVERS_MAX_IN_FLIGHT must be a non-negative integer, got %q", v)
		}
		c.Covers.MaxInFlight = n
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
