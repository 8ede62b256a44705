package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Redis     RedisConfig     `json:"redis"`
	Postgres  PostgresConfig  `json:"postgres"`
	Session   SessionConfig   `json:"session"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Redactor  RedactorConfig  `json:"redactor"`

	TenantTokensPath    string   `json:"tenant_tokens_path"`
	Flag                string   `json:"flag"`
	UnprotectedPrefixes []string `json:"unprotected_prefixes"`
	RedactedPrefixes    []string `json:"redacted_prefixes"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type SessionConfig struct {
	Secret       string `json:"secret"`
	Issuer       string `json:"issuer"`
	TTLSeconds   int    `json:"ttl_seconds"`
	CookieName   string `json:"cookie_name"`
	CookieSecure bool   `json:"cookie_secure"`
}

type RateLimitConfig struct {
	WindowSeconds      int     `json:"window_seconds"`
	MaxRequests        int     `json:"max_requests"`
	MinIntervalSeconds float64 `json:"min_interval_seconds"`
}

type RedactorConfig struct {
	Enabled         bool   `json:"enabled"`
	BaseURL         string `json:"base_url"`
	APIKey          string `json:"api_key"`
	Model           string `json:"model"`
	SystemPrompt    string `json:"system_prompt"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
	MaxOutputTokens int    `json:"max_output_tokens"`
	CacheSize       int    `json:"cache_size"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	CacheMaxBody    int    `json:"cache_max_body"`
}

// Loads configuration from an optional JSON file, then applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	config := defaults()

	if file, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(file, config); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	config.applyEnv()

	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "5000",
			Environment: "development",
		},
		Redis: RedisConfig{
			Port:   "6379",
			Prefix: "aifraud",
		},
		Session: SessionConfig{
			Issuer:     "ai-fraud-challenge",
			TTLSeconds: 86400,
			CookieName: "team_session",
		},
		RateLimit: RateLimitConfig{
			WindowSeconds:      600,
			MaxRequests:        50,
			MinIntervalSeconds: 3,
		},
		Redactor: RedactorConfig{
			Enabled:         true,
			BaseURL:         "https://openrouter.ai/api/v1",
			Model:           "meta-llama/llama-3.1-70b-instruct",
			TimeoutSeconds:  8,
			MaxOutputTokens: 4096,
			CacheSize:       256,
			CacheTTLSeconds: 300,
			CacheMaxBody:    131072, // 128 KiB
		},
		TenantTokensPath:    "team_tokens.json",
		UnprotectedPrefixes: []string{"/auth", "/health", "/hint"},
		RedactedPrefixes:    []string{"/users", "/search", "/export"},
	}
}

func (c *Config) applyEnv() {
	envString(&c.Server.Port, "PORT")
	envString(&c.Server.Environment, "ENVIRONMENT")

	envString(&c.Redis.Host, "REDIS_HOST")
	envString(&c.Redis.Port, "REDIS_PORT")
	envString(&c.Redis.Password, "REDIS_PASSWORD")
	envInt(&c.Redis.DB, "REDIS_DB")
	envString(&c.Redis.Prefix, "REDIS_PREFIX")

	envString(&c.Postgres.DSN, "DATABASE_DSN")

	envString(&c.Session.Secret, "JWT_SECRET")
	envString(&c.Session.Issuer, "JWT_ISSUER")
	envInt(&c.Session.TTLSeconds, "JWT_EXP_SECONDS")
	envString(&c.Session.CookieName, "JWT_COOKIE_NAME")
	envBool(&c.Session.CookieSecure, "JWT_COOKIE_SECURE")

	envInt(&c.RateLimit.WindowSeconds, "RATE_LIMIT_WINDOW_SECONDS")
	envInt(&c.RateLimit.MaxRequests, "RATE_LIMIT_MAX_REQUESTS")
	envFloat(&c.RateLimit.MinIntervalSeconds, "RATE_LIMIT_MIN_INTERVAL")

	envBool(&c.Redactor.Enabled, "AI_FILTER_ENABLED")
	envString(&c.Redactor.BaseURL, "OPENROUTER_BASE_URL")
	envString(&c.Redactor.APIKey, "OPENROUTER_API_KEY")
	envString(&c.Redactor.Model, "AI_FILTER_MODEL")
	envString(&c.Redactor.SystemPrompt, "AI_FILTER_SYSTEM_PROMPT")
	envInt(&c.Redactor.TimeoutSeconds, "AI_FILTER_TIMEOUT")
	envInt(&c.Redactor.MaxOutputTokens, "AI_FILTER_MAX_TOKENS")
	envInt(&c.Redactor.CacheSize, "AI_FILTER_CACHE_SIZE")
	envInt(&c.Redactor.CacheTTLSeconds, "AI_FILTER_CACHE_TTL")
	envInt(&c.Redactor.CacheMaxBody, "AI_FILTER_CACHE_MAX_BODY")

	envString(&c.TenantTokensPath, "TEAM_TOKENS_PATH")
	envString(&c.Flag, "FLAG")
}

func (c *RedisConfig) GetRedisAddr() string {
	return c.Host + ":" + c.Port
}

// Redis is optional; an empty host selects the in-process fallbacks.
func (c *RedisConfig) Configured() bool {
	return c.Host != ""
}

func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c *RateLimitConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalSeconds * float64(time.Second))
}

func (c *RedactorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *RedactorConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			*dst = true
		default:
			*dst = false
		}
	}
}
