package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers accepted by storage.driver.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageBadger = "badger"
	StorageValkey = "valkey"
	StorageR2     = "r2"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	LLM           LLMConfig           `yaml:"llm"`
	Recommend     RecommendConfig     `yaml:"recommend"`
	Storage       StorageConfig       `yaml:"storage"`
	Profile       ProfileConfig       `yaml:"profile"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains ChatGPT/OpenAI settings. An empty APIKey is allowed:
// recommendation fetches then report a configuration warning.
type LLMConfig struct {
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseUrl"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxTokens         int           `yaml:"maxTokens"`
	PromptTokenBudget int           `yaml:"promptTokenBudget"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the upstream circuit breaker.
type BreakerConfig struct {
	Failures uint32        `yaml:"failures"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RecommendConfig controls the refresh coordinator.
type RecommendConfig struct {
	DebounceDelay   time.Duration `yaml:"debounceDelay"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	RecentWindow    time.Duration `yaml:"recentWindow"`
	ResultCount     int           `yaml:"resultCount"`
	ActivityLimit   int           `yaml:"activityLimit"`
	CategoryTitle   string        `yaml:"categoryTitle"`
	Prompt          string        `yaml:"prompt"`
}

// StorageConfig selects where recommendation categories are persisted.
type StorageConfig struct {
	Driver string       `yaml:"driver"`
	File   FileConfig   `yaml:"file"`
	Badger BadgerConfig `yaml:"badger"`
	Valkey ValkeyConfig `yaml:"valkey"`
	R2     R2Config     `yaml:"r2"`
}

// FileConfig configures the directory-backed store.
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// BadgerConfig configures the embedded store. An empty Dir runs in memory.
type BadgerConfig struct {
	Dir string `yaml:"dir"`
}

// ValkeyConfig contains connection information for cache storage.
type ValkeyConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// R2Config points at an S3-compatible bucket.
type R2Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// ProfileConfig selects profile storage. Without a DSN profiles live in memory.
type ProfileConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// AuthConfig drives bearer token verification.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	ClientID string        `yaml:"clientId"`
	TokenTTL time.Duration `yaml:"tokenTtl"`
}

// NotificationsConfig bounds the per-user toast inbox.
type NotificationsConfig struct {
	Capacity int `yaml:"capacity"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	setInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	setInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	setBool("HTTP_RETRY_ENABLED", &cfg.HTTP.Retry.Enabled)
	setInt("HTTP_RETRY_MAX_ATTEMPTS", &cfg.HTTP.Retry.MaxAttempts)
	setDuration("HTTP_RETRY_BASE_BACKOFF", &cfg.HTTP.Retry.BaseBackoff)

	setString("LLM_API_KEY", &cfg.LLM.APIKey)
	// the provider's conventional variable is honored as well
	if cfg.LLM.APIKey == "" {
		setString("OPENAI_API_KEY", &cfg.LLM.APIKey)
	}
	setString("LLM_BASE_URL", &cfg.LLM.BaseURL)
	setString("LLM_MODEL", &cfg.LLM.Model)
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setDuration("LLM_TIMEOUT", &cfg.LLM.Timeout)
	setInt("LLM_PROMPT_TOKEN_BUDGET", &cfg.LLM.PromptTokenBudget)

	setDuration("RECOMMEND_DEBOUNCE_DELAY", &cfg.Recommend.DebounceDelay)
	setDuration("RECOMMEND_REFRESH_INTERVAL", &cfg.Recommend.RefreshInterval)
	setDuration("RECOMMEND_RECENT_WINDOW", &cfg.Recommend.RecentWindow)
	setInt("RECOMMEND_RESULT_COUNT", &cfg.Recommend.ResultCount)
	setInt("RECOMMEND_ACTIVITY_LIMIT", &cfg.Recommend.ActivityLimit)
	setString("RECOMMEND_PROMPT", &cfg.Recommend.Prompt)

	setString("STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("STORAGE_FILE_DIR", &cfg.Storage.File.Dir)
	setString("STORAGE_BADGER_DIR", &cfg.Storage.Badger.Dir)
	setString("STORAGE_VALKEY_ADDR", &cfg.Storage.Valkey.Addr)
	setDuration("STORAGE_VALKEY_TTL", &cfg.Storage.Valkey.TTL)
	setString("STORAGE_R2_ENDPOINT", &cfg.Storage.R2.Endpoint)
	setString("STORAGE_R2_ACCESS_KEY", &cfg.Storage.R2.AccessKey)
	setString("STORAGE_R2_SECRET_KEY", &cfg.Storage.R2.SecretKey)
	setString("STORAGE_R2_BUCKET", &cfg.Storage.R2.Bucket)

	setString("PROFILE_POSTGRES_DSN", &cfg.Profile.Postgres.DSN)
	if v := os.Getenv("PROFILE_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Profile.Postgres.MaxConns = int32(parsed)
		}
	}

	setString("AUTH_SECRET", &cfg.Auth.Secret)
	setString("AUTH_ISSUER", &cfg.Auth.Issuer)
	setString("AUTH_CLIENT_ID", &cfg.Auth.ClientID)
	setDuration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/recommendations/refresh",
					"/api/v1/notifications/stream",
					"/api/v1/watchlist",
				},
			},
		},
		LLM: LLMConfig{
			Model:             "gpt-4o-mini",
			Temperature:       0.7,
			Timeout:           60 * time.Second,
			MaxTokens:         2500,
			PromptTokenBudget: 3000,
			Breaker: BreakerConfig{
				Failures: 5,
				Timeout:  30 * time.Second,
			},
		},
		Recommend: RecommendConfig{
			DebounceDelay:   500 * time.Millisecond,
			RefreshInterval: 12 * time.Hour,
			RecentWindow:    5 * time.Minute,
			ResultCount:     10,
			ActivityLimit:   10,
			CategoryTitle:   "Personalized For You",
			Prompt:          "You are AniMuse, an anime recommendation assistant. Suggest titles that match the viewer's moods, tastes and recent watching, and explain each pick in one sentence.",
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
			File:   FileConfig{Dir: "data/state"},
			Valkey: ValkeyConfig{Prefix: "animuse"},
			R2:     R2Config{Region: "auto", Prefix: "state"},
		},
		Profile: ProfileConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
				MinConns: 0,
			},
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		Notifications: NotificationsConfig{
			Capacity: 20,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.PromptTokenBudget < 0 {
		return errors.New("llm.promptTokenBudget cannot be negative")
	}
	if c.Recommend.DebounceDelay <= 0 {
		return errors.New("recommend.debounceDelay must be positive")
	}
	if c.Recommend.RefreshInterval <= 0 {
		return errors.New("recommend.refreshInterval must be positive")
	}
	if c.Recommend.RecentWindow < 0 || c.Recommend.RecentWindow >= c.Recommend.RefreshInterval {
		return errors.New("recommend.recentWindow must be between 0 and refreshInterval")
	}
	if c.Recommend.ResultCount <= 0 {
		return errors.New("recommend.resultCount must be positive")
	}
	if c.Recommend.ActivityLimit < 0 {
		return errors.New("recommend.activityLimit cannot be negative")
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Auth.Issuer) == "" && strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret or auth.issuer must be set")
	}
	if c.Notifications.Capacity <= 0 {
		return errors.New("notifications.capacity must be positive")
	}
	return nil
}

func (s StorageConfig) validate() error {
	switch s.Driver {
	case StorageMemory, StorageBadger:
		return nil
	case StorageFile:
		if strings.TrimSpace(s.File.Dir) == "" {
			return errors.New("storage.file.dir cannot be empty")
		}
	case StorageValkey:
		if strings.TrimSpace(s.Valkey.Addr) == "" {
			return errors.New("storage.valkey.addr cannot be empty")
		}
	case StorageR2:
		if s.R2.Endpoint == "" || s.R2.Bucket == "" || s.R2.AccessKey == "" || s.R2.SecretKey == "" {
			return errors.New("storage.r2 requires endpoint, bucket, accessKey and secretKey")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", s.Driver)
	}
	return nil
}
