package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the binding engine.
// Values come from config.yaml; environment variables override them.
// Secrets (passwords, API keys, DSNs with credentials) only come from the environment.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // derived from Port if empty
	Version  string `yaml:"-"`                                      // set at load time

	Database    DatabaseConfig    `yaml:"database"`
	EntityStore EntityStoreConfig `yaml:"entity_store"`
	Redis       RedisConfig       `yaml:"redis"`
	AI          AIConfig          `yaml:"ai"`
	Binding     BindingConfig     `yaml:"binding"`
}

// DatabaseConfig holds the engine's PostgreSQL settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"engine"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"document_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// EntityStoreConfig selects where entity records are read from.
// An empty DSN with type postgres reuses the engine database.
type EntityStoreConfig struct {
	Type         string `yaml:"type" env:"ENTITY_STORE_TYPE" env-default:"postgres"`
	DSN          string `yaml:"-" env:"ENTITY_STORE_DSN"` // Secret - not in YAML
	MaxOpenConns int    `yaml:"max_open_conns" env:"ENTITY_STORE_MAX_OPEN_CONNS" env-default:"10"`
}

// RedisConfig configures the shared binding-set cache. An empty host disables it.
type RedisConfig struct {
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int           `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"10m"`
}

// AIConfig configures the assisting model. An empty provider disables it and
// every model-assisted step falls back to its deterministic path.
type AIConfig struct {
	Provider            string        `yaml:"provider" env:"AI_PROVIDER" env-default:""`
	BaseURL             string        `yaml:"base_url" env:"AI_BASE_URL" env-default:""`
	Model               string        `yaml:"model" env:"AI_MODEL" env-default:""`
	APIKey              string        `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	MaxTokens           int           `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"2000"`
	SuggestionTimeout   time.Duration `yaml:"suggestion_timeout" env:"AI_SUGGESTION_TIMEOUT" env-default:"20s"`
	SyntheticTimeout    time.Duration `yaml:"synthetic_timeout" env:"AI_SYNTHETIC_TIMEOUT" env-default:"3s"`
	MaxConcurrent       int           `yaml:"max_concurrent" env:"AI_MAX_CONCURRENT" env-default:"8"`
	RequestsPerSecond   float64       `yaml:"requests_per_second" env:"AI_REQUESTS_PER_SECOND" env-default:"5"`
	BreakerThreshold    int           `yaml:"breaker_threshold" env:"AI_BREAKER_THRESHOLD" env-default:"5"`
	BreakerReset        time.Duration `yaml:"breaker_reset" env:"AI_BREAKER_RESET" env-default:"30s"`
	SyntheticEnrichment bool          `yaml:"synthetic_enrichment" env:"AI_SYNTHETIC_ENRICHMENT" env-default:"false"`
}

// Enabled reports whether a provider is configured.
func (c *AIConfig) Enabled() bool {
	return c.Provider != ""
}

// BindingConfig tunes suggestion and binding storage.
type BindingConfig struct {
	RulesFile           string `yaml:"rules_file" env:"BINDING_RULES_FILE" env-default:""`
	SuggestionBatchSize int    `yaml:"suggestion_batch_size" env:"BINDING_SUGGESTION_BATCH_SIZE" env-default:"25"`
	CacheSize           int    `yaml:"cache_size" env:"BINDING_CACHE_SIZE" env-default:"256"`
}

// Supported values for provider-like settings.
var (
	supportedAIProviders  = []string{"", "openai", "anthropic"}
	supportedEntityStores = []string{"postgres", "mssql"}
)

// Load reads config.yaml with environment overrides and validates the result.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{Scheme: "http", Host: "localhost:" + cfg.Port}).String()
	}
	return cfg, nil
}

// Validate checks enumerations and durations.
func (c *Config) Validate() error {
	var problems []string

	if !contains(supportedAIProviders, c.AI.Provider) {
		problems = append(problems, fmt.Sprintf("ai.provider %q is not one of openai, anthropic", c.AI.Provider))
	}
	if !contains(supportedEntityStores, c.EntityStore.Type) {
		problems = append(problems, fmt.Sprintf("entity_store.type %q is not one of %s",
			c.EntityStore.Type, strings.Join(supportedEntityStores, ", ")))
	}
	if c.EntityStore.Type == "mssql" && c.EntityStore.DSN == "" {
		problems = append(problems, "entity_store.type mssql requires ENTITY_STORE_DSN")
	}
	if c.AI.Enabled() && c.AI.Model == "" {
		problems = append(problems, "ai.model is required when ai.provider is set")
	}
	if c.AI.SuggestionTimeout <= 0 {
		problems = append(problems, "ai.suggestion_timeout must be positive")
	}
	if c.AI.SyntheticTimeout <= 0 {
		problems = append(problems, "ai.synthetic_timeout must be positive")
	}
	if c.AI.BreakerReset <= 0 {
		problems = append(problems, "ai.breaker_reset must be positive")
	}
	if c.AI.MaxConcurrent < 1 {
		problems = append(problems, "ai.max_concurrent must be at least 1")
	}
	if c.AI.MaxTokens < 1 {
		problems = append(problems, "ai.max_tokens must be at least 1")
	}
	if c.AI.RequestsPerSecond <= 0 {
		problems = append(problems, "ai.requests_per_second must be positive")
	}
	if c.Binding.SuggestionBatchSize < 1 {
		problems = append(problems, "binding.suggestion_batch_size must be at least 1")
	}
	if c.Binding.CacheSize < 1 {
		problems = append(problems, "binding.cache_size must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// ConnectionString returns a PostgreSQL URL with escaped credentials.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		ResolveHostForDocker(c.Host), c.Port,
		url.QueryEscape(c.Database), c.SSLMode,
	)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
