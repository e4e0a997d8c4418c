package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "config.yaml"

// maxSampleRows matches the per-table sampling cap in discovery.
const maxSampleRows = 30

// Config holds all configuration for ekaya-askdb.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	Version string `yaml:"-"` // Set at load time, not from config

	Log        LogConfig        `yaml:"log"`
	Connection ConnectionConfig `yaml:"connection"`
	Datasource DatasourceConfig `yaml:"datasource"`
	Query      QueryConfig      `yaml:"query"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	LLM        LLMConfig        `yaml:"llm"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"` // console or json
}

// ConnectionConfig is the default target database. CLI flags override it.
type ConnectionConfig struct {
	Dialect          string `yaml:"dialect" env:"ASKDB_DIALECT" env-default:""`
	Host             string `yaml:"host" env:"ASKDB_DB_HOST" env-default:""`
	Port             int    `yaml:"port" env:"ASKDB_DB_PORT" env-default:"0"`
	Database         string `yaml:"database" env:"ASKDB_DB_NAME" env-default:""`
	Username         string `yaml:"username" env:"ASKDB_DB_USER" env-default:""`
	Password         string `yaml:"-" env:"ASKDB_DB_PASSWORD"` // Secret - not in YAML
	ConnectionString string `yaml:"connection_string" env:"ASKDB_CONNECTION_STRING" env-default:""`
	SSL              bool   `yaml:"ssl" env:"ASKDB_DB_SSL" env-default:"false"`
	SchemaHint       string `yaml:"schema_hint" env:"ASKDB_SCHEMA_HINT" env-default:""`
}

// DatasourceConfig holds per-connection driver settings.
type DatasourceConfig struct {
	// ConnectAttemptTimeout bounds each connection variant a provider tries.
	ConnectAttemptTimeout time.Duration `yaml:"connect_attempt_timeout" env:"DATASOURCE_CONNECT_ATTEMPT_TIMEOUT" env-default:"5s"`
	// PoolMaxConns is the maximum number of driver connections behind one handle.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"2"`
	// DockerHostRewrite maps localhost to host.docker.internal inside a container.
	DockerHostRewrite bool `yaml:"docker_host_rewrite" env:"DATASOURCE_DOCKER_HOST_REWRITE" env-default:"true"`
}

// QueryConfig holds statement timeouts.
type QueryConfig struct {
	CatalogTimeout time.Duration `yaml:"catalog_query_timeout" env:"QUERY_CATALOG_TIMEOUT" env-default:"5s"`
	SampleTimeout  time.Duration `yaml:"sample_query_timeout" env:"QUERY_SAMPLE_TIMEOUT" env-default:"10s"`
	UserTimeout    time.Duration `yaml:"user_query_timeout" env:"QUERY_USER_TIMEOUT" env-default:"30s"`
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"QUERY_DEFAULT_TIMEOUT" env-default:"10s"`
}

// DiscoveryConfig holds the schema discovery budgets.
type DiscoveryConfig struct {
	MaxSchemas         int `yaml:"max_schemas" env:"DISCOVERY_MAX_SCHEMAS" env-default:"10"`
	MaxTablesPerSchema int `yaml:"max_tables_per_schema" env:"DISCOVERY_MAX_TABLES_PER_SCHEMA" env-default:"30"`
	MaxTablesHinted    int `yaml:"max_tables_hinted" env:"DISCOVERY_MAX_TABLES_HINTED" env-default:"100"`
	MaxColumns         int `yaml:"max_columns_per_table" env:"DISCOVERY_MAX_COLUMNS_PER_TABLE" env-default:"100"`
	SampleRows         int `yaml:"sample_rows" env:"DISCOVERY_SAMPLE_ROWS" env-default:"30"`
}

// LLMConfig selects and tunes the translator backend.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint), "anthropic" or "none".
	Provider    string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL     string        `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model       string        `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	Temperature float32       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
	MaxTokens   int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`
	Timeout     time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`

	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`    // Secret - not in YAML
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// Load reads configuration from path with environment variable overrides.
// A .env file in the working directory is loaded first when present; a
// missing config file is not an error, so environment-only setups work.
func Load(path, version string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{Version: version}
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks values that cleanenv cannot.
func (c *Config) Validate() error {
	if c.Connection.Dialect != "" {
		if _, err := models.ParseDialect(c.Connection.Dialect); err != nil {
			return fmt.Errorf("connection.dialect: %w", err)
		}
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "anthropic", "none", "":
	default:
		return fmt.Errorf("llm.provider must be openai, anthropic or none, got %q", c.LLM.Provider)
	}
	if c.Datasource.PoolMaxConns < 1 {
		return fmt.Errorf("datasource.pool_max_conns must be at least 1")
	}
	budgets := map[string]int{
		"discovery.max_schemas":           c.Discovery.MaxSchemas,
		"discovery.max_tables_per_schema": c.Discovery.MaxTablesPerSchema,
		"discovery.max_tables_hinted":     c.Discovery.MaxTablesHinted,
		"discovery.max_columns_per_table": c.Discovery.MaxColumns,
	}
	for name, v := range budgets {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}
	if c.Discovery.SampleRows < 0 || c.Discovery.SampleRows > maxSampleRows {
		return fmt.Errorf("discovery.sample_rows must be between 0 and %d", maxSampleRows)
	}
	return nil
}

// HostResolver returns the host rewrite applied before dialing.
func (c *DatasourceConfig) HostResolver() func(string) string {
	if !c.DockerHostRewrite {
		return nil
	}
	return ResolveHostForDocker
}

// ToModel converts the configured default target into a models.ConnectionConfig.
func (c *ConnectionConfig) ToModel() (*models.ConnectionConfig, error) {
	dialect, err := models.ParseDialect(c.Dialect)
	if err != nil {
		return nil, err
	}
	return &models.ConnectionConfig{
		Dialect:          dialect,
		Username:         c.Username,
		Password:         c.Password,
		ConnectionString: c.ConnectionString,
		Host:             c.Host,
		Port:             c.Port,
		Database:         c.Database,
		SSL:              c.SSL,
		SchemaHint:       c.SchemaHint,
	}, nil
}
