package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"time"
)

const (
	BackendLangChain = "langchain"
	BackendOpenAI    = "openai"
)

type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
	HTTPPort  int    `envconfig:"HTTP_PORT" default:"8080"`

	OracleBackend string        `envconfig:"ORACLE_BACKEND" default:"langchain"`
	OpenAIKey     string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL"`
	OracleTimeout time.Duration `envconfig:"ORACLE_TIMEOUT" default:"60s"`
	// OracleRPS of zero disables rate limiting.
	OracleRPS   float64 `envconfig:"ORACLE_RPS" default:"0"`
	OracleBurst int     `envconfig:"ORACLE_BURST" default:"1"`

	ToolTimeout     time.Duration `envconfig:"TOOL_TIMEOUT" default:"30s"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"5m"`
	MaxIterations   int           `envconfig:"MAX_ITERATIONS" default:"3"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"3"`
	QueryToolCap    int           `envconfig:"QUERY_TOOL_CAP" default:"3"`

	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"askbot.db"`

	SearchBaseURL    string `envconfig:"SEARCH_BASE_URL" default:"https://html.duckduckgo.com/html/"`
	NewsAPIKey       string `envconfig:"NEWS_API_KEY"`
	NewsBaseURL      string `envconfig:"NEWS_BASE_URL" default:"https://newsapi.org/v2/everything"`
	SearchMaxResults int    `envconfig:"SEARCH_MAX_RESULTS" default:"5"`

	// ToolsURL switches capability agents to a remote tool registry.
	ToolsURL string `envconfig:"TOOLS_URL"`
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.OracleBackend {
	case BackendLangChain, BackendOpenAI:
	default:
		return fmt.Errorf("ORACLE_BACKEND must be %s or %s, got %q", BackendLangChain, BackendOpenAI, c.OracleBackend)
	}
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("MAX_ITERATIONS must be at least 1")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}
	if c.QueryToolCap < 1 {
		return fmt.Errorf("QUERY_TOOL_CAP must be at least 1")
	}
	if c.ToolsURL == "" && c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	return nil
}
