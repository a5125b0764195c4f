// Package config loads fovtutor's runtime configuration the way the
// teacher's internal/config.Load does: environment variables (optionally
// from a .env file via godotenv.Overload), no YAML file read, integers
// parsed defensively and defaults applied after.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ObsConfig controls the OpenTelemetry exporters internal/observability
// wires up, mirroring the teacher's TelemetryConfig shape.
type ObsConfig struct {
	OTLP           string
	ServiceName    string
	ServiceVersion string
	Environment    string
	LogLevel       string
}

// AnthropicConfig configures llm/anthropic.New.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIConfig configures llm/openai.New.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GoogleConfig configures llm/google.New.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// PostgresConfig configures curriculum/pgadapter.New.
type PostgresConfig struct {
	ConnectionString string
}

// RedisConfig configures curriculum/rediscache.Wrap.
type RedisConfig struct {
	Addr                  string
	Password              string
	DB                    int
	Enabled               bool
	TTL                   time.Duration
	TLSInsecureSkipVerify bool
}

// QdrantConfig configures curriculum/vectoradapter.New.
type QdrantConfig struct {
	Addr       string
	Collection string
	APIKey     string
}

// MCPConfig configures curriculum/mcpadapter.Connect: a curriculum server
// reached over the Model Context Protocol.
type MCPConfig struct {
	ServerCommand string
	ServerArgs    []string
}

// HTTPCurriculumConfig configures curriculum/httpadapter.New: a host
// curriculum API reached over REST with OAuth2 client-credentials.
type HTTPCurriculumConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Config is fovtutor's complete runtime configuration.
type Config struct {
	LogLevel  string
	LogPath   string
	Summarizer struct {
		Provider string // "anthropic" | "openai" | "google"
		Model    string
	}

	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Google    GoogleConfig

	Postgres PostgresConfig
	Redis    RedisConfig
	Qdrant   QdrantConfig
	MCP      MCPConfig
	HTTP     HTTPCurriculumConfig

	OTel ObsConfig
}

// Load reads configuration from environment variables, overlaying a .env
// file if present (godotenv.Overload, matching the teacher's loader).
func Load() (Config, error) {
	_ = godotenv.Overload()

	var cfg Config

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))

	cfg.Summarizer.Provider = strings.TrimSpace(os.Getenv("SUMMARIZER_PROVIDER"))
	cfg.Summarizer.Model = strings.TrimSpace(os.Getenv("SUMMARIZER_MODEL"))

	cfg.Anthropic.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.Anthropic.Model = strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	cfg.Anthropic.BaseURL = strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL"))

	cfg.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.OpenAI.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	cfg.OpenAI.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))

	cfg.Google.APIKey = strings.TrimSpace(os.Getenv("GOOGLE_LLM_API_KEY"))
	cfg.Google.Model = strings.TrimSpace(os.Getenv("GOOGLE_LLM_MODEL"))

	cfg.Postgres.ConnectionString = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.Redis.Password = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))
	cfg.Redis.Enabled = cfg.Redis.Addr != ""
	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	cfg.Redis.TTL = 10 * time.Minute
	if v := strings.TrimSpace(os.Getenv("REDIS_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Redis.TTL = time.Duration(n) * time.Second
		}
	}
	cfg.Redis.TLSInsecureSkipVerify = strings.EqualFold(strings.TrimSpace(os.Getenv("REDIS_TLS_INSECURE_SKIP_VERIFY")), "true")

	cfg.Qdrant.Addr = strings.TrimSpace(os.Getenv("QDRANT_ADDR"))
	cfg.Qdrant.Collection = strings.TrimSpace(os.Getenv("QDRANT_COLLECTION"))
	cfg.Qdrant.APIKey = strings.TrimSpace(os.Getenv("QDRANT_API_KEY"))
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "fovtutor-curriculum"
	}

	cfg.MCP.ServerCommand = strings.TrimSpace(os.Getenv("CURRICULUM_MCP_COMMAND"))
	if args := strings.TrimSpace(os.Getenv("CURRICULUM_MCP_ARGS")); args != "" {
		cfg.MCP.ServerArgs = strings.Fields(args)
	}

	cfg.HTTP.BaseURL = strings.TrimSpace(os.Getenv("CURRICULUM_HTTP_BASE_URL"))
	cfg.HTTP.ClientID = strings.TrimSpace(os.Getenv("CURRICULUM_HTTP_CLIENT_ID"))
	cfg.HTTP.ClientSecret = strings.TrimSpace(os.Getenv("CURRICULUM_HTTP_CLIENT_SECRET"))
	cfg.HTTP.TokenURL = strings.TrimSpace(os.Getenv("CURRICULUM_HTTP_TOKEN_URL"))

	cfg.OTel.OTLP = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	cfg.OTel.ServiceName = strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME"))
	cfg.OTel.ServiceVersion = strings.TrimSpace(os.Getenv("OTEL_SERVICE_VERSION"))
	cfg.OTel.Environment = strings.TrimSpace(os.Getenv("OTEL_ENVIRONMENT"))
	cfg.OTel.LogLevel = cfg.LogLevel

	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "fovtutor"
	}
	if cfg.OTel.ServiceVersion == "" {
		cfg.OTel.ServiceVersion = "dev"
	}
	if cfg.OTel.Environment == "" {
		cfg.OTel.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
