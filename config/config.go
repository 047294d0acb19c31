// Package config loads agentctl settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/KamdynS/go-swarm/database"
	redisstore "github.com/KamdynS/go-swarm/memory/redis"
	httpserver "github.com/KamdynS/go-swarm/server/http"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AGENTCTL_ROUTER_TYPE.
const EnvPrefix = "AGENTCTL"

// Router types.
const (
	RouterCodeBased = "code"
	RouterSwarm     = "swarm"
)

// Config is the complete application configuration
type Config struct {
	LLM        LLMConfig         `mapstructure:"llm"`
	Router     RouterConfig      `mapstructure:"router"`
	Server     httpserver.Config `mapstructure:"server"`
	Database   database.Config   `mapstructure:"database"`
	Memory     MemoryConfig      `mapstructure:"memory"`
	Tracing    TracingConfig     `mapstructure:"tracing"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Chess      ChessConfig       `mapstructure:"chess"`
	Guardrails GuardrailsConfig  `mapstructure:"guardrails"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

// LLMConfig selects the default provider. Both providers may be configured;
// agents that pin a model are routed to whichever serves it.
type LLMConfig struct {
	Provider    string         `mapstructure:"provider"` // "openai" or "anthropic"
	Model       string         `mapstructure:"model"`
	Temperature float64        `mapstructure:"temperature"`
	MaxTokens   int            `mapstructure:"max_tokens"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	MaxRetries  int            `mapstructure:"max_retries"`
	OpenAI      ProviderConfig `mapstructure:"openai"`
	Anthropic   ProviderConfig `mapstructure:"anthropic"`
}

type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// RouterConfig chooses the chat routing strategy.
type RouterConfig struct {
	Type     string `mapstructure:"type"` // "code" or "swarm"
	MaxTurns int    `mapstructure:"max_turns"`
	// Retries bounds structured-output repair attempts in the SQL skill.
	Retries int `mapstructure:"retries"`
}

type MemoryConfig struct {
	Type         string            `mapstructure:"type"` // "inmemory" or "redis"
	MaxMessages  int               `mapstructure:"max_messages"`
	HistoryLimit int               `mapstructure:"history_limit"`
	Redis        redisstore.Config `mapstructure:"redis"`
}

type TracingConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	ServiceName string            `mapstructure:"service_name"`
	ProjectName string            `mapstructure:"project_name"`
	Endpoint    string            `mapstructure:"endpoint"`
	Headers     map[string]string `mapstructure:"headers"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type ChessConfig struct {
	MaxPlies int `mapstructure:"max_plies"`
	MaxTurns int `mapstructure:"max_turns"`
	// Model overrides the LLM model for both players.
	Model string `mapstructure:"model"`
}

type GuardrailsConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	DenySubstrings  []string `mapstructure:"deny_substrings"`
	AllowSubstrings []string `mapstructure:"allow_substrings"`
	MaxInputChars   int      `mapstructure:"max_input_chars"`
	AllowedTools    []string `mapstructure:"allowed_tools"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configPath, or config.yaml from ./configs or the working
// directory when configPath is empty. A missing default file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// provider keys are usually exported under their conventional names
	_ = v.BindEnv("llm.openai.api_key", EnvPrefix+"_LLM_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.anthropic.api_key", EnvPrefix+"_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.base_url", "")

	v.SetDefault("router.type", RouterSwarm)
	v.SetDefault("router.max_turns", 10)
	v.SetDefault("router.retries", 2)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.enable_cors", false)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.rate_limit", 0.0)
	v.SetDefault("server.rate_burst", 10)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.connection", "./data/sales.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_rows", 100)

	v.SetDefault("memory.type", "inmemory")
	v.SetDefault("memory.max_messages", 200)
	v.SetDefault("memory.history_limit", 20)
	v.SetDefault("memory.redis.addr", "localhost:6379")
	v.SetDefault("memory.redis.password", "")
	v.SetDefault("memory.redis.db", 0)
	v.SetDefault("memory.redis.prefix", "goswarm")
	v.SetDefault("memory.redis.ttl", "24h")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "go-swarm")
	v.SetDefault("tracing.project_name", "")
	v.SetDefault("tracing.endpoint", "http://localhost:6006/v1/traces")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "goswarm")

	v.SetDefault("chess.max_plies", 200)
	v.SetDefault("chess.max_turns", 10)
	v.SetDefault("chess.model", "")

	v.SetDefault("guardrails.enabled", false)
	v.SetDefault("guardrails.max_input_chars", 4000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
}

// Validate checks the fields the application cannot default its way out of.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("llm.openai.api_key is required (set OPENAI_API_KEY)")
		}
	case "anthropic":
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("llm.anthropic.api_key is required (set ANTHROPIC_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}

	if c.Router.Type != RouterCodeBased && c.Router.Type != RouterSwarm {
		return fmt.Errorf("unknown router type: %q", c.Router.Type)
	}
	if c.Router.MaxTurns < 1 {
		return fmt.Errorf("router.max_turns must be positive: %d", c.Router.MaxTurns)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Database.Type {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}
	switch c.Memory.Type {
	case "inmemory":
	case "redis":
		if c.Memory.Redis.Addr == "" {
			return fmt.Errorf("memory.redis.addr is required for redis memory")
		}
	default:
		return fmt.Errorf("unknown memory type: %q", c.Memory.Type)
	}
	if c.Chess.MaxPlies < 1 {
		return fmt.Errorf("chess.max_plies must be positive: %d", c.Chess.MaxPlies)
	}
	return nil
}
