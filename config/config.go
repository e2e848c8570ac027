package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the itinerary service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig configures the chat-completions endpoint that drives the agent.
type LLMConfig struct {
	Type          string        `mapstructure:"type"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	APIKey        string        `mapstructure:"api_key"`
	APIKeyEnv     string        `mapstructure:"api_key_env"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Credential resolves the API key, preferring the explicit value.
func (l LLMConfig) Credential() string {
	if strings.TrimSpace(l.APIKey) != "" {
		return strings.TrimSpace(l.APIKey)
	}
	if l.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(l.APIKeyEnv))
}

func (l LLMConfig) Validate() error {
	switch l.Type {
	case "", "openai":
	default:
		return &ConfigurationError{Key: "llm.type", Reason: fmt.Sprintf("unsupported provider %q (only \"openai\" compatible endpoints)", l.Type)}
	}
	if strings.TrimSpace(l.Model) == "" {
		return &ConfigurationError{Key: "llm.model", Reason: "must not be empty"}
	}
	if l.MaxToolRounds <= 0 {
		return &ConfigurationError{Key: "llm.max_tool_rounds", Reason: "must be greater than zero"}
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return &ConfigurationError{Key: "llm.temperature", Reason: "must be within [0,2]"}
	}
	return nil
}

// ToolsConfig describes how the web-fetch tool server is launched and how it fetches.
type ToolsConfig struct {
	Command      string        `mapstructure:"command"`
	Args         []string      `mapstructure:"args"`
	Fetcher      string        `mapstructure:"fetcher"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxChars     int           `mapstructure:"max_chars"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// ResolveCommand returns the command line for the tool server. When none is
// configured the running binary is re-executed with the "mcp" subcommand,
// reading the same config file as the parent when configPath is set.
func (t ToolsConfig) ResolveCommand(configPath string) (string, []string, error) {
	if strings.TrimSpace(t.Command) != "" {
		return t.Command, t.Args, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", nil, fmt.Errorf("resolve executable: %w", err)
	}
	args := []string{"mcp"}
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return "", nil, fmt.Errorf("resolve config path: %w", err)
		}
		args = append(args, "--config", abs)
	}
	return exe, args, nil
}

func (t ToolsConfig) Validate() error {
	switch t.Fetcher {
	case "http", "chromedp":
	default:
		return &ConfigurationError{Key: "tools.fetcher", Reason: fmt.Sprintf("unsupported fetcher %q", t.Fetcher)}
	}
	if t.FetchTimeout <= 0 {
		return &ConfigurationError{Key: "tools.fetch_timeout", Reason: "must be greater than zero"}
	}
	return nil
}

// AgentsConfig controls how background jobs run.
type AgentsConfig struct {
	JobTimeout     time.Duration `mapstructure:"job_timeout"`
	DedupeInflight bool          `mapstructure:"dedupe_inflight"`
}

// StorageConfig selects and configures the result cache backend
type StorageConfig struct {
	Cache CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	Backend  string         `mapstructure:"backend"`
	File     FileConfig     `mapstructure:"file"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

func (c CacheConfig) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "file":
		if strings.TrimSpace(c.File.Dir) == "" {
			return &ConfigurationError{Key: "storage.cache.file.dir", Reason: "required for file backend"}
		}
		return nil
	case "redis":
		return c.Redis.Validate()
	case "postgres":
		return c.Postgres.Validate()
	default:
		return &ConfigurationError{Key: "storage.cache.backend", Reason: fmt.Sprintf("unsupported backend %q", c.Backend)}
	}
}

// FileConfig contains file storage settings
type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return &ConfigurationError{Key: "storage.cache.redis.host", Reason: "required"}
	}
	if strings.TrimSpace(r.Port) == "" {
		return &ConfigurationError{Key: "storage.cache.redis.port", Reason: "required"}
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL        string        `mapstructure:"url"`
	Host       string        `mapstructure:"host"`
	Port       string        `mapstructure:"port"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	DBName     string        `mapstructure:"dbname"`
	SSLMode    string        `mapstructure:"sslmode"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Migrations string        `mapstructure:"migrations"`
}

// DSN builds a connection string, preferring URL when set.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return &ConfigurationError{Key: "storage.cache.postgres.host", Reason: "required when url is not provided"}
	}
	if strings.TrimSpace(p.DBName) == "" {
		return &ConfigurationError{Key: "storage.cache.postgres.dbname", Reason: "required when url is not provided"}
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	switch strings.ToLower(c.General.LogFormat) {
	case "json", "console", "":
	default:
		return &ConfigurationError{Key: "general.log_format", Reason: fmt.Sprintf("unsupported format %q", c.General.LogFormat)}
	}
	if strings.TrimSpace(c.Server.Address) == "" {
		return &ConfigurationError{Key: "server.address", Reason: "must not be empty"}
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Tools.Validate(); err != nil {
		return err
	}
	if c.Agents.JobTimeout < 0 {
		return &ConfigurationError{Key: "agents.job_timeout", Reason: "must not be negative"}
	}
	return c.Storage.Cache.Validate()
}

// RequireCredential fails when no LLM API key can be resolved. Commands that
// call the model invoke it at startup.
func (c *Config) RequireCredential() error {
	if c.LLM.Credential() != "" {
		return nil
	}
	key := "llm.api_key"
	if c.LLM.APIKeyEnv != "" {
		key = c.LLM.APIKeyEnv
	}
	return &ConfigurationError{Key: key, Reason: "API credential is not set"}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_format", "console")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("llm.type", "openai")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_env", "GROQ_API_KEY")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.max_tool_rounds", 8)
	v.SetDefault("llm.timeout", 0)
	v.SetDefault("tools.command", "")
	v.SetDefault("tools.args", []string{})
	v.SetDefault("tools.fetcher", "http")
	v.SetDefault("tools.fetch_timeout", 30*time.Second)
	v.SetDefault("tools.max_chars", 20000)
	v.SetDefault("tools.user_agent", "itinerary-fetch/1.0 (+https://github.com/mohammad-safakhou/itinerary)")
	v.SetDefault("agents.job_timeout", 0)
	v.SetDefault("agents.dedupe_inflight", false)
	v.SetDefault("storage.cache.backend", "file")
	v.SetDefault("storage.cache.file.dir", "cache")
	v.SetDefault("storage.cache.redis.host", "localhost")
	v.SetDefault("storage.cache.redis.port", "6379")
	v.SetDefault("storage.cache.redis.prefix", "itinerary:cache:")
	v.SetDefault("storage.cache.redis.timeout", 5*time.Second)
	v.SetDefault("storage.cache.postgres.timeout", 5*time.Second)
	v.SetDefault("storage.cache.postgres.migrations", "file://migrations")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "itinerary")
}

// LoadConfig reads config.json (if any), .env and ITINERARY_* environment
// variables. A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)
	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("ITINERARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile() {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}
