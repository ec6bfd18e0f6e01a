package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/inbox-digest/")
	v.AddConfigPath("$HOME/.inbox-digest")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration instance from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvPrefix("INBOX_DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Digest policy
	v.SetDefault("digest.min_score", 35)
	v.SetDefault("digest.re_alert_interval", "12h")
	v.SetDefault("digest.max_fetch", 30)
	v.SetDefault("digest.max_low_items", 8)
	v.SetDefault("digest.snippet_limit", 800)
	v.SetDefault("digest.heartbeat", false)
	v.SetDefault("digest.ignore_domains", []string{})
	v.SetDefault("digest.priority_domains", []string{})

	// Schedule
	v.SetDefault("schedule.slots", []string{"06:00", "12:00", "18:00"})
	v.SetDefault("schedule.tolerance", "4m")
	v.SetDefault("schedule.poll_interval", "30s")
	v.SetDefault("schedule.max_sleep", "15m")
	v.SetDefault("schedule.timezone", "America/Sao_Paulo")
	v.SetDefault("schedule.policy", "catch-up")

	// Collaborator retries
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", "2s")
	v.SetDefault("retry.timeout", "30s")

	// State
	v.SetDefault("state.type", "file")
	v.SetDefault("state.ttl", "336h")
	v.SetDefault("state.file_path", "./data/state.json")
	v.SetDefault("state.sqlite_path", "./data/state.db")
	v.SetDefault("state.mysql_dsn", "user:password@tcp(localhost:3306)/inbox_digest?parseTime=true")
	v.SetDefault("state.redis_addr", "localhost:6379")
	v.SetDefault("state.redis_password", "")
	v.SetDefault("state.redis_db", 0)
	v.SetDefault("state.redis_key", "inbox-digest:state")

	// Mail source
	v.SetDefault("source.type", "gmail")
	v.SetDefault("source.gmail.token_json", "")
	v.SetDefault("source.gmail.token_file", "./token.json")
	v.SetDefault("source.gmail.credentials_file", "./credentials.json")
	v.SetDefault("source.gmail.user", "me")
	v.SetDefault("source.gmail.query", "newer_than:1d -category:promotions")
	v.SetDefault("source.imap.address", "imap.gmail.com:993")
	v.SetDefault("source.imap.username", "")
	v.SetDefault("source.imap.password", "")
	v.SetDefault("source.imap.mailbox", "INBOX")
	v.SetDefault("source.imap.since", "24h")
	v.SetDefault("source.smtp.listen_address", "127.0.0.1:10026")
	v.SetDefault("source.smtp.domain", "localhost")
	v.SetDefault("source.smtp.buffer_size", 500)

	// Delivery sink
	v.SetDefault("sink.type", "telegram")
	v.SetDefault("sink.telegram.bot_token", "")
	v.SetDefault("sink.telegram.chat_id", 0)
	v.SetDefault("sink.smtp.address", "localhost:587")
	v.SetDefault("sink.smtp.username", "")
	v.SetDefault("sink.smtp.password", "")
	v.SetDefault("sink.smtp.from", "inbox-digest@localhost")
	v.SetDefault("sink.smtp.to", []string{})
	v.SetDefault("sink.smtp.subject", "Inbox digest")
	v.SetDefault("sink.smtp.starttls", false)

	// Delegated scorer
	v.SetDefault("scorer.provider", "none")
	v.SetDefault("scorer.timeout", "15s")
	v.SetDefault("scorer.rate_limit", 1.0)
	v.SetDefault("scorer.burst", 2)
	v.SetDefault("scorer.max_body_size", 1500)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 300)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 300)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)

	// Metrics
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_address", "127.0.0.1:9464")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration.
// A single comma separated string (as set through the environment) is split.
func (c *Config) GetStringSlice(key string) []string {
	values := c.v.GetStringSlice(key)
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a single key, used by command line flags
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
