package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
)

// ErrEmptySchedule is returned when no notification slot is configured
var ErrEmptySchedule = errors.New("schedule.slots must contain at least one HH:MM entry")

// DigestConfig holds the classification and notification policy
type DigestConfig struct {
	MinScore        int
	ReAlertInterval time.Duration
	MaxFetch        int
	MaxLowItems     int
	SnippetLimit    int
	Heartbeat       bool
	IgnoreDomains   []string
	PriorityDomains []string
}

// ScheduleConfig holds the daily slot list
type ScheduleConfig struct {
	Slots        []string
	Tolerance    time.Duration
	PollInterval time.Duration
	MaxSleep     time.Duration
	Timezone     string
	Policy       string
}

// RetryConfig bounds every collaborator call
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// StateConfig selects the state backend
type StateConfig struct {
	Type          string
	TTL           time.Duration
	FilePath      string
	SQLitePath    string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// GmailConfig represents the configuration for the Gmail API source
type GmailConfig struct {
	TokenJSON       string
	TokenFile       string
	CredentialsFile string
	User            string
	Query           string
}

// IMAPConfig represents the configuration for the IMAP source
type IMAPConfig struct {
	Address  string
	Username string
	Password string
	Mailbox  string
	Since    time.Duration
}

// SMTPInboxConfig represents the configuration for the SMTP inbox source
type SMTPInboxConfig struct {
	ListenAddress string
	Domain        string
	BufferSize    int
}

// SourceConfig selects the mail source
type SourceConfig struct {
	Type  string
	Gmail GmailConfig
	IMAP  IMAPConfig
	SMTP  SMTPInboxConfig
}

// TelegramConfig represents the configuration for the Telegram sink
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// SMTPSinkConfig represents the configuration for the e-mail sink
type SMTPSinkConfig struct {
	Address  string
	Username string
	Password string
	From     string
	To       []string
	Subject  string
	StartTLS bool
}

// SinkConfig selects the delivery sink
type SinkConfig struct {
	Type     string
	Telegram TelegramConfig
	SMTP     SMTPSinkConfig
}

// ScorerConfig represents the delegated scorer settings shared by all providers
type ScorerConfig struct {
	Provider    string
	Timeout     time.Duration
	RateLimit   float64
	Burst       int
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// MetricsConfig represents the prometheus endpoint settings
type MetricsConfig struct {
	Enabled       bool
	ListenAddress string
}

// GetDigest returns the digest policy configuration
func (c *Config) GetDigest() (DigestConfig, error) {
	reAlert, err := c.GetDuration("digest.re_alert_interval")
	if err != nil {
		return DigestConfig{}, err
	}
	return DigestConfig{
		MinScore:        c.GetInt("digest.min_score"),
		ReAlertInterval: reAlert,
		MaxFetch:        c.GetInt("digest.max_fetch"),
		MaxLowItems:     c.GetInt("digest.max_low_items"),
		SnippetLimit:    c.GetInt("digest.snippet_limit"),
		Heartbeat:       c.GetBool("digest.heartbeat"),
		IgnoreDomains:   c.GetStringSlice("digest.ignore_domains"),
		PriorityDomains: c.GetStringSlice("digest.priority_domains"),
	}, nil
}

// GetSchedule returns the schedule configuration
func (c *Config) GetSchedule() (ScheduleConfig, error) {
	tolerance, err := c.GetDuration("schedule.tolerance")
	if err != nil {
		return ScheduleConfig{}, err
	}
	poll, err := c.GetDuration("schedule.poll_interval")
	if err != nil {
		return ScheduleConfig{}, err
	}
	maxSleep, err := c.GetDuration("schedule.max_sleep")
	if err != nil {
		return ScheduleConfig{}, err
	}
	return ScheduleConfig{
		Slots:        c.GetStringSlice("schedule.slots"),
		Tolerance:    tolerance,
		PollInterval: poll,
		MaxSleep:     maxSleep,
		Timezone:     c.GetString("schedule.timezone"),
		Policy:       c.GetString("schedule.policy"),
	}, nil
}

// GetRetry returns the collaborator retry configuration
func (c *Config) GetRetry() (RetryConfig, error) {
	delay, err := c.GetDuration("retry.delay")
	if err != nil {
		return RetryConfig{}, err
	}
	timeout, err := c.GetDuration("retry.timeout")
	if err != nil {
		return RetryConfig{}, err
	}
	return RetryConfig{
		Attempts: c.GetInt("retry.attempts"),
		Delay:    delay,
		Timeout:  timeout,
	}, nil
}

// GetState returns the state backend configuration
func (c *Config) GetState() (StateConfig, error) {
	ttl, err := c.GetDuration("state.ttl")
	if err != nil {
		return StateConfig{}, err
	}
	return StateConfig{
		Type:          c.GetString("state.type"),
		TTL:           ttl,
		FilePath:      c.GetString("state.file_path"),
		SQLitePath:    c.GetString("state.sqlite_path"),
		MySQLDSN:      c.GetString("state.mysql_dsn"),
		RedisAddr:     c.GetString("state.redis_addr"),
		RedisPassword: c.GetString("state.redis_password"),
		RedisDB:       c.GetInt("state.redis_db"),
		RedisKey:      c.GetString("state.redis_key"),
	}, nil
}

// GetSource returns the mail source configuration
func (c *Config) GetSource() (SourceConfig, error) {
	since, err := c.GetDuration("source.imap.since")
	if err != nil {
		return SourceConfig{}, err
	}
	return SourceConfig{
		Type: c.GetString("source.type"),
		Gmail: GmailConfig{
			TokenJSON:       c.GetString("source.gmail.token_json"),
			TokenFile:       c.GetString("source.gmail.token_file"),
			CredentialsFile: c.GetString("source.gmail.credentials_file"),
			User:            c.GetString("source.gmail.user"),
			Query:           c.GetString("source.gmail.query"),
		},
		IMAP: IMAPConfig{
			Address:  c.GetString("source.imap.address"),
			Username: c.GetString("source.imap.username"),
			Password: c.GetString("source.imap.password"),
			Mailbox:  c.GetString("source.imap.mailbox"),
			Since:    since,
		},
		SMTP: SMTPInboxConfig{
			ListenAddress: c.GetString("source.smtp.listen_address"),
			Domain:        c.GetString("source.smtp.domain"),
			BufferSize:    c.GetInt("source.smtp.buffer_size"),
		},
	}, nil
}

// GetSink returns the delivery sink configuration
func (c *Config) GetSink() SinkConfig {
	return SinkConfig{
		Type: c.GetString("sink.type"),
		Telegram: TelegramConfig{
			BotToken: c.GetString("sink.telegram.bot_token"),
			ChatID:   c.GetInt64("sink.telegram.chat_id"),
		},
		SMTP: SMTPSinkConfig{
			Address:  c.GetString("sink.smtp.address"),
			Username: c.GetString("sink.smtp.username"),
			Password: c.GetString("sink.smtp.password"),
			From:     c.GetString("sink.smtp.from"),
			To:       c.GetStringSlice("sink.smtp.to"),
			Subject:  c.GetString("sink.smtp.subject"),
			StartTLS: c.GetBool("sink.smtp.starttls"),
		},
	}
}

// GetScorer returns the delegated scorer configuration
func (c *Config) GetScorer() (ScorerConfig, error) {
	timeout, err := c.GetDuration("scorer.timeout")
	if err != nil {
		return ScorerConfig{}, err
	}
	return ScorerConfig{
		Provider:    c.GetString("scorer.provider"),
		Timeout:     timeout,
		RateLimit:   c.GetFloat64("scorer.rate_limit"),
		Burst:       c.GetInt("scorer.burst"),
		MaxBodySize: c.GetInt("scorer.max_body_size"),
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetMetrics returns the metrics endpoint configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:       c.GetBool("metrics.enabled"),
		ListenAddress: c.GetString("metrics.listen_address"),
	}
}

// Validate checks the settings a daemon cannot run without.
func (c *Config) Validate() error {
	sched, err := c.GetSchedule()
	if err != nil {
		return err
	}
	if len(sched.Slots) == 0 {
		return ErrEmptySchedule
	}
	if sched.Tolerance < 0 || sched.PollInterval <= 0 || sched.MaxSleep <= 0 {
		return fmt.Errorf("schedule tolerance must be >= 0, poll interval and max sleep > 0")
	}
	if _, err := core.ParseSlots(sched.Slots); err != nil {
		return fmt.Errorf("invalid schedule.slots: %w", err)
	}
	if _, err := core.LoadLocation(sched.Timezone); err != nil {
		return fmt.Errorf("invalid schedule.timezone: %w", err)
	}
	switch sched.Policy {
	case "catch-up", "window":
	default:
		return fmt.Errorf("unsupported schedule policy: %s", sched.Policy)
	}

	digest, err := c.GetDigest()
	if err != nil {
		return err
	}
	if digest.ReAlertInterval < 0 {
		return fmt.Errorf("digest.re_alert_interval must not be negative")
	}

	if _, err := c.GetRetry(); err != nil {
		return err
	}
	if _, err := c.GetState(); err != nil {
		return err
	}
	if _, err := c.GetSource(); err != nil {
		return err
	}
	if _, err := c.GetScorer(); err != nil {
		return err
	}
	return nil
}
