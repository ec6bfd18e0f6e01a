package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/logging"
)

// CLIFlags contains all command line flags for the preview application
type CLIFlags struct {
	// Scorer flags
	Provider     string
	OpenAIAPIKey string
	GeminiAPIKey string

	// Digest policy flags
	MinScore    int
	MaxLowItems int
	Timezone    string

	// Input flags
	InputFiles []string
	Format     string
	StateFile  string
	Now        string
	Table      bool

	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct.
// Remaining arguments are input files; none means stdin.
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Scorer flags
	flag.StringVar(&flags.Provider, "provider", "none", "Delegated scorer for ambiguous items (none, bedrock, gemini, openai)")
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")

	// Digest policy flags
	flag.IntVar(&flags.MinScore, "min-score", 35, "Minimum score for an item to be notified")
	flag.IntVar(&flags.MaxLowItems, "max-low", 8, "Maximum LOW items listed in the digest")
	flag.StringVar(&flags.Timezone, "timezone", "America/Sao_Paulo", "Time zone used for dates and the digest header")

	// Input flags
	flag.StringVar(&flags.Format, "format", "auto", "Input format (auto, rfc822, json)")
	flag.StringVar(&flags.StateFile, "state", "", "State file to apply re-alert suppression against (read only)")
	flag.StringVar(&flags.Now, "now", "", "Evaluate as of this RFC3339 time instead of the current time")
	flag.BoolVar(&flags.Table, "table", true, "Print a per-item classification table after the digest")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	flags.InputFiles = flag.Args()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the preview application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return CreateConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := ProvideDigest(container); err != nil {
		return nil, err
	}

	return container, nil
}

// CreateConfigFromFlags creates a configuration from command line flags
func CreateConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("scorer.provider", flags.Provider)
	switch flags.Provider {
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
	}

	v.Set("digest.min_score", flags.MinScore)
	v.Set("digest.max_low_items", flags.MaxLowItems)
	v.Set("schedule.timezone", flags.Timezone)
	v.Set("state.type", "file")
	if flags.StateFile != "" {
		v.Set("state.file_path", flags.StateFile)
	}

	return config.NewFromViper(v)
}
