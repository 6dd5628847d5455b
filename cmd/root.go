package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-matcher/internal/usage"
)

const (
	app       = "resume-matcher"
	envPrefix = "RESUME_MATCHER"
)

type Config struct {
	Schema   string                `mapstructure:"schema" validate:"oneof=weighted-22 flat-8 industry"`
	Provider string                `mapstructure:"provider" validate:"oneof=gemini openai"`
	Gemini   *ProviderConfig       `mapstructure:"gemini"`
	OpenAI   *ProviderConfig       `mapstructure:"openai"`
	Matching *MatchingConfig       `mapstructure:"matching" validate:"required"`
	Batch    *BatchConfig          `mapstructure:"batch" validate:"required"`
	Rates    map[string]usage.Rate `mapstructure:"rates"`
}

type ProviderConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	StrongModel  string `mapstructure:"strong-model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	BaseURL      string `mapstructure:"base-url" validate:"omitempty,url"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type MatchingConfig struct {
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxAttempts    int           `mapstructure:"max-attempts" validate:"gte=1,lte=10"`
	BackoffBase    time.Duration `mapstructure:"backoff-base" validate:"gte=0"`
	Concurrency    int           `mapstructure:"concurrency" validate:"gte=1"`
	TierRouting    bool          `mapstructure:"tier-routing"`
	Temperature    float32       `mapstructure:"temperature" validate:"gte=0"`
	MaxResumeChars int           `mapstructure:"max-resume-chars" validate:"gte=100"`
	MaxJobChars    int           `mapstructure:"max-job-chars" validate:"gte=100"`
	MinInputChars  int           `mapstructure:"min-input-chars" validate:"gte=1"`
}

type BatchConfig struct {
	ExcludeFile      string   `mapstructure:"exclude-file"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	MinScore         float64  `mapstructure:"min-score" validate:"gte=0,lte=100"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher scores job postings against a resume with a language model",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("schema", "", "requirement schema: weighted-22, flat-8 or industry")
	rootCmd.PersistentFlags().String("provider", "", "model provider: gemini or openai")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("schema", rootCmd.PersistentFlags().Lookup("schema"))
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", "weighted-22")
	v.SetDefault("provider", "gemini")

	v.SetDefault("gemini.api-key", "")
	v.SetDefault("gemini.api-key-file", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.strong-model", "gemini-2.5-pro")
	v.SetDefault("gemini.max-retries", 3)
	v.SetDefault("gemini.max-log-length", 200)

	v.SetDefault("openai.api-key", "")
	v.SetDefault("openai.api-key-file", "")
	v.SetDefault("openai.base-url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.strong-model", "gpt-4o")
	v.SetDefault("openai.max-log-length", 200)

	v.SetDefault("matching.timeout", "60s")
	v.SetDefault("matching.max-attempts", 3)
	v.SetDefault("matching.backoff-base", "10s")
	v.SetDefault("matching.concurrency", 2)
	v.SetDefault("matching.tier-routing", false)
	v.SetDefault("matching.temperature", 0.1)
	v.SetDefault("matching.max-resume-chars", 3000)
	v.SetDefault("matching.max-job-chars", 8000)
	v.SetDefault("matching.min-input-chars", 50)

	v.SetDefault("batch.exclude-file", "")
	v.SetDefault("batch.exclude-companies", []string{})
	v.SetDefault("batch.min-score", 0)
}

func initConfig() {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless it was asked for explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	config.Schema = strings.ToLower(strings.TrimSpace(config.Schema))
	config.Provider = strings.ToLower(strings.TrimSpace(config.Provider))

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if config.providerConfig() == nil {
		return fmt.Errorf("invalid config: %s block is required for provider %s", config.Provider, config.Provider)
	}
	return nil
}

func (c *Config) providerConfig() *ProviderConfig {
	switch c.Provider {
	case "gemini":
		return c.Gemini
	case "openai":
		return c.OpenAI
	default:
		return nil
	}
}
