package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/spigell/resume-keeper/internal/similarity"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-keeper"
)

type Config struct {
	Resume        string                `mapstructure:"resume" validate:"required"`
	Inputs        string                `mapstructure:"inputs" validate:"required"`
	ProcessedFile string                `mapstructure:"processed-file" validate:"required"`
	AuditFile     string                `mapstructure:"audit-file"`
	ProfilesFile  string                `mapstructure:"profiles-file"`
	RulesFile     string                `mapstructure:"rules-file"`
	Similarity    similarity.Thresholds `mapstructure:"similarity"`
	Extraction    *ExtractionConfig     `mapstructure:"extraction" validate:"required"`
}

type ExtractionConfig struct {
	Provider         string        `mapstructure:"provider" validate:"oneof=gemini"`
	MaxDocumentChars int           `mapstructure:"max-document-chars" validate:"gte=0"`
	TaxonomyFile     string        `mapstructure:"taxonomy-file"`
	Gemini           *GeminiConfig `mapstructure:"gemini" validate:"required"`
}

type GeminiConfig struct {
	APIKey            string `mapstructure:"api-key"`
	APIKeyFile        string `mapstructure:"api-key-file"`
	Model             string `mapstructure:"model"`
	MaxRetries        int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength      int    `mapstructure:"max-log-length" validate:"gte=0"`
	RequestsPerMinute int    `mapstructure:"requests-per-minute" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-keeper extracts achievements from documents and merges them into a resume without duplicates",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("extraction.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-keeper.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("resume", "data/resume.json")
	viper.SetDefault("inputs", "data/raw_inputs")
	viper.SetDefault("processed-file", "data/processed_files.json")
	viper.SetDefault("audit-file", "ACHIEVEMENT_AUDIT.md")
	viper.SetDefault("profiles-file", "data/resume_profiles.json")
	viper.SetDefault("rules-file", "rules.yaml")
	viper.SetDefault("similarity.high", similarity.DefaultHigh)
	viper.SetDefault("similarity.medium", similarity.DefaultMedium)
	viper.SetDefault("extraction.provider", "gemini")
	viper.SetDefault("extraction.max-document-chars", 12000)
	viper.SetDefault("extraction.taxonomy-file", "")
	viper.SetDefault("extraction.gemini.api-key", "")
	viper.SetDefault("extraction.gemini.api-key-file", "")
	viper.SetDefault("extraction.gemini.model", "gemini-2.5-pro")
	viper.SetDefault("extraction.gemini.max-retries", 3)
	viper.SetDefault("extraction.gemini.max-log-length", 200)
	viper.SetDefault("extraction.gemini.requests-per-minute", 10)
}

func initConfig() {
	// GEMINI_API_KEY may live in .env. A missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every key has a default, so only an explicitly requested config must exist.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := config.Similarity.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
