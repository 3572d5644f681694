package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/resume-keeper/internal/extraction"
	"github.com/spigell/resume-keeper/internal/extraction/gemini"
	"github.com/spigell/resume-keeper/internal/logger"
	"github.com/spigell/resume-keeper/internal/resume"
	"github.com/spigell/resume-keeper/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

// env holds what every command needs: a logger, the validated config and
// the resume store.
type env struct {
	logger *zap.Logger
	config *Config
	store  *resume.Store
}

func setup() *env {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting "+app, zap.String("version", version), zap.String("config_file", viper.ConfigFileUsed()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", redact(pretty)))

	return &env{
		logger: logger,
		config: config,
		store:  resume.NewStore(config.Resume, logger),
	}
}

// load reads the resume or stops the process.
func (e *env) load() *resume.Resume {
	res, err := e.store.Load()
	if err != nil {
		e.logger.Fatal("loading resume", zap.Error(err))
	}
	return res
}

func (e *env) save(res *resume.Resume) {
	backup, err := e.store.Save(res)
	if err != nil {
		e.logger.Fatal("saving resume", zap.Error(err))
	}
	e.logger.Info("resume updated", zap.String("path", e.store.Path()), zap.String("backup", backup))
}

// confirm asks before a write unless the command was started with -y.
func confirm(cmd *cobra.Command, label string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}

	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}
	_, action, err := prompt.Run()
	if err != nil {
		return false
	}
	return action == PromptYes
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before writing")
}

// signalContext is cancelled on the first SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newExtractor(ctx context.Context, cfg *ExtractionConfig, log *zap.Logger) (*gemini.Extractor, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set extraction.gemini.api-key-file / GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithCommonFields(log, cfg.Provider, cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:            apiKey,
		Model:             cfg.Gemini.Model,
		MaxRetries:        cfg.Gemini.MaxRetries,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
	}, genLogger)
	if err != nil {
		return nil, err
	}

	taxonomy, err := extraction.LoadTaxonomy(cfg.TaxonomyFile)
	if err != nil {
		return nil, err
	}

	return gemini.NewExtractor(generator, taxonomy, gemini.Options{
		MaxDocumentChars: cfg.MaxDocumentChars,
		MaxLogLength:     cfg.Gemini.MaxLogLength,
	}, genLogger), nil
}

// printJSON writes a report to stdout. Logs stay on stderr.
func printJSON(logger *zap.Logger, v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatal("encoding report", zap.Error(err))
	}
	fmt.Println(string(pretty))
}

// redact hides the inline api key in the debug config dump.
func redact(configJSON []byte) string {
	var m map[string]any
	if err := json.Unmarshal(configJSON, &m); err != nil {
		return string(configJSON)
	}
	if ext, ok := m["Extraction"].(map[string]any); ok {
		if g, ok := ext["Gemini"].(map[string]any); ok && g["APIKey"] != "" {
			g["APIKey"] = "***"
		}
	}
	out, _ := json.MarshalIndent(m, "", "  ")
	return string(out)
}
