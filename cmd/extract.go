package cmd

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spigell/resume-keeper/internal/document"
	"github.com/spigell/resume-keeper/internal/extraction"
	"github.com/spigell/resume-keeper/internal/logger"
	"github.com/spigell/resume-keeper/internal/merge"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract achievements for one known position from a single document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runExtract(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("exp-id", "", "experience id of the employer in the resume")
	extractCmd.Flags().String("company", "", "company name")
	extractCmd.Flags().String("company-parent", "", "parent company, if any")
	extractCmd.Flags().String("title", "", "position title as stored in the resume")
	extractCmd.Flags().String("start-date", "", "position start date (YYYY-MM)")
	extractCmd.Flags().String("end-date", "", "position end date, empty for a current position")
	extractCmd.Flags().StringP("strategy", "s", string(merge.StrategyDeduplicate), "merge strategy: deduplicate, append or replace")
	extractCmd.Flags().String("save-extraction", "", "also write the raw extraction payload to this file")
	addYesFlag(extractCmd)

	for _, name := range []string{"exp-id", "company", "title", "start-date"} {
		extractCmd.MarkFlagRequired(name)
	}
}

func runExtract(cmd *cobra.Command, path string) {
	ctx, cancel := signalContext()
	defer cancel()

	e := setup()
	log := e.logger.With(logger.DocumentFields(filepath.Base(path))...)

	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	position := extraction.Descriptor{
		ExperienceID:  flag("exp-id"),
		Company:       flag("company"),
		CompanyParent: flag("company-parent"),
		Title:         flag("title"),
		StartDate:     flag("start-date"),
		EndDate:       flag("end-date"),
	}
	if err := position.Validate(); err != nil {
		log.Fatal("invalid position", zap.Error(err))
	}

	strategy, err := merge.ParseStrategy(flag("strategy"))
	if err != nil {
		log.Fatal("invalid strategy", zap.Error(err))
	}

	res := e.load()

	doc, err := document.NewReader(log).Read(path)
	if err != nil {
		log.Fatal("reading document", zap.Error(err))
	}

	extractor, err := newExtractor(ctx, e.config.Extraction, log)
	if err != nil {
		log.Fatal("creating extraction service", zap.Error(err))
	}

	result, err := extractor.Extract(ctx, doc, position)
	if err != nil {
		var serr *extraction.ServiceError
		if errors.As(err, &serr) && serr.Raw != "" {
			log.Error("unusable extraction response", zap.String(logger.FieldRawResponse, serr.Raw))
		}
		log.Fatal("extracting achievements", zap.Error(err))
	}

	if out := flag("save-extraction"); out != "" {
		if err := os.WriteFile(out, []byte(result.Raw+"\n"), 0o644); err != nil {
			log.Fatal("saving extraction", zap.Error(err))
		}
		log.Info("extraction saved", zap.String("path", out))
	}

	candidates := result.Achievements()
	log.Info("achievements extracted", zap.Int("count", len(candidates)))
	if len(candidates) == 0 {
		return
	}

	mergeAndSave(cmd, e, res, position, candidates, doc.Name, strategy)
}
