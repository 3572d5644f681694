package cmd

import (
	"github.com/spigell/resume-keeper/internal/batch"
	"github.com/spigell/resume-keeper/internal/document"
	"github.com/spigell/resume-keeper/internal/tracking"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract achievements from every new document in the inputs directory",
	Run: func(cmd *cobra.Command, _ []string) {
		runBatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Bool("dry-run", false, "merge in memory only, write neither the resume nor the tracking file")
	batchCmd.Flags().IntP("limit", "l", 0, "process at most this many documents (0 means all)")
	addYesFlag(batchCmd)
}

func runBatch(cmd *cobra.Command) {
	ctx, cancel := signalContext()
	defer cancel()

	e := setup()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limit, _ := cmd.Flags().GetInt("limit")

	history, err := tracking.Load(e.config.ProcessedFile)
	if err != nil {
		e.logger.Fatal("loading tracking file", zap.Error(err))
	}

	files, err := batch.Scan(e.config.Inputs, history, limit)
	if err != nil {
		e.logger.Fatal("scanning inputs", zap.Error(err))
	}
	if len(files) == 0 {
		e.logger.Info("no new documents", zap.String("inputs", e.config.Inputs))
		return
	}

	filters := batch.DefaultFilters()
	for _, s := range batch.Describe(filters) {
		e.logger.Info("filter enabled", zap.String("name", s.Name), zap.Any("details", s.Details))
	}

	e.logger.Info("documents to process", zap.Int("count", len(files)), zap.Bool("dry_run", dryRun))
	if !dryRun && !confirm(cmd, "Process documents and update the resume?") {
		e.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}

	res := e.load()

	extractor, err := newExtractor(ctx, e.config.Extraction, e.logger)
	if err != nil {
		e.logger.Fatal("creating extraction service", zap.Error(err))
	}

	processor := batch.NewProcessor(document.NewReader(e.logger), extractor, filters, e.logger)
	summary, err := processor.Run(ctx, e.store, res, files, history, batch.Options{
		DryRun:       dryRun,
		TrackingFile: e.config.ProcessedFile,
	})

	printJSON(e.logger, summary)
	if err != nil {
		e.logger.Fatal("batch finished with errors", zap.String("run_id", processor.RunID()), zap.Error(err))
	}
}
