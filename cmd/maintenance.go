package cmd

import (
	"github.com/spigell/resume-keeper/internal/rules"
	"github.com/spigell/resume-keeper/internal/similarity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Report groups of similar achievements for manual review",
	Run: func(_ *cobra.Command, _ []string) {
		e := setup()
		res := e.load()

		report, err := similarity.Analyze(res, e.config.Similarity)
		if err != nil {
			e.logger.Fatal("analyzing similarity", zap.Error(err))
		}

		e.logger.Info("similarity analysis",
			zap.Int("achievements", report.Total),
			zap.Int("high_groups", len(report.High)),
			zap.Int("medium_groups", len(report.Medium)),
		)
		printJSON(e.logger, report)
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Apply the maintenance rules from rules-file to the resume",
	Run: func(cmd *cobra.Command, _ []string) {
		runFix(cmd)
	},
}

func init() {
	rootCmd.AddCommand(duplicatesCmd, fixCmd)
	addYesFlag(fixCmd)
}

func runFix(cmd *cobra.Command) {
	e := setup()

	loaded, err := rules.Load(e.config.RulesFile)
	if err != nil {
		e.logger.Fatal("loading rules", zap.Error(err))
	}
	engine, err := rules.New(loaded, e.logger)
	if err != nil {
		e.logger.Fatal("invalid rules", zap.Error(err))
	}

	res := e.load()
	result := engine.Apply(res)
	e.logger.Info("rules evaluated", zap.Int("rules", len(loaded)), zap.Int("changes", len(result.Changes)))

	if len(result.Changes) == 0 {
		e.logger.Info("no rule matched")
		return
	}
	if !confirm(cmd, "Save the fixed resume?") {
		e.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}
	e.save(res)
}
