package cmd

import (
	"os"
	"path/filepath"

	"github.com/spigell/resume-keeper/internal/extraction"
	"github.com/spigell/resume-keeper/internal/logger"
	"github.com/spigell/resume-keeper/internal/merge"
	"github.com/spigell/resume-keeper/internal/resume"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loadCmd = &cobra.Command{
	Use:   "load <extraction.json>",
	Short: "Merge a saved extraction file into the resume",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLoad(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringP("strategy", "s", string(merge.StrategyDeduplicate), "merge strategy: deduplicate, append or replace")
	addYesFlag(loadCmd)
}

func runLoad(cmd *cobra.Command, path string) {
	e := setup()
	log := e.logger.With(logger.DocumentFields(filepath.Base(path))...)

	name, _ := cmd.Flags().GetString("strategy")
	strategy, err := merge.ParseStrategy(name)
	if err != nil {
		log.Fatal("invalid strategy", zap.Error(err))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("reading extraction file", zap.Error(err))
	}

	result, err := extraction.ParseStandalone(string(data))
	if err != nil {
		log.Fatal("parsing extraction file", zap.Error(err))
	}
	if result.PositionMetadata == nil {
		log.Fatal("extraction file has no position_metadata")
	}
	if err := result.PositionMetadata.Validate(); err != nil {
		log.Fatal("invalid position_metadata", zap.Error(err))
	}

	candidates := result.Achievements()
	if len(candidates) == 0 {
		log.Info("extraction file has no achievements")
		return
	}

	res := e.load()
	mergeAndSave(cmd, e, res, *result.PositionMetadata, candidates, filepath.Base(path), strategy)
}

// mergeAndSave files candidates under position and writes the resume after
// confirmation.
func mergeAndSave(cmd *cobra.Command, e *env, res *resume.Resume, position extraction.Descriptor, candidates []*resume.Achievement, source string, strategy merge.Strategy) {
	log := e.logger.With(logger.PositionFields(position.ExperienceID, position.Title)...)

	match, result, err := merge.New(log).File(res, position.Target(), candidates, source, strategy)
	if err != nil {
		log.Fatal("merging achievements", zap.Error(err))
	}

	log.Info("merge prepared",
		zap.String("strategy", string(strategy)),
		zap.String("matched_title", match.Position.Title),
		zap.Bool("date_only_match", match.DateOnly),
		zap.Int("new", result.New),
		zap.Int("duplicates", result.Duplicates),
	)

	if result.New == 0 && strategy != merge.StrategyReplace {
		log.Info("nothing new to add")
		return
	}
	if !confirm(cmd, "Save the updated resume?") {
		log.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}

	e.save(res)
}
