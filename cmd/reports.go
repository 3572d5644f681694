package cmd

import (
	"errors"
	"io/fs"

	"github.com/spigell/resume-keeper/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Report tag usage and profile coverage",
	Run: func(_ *cobra.Command, _ []string) {
		e := setup()

		profiles, err := report.LoadProfiles(e.config.ProfilesFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			e.logger.Debug("no profiles file, skipping profile coverage", zap.String("path", e.config.ProfilesFile))
		case err != nil:
			e.logger.Fatal("loading profiles", zap.Error(err))
		}

		printJSON(e.logger, report.Tags(e.load(), profiles))
	},
}

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Report achievements and tags per position",
	Run: func(_ *cobra.Command, _ []string) {
		e := setup()
		printJSON(e.logger, report.Coverage(e.load()))
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print resume totals",
	Run: func(_ *cobra.Command, _ []string) {
		e := setup()
		printJSON(e.logger, report.Summarize(e.load()))
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Find positions and achievements containing a keyword",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		e := setup()

		hits, err := report.Search(e.load(), args[0])
		if err != nil {
			e.logger.Fatal("searching", zap.Error(err))
		}
		e.logger.Info("search finished", zap.String("keyword", args[0]), zap.Int("hits", len(hits)))
		printJSON(e.logger, hits)
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd, coverageCmd, summaryCmd, searchCmd)
}
