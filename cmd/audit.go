package cmd

import (
	"os"

	"github.com/spigell/resume-keeper/internal/audit"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Review stored achievements by hand",
}

var auditApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply KEEP/EDIT/DELETE decisions from the audit file to the resume",
	Run: func(cmd *cobra.Command, _ []string) {
		runAuditApply(cmd)
	},
}

var auditTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an audit file listing every achievement without provenance",
	Run: func(cmd *cobra.Command, _ []string) {
		runAuditTemplate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditApplyCmd, auditTemplateCmd)

	auditApplyCmd.Flags().StringP("file", "f", "", "audit file (default is audit-file from the config)")
	addYesFlag(auditApplyCmd)

	auditTemplateCmd.Flags().StringP("output", "o", "", "where to write the template (default is audit-file from the config)")
}

func auditPath(cmd *cobra.Command, flag string, e *env) string {
	if path, _ := cmd.Flags().GetString(flag); path != "" {
		return path
	}
	return e.config.AuditFile
}

func runAuditApply(cmd *cobra.Command) {
	e := setup()
	path := auditPath(cmd, "file", e)

	f, err := os.Open(path)
	if err != nil {
		e.logger.Fatal("opening audit file", zap.Error(err))
	}
	decisions, err := audit.ParseMarkdown(f)
	f.Close()
	if err != nil {
		e.logger.Fatal("parsing audit file", zap.Error(err))
	}

	counts := audit.Counts(decisions)
	e.logger.Info("audit decisions",
		zap.String("file", path),
		zap.Int("keep", counts[audit.Keep]),
		zap.Int("edit", counts[audit.Edit]),
		zap.Int("delete", counts[audit.Delete]),
	)
	if len(decisions) == 0 {
		e.logger.Info("nothing to apply")
		return
	}

	res := e.load()
	summary := audit.Apply(res, decisions, e.logger)
	if !summary.Changed() {
		e.logger.Info("resume unchanged")
		return
	}

	if !confirm(cmd, "Save the audited resume?") {
		e.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}
	e.save(res)
}

func runAuditTemplate(cmd *cobra.Command) {
	e := setup()
	path := auditPath(cmd, "output", e)
	res := e.load()

	f, err := os.Create(path)
	if err != nil {
		e.logger.Fatal("creating audit file", zap.Error(err))
	}
	n, err := audit.WriteTemplate(f, res)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		e.logger.Fatal("writing audit file", zap.Error(err))
	}

	e.logger.Info("audit template written", zap.String("path", path), zap.Int("achievements", n))
}
