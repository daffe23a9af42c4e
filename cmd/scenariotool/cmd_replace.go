package main

import (
	"github.com/spf13/cobra"

	"scenariotool/internal/orchestrator"
)

var replaceDryRun bool

var replaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Rewrite legacy _CTR controller identifiers in all scenario files",
	Long: `Builds the legacy -> standard replacement map from the facility
reference document, then rewrites every initial_controller field in the
scenarios directory whose value has a mapping. Files are written back
only when something changed; each replacement is recorded in the audit
log so the run can be undone later.`,
	RunE: runReplace,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending replacements without modifying anything",
	Long: `Analyzes every scenario file against the replacement map and
reports the changes a replace run would make, grouped per file. Use
--verbose to see each field's JSON pointer and values.`,
	RunE: runStatus,
}

func init() {
	replaceCmd.Flags().BoolVar(&replaceDryRun, "dry-run", false, "Report planned changes without writing or auditing")
}

func runReplace(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	session, err := orchestrator.NewSession(orchestrator.Options{
		Config:     cfg,
		Output:     newOutput(),
		Logger:     logger,
		DryRun:     replaceDryRun,
		AppVersion: version,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	// Per-file read failures are reported inline and do not fail the run.
	_, err = session.Replace()
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	session, err := orchestrator.NewSession(orchestrator.Options{
		Config:     cfg,
		Output:     newOutput(),
		Logger:     logger,
		DryRun:     true,
		AppVersion: version,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	_, err = session.Status()
	return err
}
