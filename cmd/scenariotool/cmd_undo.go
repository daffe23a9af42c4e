package main

import (
	"github.com/spf13/cobra"

	"scenariotool/internal/audit"
	"scenariotool/internal/orchestrator"
)

var undoYes bool

var undoCmd = &cobra.Command{
	Use:   "undo [RUN_ID]",
	Short: "Revert the replacements made by a previous run",
	Long: `Replays a run's replacement records backwards, restoring each
field to its previous value. Fields edited since the run are reported
as conflicts and left untouched. With no RUN_ID the most recent replace
or watch run is undone. The undo itself is recorded as a new run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUndo,
}

func init() {
	undoCmd.Flags().BoolVarP(&undoYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runUndo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := newOutput()
	var runID audit.RunID
	if len(args) == 1 {
		runID = audit.RunID(args[0])
	}

	if !undoYes {
		target := "the most recent run"
		if runID != "" {
			target = "run " + string(runID)
		}
		if !out.Confirm("Revert all replacements from %s?", target) {
			out.Info("Aborted.")
			return nil
		}
	}

	session, err := orchestrator.NewSession(orchestrator.Options{
		Config:     cfg,
		Output:     out,
		Logger:     logger,
		AppVersion: version,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	_, err = session.Undo(runID)
	return err
}
