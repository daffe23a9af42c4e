package main

import (
	"github.com/spf13/cobra"

	"scenariotool/internal/audit"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs from the audit log",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 0, "Show only the most recent N runs (0 = all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reader := audit.NewAuditReader(cfg.Audit.LogDirectory)
	runs, err := reader.ListRuns()
	if err != nil {
		return err
	}

	out := newOutput()
	if len(runs) == 0 {
		out.Info("No runs recorded.")
		return nil
	}

	// Most recent first.
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	if runsLimit > 0 && len(runs) > runsLimit {
		runs = runs[:runsLimit]
	}

	for _, run := range runs {
		line := run.StartTime.Format("2006-01-02 15:04:05")
		out.Info("%s  %-7s %-11s %s", line, run.RunType, run.Status, run.RunID)
		if run.RunType == audit.RunTypeUndo && run.UndoTargetID != nil {
			out.Info("                     reverts %s", *run.UndoTargetID)
		}
		out.Verbose("                     %d files scanned, %d changed, %d replacements, %d read errors, %d conflicts",
			run.Summary.FilesScanned, run.Summary.FilesChanged,
			run.Summary.Replacements, run.Summary.ReadErrors, run.Summary.Conflicts)
	}
	return nil
}
