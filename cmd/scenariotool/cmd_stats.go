package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scenariotool/internal/audit"
)

var (
	statsSince string
	statsTopN  int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate replacement statistics from the audit log",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsSince, "since", "", "Only count runs starting on or after this date (YYYY-MM-DD)")
	statsCmd.Flags().IntVar(&statsTopN, "top", 10, "Number of top replacement pairs to show (0 = all)")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := audit.StatsOptions{TopN: statsTopN}
	if statsSince != "" {
		since, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since date %q: expected YYYY-MM-DD", statsSince)
		}
		opts.Since = &since
	}

	stats, err := audit.AggregateStats(cfg.Audit.LogDirectory, opts)
	if err != nil {
		return err
	}

	out := newOutput()
	if stats.TotalRuns == 0 && stats.TotalUndos == 0 {
		out.Info("No runs recorded.")
		return nil
	}

	out.Info("Runs: %d (%d undos)", stats.TotalRuns, stats.TotalUndos)
	out.Info("Span: %s to %s",
		stats.FirstRun.Format("2006-01-02"), stats.LastRun.Format("2006-01-02"))
	out.Info("Replacements: %d across %d file changes (%d read errors)",
		stats.TotalReplacements, stats.TotalFilesChanged, stats.TotalReadErrors)

	pairs := stats.SortedPairs()
	if len(pairs) > 0 {
		out.Info("Top replacement pairs:")
		for _, p := range pairs {
			out.Info("  %6d  %s", p.Count, p.Pair)
		}
	}
	return nil
}
