package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scenariotool/internal/audit"
	"scenariotool/internal/orchestrator"
	"scenariotool/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the scenarios directory and rewrite files as they change",
	Long: `Watches the scenarios directory for created or modified .json
files and runs the replacement pass on each one after it settles. The
pass is idempotent, so rewrites the watcher itself triggers settle as
no-ops. Stop with Ctrl-C; every replacement made during the session is
audited under a single WATCH run.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := newOutput()
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

	runID, err := session.BeginRun(audit.RunTypeWatch)
	if err != nil {
		return err
	}

	w := watcher.New(cfg.Watch, func(path string) (bool, error) {
		name := filepath.Base(path)
		changed, err := session.ProcessFile(name)
		if err != nil {
			out.Error("%s: %v", name, err)
			return false, err
		}
		if changed {
			out.Info("%s: rewritten", name)
		} else {
			out.Verbose("%s: no changes", name)
		}
		return changed, nil
	})

	if err := w.Start(cfg.ScenariosDir); err != nil {
		return err
	}
	out.Info("Watching %s (Ctrl-C to stop)", cfg.ScenariosDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	signal.Stop(sigCh)

	summary := w.Stop()
	logger.Debug("watch session finished",
		zap.Int("filesChanged", summary.FilesChanged),
		zap.Int("filesUnchanged", summary.FilesUnchanged),
		zap.Int("errors", summary.Errors))

	if err := session.FinishRun(runID, audit.RunStatusCompleted, audit.RunSummary{
		FilesScanned: summary.FilesChanged + summary.FilesUnchanged,
		FilesChanged: summary.FilesChanged,
		ReadErrors:   summary.Errors,
	}); err != nil {
		logger.Warn("failed to end audit run", zap.Error(err))
	}

	out.Info("\nStopped: %d files rewritten, %d unchanged, %d errors",
		summary.FilesChanged, summary.FilesUnchanged, summary.Errors)
	return nil
}
