// Package orchestrator coordinates the scenario maintenance workflows:
// replace, status, watch processing, and undo.
package orchestrator

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"scenariotool/internal/audit"
	"scenariotool/internal/config"
	"scenariotool/internal/jsontree"
	"scenariotool/internal/output"
	"scenariotool/internal/refdata"
	"scenariotool/internal/replacemap"
	"scenariotool/internal/scenario"
)

// ControllerField is the scenario field whose legacy values get rewritten.
const ControllerField = "initial_controller"

// Options configures a Session.
type Options struct {
	Config     *config.Configuration
	Output     *output.Output
	Logger     *zap.Logger
	DryRun     bool
	AppVersion string
}

// Session holds the loaded state shared by the replace-family workflows:
// the replacement map built from the reference document, the scenario
// store, and the audit writer (nil in dry-run mode).
type Session struct {
	cfg    *config.Configuration
	rmap   replacemap.Map
	store  *scenario.Store
	writer *audit.AuditWriter
	out    *output.Output
	logger *zap.Logger
	dryRun bool

	appVersion string
	machineID  string
}

// NewSession loads the reference document, builds the replacement map, and
// opens the audit log. Dry-run sessions never open the audit log.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfiguration()
	}
	out := opts.Output
	if out == nil {
		out = output.New(output.DefaultConfig())
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	positions, err := refdata.Load(cfg.ReferencePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference document: %w", err)
	}
	logger.Debug("loaded reference positions",
		zap.String("path", cfg.ReferencePath),
		zap.Int("positions", positions.Len()))

	rmap := replacemap.Build(positions, *cfg.Tables)
	logger.Debug("built replacement map", zap.Int("entries", rmap.Len()))

	s := &Session{
		cfg:        cfg,
		rmap:       rmap,
		store:      scenario.NewStore(cfg.ScenariosDir),
		out:        out,
		logger:     logger,
		dryRun:     opts.DryRun,
		appVersion: opts.AppVersion,
		machineID:  machineID(),
	}

	if !opts.DryRun {
		writer, err := audit.NewAuditWriter(*cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		s.writer = writer
	}

	return s, nil
}

// Close releases the session's audit log handle.
func (s *Session) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// MappingCount returns the number of legacy -> standard mappings loaded.
func (s *Session) MappingCount() int {
	return s.rmap.Len()
}

// Replace runs the full replacement workflow over every scenario file and
// prints the per-file and total report. In dry-run mode nothing is written
// and nothing is audited; the planned changes are reported identically.
func (s *Session) Replace() (*RunReport, error) {
	s.out.Info("Loaded %d legacy -> standard mappings", s.rmap.Len())

	names, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	report := &RunReport{DryRun: s.dryRun}

	if s.writer != nil {
		runID, err := s.writer.StartRun(audit.RunTypeReplace, s.appVersion, s.machineID)
		if err != nil {
			return nil, fmt.Errorf("failed to start audit run: %w", err)
		}
		report.RunID = runID
		if _, err := s.writer.CheckAndPruneRetention(); err != nil {
			s.logger.Warn("retention prune failed", zap.Error(err))
		}
	}

	s.out.StartProgress(len(names))
	for i, name := range names {
		s.out.UpdateProgress(i+1, "")
		s.processOne(name, report)
	}
	s.out.EndProgress()

	if s.writer != nil {
		status := audit.RunStatusCompleted
		if err := s.writer.EndRun(report.RunID, status, report.auditSummary()); err != nil {
			s.logger.Warn("failed to end audit run", zap.Error(err))
		}
	}

	s.printReport(report)
	return report, nil
}

// processOne reads, rewrites, and (unless dry-run) writes back a single
// scenario file, appending its outcome to the report.
func (s *Session) processOne(name string, report *RunReport) {
	report.FilesScanned++

	doc, err := s.store.ReadDocument(name)
	if err != nil {
		report.ReadErrors++
		report.Files = append(report.Files, FileResult{Name: name, Err: err})
		s.out.Info("%s: read error %v", name, err)
		s.logger.Debug("scenario read failed", zap.String("file", name), zap.Error(err))
		if s.writer != nil {
			if aerr := s.writer.RecordFileError(name, "READ_ERROR", err.Error()); aerr != nil {
				s.logger.Warn("failed to audit file error", zap.Error(aerr))
			}
		}
		return
	}

	rec := &jsontree.ChangeRecorder{}
	jsontree.RewriteField(doc, ControllerField, s.rmap, rec)
	if rec.Len() == 0 {
		return
	}

	if !s.dryRun {
		if err := s.store.WriteDocument(name, doc); err != nil {
			report.ReadErrors++
			report.Files = append(report.Files, FileResult{Name: name, Err: err})
			s.out.Error("%s: write error %v", name, err)
			if s.writer != nil {
				if aerr := s.writer.RecordFileError(name, "WRITE_ERROR", err.Error()); aerr != nil {
					s.logger.Warn("failed to audit file error", zap.Error(aerr))
				}
			}
			return
		}
	}

	changes := rec.Changes()
	report.FilesChanged++
	report.TotalReplacements += len(changes)
	report.Files = append(report.Files, FileResult{
		Name:         name,
		Replacements: len(changes),
		Changes:      changes,
	})
	for _, c := range changes {
		report.addPair(c.Old, c.New)
		if s.writer != nil {
			if aerr := s.writer.RecordReplace(name, c.Path, c.Old, c.New); aerr != nil {
				s.logger.Warn("failed to audit replacement", zap.Error(aerr))
			}
		}
	}
	s.out.Info("%s: %d replacements", name, len(changes))
}

// ProcessFile applies the replacement pass to a single scenario file. The
// watcher uses this as its change handler; the operation is idempotent, so
// re-processing a file the tool itself just wrote is a no-op.
func (s *Session) ProcessFile(name string) (bool, error) {
	doc, err := s.store.ReadDocument(name)
	if err != nil {
		if s.writer != nil {
			if aerr := s.writer.RecordFileError(name, "READ_ERROR", err.Error()); aerr != nil {
				s.logger.Warn("failed to audit file error", zap.Error(aerr))
			}
		}
		return false, err
	}

	rec := &jsontree.ChangeRecorder{}
	jsontree.RewriteField(doc, ControllerField, s.rmap, rec)
	if rec.Len() == 0 {
		return false, nil
	}

	if !s.dryRun {
		if err := s.store.WriteDocument(name, doc); err != nil {
			return false, err
		}
		for _, c := range rec.Changes() {
			if s.writer != nil {
				if aerr := s.writer.RecordReplace(name, c.Path, c.Old, c.New); aerr != nil {
					s.logger.Warn("failed to audit replacement", zap.Error(aerr))
				}
			}
		}
	}
	return true, nil
}

// BeginRun starts an audit run for a long-lived workflow such as watch.
func (s *Session) BeginRun(runType audit.RunType) (audit.RunID, error) {
	if s.writer == nil {
		return "", nil
	}
	return s.writer.StartRun(runType, s.appVersion, s.machineID)
}

// FinishRun closes an audit run started with BeginRun.
func (s *Session) FinishRun(runID audit.RunID, status audit.RunStatus, summary audit.RunSummary) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.EndRun(runID, status, summary)
}

func machineID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
