// internal/session/session.go
//
// Defines the on-disk layout of one search session. Everything a ring search
// or gate sweep produces lands under a single session directory:
//
// <results_base_dir>/<name>[_YYYY_MM_DD_HHMMSS]/
// ├── search_stats/           <- .npz archive, summary plots, journal
// ├── results/
// │   └── accuracies/         <- per-run accuracy plots
// ├── reproducibility/        <- best-run snapshot
// └── gatesearch.log

package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Directory names within a session.
const (
	SearchStatsDir     = "search_stats"
	ResultsDir         = "results"
	AccuraciesDir      = "accuracies"
	ReproducibilityDir = "reproducibility"
	GatesDir           = "gates"
)

// TimestampLayout is appended to main session directories.
const TimestampLayout = "2006_01_02_150405"

// Session manages the directory structure of one search.
type Session struct {
	root string
}

// Options control how the session directory is named.
type Options struct {
	// Main sessions get a timestamp suffix so repeated invocations never
	// collide. Nested sessions reuse the plain name.
	Main bool
	Now  func() time.Time
}

// Open creates (idempotently) the session directory tree under base.
func Open(base, name string, opts Options) (*Session, error) {
	if name == "" {
		return nil, fmt.Errorf("session: name is required")
	}
	dirName := name
	if opts.Main {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		dirName = name + "_" + now().Format(TimestampLayout)
	}
	s := &Session{root: filepath.Join(base, dirName)}
	for _, dir := range []string{s.SearchStatsDir(), s.AccuracyPlotsDir(), s.ReproducibilityDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("session: create %s: %w", dir, err)
		}
	}
	return s, nil
}

// SearcherName is the session name for a ring search at the given gap (volts).
func SearcherName(gap float64) string {
	return "searcher_" + strconv.FormatFloat(gap, 'g', -1, 64) + "mV"
}

// Root returns the session directory.
func (s *Session) Root() string {
	return s.root
}

// SearchStatsDir returns the directory for aggregated statistics.
func (s *Session) SearchStatsDir() string {
	return filepath.Join(s.root, SearchStatsDir)
}

// AccuracyPlotsDir returns the directory for per-run accuracy plots.
func (s *Session) AccuracyPlotsDir() string {
	return filepath.Join(s.root, ResultsDir, AccuraciesDir)
}

// ReproducibilityDir returns the directory for the best-run snapshot.
func (s *Session) ReproducibilityDir() string {
	return filepath.Join(s.root, ReproducibilityDir)
}

// GatesDir returns the directory for per-gate plots.
func (s *Session) GatesDir() string {
	return filepath.Join(s.root, ResultsDir, GatesDir)
}

// ArchivePath returns the .npz path for a search with the given run count.
func (s *Session) ArchivePath(runs int) string {
	return filepath.Join(s.SearchStatsDir(), fmt.Sprintf("search_data_%d_runs.npz", runs))
}

// AccuracyPlotPath returns the training accuracy plot for a run.
func (s *Session) AccuracyPlotPath(run int) string {
	return filepath.Join(s.AccuracyPlotsDir(), fmt.Sprintf("accuracy_plot_%d.png", run))
}

// TestAccuracyPlotPath returns the validation accuracy plot for a run.
func (s *Session) TestAccuracyPlotPath(run int) string {
	return filepath.Join(s.AccuracyPlotsDir(), fmt.Sprintf("test_accuracy%d.png", run))
}

// StatsPlotPath returns a summary figure path inside search_stats.
func (s *Session) StatsPlotPath(name, extension string) string {
	return filepath.Join(s.SearchStatsDir(), name+"."+extension)
}
