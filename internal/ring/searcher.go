// Package ring runs repeated classification searches on the ring dataset and
// aggregates their statistics. Runs are strictly sequential; nothing reaches
// disk except figures and the best run's reproducibility data until the
// search closes.
package ring

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/gatesearch/internal/algorithm"
	"github.com/kingrea/gatesearch/internal/archive"
	"github.com/kingrea/gatesearch/internal/config"
	"github.com/kingrea/gatesearch/internal/logbook"
	"github.com/kingrea/gatesearch/internal/logging"
	"github.com/kingrea/gatesearch/internal/performance"
	"github.com/kingrea/gatesearch/internal/plot"
	"github.com/kingrea/gatesearch/internal/session"
)

// Seeder returns the random seed of a run.
type Seeder func(run int) int64

// DefaultSeeder derives each run's seed from base and the run index, so a
// search is repeatable run by run.
func DefaultSeeder(base int64) Seeder {
	return func(run int) int64 {
		return rand.New(rand.NewSource(base + int64(run))).Int63()
	}
}

// RunEvent reports a finished run.
type RunEvent struct {
	Run             int
	Runs            int
	Seed            int64
	Performance     float64
	Accuracy        float64
	TestAccuracy    float64
	Best            bool
	BestRun         int
	BestPerformance float64
	// Journal is the path of the search's logbook.
	Journal string
}

// Observer receives progress. It is called on the searching goroutine.
type Observer func(RunEvent)

// Outcome is what a finished search leaves behind.
type Outcome struct {
	Best        *algorithm.Results
	Stats       *RunStats
	Session     *session.Session
	ArchivePath string
}

// Option customizes a Searcher.
type Option func(*Searcher)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) { s.logger = logging.OrNop(l) }
}

// WithPlotter sets the renderer of the search figures. nil disables them.
func WithPlotter(p plot.Plotter) Option {
	return func(s *Searcher) { s.plotter = p }
}

// WithObserver registers a progress callback.
func WithObserver(o Observer) Option {
	return func(s *Searcher) { s.observer = o }
}

// WithSeeder overrides DefaultSeeder.
func WithSeeder(seeder Seeder) Option {
	return func(s *Searcher) { s.seeder = seeder }
}

// WithClock overrides the clock used to name main sessions.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) { s.now = now }
}

// Nested makes the searcher reuse an untimestamped session directory, for
// searches started by another search.
func Nested() Option {
	return func(s *Searcher) { s.main = false }
}

// Searcher repeats a Task over a configured number of runs and keeps the best.
type Searcher struct {
	cfg      *config.Config
	task     Task
	data     DataProvider
	plotter  plot.Plotter
	logger   *zap.Logger
	observer Observer
	seeder   Seeder
	now      func() time.Time
	main     bool

	session *session.Session
	journal *logbook.Logbook
	stats   *RunStats
	best    *algorithm.Results
	test    Dataset
}

// NewSearcher validates its collaborators and applies opts.
func NewSearcher(cfg *config.Config, task Task, data DataProvider, opts ...Option) (*Searcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ring: config is required")
	}
	if task == nil {
		return nil, fmt.Errorf("ring: task is required")
	}
	if data == nil {
		return nil, fmt.Errorf("ring: data provider is required")
	}
	if cfg.Runs < 1 {
		return nil, fmt.Errorf("ring: runs must be at least 1, got %d", cfg.Runs)
	}
	s := &Searcher{
		cfg:    cfg,
		task:   task,
		data:   data,
		logger: zap.NewNop(),
		seeder: DefaultSeeder(cfg.Seed),
		now:    time.Now,
		main:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SearchSolution runs the full search for a ring of the given gap. Any error
// aborts the search and discards the accumulated statistics.
func (s *Searcher) SearchSolution(ctx context.Context, gap float64) (*Outcome, error) {
	if err := s.initDirs(gap); err != nil {
		return nil, err
	}
	train, err := s.data.Data(ctx, gap, false)
	if err != nil {
		return nil, err
	}
	if err := train.Validate(); err != nil {
		return nil, err
	}
	s.test = Dataset{}
	s.reset(len(train.Targets))
	s.logger.Info("search started",
		zap.Float64("gap", gap),
		zap.Int("runs", s.cfg.Runs),
		zap.String("dir", s.session.Root()),
	)
	s.journal.Info("search started: gap=%gmV runs=%d", gap, s.cfg.Runs)

	for run := 0; run < s.cfg.Runs; run++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.runOnce(ctx, gap, run, train); err != nil {
			s.journal.RunFailed(run, err)
			return nil, fmt.Errorf("ring: run %d: %w", run, err)
		}
	}
	return s.close(gap)
}

// Best returns the run with the lowest performance so far, or nil before the
// first run.
func (s *Searcher) Best() *algorithm.Results {
	return s.best
}

// Stats returns the statistics of the current search.
func (s *Searcher) Stats() *RunStats {
	return s.stats
}

func (s *Searcher) runOnce(ctx context.Context, gap float64, run int, train Dataset) error {
	seed := s.seeder(run)
	results, err := s.task.RunTask(ctx, train, seed, s.session.AccuracyPlotPath(run))
	if err != nil {
		return err
	}
	results.Seed = seed
	results.Index = run
	if err := s.validate(ctx, gap, run, results); err != nil {
		return err
	}
	if err := s.stats.Record(run, results); err != nil {
		return err
	}
	improved := s.best == nil || results.BestPerformance < s.best.BestPerformance
	if improved {
		if err := s.updateBest(results); err != nil {
			return err
		}
	}
	s.logger.Info("run finished",
		zap.Int("run", run),
		zap.Int64("seed", seed),
		zap.Float64("performance", results.BestPerformance),
		zap.Float64("accuracy", results.Accuracy),
		zap.Float64("test_accuracy", results.TestAccuracy),
		zap.Bool("best", improved),
	)
	if s.observer != nil {
		s.observer(RunEvent{
			Run:             run,
			Runs:            s.cfg.Runs,
			Seed:            seed,
			Performance:     results.BestPerformance,
			Accuracy:        results.Accuracy,
			TestAccuracy:    results.TestAccuracy,
			Best:            improved,
			BestRun:         s.best.Index,
			BestPerformance: s.best.BestPerformance,
			Journal:         s.journal.Path(),
		})
	}
	return nil
}

func (s *Searcher) initDirs(gap float64) error {
	sess, err := session.Open(s.cfg.ResultsBaseDir, session.SearcherName(gap), session.Options{Main: s.main, Now: s.now})
	if err != nil {
		return err
	}
	journal, err := logbook.New(filepath.Join(sess.SearchStatsDir(), logbook.FileName))
	if err != nil {
		return err
	}
	s.session = sess
	s.journal = journal
	s.task.InitDirs(sess)
	return nil
}

func (s *Searcher) reset(outputLen int) {
	s.task.Reset()
	s.stats = NewRunStats(s.cfg.Runs, outputLen)
	s.best = nil
}

// validate evaluates the trained processor on the held-out split. The split is
// loaded once per search.
func (s *Searcher) validate(ctx context.Context, gap float64, run int, results *algorithm.Results) error {
	if results.Processor == nil {
		return fmt.Errorf("ring: results carry no processor to validate")
	}
	if s.test.Inputs == nil {
		test, err := s.data.Data(ctx, gap, true)
		if err != nil {
			return err
		}
		if err := test.Validate(); err != nil {
			return err
		}
		s.test = test
	}
	output, err := results.Processor.Forward(ctx, s.test.Inputs)
	if err != nil {
		return fmt.Errorf("ring: validation forward pass: %w", err)
	}
	if len(output) != len(s.test.Targets) {
		return fmt.Errorf("ring: validation produced %d outputs, want %d", len(output), len(s.test.Targets))
	}
	masked := performance.Masked(output, s.test.Mask)
	decision, err := performance.Perceptron(masked, performance.Masked(s.test.Targets, s.test.Mask))
	if err != nil {
		return fmt.Errorf("ring: test accuracy: %w", err)
	}
	results.TestAccuracy = decision.Accuracy
	results.TestInputs = s.test.Inputs
	results.TestTargets = s.test.Targets
	results.TestMask = s.test.Mask
	if s.plotter != nil {
		if err := plotDecision(s.plotter, "Test accuracy", s.session.TestAccuracyPlotPath(run), masked, decision); err != nil {
			return err
		}
	}
	s.logger.Debug("run validated",
		zap.Int("run", run),
		zap.Float64("train_accuracy", results.Accuracy),
		zap.Float64("test_accuracy", results.TestAccuracy),
	)
	s.journal.Run(run, "train accuracy %.4f, test accuracy %.4f", results.Accuracy, results.TestAccuracy)
	return nil
}

func (s *Searcher) updateBest(results *algorithm.Results) error {
	s.best = results
	s.journal.Run(results.Index, "new best: performance %.6g", results.BestPerformance)
	if err := s.task.PlotResults(results); err != nil {
		return err
	}
	return s.task.SaveReproducibilityData(results)
}

// close persists the aggregated statistics and draws the search figures.
func (s *Searcher) close(gap float64) (*Outcome, error) {
	if !s.stats.Complete() {
		return nil, fmt.Errorf("ring: closing a search with missing runs")
	}
	path := s.session.ArchivePath(s.cfg.Runs)
	fields := []archive.Field{
		archive.Matrix("outputs", s.stats.Outputs),
		archive.Floats("performance", s.stats.Performance),
		archive.Floats("correlation", s.stats.Correlation),
		archive.Floats("accuracy", s.stats.Accuracy),
		archive.Floats("test_accuracy", s.stats.TestAccuracy),
		archive.Ints("seed", s.stats.Seeds),
	}
	if cv, ok := s.stats.ControlVoltageMatrix(); ok {
		fields = append(fields, archive.Matrix("control_voltages", cv))
	} else {
		fields = append(fields, archive.Floats("control_voltages", filled(s.stats.Len())))
	}
	if !s.cfg.RingData.GenerateData {
		fields = append(fields,
			archive.Matrix("inputs_test", s.test.Inputs),
			archive.Floats("targets_test", s.test.Targets),
			archive.Bools("mask_test", s.test.Mask),
		)
	}
	if err := archive.Write(path, fields...); err != nil {
		return nil, err
	}
	if s.plotter != nil {
		if err := plotSearchResults(s.plotter, s.session, s.stats); err != nil {
			return nil, err
		}
	}

	s.logger.Info("search finished",
		zap.Float64("gap", gap),
		zap.Int("best_run", s.best.Index),
		zap.Float64("best_performance", s.best.BestPerformance),
		zap.Float64("correlation", s.best.Correlation),
		zap.String("archive", path),
	)
	if s.cfg.ShowPlots {
		s.logger.Info("figures written", zap.String("dir", s.session.SearchStatsDir()))
	}
	s.journal.Info("search finished: best run %d performance %.6g corr %.4f", s.best.Index, s.best.BestPerformance, s.best.Correlation)
	return &Outcome{Best: s.best, Stats: s.stats, Session: s.session, ArchivePath: path}, nil
}
