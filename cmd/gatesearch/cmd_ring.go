package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/gatesearch/internal/algorithm"
	"github.com/kingrea/gatesearch/internal/plot"
	"github.com/kingrea/gatesearch/internal/ring"
	"github.com/kingrea/gatesearch/internal/tui"
)

var (
	ringGap     float64
	ringRuns    int
	ringDataDir string
	ringTUI     bool
)

var ringCmd = &cobra.Command{
	Use:   "ring",
	Short: "Run a seeded multi-run search on the ring classification task",
	Long: `Runs the configured number of seeded classification trials on the ring
dataset of the given gap, validates each on the test split, keeps the run with
the lowest performance value and writes search_stats/search_data_<runs>_runs.npz
plus the summary figures.`,
	RunE: runRing,
}

func init() {
	ringCmd.Flags().Float64Var(&ringGap, "gap", 0, "Ring gap in volts (default: ring_data.gap)")
	ringCmd.Flags().IntVar(&ringRuns, "runs", 0, "Override the configured run count")
	ringCmd.Flags().StringVar(&ringDataDir, "data-dir", "", "Override ring_data.data_dir")
	ringCmd.Flags().BoolVar(&ringTUI, "tui", false, "Show live progress")
}

func runRing(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("gap") {
		cfg.RingData.Gap = ringGap
	}
	if cmd.Flags().Changed("runs") {
		cfg.Runs = ringRuns
	}
	if ringDataDir != "" {
		cfg.RingData.DataDir = ringDataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger, err := newLogger(ringTUI)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opt, err := algorithm.ResolveConfigured(cfg)
	if err != nil {
		return err
	}
	plotter := plot.NewGonumPlotter()
	data := ring.NPZLoader{Dir: cfg.RingData.DataDir}
	gap := cfg.RingData.Gap

	search := func(ctx context.Context, observer ring.Observer) (*ring.Outcome, error) {
		searcher, err := ring.NewSearcher(cfg, ring.NewClassifier(opt, plotter), data,
			ring.WithLogger(logger),
			ring.WithPlotter(plotter),
			ring.WithObserver(observer),
		)
		if err != nil {
			return nil, err
		}
		return searcher.SearchSolution(ctx, gap)
	}

	var outcome *ring.Outcome
	if ringTUI {
		title := fmt.Sprintf("ring search · gap %gmV · %s", gap, cfg.Algorithm)
		outcome, err = tui.Run(ctx, title, cfg.Runs, search)
	} else {
		outcome, err = search(ctx, nil)
	}
	if err != nil {
		logger.Error("ring search failed", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "best run %d: performance %.6g, correlation %.4f, train %.2f%%, test %.2f%%\n",
		outcome.Best.Index, outcome.Best.BestPerformance, outcome.Best.Correlation,
		100*outcome.Best.Accuracy, 100*outcome.Best.TestAccuracy)
	fmt.Fprintf(out, "archive: %s\n", outcome.ArchivePath)
	return nil
}
