package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kingrea/gatesearch/internal/algorithm"
	"github.com/kingrea/gatesearch/internal/gate"
	"github.com/kingrea/gatesearch/internal/logbook"
	"github.com/kingrea/gatesearch/internal/plot"
	"github.com/kingrea/gatesearch/internal/session"
)

var (
	gateInputs    int
	gateThreshold float64
	gateNoPlots   bool
	gateSession   string
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Evaluate every label of a boolean truth table",
	Long: `Enumerates all 2^(2^n) output columns of an n-input truth table and asks the
optimizer to realize each one. Constant labels are skipped and counted as found.
Results are stored in the sqlite database named by gate.database; --session
prints a stored sweep instead of running a new one.`,
	RunE: runGate,
}

func init() {
	gateCmd.Flags().IntVar(&gateInputs, "inputs", 0, "Override gate.inputs")
	gateCmd.Flags().Float64Var(&gateThreshold, "threshold", 0, "Override the acceptance threshold")
	gateCmd.Flags().BoolVar(&gateNoPlots, "no-plots", false, "Skip per-gate figures")
	gateCmd.Flags().StringVar(&gateSession, "session", "", "Print the stored results of a previous sweep")
}

func runGate(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("inputs") {
		cfg.Gate.Inputs = gateInputs
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold = gateThreshold
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if gateSession != "" {
		return showGateSession(ctx, cmd, gateSession)
	}

	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	table, err := gate.NewTruthTable(cfg.Gate.Inputs, cfg.Gate.InputLow, cfg.Gate.InputHigh)
	if err != nil {
		return err
	}
	opt, err := algorithm.ResolveConfigured(cfg)
	if err != nil {
		return err
	}
	task, err := gate.New(cfg, opt, logger)
	if err != nil {
		return err
	}
	store, err := gate.OpenStore(cfg.GateDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := session.Open(cfg.ResultsBaseDir, fmt.Sprintf("gates_%d_inputs", cfg.Gate.Inputs), session.Options{Main: true})
	if err != nil {
		return err
	}
	journal, err := logbook.New(filepath.Join(sess.SearchStatsDir(), logbook.FileName))
	if err != nil {
		return err
	}

	finder := &gate.Finder{
		Task:      task,
		Store:     store,
		Logbook:   journal,
		Logger:    logger,
		PlotDir:   sess.GatesDir(),
		Threshold: cfg.Threshold,
	}
	if !gateNoPlots {
		finder.Plotter = plot.NewGonumPlotter()
	}
	summary, err := finder.FindGates(ctx, table)
	if err != nil {
		return err
	}

	rows, err := store.Rows(ctx, summary.SessionID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderGateTable(rows))
	fmt.Fprintf(out, "found %d/%d labels (capacity %.2f), session %s\n",
		summary.Found, summary.Total, summary.Capacity(), summary.SessionID)
	return nil
}

func showGateSession(ctx context.Context, cmd *cobra.Command, sessionID string) error {
	store, err := gate.OpenStore(cfg.GateDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()
	rows, err := store.Rows(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("gate: no stored results for session %s", sessionID)
	}
	found := 0
	for _, r := range rows {
		if r.Found {
			found++
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderGateTable(rows))
	fmt.Fprintf(out, "found %d/%d labels, session %s\n", found, len(rows), sessionID)
	return nil
}

func renderGateTable(rows []gate.Row) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LABEL", "GATE", "FOUND", "ACCURACY", "PERFORMANCE")
	for _, r := range rows {
		t.Row(
			r.Label,
			r.Gate,
			strconv.FormatBool(r.Found),
			formatMetric(r.Accuracy),
			formatMetric(r.BestPerformance),
		)
	}
	return t.String()
}
