package tui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/goleak"

	"github.com/kingrea/gatesearch/internal/logbook"
	"github.com/kingrea/gatesearch/internal/ring"
)

func testProgramOptions() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(bytes.NewReader(nil)),
		tea.WithOutput(io.Discard),
		tea.WithoutSignals(),
		tea.WithoutRenderer(),
	}
}

func TestSearchModelTracksRuns(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), logbook.FileName)
	journal, err := logbook.New(journalPath)
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	journal.Info("search started")
	journal.Run(1, "new best: performance 0.2")

	m := NewSearchModel("ring 0.5mV", 4)
	if strings.Contains(m.View(), "best:") {
		t.Fatalf("no best line expected before the first run")
	}
	m.Update(RunMsg(ring.RunEvent{Run: 0, Runs: 4, Performance: 0.4, Accuracy: 0.9, TestAccuracy: 0.8, Best: true, BestRun: 0, BestPerformance: 0.4, Journal: journalPath}))
	m.Update(RunMsg(ring.RunEvent{Run: 1, Runs: 4, Performance: 0.2, Accuracy: 0.95, TestAccuracy: 0.85, Best: true, BestRun: 1, BestPerformance: 0.2, Journal: journalPath}))

	if got := m.Completed(); got != 2 {
		t.Fatalf("completed = %d, want 2", got)
	}
	if got := m.Fraction(); got != 0.5 {
		t.Fatalf("fraction = %v, want 0.5", got)
	}
	view := m.View()
	for _, want := range []string{"2/4 runs", "best: run 1", "search started", "new best: performance 0.2", "journey.log (2)"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestJournalLineShowsRun(t *testing.T) {
	e := logbook.Entry{Level: logbook.LevelError, Run: 3, Message: "diverged"}
	if got := journalLine(e); !strings.Contains(got, "run 3") || !strings.Contains(got, "diverged") {
		t.Fatalf("journal line = %q", got)
	}
	e.Run = logbook.NoRun
	if got := journalLine(e); strings.Contains(got, "run ") {
		t.Fatalf("session entry rendered with a run: %q", got)
	}
}

func TestSearchModelQuitsWhenDone(t *testing.T) {
	m := NewSearchModel("ring", 1)
	_, cmd := m.Update(DoneMsg{Err: errors.New("diverged")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if !strings.Contains(m.View(), "search failed: diverged") {
		t.Fatalf("view should report the failure")
	}
}

func TestRunReturnsSearchOutcome(t *testing.T) {
	defer goleak.VerifyNone(t)

	want := &ring.Outcome{ArchivePath: "search_data_3_runs.npz"}
	got, err := Run(context.Background(), "ring", 3, func(ctx context.Context, observer ring.Observer) (*ring.Outcome, error) {
		for run := 0; run < 3; run++ {
			observer(ring.RunEvent{Run: run, Runs: 3})
		}
		return want, nil
	}, testProgramOptions()...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != want {
		t.Fatalf("outcome = %v, want %v", got, want)
	}
}

func TestRunPropagatesSearchError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	_, err := Run(context.Background(), "ring", 1, func(ctx context.Context, observer ring.Observer) (*ring.Outcome, error) {
		return nil, boom
	}, testProgramOptions()...)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
