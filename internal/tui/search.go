// Package tui renders live progress of a ring search.
package tui

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/gatesearch/internal/logbook"
	"github.com/kingrea/gatesearch/internal/ring"
)

const (
	recentRuns  = 8
	journalTail = 6
)

type (
	// RunMsg carries a finished run into the program.
	RunMsg ring.RunEvent
	// DoneMsg ends the program once the search returns.
	DoneMsg struct {
		Outcome *ring.Outcome
		Err     error
	}
)

// SearchModel is the bubbletea model of a running search.
type SearchModel struct {
	title    string
	runs     int
	events   []ring.RunEvent
	progress progress.Model
	journal  *logbook.Logbook

	width    int
	done     bool
	quitting bool
	outcome  *ring.Outcome
	err      error
}

// NewSearchModel returns a model expecting runs runs.
func NewSearchModel(title string, runs int) *SearchModel {
	return &SearchModel{
		title:    title,
		runs:     runs,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Init implements tea.Model.
func (m *SearchModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case RunMsg:
		ev := ring.RunEvent(msg)
		m.events = append(m.events, ev)
		if ev.Runs > 0 {
			m.runs = ev.Runs
		}
		if m.journal == nil && ev.Journal != "" {
			if journal, err := logbook.New(ev.Journal); err == nil {
				m.journal = journal
			}
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.outcome = msg.Outcome
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Completed returns the number of finished runs.
func (m *SearchModel) Completed() int {
	return len(m.events)
}

// Fraction is the share of runs finished.
func (m *SearchModel) Fraction() float64 {
	if m.runs <= 0 {
		return 0
	}
	return math.Min(1, float64(len(m.events))/float64(m.runs))
}

// View implements tea.Model.
func (m *SearchModel) View() string {
	sections := []string{
		styleHeader.Render("⬡ " + m.title),
		fmt.Sprintf("%s  %d/%d runs", m.progress.ViewAs(m.Fraction()), m.Completed(), m.runs),
	}
	if best := m.bestLine(); best != "" {
		sections = append(sections, styleBest.Render(best))
	}
	sections = append(sections, m.renderRuns())
	if panel := m.renderJournal(); panel != "" {
		sections = append(sections, panel)
	}
	sections = append(sections, styleFooter.Render(m.status()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *SearchModel) bestLine() string {
	if len(m.events) == 0 {
		return ""
	}
	last := m.events[len(m.events)-1]
	return fmt.Sprintf("best: run %d  performance %.6g", last.BestRun, last.BestPerformance)
}

func (m *SearchModel) renderRuns() string {
	lines := []string{stylePanelTitle.Render("RUNS")}
	if len(m.events) == 0 {
		lines = append(lines, styleMuted.Render("waiting for the first run..."))
	}
	start := max(0, len(m.events)-recentRuns)
	for _, ev := range m.events[start:] {
		marker := " "
		if ev.Best {
			marker = "↗"
		}
		lines = append(lines, fmt.Sprintf("%s run %-4d perf %-12.6g train %6.2f%%  test %6.2f%%",
			marker, ev.Run, ev.Performance, 100*ev.Accuracy, 100*ev.TestAccuracy))
	}
	return stylePanel.Render(strings.Join(lines, "\n"))
}

func (m *SearchModel) renderJournal() string {
	if m.journal == nil {
		return ""
	}
	entries, total := m.journal.Entries(journalTail)
	if len(entries) == 0 {
		return ""
	}
	lines := []string{stylePanelTitle.Render(fmt.Sprintf("LOG · %s (%d)", filepath.Base(m.journal.Path()), total))}
	for _, e := range entries {
		lines = append(lines, journalLine(e))
	}
	return stylePanel.Render(strings.Join(lines, "\n"))
}

func journalLine(e logbook.Entry) string {
	text := e.Time.Local().Format("15:04:05") + "  "
	if e.Run != logbook.NoRun {
		text += fmt.Sprintf("run %-4d ", e.Run)
	}
	text += e.Message
	switch e.Level {
	case logbook.LevelError:
		return styleError.Render(text)
	case logbook.LevelWarn:
		return styleWarn.Render(text)
	default:
		return styleMuted.Render(text)
	}
}

func (m *SearchModel) status() string {
	switch {
	case m.err != nil:
		return styleError.Render("search failed: " + m.err.Error())
	case m.done && m.outcome != nil:
		return "search finished · " + m.outcome.ArchivePath
	case m.quitting:
		return "stopping..."
	default:
		return "q to stop"
	}
}

// SearchFunc runs a search, reporting each run to observer.
type SearchFunc func(ctx context.Context, observer ring.Observer) (*ring.Outcome, error)

// Run drives search under a bubbletea program. Quitting the program cancels
// the search; Run returns only after the search has returned.
func Run(ctx context.Context, title string, runs int, search SearchFunc, opts ...tea.ProgramOption) (*ring.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewSearchModel(title, runs)
	p := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	type result struct {
		outcome *ring.Outcome
		err     error
	}
	results := make(chan result, 1)
	go func() {
		outcome, err := search(ctx, func(ev ring.RunEvent) { p.Send(RunMsg(ev)) })
		results <- result{outcome: outcome, err: err}
		p.Send(DoneMsg{Outcome: outcome, Err: err})
	}()

	_, runErr := p.Run()
	cancel()
	res := <-results
	if res.err != nil {
		return nil, res.err
	}
	if runErr != nil {
		return nil, fmt.Errorf("tui: %w", runErr)
	}
	return res.outcome, nil
}
