// Package tui renders the live session view for `iterguard watch`: a
// bubbletea model that re-reads the checkpoint database whenever it
// changes and shows iteration progress, score history, and the latest
// validate outcome for one task.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iterguard/iterguard/internal/checkpoint"
	"github.com/iterguard/iterguard/pkg/models"
)

// Snapshot is one consistent read of a task's chain state.
type Snapshot struct {
	Chain      *models.Chain
	Checkpoint *models.Checkpoint
	Validation *checkpoint.ValidationRecord
}

// SnapshotFunc fetches the current snapshot. Validation may be nil when
// the current iteration has not been validated yet.
type SnapshotFunc func() (Snapshot, error)

// RefreshMsg asks the model to re-read the database. The watch command
// sends it when the database file changes on disk.
type RefreshMsg struct{}

type snapshotMsg struct {
	snap Snapshot
	err  error
}

type tickMsg time.Time

// refreshInterval is the polling fallback for filesystems where change
// notifications are unreliable.
const refreshInterval = 2 * time.Second

// WatchModel is the bubbletea model for the watch view.
type WatchModel struct {
	taskID  string
	fetch   SnapshotFunc
	spinner spinner.Model

	snap    Snapshot
	loaded  bool
	loadErr error
	width   int

	headerStyle lipgloss.Style
	labelStyle  lipgloss.Style
	passStyle   lipgloss.Style
	failStyle   lipgloss.Style
	warnStyle   lipgloss.Style
	dimStyle    lipgloss.Style
	helpStyle   lipgloss.Style
}

// NewWatchModel creates the watch view for one task.
func NewWatchModel(taskID string, fetch SnapshotFunc) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return WatchModel{
		taskID:  taskID,
		fetch:   fetch,
		spinner: sp,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		passStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green
		failStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red
		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange
		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// NewWatchProgram creates a ready-to-run bubbletea program for the watch
// view.
func NewWatchProgram(taskID string, fetch SnapshotFunc) *tea.Program {
	return tea.NewProgram(NewWatchModel(taskID, fetch), tea.WithAltScreen())
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchCmd(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m WatchModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.fetch()
		return snapshotMsg{snap: snap, err: err}
	}
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case RefreshMsg:
		return m, m.fetchCmd()

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tick())

	case snapshotMsg:
		m.loaded = true
		m.loadErr = msg.err
		if msg.err == nil {
			m.snap = msg.snap
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(m.headerStyle.Render(fmt.Sprintf("iterguard watch — %s", m.taskID)))
	b.WriteString("\n\n")

	switch {
	case !m.loaded:
		b.WriteString(fmt.Sprintf("%s loading...\n", m.spinner.View()))
	case m.loadErr != nil:
		b.WriteString(m.failStyle.Render(fmt.Sprintf("error: %v", m.loadErr)))
		b.WriteString("\n")
	case m.snap.Chain == nil:
		b.WriteString(m.dimStyle.Render("no chain for this task"))
		b.WriteString("\n")
	default:
		m.renderChain(&b)
	}

	b.WriteString("\n")
	b.WriteString(m.helpStyle.Render("r: refresh • q: quit"))
	return b.String()
}

func (m WatchModel) renderChain(b *strings.Builder) {
	chain := m.snap.Chain

	if chain.Active {
		fmt.Fprintf(b, "%s %s\n", m.spinner.View(), m.labelStyle.Render("chain active"))
	} else {
		style := m.passStyle
		if chain.Outcome != models.OutcomeSuccess {
			style = m.warnStyle
		}
		fmt.Fprintf(b, "%s\n", style.Render(fmt.Sprintf("chain closed: %s", chain.Outcome)))
		if chain.Summary != "" {
			fmt.Fprintf(b, "%s\n", m.dimStyle.Render(chain.Summary))
		}
	}

	cp := m.snap.Checkpoint
	if cp == nil {
		return
	}

	fmt.Fprintf(b, "\n%s %d of %d\n",
		m.labelStyle.Render("iteration"), cp.IterationNumber, cp.Config.MaxIterations)
	b.WriteString(m.renderProgress(cp))
	b.WriteString("\n")

	if len(cp.History) > 0 {
		b.WriteString("\n")
		b.WriteString(m.labelStyle.Render("history"))
		b.WriteString("\n")
		for _, entry := range cp.History {
			mark := m.failStyle.Render("✗")
			if entry.Passed {
				mark = m.passStyle.Render("✓")
			}
			fmt.Fprintf(b, "  %s iteration %d: %.1f\n", mark, entry.Iteration, entry.Score)
		}
	}

	if rec := m.snap.Validation; rec != nil {
		b.WriteString("\n")
		b.WriteString(m.labelStyle.Render("last validate"))
		b.WriteString("\n")
		fmt.Fprintf(b, "  iteration %d: score %.1f, signal %s\n",
			rec.Iteration, rec.Report.ValidationScore, m.renderSignal(rec.Signal))
		if rec.Guard != "" {
			fmt.Fprintf(b, "  %s\n", m.warnStyle.Render(fmt.Sprintf("guard %s: %s", rec.Guard, rec.Reason)))
		}
		for _, line := range rec.Report.FailureMessages() {
			fmt.Fprintf(b, "  %s\n", m.dimStyle.Render(line))
		}
	}
}

// renderProgress draws the iteration budget as a bar.
func (m WatchModel) renderProgress(cp *models.Checkpoint) string {
	total := cp.Config.MaxIterations
	if total <= 0 {
		return ""
	}
	width := 30
	filled := cp.IterationNumber * width / total
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return "  " + m.dimStyle.Render(bar)
}

func (m WatchModel) renderSignal(s models.Signal) string {
	switch s {
	case models.SignalComplete:
		return m.passStyle.Render(string(s))
	case models.SignalBlocked:
		return m.warnStyle.Render(string(s))
	case models.SignalEscalate:
		return m.failStyle.Render(string(s))
	default:
		return m.labelStyle.Render(string(s))
	}
}
