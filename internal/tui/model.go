package tui

import (
	"fmt"
	"strings"
	"time"

	"jobload/internal/runner"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	tickInterval = 200 * time.Millisecond
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")).MarginBottom(1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	subtle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type tickMsg time.Time

type Model struct {
	Runner    *runner.Runner
	Progress  progress.Model
	StartTime time.Time
	Duration  time.Duration
	Quitting  bool
	Width     int
	Height    int
}

func NewModel(r *runner.Runner, totalDur time.Duration) Model {
	return Model{
		Runner:    r,
		Progress:  progress.New(progress.WithDefaultGradient()),
		StartTime: time.Now(),
		Duration:  totalDur,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.Quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		elapsed := time.Since(m.StartTime)
		pct := float64(elapsed) / float64(m.Duration)
		if pct > 1.0 {
			pct = 1.0
		}

		cmd := m.Progress.SetPercent(pct)

		if pct >= 1.0 && m.Runner.GetInflight() == 0 {
			m.Quitting = true
			return m, tea.Quit
		}

		return m, tea.Batch(cmd, tickCmd())

	case progress.FrameMsg:
		progressModel, cmd := m.Progress.Update(msg)
		m.Progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.Quitting {
		return "Safe Exit.\n"
	}

	s := strings.Builder{}

	metrics := m.Runner.Metrics
	cfg := m.Runner.Cfg

	// Header
	s.WriteString(titleStyle.Render("⚡ JobLoad Partition Scaling Test"))
	s.WriteString("\n")

	s.WriteString(fmt.Sprintf("Users: %d | Spawn Rate: %.1f/s | Partitions: %d | Workers: %d\n",
		cfg.NumUsers, cfg.SpawnRate, metrics.PartitionCount, metrics.WorkerCount))
	s.WriteString(fmt.Sprintf("Host: %s\n", cfg.Host))
	s.WriteString(subtle.Render(fmt.Sprintf("Duration: %s (Elapsed: %s)", m.Duration, time.Since(m.StartTime).Round(time.Second))))
	s.WriteString("\n\n")

	errRate := metrics.ErrorRate()
	errCell := fmt.Sprintf("%.2f%%", errRate)
	if errRate > 5.0 {
		errCell = errStyle.Render(errCell)
	} else if errRate > 1.0 {
		errCell = warnStyle.Render(errCell)
	}

	leftCol := fmt.Sprintf(
		"Submitted:    %d\nSuccessful:   %d\nRate Limited: %d\nFailed:       %d\nError Rate:   %s\nInflight:     %d",
		metrics.TotalSubmitted(),
		metrics.Successful(),
		metrics.RateLimited(),
		metrics.Failed(),
		errCell,
		m.Runner.GetInflight(),
	)

	stats := m.Runner.Stats
	rightCol := fmt.Sprintf(
		"Response Time\n  Avg: %.1f ms\n  P50: %.1f ms\n  P90: %.1f ms\n  P99: %.1f ms\n  Max: %d ms",
		stats.AvgResponseMs(),
		stats.GetP50(),
		stats.GetP90(),
		stats.GetP99(),
		stats.ResponseTime.Max()/1000,
	)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(30).Render(leftCol),
		lipgloss.NewStyle().Width(30).Render(rightCol),
	))

	s.WriteString("\n\n")
	s.WriteString(m.Progress.View())
	s.WriteString("\n")
	s.WriteString(subtle.Render("Press q to stop early"))

	return s.String()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
