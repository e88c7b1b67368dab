package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DashboardSnapshot is one point-in-time view of a running pool, rendered
// as a row of stat boxes per section. Callers build one from
// pool.FlushMetrics and pool.WorkerLoad slices each poll tick.
type DashboardSnapshot struct {
	Summary string // e.g. pool.Pool.String()

	Window    []StatBox
	Selection []StatBox
	Queues    []StatBox

	IngestionWorkers []string
	OutputWorkers    []string
}

// StatBox is one labeled value rendered in a bordered box.
type StatBox struct {
	Label string
	Value string
	Color lipgloss.Color
}

type dashboardKeyMap struct {
	Quit key.Binding
}

var dashboardKeys = dashboardKeyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

type dashboardModel struct {
	poll     func() DashboardSnapshot
	interval time.Duration
	snap     DashboardSnapshot
	quitting bool
}

func newDashboardModel(poll func() DashboardSnapshot, interval time.Duration) dashboardModel {
	return dashboardModel{poll: poll, interval: interval, snap: poll()}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.tickCmd()
}

func (m dashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.poll()
		return m, m.tickCmd()
	case tea.KeyMsg:
		if key.Matches(msg, dashboardKeys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var out string
	out += TitleStyle.Render("Chunk Pool") + "\n"
	out += ValueStyle.Render(m.snap.Summary) + "\n\n"
	out += renderSection("Window", m.snap.Window)
	out += renderSection("Selection", m.snap.Selection)
	out += renderSection("Queues", m.snap.Queues)
	out += renderWorkerLoads("Ingestion workers", m.snap.IngestionWorkers)
	out += renderWorkerLoads("Output workers", m.snap.OutputWorkers)
	out += HelpStyle.Render("Press q or Ctrl+C to quit")
	return out
}

func renderSection(title string, boxes []StatBox) string {
	if len(boxes) == 0 {
		return ""
	}
	rendered := make([]string, len(boxes))
	for i, b := range boxes {
		rendered[i] = renderStatBox(b)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(highlightColor).Render(title) + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, rendered...) + "\n\n"
}

func renderStatBox(b StatBox) string {
	color := b.Color
	if color == "" {
		color = highlightColor
	}
	boxStyle := StatBoxStyle.BorderForeground(color)
	valueStr := StatValueStyle.Foreground(color).Render(b.Value)
	labelStr := StatLabelStyle.Render(b.Label)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

func renderWorkerLoads(title string, loads []string) string {
	if len(loads) == 0 {
		return ""
	}
	var out string
	out += LabelStyle.Render(title) + "\n"
	for i, l := range loads {
		out += fmt.Sprintf("  [%d] %s\n", i, l)
	}
	return out + "\n"
}

// RunDashboard runs the interactive pool-metrics dashboard, calling poll on
// every interval tick to refresh the snapshot, until the user quits.
func RunDashboard(poll func() DashboardSnapshot, interval time.Duration) error {
	model := newDashboardModel(poll, interval)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderDashboardStatic renders one snapshot as a string without entering
// interactive mode.
func RenderDashboardStatic(snap DashboardSnapshot) string {
	model := dashboardModel{snap: snap}
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
