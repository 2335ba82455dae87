// Package tui renders the rolling temperature window with Bubble Tea
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

type sampleMsg struct {
	view domain.View
	err  error
}

type tickMsg time.Time

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	hotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	coldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4096FF")).Bold(true)
	chartStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Model pulls one sample per refresh and redraws the window
type Model struct {
	ctx     context.Context
	src     ports.Source
	refresh time.Duration
	limits  domain.Limits

	view    domain.View
	err     error
	pending bool

	width  int
	height int
}

// NewModel constructs the display model
func NewModel(ctx context.Context, src ports.Source, refresh time.Duration, limits domain.Limits) *Model {
	return &Model{
		ctx:     ctx,
		src:     src,
		refresh: refresh,
		limits:  limits,
	}
}

// Err is the tick failure that ended the display, if any
func (m *Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.pull()
}

func (m *Model) pull() tea.Cmd {
	m.pending = true
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		view, err := src.Tick(ctx)
		return sampleMsg{view: view, err: err}
	}
}

func (m *Model) schedule() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	case sampleMsg:
		m.pending = false
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.view = msg.view
		return m, m.schedule()
	case tickMsg:
		if m.pending {
			return m, nil
		}
		return m, m.pull()
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Temperature (°C)"))
	b.WriteString("\n\n")
	b.WriteString(m.latestLine())
	b.WriteString("\n\n")

	width := m.width - axisWidth
	height := m.height - 7
	if m.height == 0 {
		height = defaultChartHeight
	}
	chart := renderChart(m.view.Temperatures(), m.limits, width, height)
	b.WriteString(chartStyle.Render(strings.Join(chart, "\n")))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render(m.footer()))

	return b.String()
}

func (m *Model) latestLine() string {
	if !m.view.HasLatest {
		return footerStyle.Render("waiting for data...")
	}

	temp := m.view.Latest.Temperature
	style, note := okStyle, ""
	switch {
	case m.limits.TooHot(temp):
		style, note = hotStyle, "  above T_max"
	case m.limits.TooCold(temp):
		style, note = coldStyle, "  below T_min"
	}

	line := fmt.Sprintf("%.1f °C at %s%s", temp, m.view.Latest.TimeLabel(), note)
	return style.Render(line)
}

func (m *Model) footer() string {
	first, last := "", ""
	if n := len(m.view.Points); n > 0 {
		first, last = m.view.Points[0].TimeLabel, m.view.Points[n-1].TimeLabel
	}
	return fmt.Sprintf("T_max %.1f  T_min %.1f  window %d  total %d  %s..%s  q: quit",
		m.limits.Max, m.limits.Min, len(m.view.Points), m.view.Total, first, last)
}
