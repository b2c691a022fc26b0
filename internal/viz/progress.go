package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type TickMsg time.Time

// ProgressMsg reports finished runs.
type ProgressMsg struct{ Done, Total int }

// DoneMsg ends the program; Err is the ensemble error, if any.
type DoneMsg struct{ Err error }

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

// ProgressModel shows ensemble progress until a DoneMsg arrives.
type ProgressModel struct {
	title    string
	done     int
	total    int
	frame    int
	start    time.Time
	finished bool
	err      error
}

func NewProgressModel(title string, total int) ProgressModel {
	return ProgressModel{title: title, total: total, start: time.Now()}
}

func (m ProgressModel) Err() error { return m.err }

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m ProgressModel) Init() tea.Cmd { return tick() }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case ProgressMsg:
		m.done, m.total = msg.Done, msg.Total
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case TickMsg:
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(m.title) + "\n")

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	spinner := AnimatedSpinner(m.frame)
	if m.finished {
		spinner = "✓"
	}
	fmt.Fprintf(&s, "%s %s %s\n", spinner, ProgressBar(pct, 40),
		MetricValue.Render(fmt.Sprintf("%d/%d", m.done, m.total)))
	s.WriteString(MetricLabel.Render("elapsed ") +
		MetricValue.Render(time.Since(m.start).Round(time.Second).String()) + "\n")
	if !m.finished {
		s.WriteString(helpStyle.Render("q: quit") + "\n")
	}
	return s.String()
}
