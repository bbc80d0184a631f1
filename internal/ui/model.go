// Package ui renders transmit progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Info describes the transmission being shown.
type Info struct {
	File      string
	Frequency uint64
	Serial    string
	Duration  time.Duration
}

// ProgressMsg reports how far the transmission has got.
type ProgressMsg struct {
	Progress float64
	Elapsed  time.Duration
}

// DoneMsg ends the program. Err is shown if set.
type DoneMsg struct {
	Err error
}

// Model is the transmit progress view.
type Model struct {
	info     Info
	progress float64
	elapsed  time.Duration
	done     bool
	aborted  bool
	err      error
	abort    chan<- struct{}
}

// NewModel creates a model. A value is sent on abort, without blocking, when
// the user quits early.
func NewModel(info Info, abort chan<- struct{}) Model {
	return Model{info: info, abort: abort}
}

// NewProgram wraps the model in a bubbletea program.
func NewProgram(m Model, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(m, opts...)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			if m.abort != nil {
				select {
				case m.abort <- struct{}{}:
				default:
				}
			}
			return m, tea.Quit
		}
	case ProgressMsg:
		// Progress never goes backwards.
		if msg.Progress > m.progress {
			m.progress = min(msg.Progress, 1)
		}
		m.elapsed = msg.Elapsed
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if msg.Err == nil {
			m.progress = 1
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transmitting %s\n", m.info.File)
	fmt.Fprintf(&b, "  Frequency: %.3f MHz\n", float64(m.info.Frequency)/1e6)
	if m.info.Serial != "" {
		fmt.Fprintf(&b, "  Device:    %s\n", m.info.Serial)
	}
	fmt.Fprintf(&b, "\n  [%s] %5.1f%%\n", renderBar(m.progress, 40), 100*m.progress)
	fmt.Fprintf(&b, "  %s / %s\n\n", formatDuration(m.elapsed), formatDuration(m.info.Duration))

	switch {
	case m.err != nil:
		fmt.Fprintf(&b, "Error: %v\n", m.err)
	case m.done:
		b.WriteString("Done.\n")
	case m.aborted:
		b.WriteString("Aborted.\n")
	default:
		b.WriteString("q: stop\n")
	}
	return b.String()
}

// Progress returns the last progress shown.
func (m Model) Progress() float64 { return m.progress }

// Aborted reports whether the user quit before the end.
func (m Model) Aborted() bool { return m.aborted }

func renderBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
