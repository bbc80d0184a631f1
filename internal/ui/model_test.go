package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func TestNewModel(t *testing.T) {
	model := NewModel(Info{File: "song.wav", Frequency: 100_000_000}, nil)
	if model.Progress() != 0 || model.Aborted() {
		t.Error("expected fresh model")
	}
	if cmd := model.Init(); cmd != nil {
		t.Error("expected no initial command")
	}
	view := model.View()
	if !strings.Contains(view, "song.wav") || !strings.Contains(view, "100.000 MHz") {
		t.Errorf("view missing transmission info:\n%s", view)
	}
}

func TestProgressMsg(t *testing.T) {
	model := NewModel(Info{Duration: 3 * time.Minute}, nil)

	model, cmd := update(t, model, ProgressMsg{Progress: 0.5, Elapsed: 90 * time.Second})
	if cmd != nil {
		t.Error("progress should not produce a command")
	}
	if model.Progress() != 0.5 {
		t.Errorf("expected progress 0.5, got %f", model.Progress())
	}
	view := model.View()
	if !strings.Contains(view, " 50.0%") || !strings.Contains(view, "1:30 / 3:00") {
		t.Errorf("unexpected view:\n%s", view)
	}

	model, _ = update(t, model, ProgressMsg{Progress: 0.25})
	if model.Progress() != 0.5 {
		t.Errorf("progress went backwards to %f", model.Progress())
	}
	model, _ = update(t, model, ProgressMsg{Progress: 1.5})
	if model.Progress() != 1 {
		t.Errorf("progress not clamped: %f", model.Progress())
	}
}

func TestDoneMsg(t *testing.T) {
	model := NewModel(Info{}, nil)
	model, cmd := update(t, model, DoneMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if model.Progress() != 1 || !strings.Contains(model.View(), "Done.") {
		t.Errorf("unexpected final state:\n%s", model.View())
	}

	model, _ = update(t, NewModel(Info{}, nil), DoneMsg{Err: errors.New("device lost")})
	if !strings.Contains(model.View(), "device lost") {
		t.Errorf("error not shown:\n%s", model.View())
	}
}

func TestQuitKeySignalsAbort(t *testing.T) {
	abort := make(chan struct{}, 1)
	model := NewModel(Info{}, abort)

	model, cmd := update(t, model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !model.Aborted() {
		t.Error("expected model to be aborted")
	}
	select {
	case <-abort:
	default:
		t.Fatal("abort not signalled")
	}

	// A second quit with a full channel must not block.
	abort <- struct{}{}
	update(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(0.5, 10); got != "█████░░░░░" {
		t.Errorf("renderBar(0.5) = %q", got)
	}
	if got := renderBar(2, 4); got != "████" {
		t.Errorf("renderBar(2) = %q", got)
	}
}
