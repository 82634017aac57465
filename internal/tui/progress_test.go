package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func TestRowUpdateMsg(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "TOOL", Width: 14},
		{Header: "STATUS", Width: 12},
		{Header: "VERSION", Width: 10},
	})
	m.AddRow("tool:swiftlint", []string{"swiftlint", "pending", "-"})
	m.AddRow("tool:swiftformat", []string{"swiftformat", "pending", "-"})

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "tool:swiftlint",
		Fields: map[string]string{"STATUS": "installed", "VERSION": "0.57.0"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[1] != "installed" {
		t.Errorf("expected STATUS=installed, got %q", m.rows[0].Fields[1])
	}
	if m.rows[0].Fields[2] != "0.57.0" {
		t.Errorf("expected VERSION=0.57.0, got %q", m.rows[0].Fields[2])
	}
	// Second row unchanged.
	if m.rows[1].Fields[1] != "pending" {
		t.Errorf("expected row 2 STATUS=pending, got %q", m.rows[1].Fields[1])
	}
}

func TestRowUpdateMsg_UnknownKey(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "STATUS", Width: 12},
	})
	m.AddRow("tool:swiftlint", []string{"pending"})

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "tool:nope",
		Fields: map[string]string{"STATUS": "installed"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[0] != "pending" {
		t.Errorf("expected STATUS unchanged, got %q", m.rows[0].Fields[0])
	}
}

func TestWorkDoneMsg(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "STATUS", Width: 12},
	})

	updated, cmd := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after WorkDoneMsg")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestErrorMsg(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "STATUS", Width: 12},
	})

	updated, cmd := m.Update(ErrorMsg{Err: tea.ErrProgramKilled})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ErrorMsg")
	}
	if m.Err() == nil {
		t.Error("expected Err() to be non-nil")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestView(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "TOOL", Width: 14},
		{Header: "STATUS", Width: 12},
		{Header: "VERSION", Width: 10},
	})
	m.AddRow("tool:swiftlint", []string{"swiftlint", "pending", "-"})
	m.AddRow("tool:xcodegen", []string{"xcodegen", "installed", "2.42.0"})

	view := m.View()

	if !strings.Contains(view, "TOOL") {
		t.Error("expected view to contain TOOL header")
	}
	if !strings.Contains(view, "STATUS") {
		t.Error("expected view to contain STATUS header")
	}
	if !strings.Contains(view, "VERSION") {
		t.Error("expected view to contain VERSION header")
	}
	if !strings.Contains(view, "swiftlint") {
		t.Error("expected view to contain swiftlint row")
	}
	if !strings.Contains(view, "2.42.0") {
		t.Error("expected view to contain version 2.42.0")
	}
	if !strings.Contains(view, "pending") {
		t.Error("expected view to contain pending status")
	}
	if !strings.Contains(view, "installed") {
		t.Error("expected view to contain installed status")
	}
}

func TestViewShowsTitle(t *testing.T) {
	m := NewProgressModel("Installing tools", []Column{
		{Header: "STATUS", Width: 12},
	})
	if !strings.Contains(m.View(), "Installing tools") {
		t.Error("expected view to contain the title")
	}
}

func TestNonEmptyOrDash(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "-"},
		{"  ", "-"},
		{"hello", "hello"},
		{" hello ", "hello"},
	}
	for _, tt := range tests {
		got := NonEmptyOrDash(tt.input)
		if got != tt.want {
			t.Errorf("NonEmptyOrDash(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"a longer string here", 10, "a longe..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		got := TruncateWithEllipsis(tt.input, tt.max)
		if got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

func TestMarqueeText(t *testing.T) {
	tests := []struct {
		text    string
		width   int
		tick    int
		want    string
		wantLen int
	}{
		// Text fits: returned as-is (no marquee)
		{"short", 10, 0, "short", 5},
		// Text exceeds: marquee sliding window, always width chars
		{"hello world here", 5, 0, "hello", 5},
		{"hello world here", 5, 1, "ello ", 5},
		{"hello world here", 5, 5, " worl", 5},
		// Wraps around with gap
		{"abcdef", 4, 0, "abcd", 4},
		{"abcdef", 4, 6, "   a", 4},
	}
	for _, tt := range tests {
		got := marqueeText(tt.text, tt.width, tt.tick)
		if len(got) != tt.wantLen {
			t.Errorf("marqueeText(%q, %d, %d) length = %d, want %d", tt.text, tt.width, tt.tick, len(got), tt.wantLen)
		}
		if got != tt.want {
			t.Errorf("marqueeText(%q, %d, %d) = %q, want %q", tt.text, tt.width, tt.tick, got, tt.want)
		}
	}
}

func TestSpinnerTickAdvancesMarquee(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "STATUS", Width: 12},
	})
	m.AddRow("tool:swiftlint", []string{"pending"})

	updated, cmd := m.Update(spinner.TickMsg{})
	m = updated.(ProgressModel)

	if m.tick != 1 {
		t.Errorf("expected tick=1 after spinner tick, got %d", m.tick)
	}
	if cmd == nil {
		t.Error("expected next tick command")
	}
}

func TestSpinnerStopsAfterDone(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "STATUS", Width: 12},
	})
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	updated, cmd := m.Update(spinner.TickMsg{})
	m = updated.(ProgressModel)

	if cmd != nil {
		t.Error("expected no tick command after done")
	}
}

func TestProgressCounts(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "TOOL", Width: 14},
		{Header: "STATUS", Width: 12},
	})
	m.AddRow("tool:swiftlint", []string{"swiftlint", "pending"})
	m.AddRow("tool:swiftformat", []string{"swiftformat", "pending"})
	m.AddRow("tool:xcodegen", []string{"xcodegen", "installed"})

	processed, total := m.progressCounts()
	if total != 3 {
		t.Errorf("expected total=3, got %d", total)
	}
	if processed != 1 {
		t.Errorf("expected processed=1, got %d", processed)
	}
}

func TestViewShowsFooterWhenNotDone(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "STATUS", Width: 12},
	})
	m.AddRow("tool:swiftlint", []string{"pending"})

	view := m.View()
	if !strings.Contains(view, "Working") {
		t.Error("expected view to contain Working footer when not done")
	}
}

func TestViewHidesFooterWhenDone(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "STATUS", Width: 12},
	})
	m.AddRow("tool:swiftlint", []string{"installed"})
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	view := m.View()
	if strings.Contains(view, "Working") {
		t.Error("expected view to NOT contain Working footer when done")
	}
}

func TestCtrlC(t *testing.T) {
	m := NewProgressModel("setup", []Column{
		{Header: "STATUS", Width: 12},
	})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ctrl+c")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}
