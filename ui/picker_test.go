package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestPicker(notes ...string) pickerModel {
	m := newPickerModel(&commonModel{width: 80, height: 24})
	m.setSize(80, 24)
	for _, n := range notes {
		m.addFile(localFile{path: "/docs/" + n, note: n, size: 2048})
	}
	m.searchFinished()
	return m
}

func TestPicker_SortsFiles(t *testing.T) {
	m := newTestPicker("zeta.md", "alpha.pdf", "notes/report.docx")

	want := []string{"alpha.pdf", "notes/report.docx", "zeta.md"}
	for i, f := range m.filtered {
		if f.note != want[i] {
			t.Errorf("file %d = %q, want %q", i, f.note, want[i])
		}
	}
}

func TestPicker_CursorBounds(t *testing.T) {
	m := newTestPicker("a.md", "b.md", "c.md")

	m, _ = m.update(keyPress("up"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	for range 5 {
		m, _ = m.update(keyPress("down"))
	}
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
}

func TestPicker_ScrollsWithCursor(t *testing.T) {
	notes := make([]string, 30)
	for i := range notes {
		notes[i] = string(rune('a'+i%26)) + strings.Repeat("x", i/26) + ".md"
	}
	m := newTestPicker(notes...)

	for range 29 {
		m, _ = m.update(keyPress("down"))
	}
	if m.offset == 0 {
		t.Fatal("expected the list to scroll")
	}
	if m.cursor < m.offset || m.cursor >= m.offset+m.visibleRows() {
		t.Errorf("cursor %d outside visible rows %d..%d", m.cursor, m.offset, m.offset+m.visibleRows())
	}
}

func TestPicker_Open(t *testing.T) {
	m := newTestPicker("a.md", "b.md")
	m, _ = m.update(keyPress("down"))

	_, cmd := m.update(keyPress("enter"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(openFileMsg)
	if !ok {
		t.Fatalf("got %T, want openFileMsg", cmd())
	}
	if msg.note != "b.md" {
		t.Errorf("opened %q, want b.md", msg.note)
	}
}

func TestPicker_OpenEmpty(t *testing.T) {
	m := newTestPicker()
	if _, cmd := m.update(keyPress("enter")); cmd != nil {
		t.Error("enter on an empty list returned a command")
	}
}

func TestPicker_Filter(t *testing.T) {
	m := newTestPicker("meeting-notes.md", "quarterly-report.pdf", "readme.txt")

	m, _ = m.update(keyPress("/"))
	if !m.filtering {
		t.Fatal("expected filtering mode")
	}
	for _, r := range "rpt" {
		m, _ = m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(m.filtered) != 1 || m.filtered[0].note != "quarterly-report.pdf" {
		t.Fatalf("filtered = %v, want only quarterly-report.pdf", m.filtered)
	}

	m, _ = m.update(keyPress("enter"))
	if m.filtering || !m.filterApplied() {
		t.Error("enter should keep the filter and leave filtering mode")
	}

	m, _ = m.update(keyPress("esc"))
	if m.filterApplied() || len(m.filtered) != 3 {
		t.Errorf("esc should clear the filter, got %d files", len(m.filtered))
	}
}

func TestPicker_FilterKeepsSelection(t *testing.T) {
	m := newTestPicker("apple.md", "banana.md", "cherry.md")

	m.addFile(localFile{path: "/docs/aardvark.md", note: "aardvark.md"})
	if f, _ := m.selected(); f.note != "apple.md" {
		t.Errorf("selected = %q, want apple.md to stay selected", f.note)
	}
}

func TestPicker_Rescan(t *testing.T) {
	m := newTestPicker("a.md")

	_, cmd := m.update(keyPress("r"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(rescanMsg); !ok {
		t.Error("r should rescan")
	}

	m.reset()
	if _, cmd := m.update(keyPress("r")); cmd != nil {
		t.Error("rescan during a search returned a command")
	}
}

func TestPicker_View(t *testing.T) {
	m := newTestPicker("a.md", "b.pdf")
	view := m.view()

	for _, want := range []string{"2 documents", "a.md", "b.pdf", "2.0 kB"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}

func TestFileCount(t *testing.T) {
	if got := fileCount(1); got != "1 document" {
		t.Errorf("fileCount(1) = %q", got)
	}
	if got := fileCount(3); got != "3 documents" {
		t.Errorf("fileCount(3) = %q", got)
	}
}
