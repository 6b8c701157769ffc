package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/gitcha"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"
)

const pickerChromeHeight = 7 // logo, filter, blank lines and help

type rescanMsg struct{}

// localFile is a readable document found on disk.
type localFile struct {
	path    string // absolute path
	note    string // path relative to the search root, for display
	size    int64
	modTime time.Time
}

func localFileFromResult(cwd string, res gitcha.SearchResult) localFile {
	f := localFile{
		path: res.Path,
		note: stripAbsolutePath(res.Path, cwd),
	}
	if res.Info != nil {
		f.size = res.Info.Size()
		f.modTime = res.Info.ModTime()
	}
	return f
}

type pickerModel struct {
	common    *commonModel
	files     []localFile
	filtered  []localFile
	cursor    int
	offset    int
	searching bool

	filterInput textinput.Model
	filtering   bool

	spinner spinner.Model
	help    help.Model
	height  int
}

func newPickerModel(common *commonModel) pickerModel {
	ti := textinput.New()
	ti.Prompt = "Find: "
	ti.PromptStyle = pickerCursorStyle
	ti.Cursor.Style = pickerCursorStyle
	ti.CharLimit = 256

	return pickerModel{
		common:      common,
		searching:   true,
		filterInput: ti,
		spinner:     newSpinner(),
		help:        help.New(),
	}
}

func newSpinner() spinner.Model {
	return spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(pickerCursorStyle),
	)
}

func (m *pickerModel) setSize(w, h int) {
	m.height = h
	m.help.Width = w
	m.filterInput.Width = max(0, w-len(m.filterInput.Prompt)-4)
	m.clampOffset()
}

func (m *pickerModel) reset() {
	m.files = nil
	m.filtered = nil
	m.cursor = 0
	m.offset = 0
	m.searching = true
}

func (m *pickerModel) addFile(f localFile) {
	m.files = append(m.files, f)
	sort.SliceStable(m.files, func(i, j int) bool {
		return m.files[i].note < m.files[j].note
	})
	m.applyFilter()
}

func (m *pickerModel) searchFinished() {
	m.searching = false
}

func (m pickerModel) filterApplied() bool {
	return strings.TrimSpace(m.filterInput.Value()) != ""
}

// applyFilter rebuilds the visible list, ranking fuzzy matches by score.
func (m *pickerModel) applyFilter() {
	var selected string
	if m.cursor < len(m.filtered) {
		selected = m.filtered[m.cursor].path
	}

	if !m.filterApplied() {
		m.filtered = append(m.filtered[:0:0], m.files...)
	} else {
		targets := make([]string, len(m.files))
		for i, f := range m.files {
			targets[i] = f.note
		}
		matches := fuzzy.Find(m.filterInput.Value(), targets)
		m.filtered = make([]localFile, 0, len(matches))
		for _, match := range matches {
			m.filtered = append(m.filtered, m.files[match.Index])
		}
	}

	m.cursor = 0
	for i, f := range m.filtered {
		if f.path == selected {
			m.cursor = i
			break
		}
	}
	m.clampOffset()
}

func (m pickerModel) selected() (localFile, bool) {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return localFile{}, false
	}
	return m.filtered[m.cursor], true
}

// visibleRows is how many files fit on screen.
func (m pickerModel) visibleRows() int {
	return max(1, m.height-pickerChromeHeight)
}

func (m *pickerModel) clampOffset() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m pickerModel) update(msg tea.Msg) (pickerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}

		switch {
		case key.Matches(msg, pickerKeys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.clampOffset()
			}
		case key.Matches(msg, pickerKeys.Down):
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				m.clampOffset()
			}
		case key.Matches(msg, pickerKeys.Open):
			if f, ok := m.selected(); ok {
				return m, func() tea.Msg { return openFileMsg(f) }
			}
		case key.Matches(msg, pickerKeys.Filter):
			m.filtering = true
			return m, m.filterInput.Focus()
		case key.Matches(msg, pickerKeys.Clear):
			if m.filterApplied() {
				m.filterInput.Reset()
				m.applyFilter()
			}
		case key.Matches(msg, pickerKeys.Reload):
			if !m.searching {
				return m, func() tea.Msg { return rescanMsg{} }
			}
		}
	}

	return m, nil
}

func (m pickerModel) updateFilter(msg tea.KeyMsg) (pickerModel, tea.Cmd) {
	switch msg.String() {
	case "enter", "tab", "down", "up":
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.Reset()
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.filterInput.Value()
	m.filterInput, cmd = m.filterInput.Update(msg)
	if m.filterInput.Value() != before {
		m.applyFilter()
	}
	return m, cmd
}

func (m pickerModel) view() string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n  %s", logoView())
	switch {
	case m.searching:
		fmt.Fprintf(&b, "  %s %s", m.spinner.View(), subtleStyle.Render("Looking for documents…"))
	default:
		fmt.Fprintf(&b, "  %s", subtleStyle.Render(fileCount(len(m.files))))
	}
	b.WriteString("\n\n")

	if m.filtering || m.filterApplied() {
		fmt.Fprintf(&b, "  %s\n\n", m.filterInput.View())
	}

	switch {
	case len(m.filtered) == 0 && m.filterApplied():
		b.WriteString("  " + subtleStyle.Render("Nothing matched your filter.") + "\n")
	case len(m.filtered) == 0 && !m.searching:
		dir := m.common.cwd
		if dir == "" {
			dir, _ = os.Getwd()
		}
		fmt.Fprintf(&b, "  %s\n", subtleStyle.Render(
			"No PDF, Word, Markdown or text files found in "+filepath.Base(dir)+"."))
	}

	end := min(len(m.filtered), m.offset+m.visibleRows())
	for i := m.offset; i < end; i++ {
		b.WriteString(m.fileView(m.filtered[i], i == m.cursor))
		b.WriteByte('\n')
	}

	b.WriteString("\n  " + m.help.View(pickerKeys))
	return b.String()
}

func (m pickerModel) fileView(f localFile, selected bool) string {
	meta := humanize.Bytes(uint64(max(0, f.size))) //nolint:gosec
	if !f.modTime.IsZero() {
		meta += "  " + humanize.Time(f.modTime)
	}

	width := m.common.width - runewidth.StringWidth(meta) - 8
	note := f.note
	if width > 0 {
		note = truncate.StringWithTail(note, uint(width), ellipsis) //nolint:gosec
	}

	cursor := "  "
	noteStyle := pickerNoteStyle
	if selected {
		cursor = pickerCursorStyle.Render("│ ")
		noteStyle = pickerCursorStyle
	}
	return "  " + cursor + noteStyle.Render(note) + "  " + pickerMetaStyle.Render(meta)
}

func fileCount(n int) string {
	if n == 1 {
		return "1 document"
	}
	return fmt.Sprintf("%d documents", n)
}
