package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/reader"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

const (
	headerHeight        = 2
	statusBarHeight     = 1
	gutterWidth         = 2
	doubleClickInterval = 400 * time.Millisecond
)

type (
	// stateMsg carries a controller snapshot for one session.
	stateMsg struct {
		session string
		state   reader.State
	}
	reloadMsg struct{ path string }

	statusMessageTimeoutMsg struct{}
)

type statusMessage struct {
	message string
	isError bool
}

type readerModel struct {
	common   *commonModel
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	showHelp bool

	session *reader.Session
	file    localFile
	state   reader.State

	// updates holds the latest controller snapshot; done is closed when
	// the session is unloaded.
	updates chan reader.State
	done    chan struct{}

	// first and last viewport line of each paragraph
	lineStarts []int
	lineEnds   []int

	status             statusMessage
	statusMessageTimer *time.Timer

	lastClick      time.Time
	lastClickIndex int
	spinning       bool

	watcher *fsnotify.Watcher
}

func newReaderModel(common *commonModel) readerModel {
	vp := viewport.New(0, 0)
	vp.YPosition = headerHeight

	m := readerModel{
		common:         common,
		viewport:       vp,
		spinner:        newSpinner(),
		help:           help.New(),
		lastClickIndex: reader.NoParagraph,
		state:          reader.State{Current: reader.NoParagraph},
	}
	m.help.ShowAll = true
	m.initWatcher()
	return m
}

func (m *readerModel) controller() *reader.Controller {
	if m.session == nil {
		return nil
	}
	return m.session.Controller
}

// load attaches the reader to a new session.
func (m *readerModel) load(s *reader.Session, f localFile) tea.Cmd {
	m.session = s
	m.file = f
	m.state = s.Controller.State()
	m.updates = make(chan reader.State, 1)
	m.done = make(chan struct{})
	m.lastClickIndex = reader.NoParagraph
	m.viewport.GotoTop()

	updates := m.updates
	s.Controller.OnStateChange(func(st reader.State) {
		// Keep only the newest snapshot.
		for {
			select {
			case updates <- st:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})

	m.render()

	return tea.Batch(
		waitForState(s.ID, m.updates, m.done),
		m.watchFile(),
	)
}

// unload stops playback and discards the session.
func (m *readerModel) unload() {
	if m.session == nil {
		return
	}
	log.Debug("unload", "file", m.file.path)

	m.session.Close()
	m.session = nil
	close(m.done)
	m.unwatchFile()

	if m.showHelp {
		m.toggleHelp()
	}
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.status = statusMessage{}
	m.spinning = false
	m.state = reader.State{Current: reader.NoParagraph}
	m.lineStarts, m.lineEnds = nil, nil
	m.viewport.SetContent("")
	m.viewport.YOffset = 0
}

func (m *readerModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = max(0, h-headerHeight-statusBarHeight)
	m.help.Width = w

	if m.showHelp {
		m.viewport.Height = max(0, m.viewport.Height-strings.Count(m.helpView(), "\n")-1)
	}
	m.render()
}

func (m *readerModel) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize(m.common.width, m.common.height)
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

func (m *readerModel) showStatusMessage(msg statusMessage) tea.Cmd {
	m.status = msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

// render lays out every paragraph, highlighting the current one, and
// records where each paragraph starts so clicks and scrolling can find it.
func (m *readerModel) render() {
	if m.session == nil {
		return
	}

	width := m.viewport.Width - gutterWidth - 2
	if w := int(m.common.cfg.WrapWidth); w > 0 && w < width { //nolint:gosec
		width = w
	}
	if width <= 0 {
		width = 80
	}

	paragraphs := m.session.Document.Paragraphs
	m.lineStarts = make([]int, len(paragraphs))
	m.lineEnds = make([]int, len(paragraphs))

	var (
		b    strings.Builder
		line int
	)
	for i, p := range paragraphs {
		if i > 0 {
			b.WriteByte('\n')
			line++
		}

		style, gutter := paragraphStyle, emptyGutter
		if i == m.state.Current {
			style, gutter = selectedStyle, selectedGutter
			if m.state.Playing {
				style, gutter = playingStyle, playingGutter
			}
		}

		lines := strings.Split(wordwrap.String(p, width), "\n")
		m.lineStarts[i] = line
		for j, l := range lines {
			if i > 0 || j > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(gutter + style.Render(l))
			line++
		}
		m.lineEnds[i] = line - 1
	}

	m.viewport.SetContent(b.String())
}

// paragraphAt returns the paragraph shown on a content line, or
// NoParagraph for the blank lines between paragraphs.
func (m readerModel) paragraphAt(line int) int {
	i := sort.SearchInts(m.lineStarts, line+1) - 1
	if i < 0 || i >= len(m.lineEnds) || line > m.lineEnds[i] {
		return reader.NoParagraph
	}
	return i
}

// scrollToCurrent keeps the current paragraph on screen.
func (m *readerModel) scrollToCurrent() {
	i := m.state.Current
	if i < 0 || i >= len(m.lineStarts) {
		return
	}
	top, bottom := m.lineStarts[i], m.lineEnds[i]
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case bottom >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(max(top, bottom-m.viewport.Height+1))
	}
}

func (m readerModel) update(msg tea.Msg) (readerModel, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case stateMsg:
		if m.session == nil || msg.session != m.session.ID {
			return m, nil
		}
		cmds = append(cmds, waitForState(m.session.ID, m.updates, m.done))
		if msg.state.Version <= m.state.Version {
			return m, tea.Batch(cmds...)
		}

		prev := m.state
		m.state = msg.state
		m.render()
		if prev.Current != m.state.Current {
			m.scrollToCurrent()
		}
		if m.state.Loading && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
		if m.state.Err != nil && m.state.Err != prev.Err {
			cmds = append(cmds, m.showStatusMessage(statusMessage{errorMessage(m.state.Err), true}))
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		if !m.state.Loading {
			m.spinning = false
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMessageTimeoutMsg:
		m.status = statusMessage{}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			return m.handleClick(msg)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m readerModel) handleKey(msg tea.KeyMsg) (readerModel, tea.Cmd) {
	ctrl := m.controller()
	if ctrl == nil {
		return m, nil
	}
	s := m.state

	switch {
	case key.Matches(msg, readerKeys.Play):
		if !s.HasCurrent() {
			return m, nil
		}
		target := s.Current
		return m, controllerCmd(m.common.ctx, func(ctx context.Context) error {
			return ctrl.Play(ctx, target)
		})

	case key.Matches(msg, readerKeys.Toggle):
		return m, controllerCmd(m.common.ctx, ctrl.Toggle)

	case key.Matches(msg, readerKeys.Next):
		if !s.Playing {
			return m, nil
		}
		return m, controllerCmd(m.common.ctx, ctrl.Next)

	case key.Matches(msg, readerKeys.Prev):
		if !s.Playing {
			return m, nil
		}
		return m, controllerCmd(m.common.ctx, ctrl.Prev)

	case key.Matches(msg, readerKeys.Up):
		target := s.Current - 1
		if !s.HasCurrent() {
			target = 0
		}
		if target < 0 {
			return m, nil
		}
		return m, selectCmd(m.common.ctx, ctrl, target)

	case key.Matches(msg, readerKeys.Down):
		target := s.Current + 1 // NoParagraph+1 is the first paragraph
		if target >= s.Total {
			return m, nil
		}
		return m, selectCmd(m.common.ctx, ctrl, target)

	case key.Matches(msg, readerKeys.Stop):
		return m, controllerCmd(m.common.ctx, func(context.Context) error {
			ctrl.Stop()
			return nil
		})

	case key.Matches(msg, readerKeys.Copy):
		text := ctrl.Paragraph(s.Current)
		if text == "" {
			return m, m.showStatusMessage(statusMessage{"Select a paragraph to copy", true})
		}
		// Copy using OSC 52
		termenv.Copy(text)
		// Copy using native system clipboard
		if err := clipboard.WriteAll(text); err != nil {
			log.Debug("native clipboard unavailable", "error", err)
		}
		return m, m.showStatusMessage(statusMessage{"Copied paragraph", false})

	case key.Matches(msg, readerKeys.Help):
		m.toggleHelp()
		return m, nil

	case key.Matches(msg, readerKeys.Back):
		return m, func() tea.Msg { return backToPickerMsg{} }

	case key.Matches(msg, readerKeys.PageUp, readerKeys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleClick selects the clicked paragraph, or plays it on a double click.
func (m readerModel) handleClick(msg tea.MouseMsg) (readerModel, tea.Cmd) {
	ctrl := m.controller()
	if ctrl == nil {
		return m, nil
	}

	line := msg.Y - headerHeight
	if line < 0 || line >= m.viewport.Height {
		return m, nil
	}
	i := m.paragraphAt(m.viewport.YOffset + line)
	if i == reader.NoParagraph {
		return m, nil
	}

	now := time.Now()
	double := i == m.lastClickIndex && now.Sub(m.lastClick) <= doubleClickInterval
	m.lastClick, m.lastClickIndex = now, i

	if double {
		m.lastClickIndex = reader.NoParagraph
		return m, controllerCmd(m.common.ctx, func(ctx context.Context) error {
			return ctrl.Play(ctx, i)
		})
	}
	return m, selectCmd(m.common.ctx, ctrl, i)
}

func (m readerModel) View() string {
	var b strings.Builder
	b.WriteString(m.headerView() + "\n\n")
	fmt.Fprint(&b, m.viewport.View()+"\n")

	// Footer
	m.statusBarView(&b)

	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}

	return b.String()
}

func (m readerModel) headerView() string {
	left := logoView() + " " + m.file.note

	right := subtleStyle.Render(progressText(m.state))
	if status := compactStatus(m.state, m.spinner.View()); status != "" {
		right = status + "  " + right
	}
	if bar := progressBar(m.state, 12); bar != "" && m.common.width > 60 {
		right += " " + bar
	}

	gap := m.common.width - ansi.PrintableRuneWidth(left) - ansi.PrintableRuneWidth(right) - 1
	if gap < 1 {
		left = truncate.StringWithTail(left, uint(max(0, m.common.width-ansi.PrintableRuneWidth(right)-2)), ellipsis) //nolint:gosec
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m readerModel) statusBarView(b *strings.Builder) {
	noteStyle := statusBarNoteStyle
	var note string
	switch {
	case m.status.message != "" && m.status.isError:
		noteStyle = statusBarErrorStyle
		note = m.status.message
	case m.status.message != "":
		noteStyle = statusBarMessageStyle
		note = m.status.message
	default:
		note = filepath.Base(m.file.path)
		if m.common.cfg.ShowCacheStats && m.session != nil {
			st := m.session.Cache.Stats()
			note += fmt.Sprintf(" | cache %d, %d pending, %.0f%% hits", st.Entries, st.Pending, st.HitRate*100)
		}
	}

	position := statusBarPosStyle(fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100))
	helpNote := statusBarHelpStyle(" ? Help ")

	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.common.width-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	note = noteStyle(note)

	// Empty space
	padding := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := noteStyle(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s", note, emptySpace, position, helpNote)
}

func (m readerModel) helpView() string {
	s := "\n" + m.help.FullHelpView(readerKeys.FullHelp()) + "\n"
	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.common.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := ansi.PrintableRuneWidth(lines[i])
			n := max(m.common.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}
		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}

// COMMANDS

// controllerCmd runs a playback command off the UI goroutine. Failures
// reach the view through the controller state.
func controllerCmd(ctx context.Context, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(ctx); err != nil && !errors.Is(err, reader.ErrClosed) {
			log.Debug("playback command failed", "error", err)
		}
		return nil
	}
}

func selectCmd(ctx context.Context, ctrl *reader.Controller, i int) tea.Cmd {
	return controllerCmd(ctx, func(ctx context.Context) error {
		return ctrl.Select(ctx, i)
	})
}

// waitForState delivers the next controller snapshot of a session.
func waitForState(session string, updates <-chan reader.State, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-updates:
			return stateMsg{session: session, state: s}
		case <-done:
			return nil
		}
	}
}

func (m *readerModel) initWatcher() {
	var err error
	m.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
	}
}

// watchFile reloads the document when it changes on disk.
func (m *readerModel) watchFile() tea.Cmd {
	if m.watcher == nil {
		return nil
	}

	path, dir, done := m.file.path, filepath.Dir(m.file.path), m.done
	if err := m.watcher.Add(dir); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		return nil
	}
	log.Info("fsnotify watching dir", "dir", dir)

	watcher := m.watcher
	return func() tea.Msg {
		for {
			select {
			case <-done:
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Name != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
				return reloadMsg{path: path}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Debug("fsnotify error", "dir", dir, "error", err)
			}
		}
	}
}

func (m *readerModel) unwatchFile() {
	if m.watcher == nil {
		return
	}
	dir := filepath.Dir(m.file.path)

	err := m.watcher.Remove(dir)
	if err == nil {
		log.Debug("fsnotify dir unwatched", "dir", dir)
	} else {
		log.Debug("fsnotify fail to unwatch dir", "dir", dir, "error", err)
	}
}
