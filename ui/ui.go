// Package ui provides the terminal interface of readaloud: a document picker
// and a reader view that plays a document aloud paragraph by paragraph.
package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/document"
	"github.com/dgnsrekt/readaloud/internal/reader"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/muesli/gitcha"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	ellipsis             = "…"
)

// Backend is what the UI needs to read documents aloud.
type Backend struct {
	Synth   tts.Synthesizer
	Sink    audio.Sink
	Session reader.SessionConfig
}

// NewProgram returns a new Tea program.
func NewProgram(ctx context.Context, cfg Config, backend Backend) *tea.Program {
	log.Debug("starting readaloud", "path", cfg.Path, "mouse", cfg.EnableMouse)

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	m := newModel(ctx, cfg, backend)
	return tea.NewProgram(m, opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type (
	initLocalFileSearchMsg struct {
		cwd string
		ch  chan gitcha.SearchResult
	}
	foundLocalFileMsg       gitcha.SearchResult
	localFileSearchFinished struct{}
)

type (
	openFileMsg        localFile
	documentLoadedMsg  struct {
		file   localFile
		doc    document.Document
		reload bool
	}
	documentErrMsg struct {
		file localFile
		err  error
	}
	backToPickerMsg struct{}
)

// state is the top-level application state.
type state int

const (
	stateShowPicker state = iota
	stateLoadingDocument
	stateShowDocument
)

func (s state) String() string {
	return map[state]string{
		stateShowPicker:      "showing file listing",
		stateLoadingDocument: "loading document",
		stateShowDocument:    "showing document",
	}[s]
}

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg     Config
	backend Backend
	ctx     context.Context
	cwd     string
	width   int
	height  int
}

type model struct {
	common   *commonModel
	state    state
	fatalErr error

	// loadErr is shown over the picker until a key is pressed.
	loadErr error

	// directFile is set when a single file was given on the command line.
	directFile bool

	picker pickerModel
	reader readerModel

	loading localFile
	spinner spinner.Model

	// Channel that receives paths to local documents
	// (via the github.com/muesli/gitcha package)
	localFileFinder chan gitcha.SearchResult
}

func newModel(ctx context.Context, cfg Config, backend Backend) model {
	common := &commonModel{
		cfg:     cfg,
		backend: backend,
		ctx:     ctx,
	}

	m := model{
		common:  common,
		state:   stateShowPicker,
		picker:  newPickerModel(common),
		reader:  newReaderModel(common),
		spinner: newSpinner(),
	}

	path := cfg.Path
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	if err != nil {
		log.Error("unable to stat file", "file", path, "error", err)
		m.fatalErr = err
		return m
	}
	if !info.IsDir() {
		abs, err := filepath.Abs(path)
		if err != nil {
			m.fatalErr = err
			return m
		}
		cwd, _ := os.Getwd()
		m.directFile = true
		m.state = stateLoadingDocument
		m.loading = localFile{
			path:    abs,
			note:    stripAbsolutePath(abs, cwd),
			size:    info.Size(),
			modTime: info.ModTime(),
		}
	}

	return m
}

func (m model) Init() tea.Cmd {
	if m.fatalErr != nil {
		return nil
	}

	switch m.state {
	case stateLoadingDocument:
		return tea.Batch(m.spinner.Tick, loadDocument(m.loading, false))
	default:
		return tea.Batch(m.picker.spinner.Tick, findLocalFiles(*m.common))
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	// A failed load is shown until any key is pressed
	if m.loadErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.loadErr = nil
			return m, nil
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		// Ctrl+C always quits no matter where in the application you are.
		case "ctrl+c":
			m.reader.unload()
			return m, tea.Quit

		case "q":
			if m.state == stateShowPicker && m.picker.filtering {
				break
			}
			m.reader.unload()
			return m, tea.Quit

		case "ctrl+z":
			return m, tea.Suspend
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.picker.setSize(msg.Width, msg.Height)
		m.reader.setSize(msg.Width, msg.Height)
		return m, nil

	case errMsg:
		m.fatalErr = msg.err
		return m, nil

	case initLocalFileSearchMsg:
		m.localFileFinder = msg.ch
		m.common.cwd = msg.cwd
		return m, findNextLocalFile(m)

	case foundLocalFileMsg:
		m.picker.addFile(localFileFromResult(m.common.cwd, gitcha.SearchResult(msg)))
		return m, findNextLocalFile(m)

	case localFileSearchFinished:
		m.picker.searchFinished()
		return m, nil

	case rescanMsg:
		m.picker.reset()
		return m, tea.Batch(m.picker.spinner.Tick, findLocalFiles(*m.common))

	case openFileMsg:
		m.state = stateLoadingDocument
		m.loading = localFile(msg)
		return m, tea.Batch(m.spinner.Tick, loadDocument(m.loading, false))

	case documentLoadedMsg:
		return m.openDocument(msg)

	case documentErrMsg:
		log.Error("unable to load document", "file", msg.file.path, "error", msg.err)
		if m.directFile && m.state == stateLoadingDocument {
			m.fatalErr = msg.err
			return m, nil
		}
		if m.state == stateShowDocument {
			// A failed reload keeps the current session.
			return m, m.reader.showStatusMessage(statusMessage{"Reload failed: " + msg.err.Error(), true})
		}
		m.state = stateShowPicker
		m.loadErr = msg.err
		return m, nil

	case backToPickerMsg:
		m.reader.unload()
		m.state = stateShowPicker
		if m.directFile {
			// We never scanned the directory of a file given directly.
			m.directFile = false
			m.picker.reset()
			m.common.cfg.Path = filepath.Dir(m.loading.path)
			return m, tea.Batch(m.picker.spinner.Tick, findLocalFiles(*m.common))
		}
		return m, nil

	case reloadMsg:
		if m.state == stateShowDocument && msg.path == m.reader.file.path {
			log.Info("document changed on disk, reloading", "file", msg.path)
			return m, loadDocument(m.reader.file, true)
		}
		return m, nil

	case spinner.TickMsg:
		// Each spinner ignores ticks that carry another spinner's ID.
		var cmd tea.Cmd
		if m.state == stateLoadingDocument {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.picker, cmd = m.picker.update(msg)
		cmds = append(cmds, cmd)
		m.reader, cmd = m.reader.update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case stateMsg, statusMessageTimeoutMsg:
		// Always pass these to the reader, it knows whether they are stale.
		var cmd tea.Cmd
		m.reader, cmd = m.reader.update(msg)
		return m, cmd
	}

	switch m.state {
	case stateShowPicker:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.update(msg)
		cmds = append(cmds, cmd)

	case stateShowDocument:
		var cmd tea.Cmd
		m.reader, cmd = m.reader.update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// openDocument starts a session for a freshly parsed document, replacing
// any session that was open.
func (m model) openDocument(msg documentLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.reload && m.state != stateShowDocument {
		return m, nil
	}

	m.reader.unload()

	b := m.common.backend
	session := reader.NewSession(m.common.ctx, msg.doc, b.Synth, b.Sink, b.Session)

	m.state = stateShowDocument
	cmd := m.reader.load(session, msg.file)
	if msg.reload {
		cmd = tea.Batch(cmd, m.reader.showStatusMessage(statusMessage{"Document changed, reloaded", false}))
	}
	return m, cmd
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}
	if m.loadErr != nil {
		return errorView(m.loadErr, false)
	}

	switch m.state {
	case stateLoadingDocument:
		return fmt.Sprintf("\n  %s Loading %s…", m.spinner.View(), m.loading.note)
	case stateShowDocument:
		return m.reader.View()
	default:
		return m.picker.view()
	}
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func findLocalFiles(m commonModel) tea.Cmd {
	return func() tea.Msg {
		log.Info("findLocalFiles")
		var (
			cwd = m.cfg.Path
			err error
		)

		if cwd == "" {
			cwd, err = os.Getwd()
		} else {
			var info os.FileInfo
			info, err = os.Stat(cwd)
			if err == nil && info.IsDir() {
				cwd, err = filepath.Abs(cwd)
			}
		}

		// Note that this is one error check for both cases above
		if err != nil {
			log.Error("error finding local files", "error", err)
			return errMsg{err}
		}

		log.Debug("local directory is", "cwd", cwd)

		// Switch between FindFiles and FindAllFiles to bypass .gitignore rules
		var ch chan gitcha.SearchResult
		if m.cfg.ShowAllFiles {
			ch, err = gitcha.FindAllFilesExcept(cwd, document.Extensions, nil)
		} else {
			ch, err = gitcha.FindFilesExcept(cwd, document.Extensions, ignorePatterns(m))
		}

		if err != nil {
			log.Error("error finding local files", "error", err)
			return errMsg{err}
		}

		return initLocalFileSearchMsg{ch: ch, cwd: cwd}
	}
}

func findNextLocalFile(m model) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-m.localFileFinder

		if ok {
			// Okay now find the next one
			return foundLocalFileMsg(res)
		}
		// We're done
		log.Debug("local file search finished")
		return localFileSearchFinished{}
	}
}

// loadDocument reads and parses a file off the UI goroutine.
func loadDocument(f localFile, reload bool) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return documentErrMsg{f, err}
		}
		doc, err := document.Parse(f.path, data, "")
		if err != nil {
			return documentErrMsg{f, err}
		}
		if info, err := os.Stat(f.path); err == nil {
			f.size = info.Size()
			f.modTime = info.ModTime()
		}
		return documentLoadedMsg{file: f, doc: doc, reload: reload}
	}
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// ETC

func ignorePatterns(m commonModel) []string {
	patterns := []string{"node_modules"}
	if m.cfg.HomeDir != "" {
		patterns = append(patterns, filepath.Join(m.cfg.HomeDir, "Library"))
	}
	return patterns
}

func stripAbsolutePath(fullPath, cwd string) string {
	fp, _ := filepath.EvalSymlinks(fullPath)
	cp, _ := filepath.EvalSymlinks(cwd)
	if fp == "" || cp == "" {
		return fullPath
	}
	return strings.ReplaceAll(fp, cp+string(os.PathSeparator), "")
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
