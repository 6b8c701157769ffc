package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/internal/tts"
)

// Warmer starts background synthesis around the current paragraph. Warm
// is called with the controller lock held and must not block.
type Warmer interface {
	Warm(current int) int
}

// ControllerConfig holds optional collaborators of a Controller.
type ControllerConfig struct {
	Warmer Warmer // nil disables prefetching
	Logger *log.Logger
}

// Controller plays a document paragraph by paragraph.
//
// Every command bumps a generation counter. Work that outlives the command
// that started it (an on-demand synthesis, a completion callback) compares
// its generation and the playing flag under the lock before acting, so a
// stale result is dropped instead of played.
type Controller struct {
	paragraphs []string
	cache      *cache.AudioCache
	synth      tts.Synthesizer
	sink       audio.Sink
	warmer     Warmer
	logger     *log.Logger

	// ctx is used for auto-advance, which has no caller context.
	ctx context.Context

	mu          sync.Mutex
	machine     *phaseMachine
	current     int
	playing     bool
	loading     bool
	err         error
	gen         uint64
	version     uint64
	output      audio.Output
	cancelFetch context.CancelFunc
	closed      bool

	listenerMu sync.Mutex
	listeners  []func(State)
}

// NewController creates a controller for paragraphs. Audio is looked up in
// c first and synthesized on demand otherwise.
func NewController(ctx context.Context, paragraphs []string, c *cache.AudioCache, synth tts.Synthesizer, sink audio.Sink, config ControllerConfig) *Controller {
	logger := config.Logger
	if logger == nil {
		logger = log.WithPrefix("reader")
	}
	return &Controller{
		paragraphs: paragraphs,
		cache:      c,
		synth:      synth,
		sink:       sink,
		warmer:     config.Warmer,
		logger:     logger,
		ctx:        ctx,
		machine:    newPhaseMachine(),
		current:    NoParagraph,
	}
}

// Len returns the number of paragraphs.
func (c *Controller) Len() int {
	return len(c.paragraphs)
}

// Paragraph returns the text of paragraph i, or "" if out of range.
func (c *Controller) Paragraph(i int) string {
	if i < 0 || i >= len(c.paragraphs) {
		return ""
	}
	return c.paragraphs[i]
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Current: c.current,
		Playing: c.playing,
		Loading: c.loading,
		Phase:   c.machine.current,
		Total:   len(c.paragraphs),
		Err:     c.err,
		Version: c.version,
	}
}

// OnStateChange registers fn to be called with a snapshot after every
// change. fn runs outside the controller lock and may call back into it.
func (c *Controller) OnStateChange(fn func(State)) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) notify(s State) {
	c.listenerMu.Lock()
	listeners := make([]func(State), len(c.listeners))
	copy(listeners, c.listeners)
	c.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// changedLocked records a state change and returns the snapshot to notify.
func (c *Controller) changedLocked() State {
	c.version++
	return c.stateLocked()
}

func (c *Controller) setPhaseLocked(p Phase) {
	from := c.machine.current
	if !c.machine.transition(p) {
		c.logger.Error("invalid phase transition", "from", from, "to", p)
		c.machine.current = p
	}
}

// preemptLocked invalidates in-flight work and silences the current
// output. The output's completion callback will not advance.
func (c *Controller) preemptLocked() {
	c.gen++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	if c.output != nil {
		c.output.Halt()
		c.output = nil
	}
}

// Play starts reading at index and continues through the document until
// stopped. A negative index is an error; an index past the end stops
// playback and returns nil.
func (c *Controller) Play(ctx context.Context, index int) error {
	return c.play(ctx, index, 0, false)
}

// play implements Play. When auto is set the call comes from a finished
// output and is abandoned unless gen is still current.
func (c *Controller) play(ctx context.Context, index int, gen uint64, auto bool) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if auto && (gen != c.gen || !c.playing) {
		c.mu.Unlock()
		return nil
	}

	c.preemptLocked()
	gen = c.gen

	if index >= len(c.paragraphs) {
		c.playing = false
		c.loading = false
		c.setPhaseLocked(PhaseIdle)
		s := c.changedLocked()
		c.mu.Unlock()

		c.logger.Debug("end of document")
		c.notify(s)
		return nil
	}

	c.current = index
	c.playing = true
	c.loading = false
	c.err = nil
	c.cache.SetFocus(index)

	buf, hit := c.cache.Get(index)
	if c.warmer != nil {
		c.warmer.Warm(index)
	}

	if !hit {
		c.loading = true
		c.setPhaseLocked(PhaseLoading)
		fetchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		c.cancelFetch = cancel
		s := c.changedLocked()
		c.mu.Unlock()
		c.notify(s)

		// Not guarded by the pending set: an on-demand fetch may duplicate a
		// prefetch of the same paragraph, and whichever lands last is kept.
		var err error
		buf, err = c.fetch(fetchCtx, index)

		c.mu.Lock()
		if gen != c.gen || !c.playing {
			c.mu.Unlock()
			return nil
		}
		c.cancelFetch = nil
		if err != nil {
			return c.failLocked(index, err)
		}
		c.cache.Put(index, buf)
		c.loading = false
	}

	out, err := c.sink.Start(buf, func() {
		go c.advance(gen, index)
	})
	if err != nil {
		return c.failLocked(index, err)
	}
	c.output = out
	c.setPhaseLocked(PhasePlaying)
	s := c.changedLocked()
	c.mu.Unlock()

	c.logger.Debug("playing", "index", index, "duration", buf.Duration())
	c.notify(s)
	return nil
}

func (c *Controller) fetch(ctx context.Context, index int) (*audio.Buffer, error) {
	raw, err := c.synth.Synthesize(ctx, c.paragraphs[index])
	if err != nil {
		return nil, err
	}
	return audio.Decode(raw)
}

// failLocked reverts to a selected, silent state and unlocks.
func (c *Controller) failLocked(index int, cause error) error {
	perr := &PlaybackError{Index: index, Err: cause}
	c.playing = false
	c.loading = false
	c.err = perr
	c.setPhaseLocked(PhaseSelected)
	s := c.changedLocked()
	c.mu.Unlock()

	c.logger.Warn("playback failed", "index", index, "error", cause)
	c.notify(s)
	return perr
}

// advance moves to the next paragraph after index finished playing.
func (c *Controller) advance(gen uint64, index int) {
	err := c.play(c.ctx, index+1, gen, true)
	if err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Debug("auto-advance stopped", "index", index+1, "error", err)
	}
}

// Stop silences playback and cancels an on-demand fetch. It is a no-op
// when nothing is playing.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.playing && !c.loading {
		c.mu.Unlock()
		return
	}
	c.preemptLocked()
	c.playing = false
	c.loading = false
	c.setPhaseLocked(PhaseStopped)
	s := c.changedLocked()
	c.mu.Unlock()

	c.notify(s)
}

// Toggle stops playback if playing, and otherwise plays the current
// paragraph, or the first one if none is selected.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	playing, current := c.playing, c.current
	c.mu.Unlock()

	if playing {
		c.Stop()
		return nil
	}
	if current == NoParagraph {
		current = 0
	}
	return c.Play(ctx, current)
}

// Next plays the paragraph after the current one. It does nothing at the
// last paragraph.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	target := c.current + 1 // NoParagraph+1 is the first paragraph
	c.mu.Unlock()

	if target >= len(c.paragraphs) {
		return nil
	}
	return c.Play(ctx, target)
}

// Prev plays the paragraph before the current one. It does nothing at the
// first paragraph or when nothing is selected.
func (c *Controller) Prev(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	if current == NoParagraph {
		current = 0
	}
	target := current - 1
	if target < 0 {
		return nil
	}
	return c.Play(ctx, target)
}

// Select moves the cursor to index. While playing it jumps playback there.
func (c *Controller) Select(ctx context.Context, index int) error {
	if index < 0 || index >= len(c.paragraphs) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.playing {
		c.mu.Unlock()
		return c.Play(ctx, index)
	}
	if c.current == index && c.machine.current == PhaseSelected {
		c.mu.Unlock()
		return nil
	}
	c.current = index
	c.err = nil
	c.cache.SetFocus(index)
	c.setPhaseLocked(PhaseSelected)
	if c.warmer != nil {
		c.warmer.Warm(index)
	}
	s := c.changedLocked()
	c.mu.Unlock()

	c.notify(s)
	return nil
}

// Close stops playback for good. Further commands return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.preemptLocked()
	c.playing = false
	c.loading = false
	c.closed = true
}
