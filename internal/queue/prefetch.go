package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"golang.org/x/sync/semaphore"
)

// DefaultWindow is how many paragraphs past the current one are warmed.
const DefaultWindow = 5

// Config configures a Prefetcher.
type Config struct {
	// Window is the number of offsets warmed past the current index. The
	// current index itself is always included, so Window+1 paragraphs are
	// covered.
	Window int

	// MaxInFlight bounds concurrent synthesis calls. 0 means unbounded.
	MaxInFlight int

	Logger *log.Logger
}

// Stats tracks prefetch activity.
type Stats struct {
	Issued    int64 // fetches started
	Succeeded int64 // fetches stored in the cache
	Failed    int64 // synthesis or decode failures
	Discarded int64 // results dropped because the cache was reset
}

// Prefetcher warms the audio cache ahead of the read position. Each index
// is fetched at most once at a time; the cache's pending set is the
// authority on what is in flight.
type Prefetcher struct {
	paragraphs []string
	cache      *cache.AudioCache
	synth      tts.Synthesizer
	window     int

	// nil when MaxInFlight is 0
	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	issued, succeeded, failed, discarded atomic.Int64

	logger *log.Logger
}

// NewPrefetcher creates a Prefetcher for one document. Fetches are tied to
// ctx and abandoned when it is canceled or Close is called.
func NewPrefetcher(ctx context.Context, paragraphs []string, c *cache.AudioCache, synth tts.Synthesizer, config Config) *Prefetcher {
	if config.Window < 0 {
		config.Window = 0
	}
	logger := config.Logger
	if logger == nil {
		logger = log.WithPrefix("prefetch")
	}

	var sem *semaphore.Weighted
	if config.MaxInFlight > 0 {
		sem = semaphore.NewWeighted(int64(config.MaxInFlight))
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Prefetcher{
		paragraphs: paragraphs,
		cache:      c,
		synth:      synth,
		window:     config.Window,
		sem:        sem,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

// Warm makes sure every paragraph from current to current+Window that is
// neither cached nor pending has a fetch in flight. It never blocks and
// returns the number of fetches it started. Calling it again for the same
// index starts nothing new.
func (p *Prefetcher) Warm(current int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0
	}

	started := 0
	for i := 0; i <= p.window; i++ {
		target := current + i
		if target >= len(p.paragraphs) {
			break
		}
		if target < 0 {
			continue
		}

		ticket, ok := p.cache.Reserve(target)
		if !ok {
			continue
		}

		started++
		p.issued.Add(1)
		p.wg.Add(1)
		go p.fetch(ticket, p.paragraphs[target])
	}

	if started > 0 {
		p.logger.Debug("warming", "current", current, "started", started)
	}
	return started
}

func (p *Prefetcher) fetch(ticket cache.Ticket, text string) {
	defer p.wg.Done()

	if p.sem != nil {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.cache.Release(ticket)
			return
		}
		defer p.sem.Release(1)
	}

	raw, err := p.synth.Synthesize(p.ctx, text)
	if err != nil {
		p.fail(ticket, err)
		return
	}

	buf, err := audio.Decode(raw)
	if err != nil {
		p.fail(ticket, err)
		return
	}

	if err := p.cache.Fulfill(ticket, buf); err != nil {
		p.discarded.Add(1)
		return
	}
	p.succeeded.Add(1)
}

// fail clears the pending marker so a later Warm, or an on-demand fetch by
// the player, can try the paragraph again.
func (p *Prefetcher) fail(ticket cache.Ticket, err error) {
	p.cache.Release(ticket)
	if p.ctx.Err() != nil {
		return
	}
	p.failed.Add(1)
	p.logger.Warn("prefetch failed", "index", ticket.Index, "error", err)
}

// Wait blocks until every fetch started so far has resolved.
func (p *Prefetcher) Wait() {
	p.wg.Wait()
}

// Close abandons outstanding fetches and waits for them to return. Warm is
// a no-op afterwards.
func (p *Prefetcher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
}

// Window returns the configured look-ahead.
func (p *Prefetcher) Window() int {
	return p.window
}

// Stats returns prefetch statistics.
func (p *Prefetcher) Stats() Stats {
	return Stats{
		Issued:    p.issued.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Discarded: p.discarded.Load(),
	}
}
