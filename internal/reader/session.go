package reader

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/internal/document"
	"github.com/dgnsrekt/readaloud/internal/queue"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/google/uuid"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	Window          int // look-ahead offsets past the current paragraph
	MaxInFlight     int // concurrent prefetches, 0 for unbounded
	MaxCacheEntries int // cached paragraphs, 0 for unbounded
	Logger          *log.Logger
}

// SessionConfigFrom extracts the session settings from the TTS config.
func SessionConfigFrom(cfg tts.Config) SessionConfig {
	return SessionConfig{
		Window:          cfg.Window,
		MaxInFlight:     cfg.MaxInFlight,
		MaxCacheEntries: cfg.MaxCacheEntries,
	}
}

// Session is one loaded document together with its audio cache, prefetcher
// and controller. Closing it abandons everything in flight.
type Session struct {
	ID       string
	Document document.Document
	Started  time.Time

	Cache      *cache.AudioCache
	Prefetcher *queue.Prefetcher
	Controller *Controller

	cancel context.CancelFunc
	logger *log.Logger
}

// NewSession wires a cache, prefetcher and controller for doc and warms the
// first paragraphs.
func NewSession(ctx context.Context, doc document.Document, synth tts.Synthesizer, sink audio.Sink, config SessionConfig) *Session {
	id := uuid.NewString()

	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("session", id[:8])

	ctx, cancel := context.WithCancel(ctx)

	c := cache.NewAudioCache(config.MaxCacheEntries)
	p := queue.NewPrefetcher(ctx, doc.Paragraphs, c, synth, queue.Config{
		Window:      config.Window,
		MaxInFlight: config.MaxInFlight,
		Logger:      logger.WithPrefix("prefetch"),
	})
	ctrl := NewController(ctx, doc.Paragraphs, c, synth, sink, ControllerConfig{
		Warmer: p,
		Logger: logger.WithPrefix("reader"),
	})

	s := &Session{
		ID:         id,
		Document:   doc,
		Started:    time.Now(),
		Cache:      c,
		Prefetcher: p,
		Controller: ctrl,
		cancel:     cancel,
		logger:     logger,
	}

	p.Warm(0)
	logger.Info("session started", "file", doc.FileName, "paragraphs", doc.Len())
	return s
}

// Close stops playback, abandons in-flight synthesis and clears the cache.
func (s *Session) Close() {
	s.Controller.Close()
	s.cancel()
	s.Prefetcher.Close()

	stats := s.Cache.Stats()
	s.Cache.Reset()

	s.logger.Info("session closed",
		"uptime", time.Since(s.Started).Round(time.Second),
		"cached", stats.Entries,
		"hit_rate", stats.HitRate,
		"prefetched", s.Prefetcher.Stats().Succeeded,
	)
}
