// Package ttstest provides a scriptable tts.Synthesizer for tests.
package ttstest

import (
	"context"
	"strings"
	"sync"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

var _ tts.Synthesizer = (*Synth)(nil)

// Synth is a fake synthesizer. By default it answers immediately with
// len(text) silent samples, so the decoded buffer length identifies the
// paragraph it was made from.
type Synth struct {
	mu          sync.Mutex
	calls       map[string]int
	order       []string
	failures    map[string]error
	gates       map[string]chan struct{}
	global      chan struct{}
	inFlight    int
	maxInFlight int
	started     chan string
}

// New creates a Synth that answers every request immediately.
func New() *Synth {
	return &Synth{
		calls:    make(map[string]int),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		started:  make(chan string, 1024),
	}
}

// Synthesize implements tts.Synthesizer.
func (s *Synth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyInput
	}

	s.mu.Lock()
	s.calls[text]++
	s.order = append(s.order, text)
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	gate := s.gates[text]
	global := s.global
	s.mu.Unlock()

	select {
	case s.started <- text:
	default:
	}

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	for _, g := range []chan struct{}{global, gate} {
		if g == nil {
			continue
		}
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	err := s.failures[text]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return make([]byte, 2*len(text)), nil
}

// Block makes requests for text wait until Unblock is called.
func (s *Synth) Block(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[text] = make(chan struct{})
}

// Unblock releases requests for text, current and future.
func (s *Synth) Unblock(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gates[text]; ok {
		close(g)
		delete(s.gates, text)
	}
}

// BlockAll makes every request wait until UnblockAll is called.
func (s *Synth) BlockAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = make(chan struct{})
}

// UnblockAll releases requests held by BlockAll.
func (s *Synth) UnblockAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.global != nil {
		close(s.global)
		s.global = nil
	}
}

// Fail makes requests for text return err. A nil err clears the failure.
func (s *Synth) Fail(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, text)
		return
	}
	s.failures[text] = err
}

// Calls returns how many requests were made for text.
func (s *Synth) Calls(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[text]
}

// Total returns the number of requests made.
func (s *Synth) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// InFlight returns the number of requests not yet answered.
func (s *Synth) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// MaxInFlight returns the highest number of concurrent requests seen.
func (s *Synth) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// Started delivers the text of each request as it begins.
func (s *Synth) Started() <-chan string {
	return s.started
}
