package audio

import (
	"errors"
	"sync"
	"sync/atomic"
)

// MockSink implements Sink for testing purposes. It produces no sound;
// tests decide when an output finishes, or let it finish on its own.
type MockSink struct {
	mu      sync.Mutex
	outputs []*MockOutput

	// AutoFinish completes every output shortly after it starts.
	AutoFinish bool

	// StartErr, when set, is returned by Start.
	StartErr error

	startCount atomic.Int64
	haltCount  atomic.Int64
}

// NewMockSink creates a mock sink whose outputs only finish when told to.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Start implements Sink.
func (s *MockSink) Start(buf *Buffer, done func()) (Output, error) {
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	if buf == nil {
		return nil, errors.New("audio buffer is empty")
	}

	out := &MockOutput{Buffer: buf, done: done, sink: s}

	s.mu.Lock()
	s.outputs = append(s.outputs, out)
	auto := s.AutoFinish
	s.mu.Unlock()

	s.startCount.Add(1)

	if auto {
		go out.Finish()
	}
	return out, nil
}

// Outputs returns every output started so far, oldest first.
func (s *MockSink) Outputs() []*MockOutput {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*MockOutput, len(s.outputs))
	copy(out, s.outputs)
	return out
}

// Last returns the most recently started output, or nil.
func (s *MockSink) Last() *MockOutput {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.outputs) == 0 {
		return nil
	}
	return s.outputs[len(s.outputs)-1]
}

// Active returns the outputs that are neither finished nor halted.
func (s *MockSink) Active() []*MockOutput {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*MockOutput
	for _, o := range s.outputs {
		if o.IsActive() {
			active = append(active, o)
		}
	}
	return active
}

// StartCount returns how many outputs were started.
func (s *MockSink) StartCount() int {
	return int(s.startCount.Load())
}

// HaltCount returns how many outputs were halted while active.
func (s *MockSink) HaltCount() int {
	return int(s.haltCount.Load())
}

// MockOutput is an output started by MockSink.
type MockOutput struct {
	Buffer *Buffer

	sink     *MockSink
	mu       sync.Mutex
	done     func()
	halted   bool
	finished bool
}

// Halt implements Output.
func (o *MockOutput) Halt() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.halted || o.finished {
		return
	}
	o.halted = true
	o.sink.haltCount.Add(1)
}

// Finish simulates the buffer playing to the end. It reports whether the
// completion callback fired.
func (o *MockOutput) Finish() bool {
	o.mu.Lock()
	if o.halted || o.finished {
		o.mu.Unlock()
		return false
	}
	o.finished = true
	done := o.done
	o.mu.Unlock()

	if done != nil {
		done()
	}
	return true
}

// IsActive reports whether the output is still playing.
func (o *MockOutput) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.halted && !o.finished
}

// IsHalted reports whether the output was halted.
func (o *MockOutput) IsHalted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.halted
}
