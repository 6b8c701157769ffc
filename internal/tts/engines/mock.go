package engines

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/tts"
)

var _ tts.Engine = (*MockEngine)(nil)

const (
	// secondsPerWord approximates 150 words per minute.
	secondsPerWord = 0.4

	// maxMockSeconds caps the length of a rendered paragraph.
	maxMockSeconds = 20.0

	mockAmplitude = 0.2
)

// MockEngine renders a short tone instead of speech. It needs no network
// access and is used for demos and tests.
type MockEngine struct {
	delay       time.Duration
	failureRate float64
	tone        float64

	calls atomic.Int64
}

// NewMockEngine creates a mock engine from configuration.
func NewMockEngine(config tts.MockConfig) *MockEngine {
	return &MockEngine{
		delay:       config.Delay,
		failureRate: config.FailureRate,
		tone:        config.Tone,
	}
}

// Synthesize implements tts.Synthesizer.
func (e *MockEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	e.calls.Add(1)

	if strings.TrimSpace(text) == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "cannot synthesize blank text", tts.ErrEmptyInput)
	}

	if e.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, canceled(ctx.Err())
		case <-time.After(e.delay):
		}
	}

	if e.failureRate > 0 && rand.Float64() < e.failureRate { //nolint:gosec
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "simulated failure", tts.ErrSynthesisFailure)
	}

	return e.render(text), nil
}

// render produces a sine tone whose length follows the word count.
func (e *MockEngine) render(text string) []byte {
	seconds := float64(len(strings.Fields(text))) * secondsPerWord
	seconds = math.Min(math.Max(seconds, secondsPerWord), maxMockSeconds)

	n := int(seconds * audio.SampleRate)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := mockAmplitude * math.Sin(2*math.Pi*e.tone*float64(i)/audio.SampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*math.MaxInt16))) //nolint:gosec
	}
	return pcm
}

// Calls returns how many times Synthesize was invoked.
func (e *MockEngine) Calls() int {
	return int(e.calls.Load())
}

// Info implements tts.Engine.
func (e *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       tts.EngineMock,
		Voice:      fmt.Sprintf("tone-%.0fHz", e.tone),
		SampleRate: audio.SampleRate,
	}
}

// Close implements tts.Engine.
func (e *MockEngine) Close() error {
	return nil
}
