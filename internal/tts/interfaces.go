package tts

import "context"

// Synthesizer turns text into speech.
type Synthesizer interface {
	// Synthesize returns raw signed 16-bit little-endian mono PCM at
	// 24 kHz for text. Blank text fails with ErrEmptyInput; any other
	// failure wraps ErrSynthesisFailure.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Engine is a Synthesizer that can describe and release itself.
type Engine interface {
	Synthesizer

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Close releases any resources held by the engine.
	Close() error
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name       string // engine name, e.g. "gemini"
	Model      string // model identifier, if any
	Voice      string // prebuilt voice name
	SampleRate int    // audio sample rate in Hz
	IsOnline   bool   // whether the engine requires network access
}
