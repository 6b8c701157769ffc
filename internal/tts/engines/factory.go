package engines

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// New creates the engine selected by config.Engine.
func New(ctx context.Context, config tts.Config) (tts.Engine, error) {
	switch config.Engine {
	case tts.EngineGemini:
		return NewGeminiEngine(ctx, config.Gemini)
	case tts.EngineMock:
		return NewMockEngine(config.Mock), nil
	default:
		return nil, fmt.Errorf("%w: %q", tts.ErrInvalidEngine, config.Engine)
	}
}
