package engines

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

var _ tts.Engine = (*GeminiEngine)(nil)

// contentGenerator is the part of genai.Models the engine needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiEngine synthesizes speech with the Gemini API. Responses carry raw
// 24 kHz signed 16-bit mono PCM as inline data.
type GeminiEngine struct {
	models  contentGenerator
	model   string
	voice   string
	timeout time.Duration
	retries int

	// nil when requests are not paced
	rateLimiter *rate.Limiter

	logger *log.Logger
}

// NewGeminiEngine creates a Gemini engine from configuration.
func NewGeminiEngine(ctx context.Context, config tts.GeminiConfig) (*GeminiEngine, error) {
	if config.APIKey == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "gemini engine", tts.ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "genai client", err)
	}

	return newGeminiEngine(client.Models, config), nil
}

func newGeminiEngine(models contentGenerator, config tts.GeminiConfig) *GeminiEngine {
	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}

	return &GeminiEngine{
		models:      models,
		model:       config.Model,
		voice:       config.Voice,
		timeout:     config.Timeout,
		retries:     config.Retries,
		rateLimiter: limiter,
		logger:      log.WithPrefix("gemini"),
	}
}

// Synthesize implements tts.Synthesizer.
func (e *GeminiEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "cannot synthesize blank text", tts.ErrEmptyInput)
	}

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			e.logger.Debug("retrying synthesis", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, canceled(ctx.Err())
			case <-time.After(backoff):
			}
		}

		pcm, err := e.generate(ctx, text)
		if err == nil {
			return pcm, nil
		}
		lastErr = err
		if !tts.IsRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (e *GeminiEngine) generate(ctx context.Context, text string) ([]byte, error) {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.Wait(ctx); err != nil {
			return nil, canceled(err)
		}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.models.GenerateContent(ctx, e.model, genai.Text(text), e.requestConfig())
	if err != nil {
		return nil, classify(ctx, err)
	}

	pcm, err := inlineAudio(resp)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("synthesized",
		"chars", len(text),
		"bytes", len(pcm),
		"took", time.Since(start))
	return pcm, nil
}

func (e *GeminiEngine) requestConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: e.voice,
				},
			},
		},
	}
}

// inlineAudio concatenates the inline audio parts of the first candidate.
func inlineAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, noAudio("response has no candidates")
	}

	var pcm []byte
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.InlineData == nil {
			continue
		}
		pcm = append(pcm, p.InlineData.Data...)
	}
	if len(pcm) == 0 {
		return nil, noAudio("response carried no audio data")
	}
	return pcm, nil
}

func noAudio(msg string) error {
	return tts.NewTTSError(tts.ErrorCodeNoAudio, msg, tts.ErrSynthesisFailure)
}

func canceled(err error) error {
	return tts.NewTTSError(tts.ErrorCodeCanceled, "synthesis canceled", fmt.Errorf("%w: %w", tts.ErrSynthesisFailure, err))
}

// classify maps a GenerateContent failure onto a TTSError.
func classify(ctx context.Context, err error) error {
	cause := fmt.Errorf("%w: %w", tts.ErrSynthesisFailure, err)

	if errors.Is(err, context.Canceled) {
		return tts.NewTTSError(tts.ErrorCodeCanceled, "synthesis canceled", cause)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return tts.NewTTSError(tts.ErrorCodeEngineTimeout, "speech request timed out", cause)
	}

	if apiErr, ok := findAPIError(err); ok {
		return tts.NewTTSError(apiCode(apiErr.Code), apiErr.Message, cause).
			WithContext("status", apiErr.Status).
			WithContext("http_code", apiErr.Code)
	}

	return tts.NewTTSError(tts.ErrorCodeEngineFailure, "speech request failed", cause)
}

// findAPIError walks the chain for a genai.APIError, which the SDK may hand
// out by value or by pointer.
func findAPIError(err error) (genai.APIError, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case genai.APIError:
			return v, true
		case *genai.APIError:
			if v != nil {
				return *v, true
			}
		}
	}
	return genai.APIError{}, false
}

func apiCode(status int) tts.ErrorCode {
	switch {
	case status == http.StatusTooManyRequests:
		return tts.ErrorCodeRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return tts.ErrorCodeEngineUnavailable
	case status == http.StatusBadRequest:
		return tts.ErrorCodeInvalidInput
	case status >= 500:
		return tts.ErrorCodeEngineFailure
	default:
		return tts.ErrorCodeNoAudio
	}
}

// Info implements tts.Engine.
func (e *GeminiEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       tts.EngineGemini,
		Model:      e.model,
		Voice:      e.voice,
		SampleRate: audio.SampleRate,
		IsOnline:   true,
	}
}

// Close implements tts.Engine.
func (e *GeminiEngine) Close() error {
	return nil
}
