package tts

import (
	"errors"
	"fmt"
)

// Common TTS errors
var (
	// ErrEmptyInput indicates the text to synthesize was blank
	ErrEmptyInput = errors.New("text to synthesize is empty")

	// ErrSynthesisFailure indicates the speech service failed or returned no audio
	ErrSynthesisFailure = errors.New("speech synthesis failed")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrMissingAPIKey indicates the remote engine has no credentials
	ErrMissingAPIKey = errors.New("no API key configured for the speech service")
)

// TTSError represents a TTS-specific error with additional context
type TTSError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TTSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"
	ErrorCodeNoAudio           ErrorCode = "NO_AUDIO"
	ErrorCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrorCodeCanceled          ErrorCode = "CANCELED"
)

// NewTTSError creates a new TTS error with context
func NewTTSError(code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *TTSError) WithContext(key string, value interface{}) *TTSError {
	e.Context[key] = value
	return e
}

// IsFatal returns true if retrying the request cannot help
func (e *TTSError) IsFatal() bool {
	switch e.Code {
	case ErrorCodeEngineUnavailable,
		ErrorCodeInvalidInput,
		ErrorCodeCanceled:
		return true
	default:
		return false
	}
}

// IsRetryable returns true if the operation can be retried
func (e *TTSError) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeEngineTimeout,
		ErrorCodeRateLimited,
		ErrorCodeEngineFailure:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err carries a retryable TTSError.
func IsRetryable(err error) bool {
	var te *TTSError
	if errors.As(err, &te) {
		return te.IsRetryable()
	}
	return false
}
