// Package engines contains the speech engines behind tts.Synthesizer: the
// Gemini speech generation API and an offline mock that renders a tone.
package engines
