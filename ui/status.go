package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/readaloud/internal/reader"
	"github.com/dgnsrekt/readaloud/internal/tts"
)

// phaseIcon returns an icon for the playback phase.
func phaseIcon(p reader.Phase) string {
	switch p {
	case reader.PhasePlaying:
		return "▶"
	case reader.PhaseLoading:
		return "⟳"
	case reader.PhaseStopped:
		return "■"
	case reader.PhaseSelected:
		return "•"
	default:
		return "○"
	}
}

// phaseColor returns the color used for the playback phase.
func phaseColor(p reader.Phase) lipgloss.TerminalColor {
	switch p {
	case reader.PhasePlaying:
		return green
	case reader.PhaseLoading:
		return lipgloss.Color("#00AAFF")
	case reader.PhaseStopped:
		return lipgloss.Color("#FF8800")
	default:
		return dimFg
	}
}

// progressText describes the read position, e.g. "3 / 42 paragraphs".
func progressText(s reader.State) string {
	unit := "paragraphs"
	if s.Total == 1 {
		unit = "paragraph"
	}
	if !s.HasCurrent() {
		return fmt.Sprintf("%d %s", s.Total, unit)
	}
	return fmt.Sprintf("%d / %d %s", s.Current+1, s.Total, unit)
}

// compactStatus returns a short, colored description of the playback phase.
// spin is the spinner frame shown while audio is generated.
func compactStatus(s reader.State, spin string) string {
	var text string
	switch {
	case s.Loading:
		text = spin + " generating audio…"
	case s.Phase == reader.PhasePlaying:
		text = phaseIcon(s.Phase) + " reading"
	case s.Phase == reader.PhaseStopped:
		text = phaseIcon(s.Phase) + " stopped"
	case s.AtEnd():
		text = "✓ finished"
	case s.Phase == reader.PhaseSelected:
		text = phaseIcon(s.Phase) + " ready"
	default:
		return ""
	}
	return lipgloss.NewStyle().Foreground(phaseColor(s.Phase)).Render(text)
}

// progressBar renders how far through the document the reader is.
func progressBar(s reader.State, width int) string {
	if s.Total <= 0 || width < 10 {
		return ""
	}

	done := 0
	if s.HasCurrent() {
		done = s.Current + 1
	}
	filled := done * width / s.Total
	if filled > width {
		filled = width
	}

	filledStyle := lipgloss.NewStyle().Foreground(phaseColor(s.Phase))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))

	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled))
}

// errorMessage turns a playback failure into a short message for the
// status bar.
func errorMessage(err error) string {
	var perr *reader.PlaybackError
	prefix := "Playback failed"
	if errors.As(err, &perr) {
		prefix = fmt.Sprintf("Paragraph %d failed", perr.Index+1)
	}

	var terr *tts.TTSError
	switch {
	case errors.As(err, &terr) && terr.Code == tts.ErrorCodeRateLimited:
		return prefix + ": rate limited, try again shortly"
	case errors.As(err, &terr) && terr.Code == tts.ErrorCodeEngineUnavailable:
		return prefix + ": speech engine unavailable"
	case errors.Is(err, tts.ErrEmptyInput):
		return prefix + ": nothing to read"
	default:
		return prefix + ": " + rootCause(err).Error()
	}
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
