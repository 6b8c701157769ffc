package ui

import "github.com/charmbracelet/lipgloss"

var (
	normalFg  = lipgloss.AdaptiveColor{Light: "#4A4A4A", Dark: "#DDDADA"}
	dimFg     = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	cream     = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	fuchsia   = lipgloss.Color("#EE6FF8")
	green     = lipgloss.Color("#04B575")
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}
)

var (
	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Bold(true).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().Foreground(dimFg)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(red).
			Padding(0, 1)

	errorTextStyle = lipgloss.NewStyle().Foreground(red)

	paragraphStyle = lipgloss.NewStyle().Foreground(normalFg)
	selectedStyle  = lipgloss.NewStyle().Foreground(fuchsia)
	playingStyle   = lipgloss.NewStyle().Foreground(green).Bold(true)

	selectedGutter = lipgloss.NewStyle().Foreground(fuchsia).Render("│ ")
	playingGutter  = lipgloss.NewStyle().Foreground(green).Render("▌ ")
	emptyGutter    = "  "

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarPosStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(cream).
				Background(red).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render

	pickerCursorStyle = lipgloss.NewStyle().Foreground(fuchsia)
	pickerNoteStyle   = lipgloss.NewStyle().Foreground(normalFg)
	pickerMetaStyle   = lipgloss.NewStyle().Foreground(dimFg)
)

func logoView() string {
	return logoStyle.Render("readaloud")
}
