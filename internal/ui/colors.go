package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	spotifyGreen = lipgloss.Color("#1DB954")
	okGreen      = lipgloss.Color("#04B575")
	errRed       = lipgloss.Color("#FF4D4D")
	warnOrange   = lipgloss.Color("#FFA500")
	mutedGray    = lipgloss.Color("#626262")
)

var styles = newPalette()

// palette holds the named styles of the player view
type palette struct {
	title   lipgloss.Style
	current lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	help    lipgloss.Style
	dim     lipgloss.Style
}

func newPalette() palette {
	return palette{
		title:   fg(spotifyGreen).Bold(true).MarginBottom(1),
		current: fg(spotifyGreen).Bold(true),
		ok:      fg(okGreen).Bold(true),
		err:     fg(errRed).Bold(true),
		warn:    fg(warnOrange),
		help:    fg(mutedGray).Italic(true),
		dim:     fg(mutedGray),
	}
}

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}
