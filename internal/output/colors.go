package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// colorEnabled is decided once at startup: colors are only used when stdout
// is a terminal and NO_COLOR is unset.
var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == ""

func colorize(color string, text string) string {
	if !colorEnabled {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

// ColorRed colors text red
func ColorRed(text string) string {
	return colorize("1", text)
}

// ColorGreen colors text green
func ColorGreen(text string) string {
	return colorize("2", text)
}

// ColorYellow colors text yellow
func ColorYellow(text string) string {
	return colorize("3", text)
}

// ColorCyan colors text cyan
func ColorCyan(text string) string {
	return colorize("6", text)
}

// ColorDim renders text in a faint style
func ColorDim(text string) string {
	if !colorEnabled {
		return text
	}
	return lipgloss.NewStyle().Faint(true).Render(text)
}
