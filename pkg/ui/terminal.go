package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ASCII logo for the application
const ASCIILogo = `
 ████████╗███╗   ███╗███████╗ ██████╗██████╗  █████╗ ██████╗
 ╚══██╔══╝████╗ ████║██╔════╝██╔════╝██╔══██╗██╔══██╗██╔══██╗
    ██║   ██╔████╔██║███████╗██║     ██████╔╝███████║██████╔╝
    ██║   ██║╚██╔╝██║╚════██║██║     ██╔══██╗██╔══██║██╔═══╝
    ██║   ██║ ╚═╝ ██║███████║╚██████╗██║  ██║██║  ██║██║
    ╚═╝   ╚═╝     ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝
          TRADEMARK IMAGE HARVESTER
`

var (
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))
	yellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3030")).Bold(true)
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#39FF14"))
	magentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Color functions for terminal output
var (
	Cyan    = cyanStyle.Render
	Yellow  = yellowStyle.Render
	Red     = redStyle.Render
	Green   = greenStyle.Render
	Magenta = magentaStyle.Render
	Dim     = dimStyle.Render
)

var (
	outMu     sync.Mutex
	out       io.Writer = os.Stdout
	quietMode bool
)

// SetOutput redirects terminal output; nil restores stdout
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// SetQuietMode suppresses everything but errors
func SetQuietMode(quiet bool) {
	outMu.Lock()
	defer outMu.Unlock()
	quietMode = quiet
}

func write(isError bool, s string) {
	outMu.Lock()
	defer outMu.Unlock()
	if quietMode && !isError {
		return
	}
	fmt.Fprintln(out, s)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	write(false, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	write(true, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	write(false, Green(msg))
}

// PrintInfo prints a labelled value
func PrintInfo(label string, value string) {
	write(false, fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	write(false, Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	write(false, Magenta(msg))
}
