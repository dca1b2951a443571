package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// PrintJSON writes v to stdout as indented JSON.
func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintJSONError writes an ErrorResponse to stdout as indented JSON.
func PrintJSONError(msg string) {
	_ = PrintJSON(NewError(msg))
}

// ColorEnabled reports whether stdout is a terminal and color has not
// been disabled via NO_COLOR.
func ColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Title renders a bold heading when color is enabled.
func Title(s string) string {
	if !ColorEnabled() {
		return s
	}
	return titleStyle.Render(s)
}

// Good renders a success string.
func Good(s string) string {
	if !ColorEnabled() {
		return s
	}
	return successStyle.Render(s)
}

// Warn renders a warning string.
func Warn(s string) string {
	if !ColorEnabled() {
		return s
	}
	return warnStyle.Render(s)
}

// Dim renders a de-emphasized string.
func Dim(s string) string {
	if !ColorEnabled() {
		return s
	}
	return dimStyle.Render(s)
}

// Line prints a formatted line to stdout.
func Line(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
