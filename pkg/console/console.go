//go:build !js && !wasm

package console

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/github/keepalive-loop/pkg/styles"
	"github.com/github/keepalive-loop/pkg/tty"
)

// ANSI control sequences the spinner uses to redraw its line in place.
const (
	ansiCarriageReturn = "\r"
	ansiClearLine      = "\033[K"
)

// IsAccessibleMode reports whether the ACCESSIBLE environment variable is
// set; spinners are then disabled and forms run in huh's accessible mode.
func IsAccessibleMode() bool {
	return os.Getenv("ACCESSIBLE") != ""
}

// isTTY checks if stdout is a terminal
func isTTY() bool {
	return tty.IsStdoutTerminal()
}

// applyStyle conditionally applies styling based on TTY status
func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// FormatSuccessMessage formats a success message with styling
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatInfoMessage formats an informational message
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, "ℹ ") + message
}

// FormatErrorMessage formats a simple error message (for stderr output)
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "✗ ") + message
}
