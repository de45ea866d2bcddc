// Package diag provides colorized diagnostic formatting for messages
// written to standard error: warnings (non-fatal preflight problems) in
// yellow, fatal errors in red, and ANSI-aware padding helpers for
// aligned columns.
package diag

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc()
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// stripANSI removes ANSI escape sequences, used by padRight to measure a
// string's visible width rather than its byte length.
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// padRight pads a (possibly colored) string with spaces to reach width
// visible columns.
func padRight(s string, width int) string {
	visible := len(stripANSI(s))
	if visible < width {
		return s + strings.Repeat(" ", width-visible)
	}
	return s
}

// Warning formats a non-fatal preflight diagnostic (dropped input,
// inaccessible path) in yellow when color is enabled, with the program
// name dimmed so the context stands out.
func Warning(programName, context, message string) string {
	return fmt.Sprintf("%s: %s: %s", Dim(programName), Yellow(context), message)
}

// Fatal formats a fatal error diagnostic in red, with the program name
// dimmed the same way Warning dims it.
func Fatal(programName, context, message string) string {
	return fmt.Sprintf("%s: %s: %s", Dim(programName), Red(context), message)
}

// Label right-pads a column label for aligned multi-line diagnostic
// output (e.g. a multi-input preflight summary), honoring embedded ANSI
// color codes.
func Label(s string, width int) string {
	return padRight(s, width)
}
