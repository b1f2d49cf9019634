// Package ui prints human-facing command output: the banner, status lines
// and short summaries. Structured logs go through pkg/logger instead.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"golang.org/x/term"
)

// Logo is printed once at startup
const Logo = `
    ╔════════════════════════════════════════════════════╗
    ║  ██████╗  ██████╗ ███████╗████████╗                ║
    ║  ██╔══██╗██╔═══██╗██╔════╝╚══██╔══╝  W A L L       ║
    ║  ██████╔╝██║   ██║███████╗   ██║                   ║
    ║  ██╔═══╝ ██║   ██║╚════██║   ██║                   ║
    ║  ██║     ╚██████╔╝███████║   ██║                   ║
    ║  ╚═╝      ╚═════╝ ╚══════╝   ╚═╝                   ║
    ║        FAVORITES POSTER WALL GENERATOR             ║
    ╚════════════════════════════════════════════════════╝
`

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	quiet    bool
	useColor = term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		enabled := useColor
		mu.Unlock()
		if !enabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetOutput redirects all output, mainly for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetColor forces colors on or off
func SetColor(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	useColor = enabled
}

func printf(isError bool, format string, args ...interface{}) {
	mu.Lock()
	w, q := out, quiet
	mu.Unlock()
	if q && !isError {
		return
	}
	fmt.Fprintf(w, format, args...)
}

// PrintLogo prints the banner
func PrintLogo() {
	printf(false, "%s", Cyan(Logo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		printf(true, "%s\n", Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		printf(true, "%s\n", Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printf(false, "%s\n", Green(msg))
}

// PrintInfo prints a label and its value
func PrintInfo(label string, value string) {
	printf(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		printf(false, "%s\n", Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		printf(false, "%s\n", Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printf(false, "%s\n", Magenta(msg))
}

// PrintSummary prints key/value pairs sorted by key under a title
func PrintSummary(title string, values map[string]interface{}) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	printf(false, "\n%s\n", Magenta(title))
	for _, k := range keys {
		printf(false, "  %s %v\n", Dim(k+":"), values[k])
	}
}
