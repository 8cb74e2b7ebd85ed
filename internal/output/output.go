// Package output provides consistent CLI output formatting: status
// lines with icons, a progress bar, and JSON/plain result rendering.
// Only the progress display depends on whether the destination is an
// interactive terminal; icons are always printed and no color is used.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Writer provides formatted output for CLI commands.
type Writer struct {
	out        io.Writer
	isTerminal bool
}

// New creates a Writer. isTerminal is auto-detected when out is an
// *os.File; any other writer is treated as a terminal, so Progress
// renders the in-place bar (useful for tests that write to a
// bytes.Buffer and assert on the rendered percentage).
func New(out io.Writer) *Writer {
	return &Writer{out: out, isTerminal: isTerminalWriter(out)}
}

func isTerminalWriter(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Status prints a status message with an icon.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

func (w *Writer) Success(msg string) { w.Status("✓", msg) }
func (w *Writer) Warning(msg string) { w.Status("!", msg) }
func (w *Writer) Error(msg string)   { w.Status("✗", msg) }

func (w *Writer) Successf(format string, args ...any) { w.Success(fmt.Sprintf(format, args...)) }
func (w *Writer) Warningf(format string, args ...any) { w.Warning(fmt.Sprintf(format, args...)) }
func (w *Writer) Errorf(format string, args ...any)   { w.Error(fmt.Sprintf(format, args...)) }

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress prints an in-place progress bar; on a non-terminal
// destination it instead prints a plain "done" line once complete, to
// avoid littering piped output with carriage returns.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}
	if !w.isTerminal {
		if current >= total {
			_, _ = fmt.Fprintf(w.out, "%s: %d/%d\n", msg, current, total)
		}
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
