package report

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/SDM-TIB/Trav-SHACL/shacl/validation"
)

// ConsolePrinter writes one colorized line per registered target as
// validation runs, the live counterpart to stats.txt's end-of-run
// summary. Color is auto-detected the way the teacher's own
// OutputFormatter does it, and degrades to plain text when writer
// isn't a terminal.
type ConsolePrinter struct {
	w        io.Writer
	useColor bool
}

// NewConsolePrinter builds a printer writing to w (nil defaults to stdout).
func NewConsolePrinter(w io.Writer) *ConsolePrinter {
	if w == nil {
		w = os.Stdout
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}
	return &ConsolePrinter{w: w, useColor: useColor}
}

// Record implements validation.Tracer.
func (p *ConsolePrinter) Record(shapeName string, valid bool) {
	if valid {
		mark := "valid"
		if p.useColor {
			mark = color.GreenString("valid")
		}
		fmt.Fprintf(p.w, "[%s] %s\n", shapeName, mark)
		return
	}
	mark := "violated"
	if p.useColor {
		mark = color.RedString("violated")
	}
	fmt.Fprintf(p.w, "[%s] %s\n", shapeName, mark)
}

var _ validation.Tracer = (*ConsolePrinter)(nil)

func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2)
}
