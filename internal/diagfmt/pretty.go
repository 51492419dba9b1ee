package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"mirlean/internal/diag"
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <def> bb<block>[<stmt>]: <SEV> <CODE>: <Message>
// затем Notes с отступом.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	locStyle := newStyle(opts.Color, color.Bold)
	noteStyle := newStyle(opts.Color, color.FgCyan)
	for _, d := range items {
		sev := severityStyle(d.Severity, opts.Color)
		loc := d.Primary.String()
		if loc == "" {
			loc = "<crate>"
		}
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n",
			locStyle.Sprint(loc), sev.Sprint(d.Severity.String()), d.Code.ID(), d.Message); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintf(w, "  %s %s: %s\n", noteStyle.Sprint("note:"), n.Loc.String(), n.Msg); err != nil {
				return err
			}
		}
	}
	if hidden := bag.Len() - len(items); hidden > 0 {
		if _, err := fmt.Fprintf(w, "... %d more diagnostics\n", hidden); err != nil {
			return err
		}
	}
	return nil
}

func severityStyle(sev diag.Severity, enabled bool) *color.Color {
	switch sev {
	case diag.SevError:
		return newStyle(enabled, color.FgRed, color.Bold)
	case diag.SevWarning:
		return newStyle(enabled, color.FgYellow, color.Bold)
	default:
		return newStyle(enabled, color.FgBlue)
	}
}

func newStyle(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
