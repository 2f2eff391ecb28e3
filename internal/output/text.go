package output

import (
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/apigate/internal/report"
)

// TextWriter outputs human-readable terminal text. Color follows the
// terminal unless NoColor is set.
type TextWriter struct {
	NoColor bool
}

func (t *TextWriter) palette() (add, del, head *color.Color) {
	add = color.New(color.FgGreen)
	del = color.New(color.FgRed)
	head = color.New(color.Bold)
	if t.NoColor {
		add.DisableColor()
		del.DisableColor()
		head.DisableColor()
	}
	return add, del, head
}

func (t *TextWriter) WriteComparison(w io.Writer, c *Comparison) error {
	ew := &errWriter{w: w}
	add, del, head := t.palette()
	res := c.Result

	title := "API comparison"
	if c.Category != "" {
		title += ": " + c.Category
	}
	ew.println(head.Sprint(title))
	ew.println(strings.Repeat("─", 60))
	if res == nil || res.TotalChangedCount == 0 {
		ew.println("No API changes.")
		return ew.err
	}
	ew.printf("Added: %d  Changed: %d  Removed: %d  (hidden: %d of %d)\n",
		len(res.Added), len(res.Changed), len(res.Removed),
		res.HiddenChangedCount, res.TotalChangedCount)
	ew.printf("Public API changed:   %s\n", yesNo(res.PublicAPIChanged()))
	ew.printf("Internal API changed: %s\n", yesNo(res.InternalAPIChanged()))
	ew.println(strings.Repeat("─", 60))

	for _, entry := range report.DiffLines(res) {
		for _, line := range strings.Split(strings.TrimSuffix(entry, "\n"), "\n") {
			switch {
			case strings.HasPrefix(line, "+ "):
				ew.println(add.Sprint(line))
			case strings.HasPrefix(line, "- "):
				ew.println(del.Sprint(line))
			default:
				ew.println(line)
			}
		}
	}
	return ew.err
}

func (t *TextWriter) WriteDiagnostics(w io.Writer, d *Diagnostics) error {
	ew := &errWriter{w: w}
	_, del, head := t.palette()
	warn := color.New(color.FgYellow)
	if t.NoColor {
		warn.DisableColor()
	}

	ew.println(head.Sprint("Build diagnostics"))
	ew.println(strings.Repeat("─", 60))
	ew.printf("Errors: %d  Warnings: %d\n", len(d.Log.Errors), len(d.Log.Warnings))

	if d.Log.Empty() {
		ew.println("\nNo diagnostics found.")
		return ew.err
	}

	for _, e := range d.Log.Errors {
		ew.printf("\n%s %s\n", del.Sprint("[error]"), e.String())
	}
	for _, wd := range d.Log.Warnings {
		ew.printf("\n%s %s\n", warn.Sprint("[warn]"), wd.String())
	}

	if d.Placements != nil {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		ew.printf("Review comments: %d\n", len(d.Placements))
		for _, p := range d.Placements {
			ew.printf("  %s @%d (line %d): %s\n", p.Path, p.Position, p.Line, p.Body)
		}
	}
	return ew.err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
