package output

import (
	"io"

	"github.com/dshills/apigate/internal/report"
)

// MarkdownWriter outputs the pull request comment for a comparison.
type MarkdownWriter struct{}

func (m *MarkdownWriter) WriteComparison(w io.Writer, c *Comparison) error {
	ew := &errWriter{w: w}
	body := report.New(c.Report).Render(c.Result)
	if body == "" {
		ew.println("No API changes. :white_check_mark:")
		return ew.err
	}
	ew.printf("%s", body)
	return ew.err
}
