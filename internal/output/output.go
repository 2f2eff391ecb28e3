package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/apigate/internal/annotate"
	"github.com/dshills/apigate/internal/apidb"
	"github.com/dshills/apigate/internal/buildlog"
	"github.com/dshills/apigate/internal/report"
)

// Comparison is an API comparison ready for display.
type Comparison struct {
	Category string
	Result   *apidb.ComparisonResult
	Report   report.Config
}

// Diagnostics is a parsed build log, optionally with the review comments
// it would produce.
type Diagnostics struct {
	Version    string
	Log        buildlog.Log
	Placements []annotate.Placement
}

// ComparisonWriter writes a comparison in a specific format.
type ComparisonWriter interface {
	WriteComparison(w io.Writer, c *Comparison) error
}

// DiagnosticsWriter writes diagnostics in a specific format.
type DiagnosticsWriter interface {
	WriteDiagnostics(w io.Writer, d *Diagnostics) error
}

// GetComparisonWriter returns a writer for the specified format.
func GetComparisonWriter(format string) (ComparisonWriter, error) {
	switch format {
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported comparison format: %s", format)
	}
}

// GetDiagnosticsWriter returns a writer for the specified format.
func GetDiagnosticsWriter(format string) (DiagnosticsWriter, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported diagnostics format: %s", format)
	}
}

// WriteComparison writes c to outPath, or to stdout when outPath is empty.
func WriteComparison(c *Comparison, format, outPath string) error {
	writer, err := GetComparisonWriter(format)
	if err != nil {
		return err
	}
	return withOutput(outPath, func(w io.Writer) error {
		return writer.WriteComparison(w, c)
	})
}

// WriteDiagnostics writes d to outPath, or to stdout when outPath is empty.
func WriteDiagnostics(d *Diagnostics, format, outPath string) error {
	writer, err := GetDiagnosticsWriter(format)
	if err != nil {
		return err
	}
	return withOutput(outPath, func(w io.Writer) error {
		return writer.WriteDiagnostics(w, d)
	})
}

func withOutput(outPath string, fn func(w io.Writer) error) error {
	if outPath == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
