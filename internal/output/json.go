package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/dshills/apigate/internal/annotate"
	"github.com/dshills/apigate/internal/buildlog"
	"github.com/dshills/apigate/internal/report"
)

// JSONWriter outputs machine-readable JSON. Every document carries a
// fresh runId so CI artifacts of one run can be correlated.
type JSONWriter struct{}

type comparisonJSON struct {
	RunID              string   `json:"runId"`
	Category           string   `json:"category,omitempty"`
	Added              []string `json:"added"`
	Changed            []string `json:"changed"`
	Removed            []string `json:"removed"`
	TotalChangedCount  int      `json:"totalChangedCount"`
	HiddenChangedCount int      `json:"hiddenChangedCount"`
	PublicAPIChanged   bool     `json:"publicApiChanged"`
	InternalAPIChanged bool     `json:"internalApiChanged"`
	Report             string   `json:"report,omitempty"`
}

type diagnosticsJSON struct {
	RunID      string                `json:"runId"`
	Version    string                `json:"version,omitempty"`
	Errors     []buildlog.Diagnostic `json:"errors"`
	Warnings   []buildlog.Diagnostic `json:"warnings"`
	Placements []annotate.Placement  `json:"placements,omitempty"`
}

func (j *JSONWriter) WriteComparison(w io.Writer, c *Comparison) error {
	doc := comparisonJSON{
		RunID:    uuid.NewString(),
		Category: c.Category,
		Added:    []string{},
		Changed:  []string{},
		Removed:  []string{},
	}
	if res := c.Result; res != nil {
		doc.Added = res.Added
		doc.Changed = res.Changed
		doc.Removed = res.Removed
		doc.TotalChangedCount = res.TotalChangedCount
		doc.HiddenChangedCount = res.HiddenChangedCount
		doc.PublicAPIChanged = res.PublicAPIChanged()
		doc.InternalAPIChanged = res.InternalAPIChanged()
		doc.Report = report.New(c.Report).Render(res)
	}
	return writeJSON(w, doc)
}

func (j *JSONWriter) WriteDiagnostics(w io.Writer, d *Diagnostics) error {
	doc := diagnosticsJSON{
		RunID:      uuid.NewString(),
		Version:    d.Version,
		Errors:     d.Log.Errors,
		Warnings:   d.Log.Warnings,
		Placements: d.Placements,
	}
	if doc.Errors == nil {
		doc.Errors = []buildlog.Diagnostic{}
	}
	if doc.Warnings == nil {
		doc.Warnings = []buildlog.Diagnostic{}
	}
	return writeJSON(w, doc)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
