package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/apigate/internal/buildlog"
)

// SARIFWriter outputs build diagnostics in SARIF v2.1.0 format, one rule
// per compiler code.
type SARIFWriter struct{}

func (s *SARIFWriter) WriteDiagnostics(w io.Writer, d *Diagnostics) error {
	sarif := buildSARIF(d)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

func buildSARIF(d *Diagnostics) sarifLog {
	var rules []sarifRule
	seen := make(map[string]bool)
	results := []sarifResult{}

	for _, diag := range d.Log.All() {
		level := kindToLevel(diag.Kind)

		// Rules in order of first appearance
		if !seen[diag.Code] {
			seen[diag.Code] = true
			rules = append(rules, sarifRule{
				ID:               diag.Code,
				Name:             diag.Code,
				ShortDescription: sarifMessage{Text: diag.Message},
				DefaultConfig:    sarifDefaultConfig{Level: level},
			})
		}

		results = append(results, sarifResult{
			RuleID:  diag.Code,
			Level:   level,
			Message: sarifMessage{Text: diag.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: toURI(diag.File)},
					Region: sarifRegion{
						StartLine:   diag.Line,
						StartColumn: diag.Column,
					},
				},
			}},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "apigate",
						Version: d.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}
}

// kindToLevel maps a diagnostic kind to a SARIF level.
func kindToLevel(k buildlog.Kind) string {
	switch k {
	case buildlog.KindError:
		return "error"
	case buildlog.KindWarning:
		return "warning"
	default:
		return "note"
	}
}

// toURI turns a Windows build path into a relative URI reference.
func toURI(path string) string {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		if path[i] == '\\' {
			out = append(out, '/')
			continue
		}
		out = append(out, path[i])
	}
	return string(out)
}
