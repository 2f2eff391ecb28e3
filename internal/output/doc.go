// Package output formats comparison results and build diagnostics for
// display or machine consumption.
//
// Comparisons support three formats:
//   - text:     colorized diff lines and a classification summary (default)
//   - markdown: the pull request comment the checker posts
//   - json:     counts, predicates, DocId lists and the rendered report
//
// Diagnostics support text, json and sarif (SARIF v2.1.0, one rule per
// compiler code, for upload to code scanning).
//
// Use [GetComparisonWriter] or [GetDiagnosticsWriter] for a format string;
// [WriteComparison] and [WriteDiagnostics] also select the destination.
package output
