package buildlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the severity token of a diagnostic.
type Kind string

const (
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Diagnostic is one compiler finding taken from a build log.
type Diagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// String renders the diagnostic the way MSBuild prints it, without the
// project suffix.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s(%d,%d): %s %s: %s", d.File, d.Line, d.Column, d.Kind, d.Code, d.Message)
}

// Log holds the diagnostics of one build, each list in log order.
type Log struct {
	Warnings []Diagnostic `json:"warnings"`
	Errors   []Diagnostic `json:"errors"`
}

// All returns errors followed by warnings.
func (l Log) All() []Diagnostic {
	all := make([]Diagnostic, 0, len(l.Errors)+len(l.Warnings))
	all = append(all, l.Errors...)
	return append(all, l.Warnings...)
}

// Empty reports whether the log carries no diagnostics.
func (l Log) Empty() bool {
	return len(l.Warnings) == 0 && len(l.Errors) == 0
}

// maxLineBytes bounds a single log line. MSBuild lines with long project
// paths easily exceed bufio's 64KB default.
const maxLineBytes = 1 << 20

// diagnosticRe matches "<node>:<ts>><path>(<line>,<col>): <kind> <CODE>: <message> [/<project>".
var diagnosticRe = regexp.MustCompile(`^[0-9:]+>(.+)\(([0-9]+),([0-9]+)\): (error|warning) ([A-Z0-9]+): (.+) \[/`)

// ParseLine matches a single log line. ok is false when the line is not a
// diagnostic.
func ParseLine(line string) (d Diagnostic, ok bool) {
	m := diagnosticRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Diagnostic{}, false
	}
	lineNo, err := strconv.Atoi(m[2])
	if err != nil {
		return Diagnostic{}, false
	}
	col, err := strconv.Atoi(m[3])
	if err != nil {
		return Diagnostic{}, false
	}
	return Diagnostic{
		File:    m[1],
		Line:    lineNo,
		Column:  col,
		Kind:    Kind(m[4]),
		Code:    m[5],
		Message: m[6],
	}, true
}

// Parse extracts diagnostics from log text.
func Parse(text string) Log {
	// strings.Reader never fails and maxLineBytes is generous, so the only
	// possible error is a line over the limit, which is dropped.
	l, _ := ParseReader(strings.NewReader(text))
	return l
}

// ParseReader extracts diagnostics from r, one line at a time.
func ParseReader(r io.Reader) (Log, error) {
	var l Log
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		d, ok := ParseLine(sc.Text())
		if !ok {
			continue
		}
		switch d.Kind {
		case KindWarning:
			l.Warnings = append(l.Warnings, d)
		case KindError:
			l.Errors = append(l.Errors, d)
		}
	}
	if err := sc.Err(); err != nil {
		return l, fmt.Errorf("scanning build log: %w", err)
	}
	return l, nil
}

// Load parses the log file at path. A missing file yields an error that
// matches fs.ErrNotExist.
func Load(path string) (Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return Log{}, fmt.Errorf("opening build log: %w", err)
	}
	defer f.Close()
	l, err := ParseReader(f)
	if err != nil {
		return Log{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// LoadIfExists is Load for callers that treat a missing log as "no
// diagnostics". ok is false when the file does not exist.
func LoadIfExists(path string) (l Log, ok bool, err error) {
	l, err = Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Log{}, false, nil
	}
	if err != nil {
		return Log{}, false, err
	}
	return l, true, nil
}
