package diffmap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Hunk is the new-file range of one "@@ ... @@" header.
type Hunk struct {
	NewStart int `json:"newStart"`
	NewCount int `json:"newCount"`
}

// Contains reports whether new-file line falls inside the hunk.
func (h Hunk) Contains(line int) bool {
	return h.NewStart <= line && line < h.NewStart+h.NewCount
}

// FilePatch is one changed file and its patch text. Patch is empty for
// binary and rename-only changes.
type FilePatch struct {
	Path  string `json:"path"`
	Patch string `json:"patch,omitempty"`
}

// FileMap is the position index of one file's patch.
type FileMap struct {
	Path      string      `json:"path"`
	Positions map[int]int `json:"positions"`
	Hunks     []Hunk      `json:"hunks"`
}

// Position returns the patch position of new-file line.
func (m *FileMap) Position(line int) (int, bool) {
	pos, ok := m.Positions[line]
	return pos, ok
}

// HunkFor returns the hunk covering new-file line.
func (m *FileMap) HunkFor(line int) (Hunk, bool) {
	for _, h := range m.Hunks {
		if h.Contains(line) {
			return h, true
		}
	}
	return Hunk{}, false
}

// Empty reports whether the file had no patch.
func (m *FileMap) Empty() bool {
	return len(m.Hunks) == 0
}

// MalformedPatchError reports a patch line that cannot be indexed.
type MalformedPatchError struct {
	Path string
	Line int // 1-based line within the patch
	Text string
}

func (e *MalformedPatchError) Error() string {
	return fmt.Sprintf("malformed patch for %s at line %d: %q", e.Path, e.Line, e.Text)
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseHunkHeader parses "@@ -a[,b] +c[,d] @@". A missing count is 1.
func ParseHunkHeader(line string) (Hunk, bool) {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return Hunk{}, false
	}
	start, err := strconv.Atoi(m[3])
	if err != nil {
		return Hunk{}, false
	}
	count := 1
	if m[4] != "" {
		count, err = strconv.Atoi(m[4])
		if err != nil {
			return Hunk{}, false
		}
	}
	return Hunk{NewStart: start, NewCount: count}, true
}

// MapFile indexes one file's patch.
func MapFile(path, patch string) (*FileMap, error) {
	fm := &FileMap{Path: path, Positions: make(map[int]int)}
	if patch == "" {
		return fm, nil
	}

	lines := strings.Split(patch, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	newLine := 0
	inHunk := false
	for position, line := range lines {
		if strings.HasPrefix(line, "@@") {
			h, ok := ParseHunkHeader(line)
			if !ok {
				return nil, &MalformedPatchError{Path: path, Line: position + 1, Text: line}
			}
			fm.Hunks = append(fm.Hunks, h)
			newLine = h.NewStart
			inHunk = true
			continue
		}
		if !inHunk {
			return nil, &MalformedPatchError{Path: path, Line: position + 1, Text: line}
		}
		switch {
		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, `\`):
			// no counterpart in the new file
		default:
			fm.Positions[newLine] = position
			newLine++
		}
	}
	return fm, nil
}

// Index holds the FileMaps of a set of changed files.
type Index struct {
	files []*FileMap
	byKey map[string]*FileMap
}

// Build indexes every file patch. Files are kept in input order.
func Build(patches []FilePatch) (*Index, error) {
	idx := &Index{byKey: make(map[string]*FileMap, len(patches))}
	for _, p := range patches {
		fm, err := MapFile(p.Path, p.Patch)
		if err != nil {
			return nil, err
		}
		idx.files = append(idx.files, fm)
		idx.byKey[p.Path] = fm
	}
	return idx, nil
}

// Files returns the FileMaps in input order.
func (x *Index) Files() []*FileMap {
	return x.files
}

// File returns the FileMap for path.
func (x *Index) File(path string) (*FileMap, bool) {
	fm, ok := x.byKey[path]
	return fm, ok
}

// Position returns the patch position of line in path.
func (x *Index) Position(path string, line int) (int, bool) {
	fm, ok := x.byKey[path]
	if !ok {
		return 0, false
	}
	return fm.Position(line)
}

// Len returns the number of indexed files.
func (x *Index) Len() int {
	return len(x.files)
}
