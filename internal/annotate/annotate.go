package annotate

import (
	"fmt"
	"strings"

	"github.com/dshills/apigate/internal/buildlog"
	"github.com/dshills/apigate/internal/diffmap"
	"github.com/dshills/apigate/internal/redact"
)

// Placement is one review comment to post.
type Placement struct {
	Path     string `json:"path"`
	Position int    `json:"position"`
	Body     string `json:"body"`
	Line     int    `json:"line"`
}

// Key returns the identity of the comment.
func (p Placement) Key() Key {
	return Key{Path: p.Path, Position: p.Position, Body: p.Body}
}

// Key identifies a review comment by where it sits and what it says.
type Key struct {
	Path     string
	Position int
	Body     string
}

// Set is a set of comment keys. The zero value is not usable; use NewSet.
type Set struct {
	keys map[Key]struct{}
}

// NewSet returns a set holding keys.
func NewSet(keys ...Key) *Set {
	s := &Set{keys: make(map[Key]struct{}, len(keys))}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts k and reports whether it was new.
func (s *Set) Add(k Key) bool {
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	return true
}

// Contains reports whether k is in the set.
func (s *Set) Contains(k Key) bool {
	_, ok := s.keys[k]
	return ok
}

// Len returns the number of keys.
func (s *Set) Len() int { return len(s.keys) }

// Config controls placement.
type Config struct {
	// Exclude lists glob patterns of changed files that never get comments.
	Exclude []string `yaml:"exclude" json:"exclude"`
	// RedactPaths lists glob patterns of changed files whose diagnostic
	// messages are replaced instead of scanned for secrets.
	RedactPaths []string `yaml:"redactPaths" json:"redactPaths"`
}

// Placer maps diagnostics onto diff positions.
type Placer struct {
	cfg Config
}

// New returns a Placer.
func New(cfg Config) *Placer {
	return &Placer{cfg: cfg}
}

// Body formats the comment text for d, e.g. "warning CS0168: ...".
func Body(d buildlog.Diagnostic) string {
	return fmt.Sprintf("%s %s: %s", d.Kind, d.Code, d.Message)
}

// Place returns the comments to post for diags against the changed files of
// idx, in file, hunk and diagnostic order. Comments whose key is already in
// existing are skipped; every returned placement is added to existing. A nil
// existing set is treated as empty.
func (p *Placer) Place(idx *diffmap.Index, diags []buildlog.Diagnostic, existing *Set) []Placement {
	if existing == nil {
		existing = NewSet()
	}
	if idx == nil || len(diags) == 0 {
		return nil
	}

	// Normalize once; diagnostic paths come from Windows builds.
	files := make([]string, len(diags))
	for i, d := range diags {
		files[i] = strings.ReplaceAll(d.File, `\`, "/")
	}

	var out []Placement
	for _, fm := range idx.Files() {
		if fm.Empty() || redact.MatchPath(fm.Path, p.cfg.Exclude) {
			continue
		}
		for _, h := range fm.Hunks {
			for i, d := range diags {
				if files[i] == "" || !strings.HasSuffix(fm.Path, files[i]) {
					continue
				}
				if !h.Contains(d.Line) {
					continue
				}
				pos, ok := fm.Position(d.Line)
				if !ok {
					continue
				}
				d.Message = redact.Content(d.Message, fm.Path, p.cfg.RedactPaths)
				pl := Placement{Path: fm.Path, Position: pos, Body: Body(d), Line: d.Line}
				if !existing.Add(pl.Key()) {
					continue
				}
				out = append(out, pl)
			}
		}
	}
	return out
}
