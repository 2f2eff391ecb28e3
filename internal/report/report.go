package report

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dshills/apigate/internal/apidb"
	"github.com/dshills/apigate/internal/buildlog"
)

// Default banner text and collapse threshold.
const (
	DefaultPublicBanner      = "**Public API Changed**\nPlease follow the ACR process for the changed API below."
	DefaultInternalBanner    = "**Internal API Changed**"
	DefaultCollapseThreshold = 5
)

// Config controls the wording and layout of a change report.
type Config struct {
	// PublicBanner heads a report whose result changed public API.
	PublicBanner string `yaml:"publicBanner" json:"publicBanner"`
	// InternalBanner heads a report whose changes are all internal.
	InternalBanner string `yaml:"internalBanner" json:"internalBanner"`
	// CollapseThreshold is the change count above which the diff body is
	// wrapped in a <details> element. Zero means DefaultCollapseThreshold;
	// a negative value always collapses.
	CollapseThreshold int `yaml:"collapseThreshold" json:"collapseThreshold"`
}

// DefaultConfig returns the stock banners and threshold.
func DefaultConfig() Config {
	return Config{
		PublicBanner:      DefaultPublicBanner,
		InternalBanner:    DefaultInternalBanner,
		CollapseThreshold: DefaultCollapseThreshold,
	}
}

// Renderer turns comparison results into report markdown.
type Renderer struct {
	cfg Config
}

// New returns a Renderer. Empty fields of cfg take their defaults.
func New(cfg Config) *Renderer {
	def := DefaultConfig()
	if cfg.PublicBanner == "" {
		cfg.PublicBanner = def.PublicBanner
	}
	if cfg.InternalBanner == "" {
		cfg.InternalBanner = def.InternalBanner
	}
	if cfg.CollapseThreshold == 0 {
		cfg.CollapseThreshold = def.CollapseThreshold
	}
	return &Renderer{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Banner returns the heading for res, or "" when nothing changed.
func (r *Renderer) Banner(res *apidb.ComparisonResult) string {
	switch {
	case res == nil:
		return ""
	case res.PublicAPIChanged():
		return r.cfg.PublicBanner
	case res.InternalAPIChanged():
		return r.cfg.InternalBanner
	default:
		return ""
	}
}

// Collapsed reports whether the diff body of res is wrapped in <details>.
func (r *Renderer) Collapsed(res *apidb.ComparisonResult) bool {
	return res != nil && res.TotalChangedCount > r.cfg.CollapseThreshold
}

// Render returns the markdown report for res. A result without changes
// renders as "".
func (r *Renderer) Render(res *apidb.ComparisonResult) string {
	if res == nil || res.TotalChangedCount == 0 {
		return ""
	}

	var b strings.Builder
	if banner := r.Banner(res); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	collapsed := r.Collapsed(res)
	if collapsed {
		fmt.Fprintf(&b, "<details><summary>Show API Changes. (Added: %d, Changed: %d, Removed: %d)</summary>\n\n",
			len(res.Added), len(res.Changed), len(res.Removed))
	}

	b.WriteString("```diff\n")
	for _, line := range DiffLines(res) {
		b.WriteString(line)
	}
	b.WriteString("```\n")

	if collapsed {
		b.WriteString("</details>\n")
	}
	return b.String()
}

// DiffLines returns the diff body of res: added members, then changed, then
// removed, each group in DocId order. Every element ends in a newline.
func DiffLines(res *apidb.ComparisonResult) []string {
	if res == nil {
		return nil
	}
	var lines []string
	for _, id := range res.Added {
		d, _ := res.New.Get(id)
		lines = append(lines, DescriptorLines(d, "+ ")...)
	}
	for _, id := range res.Changed {
		od, _ := res.Old.Get(id)
		nd, _ := res.New.Get(id)
		lines = append(lines, diff(DescriptorLines(od, ""), DescriptorLines(nd, ""))...)
	}
	for _, id := range res.Removed {
		d, _ := res.Old.Get(id)
		lines = append(lines, DescriptorLines(d, "- ")...)
	}
	return lines
}

// DescriptorLines renders d as documentation lines, each starting with
// prefix and ending in a newline. The signature line is followed by a
// blank line.
func DescriptorLines(d apidb.Descriptor, prefix string) []string {
	var lines []string
	for _, p := range d.Privileges() {
		lines = append(lines, fmt.Sprintf("%s/// <privilege>%s</privilege>\n", prefix, p))
	}
	for _, f := range d.Features() {
		lines = append(lines, fmt.Sprintf("%s/// <feature>%s</feature>\n", prefix, f))
	}
	if since, ok := d.Since(); ok {
		lines = append(lines, fmt.Sprintf("%s/// <since_tizen> %s </since_tizen>\n", prefix, since))
	}
	if d.IsHidden {
		lines = append(lines, prefix+"[EditorBrowsable(EditorBrowsableState.Never)]\n")
	}
	static := ""
	if d.IsStatic {
		static = "static "
	}
	lines = append(lines, fmt.Sprintf("%s%s%s\n\n", prefix, static, d.Signature))
	return lines
}

// diff compares two renderings line by line. Equal lines get a two-space
// prefix, removed lines "- " and inserted lines "+ ". Within a replaced
// block, similar lines are paired so each removal sits next to the line
// that replaced it.
func diff(a, b []string) []string {
	var out []string
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'e':
			out = appendPrefixed(out, "  ", a[op.I1:op.I2])
		case 'd':
			out = appendPrefixed(out, "- ", a[op.I1:op.I2])
		case 'i':
			out = appendPrefixed(out, "+ ", b[op.J1:op.J2])
		case 'r':
			out = fancyReplace(out, a[op.I1:op.I2], b[op.J1:op.J2])
		}
	}
	return out
}

// Pairing thresholds for replaced lines.
const (
	pairFloor  = 0.74
	pairCutoff = 0.75
)

// fancyReplace pairs the most similar lines of a replaced block and
// recurses on the lines before and after the pair. Blocks without a pair
// above pairCutoff fall back to plainReplace.
func fancyReplace(out, a, b []string) []string {
	cruncher := difflib.NewMatcherWithJunk(nil, nil, true, isCharJunk)
	best, bestI, bestJ := pairFloor, -1, -1
	eqI, eqJ := -1, -1
	for j, bl := range b {
		cruncher.SetSeq2(chars(bl))
		for i, al := range a {
			if al == bl {
				if eqI < 0 {
					eqI, eqJ = i, j
				}
				continue
			}
			cruncher.SetSeq1(chars(al))
			if cruncher.RealQuickRatio() > best && cruncher.QuickRatio() > best {
				if r := cruncher.Ratio(); r > best {
					best, bestI, bestJ = r, i, j
				}
			}
		}
	}

	identical := false
	if best < pairCutoff {
		if eqI < 0 {
			return plainReplace(out, a, b)
		}
		bestI, bestJ, identical = eqI, eqJ, true
	}

	out = fancyHelper(out, a[:bestI], b[:bestJ])
	if identical {
		out = append(out, "  "+a[bestI])
	} else {
		out = append(out, "- "+a[bestI], "+ "+b[bestJ])
	}
	return fancyHelper(out, a[bestI+1:], b[bestJ+1:])
}

func fancyHelper(out, a, b []string) []string {
	switch {
	case len(a) > 0 && len(b) > 0:
		return fancyReplace(out, a, b)
	case len(a) > 0:
		return appendPrefixed(out, "- ", a)
	default:
		return appendPrefixed(out, "+ ", b)
	}
}

// plainReplace emits the shorter side first.
func plainReplace(out, a, b []string) []string {
	if len(b) < len(a) {
		out = appendPrefixed(out, "+ ", b)
		return appendPrefixed(out, "- ", a)
	}
	out = appendPrefixed(out, "- ", a)
	return appendPrefixed(out, "+ ", b)
}

func chars(s string) []string {
	return strings.Split(s, "")
}

func isCharJunk(s string) bool {
	return s == " " || s == "\t"
}

func appendPrefixed(dst []string, prefix string, lines []string) []string {
	for _, l := range lines {
		dst = append(dst, prefix+l)
	}
	return dst
}

// BuildErrors renders the issue comment reporting build errors. It returns
// "" when errs is empty.
func BuildErrors(errs []buildlog.Diagnostic) string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("### Build Error:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "> %s(%d): %s: %s\n", e.File, e.Line, e.Code, e.Message)
	}
	return b.String()
}
