package apidb

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, id, doc string) Descriptor {
	t.Helper()
	d, err := ParseDescriptor(id, []byte(doc))
	require.NoError(t, err)
	return d
}

func snap(t *testing.T, docs map[string]string) *Snapshot {
	t.Helper()
	items := make(map[string]Descriptor, len(docs))
	for id, doc := range docs {
		items[id] = mustParse(t, id, doc)
	}
	return NewSnapshot(items)
}

func TestParseDescriptor(t *testing.T) {
	d := mustParse(t, "M:Tizen.Log.Write", `{
		"IsHidden": false,
		"IsStatic": true,
		"Signature": "void Write(string tag, string msg)",
		"Since": "6",
		"Privileges": ["http://tizen.org/privilege/appmanager.launch", "http://tizen.org/privilege/internet"],
		"Features": ["http://tizen.org/feature/network.wifi"],
		"Obsolete": {"Message": "use Print", "Level": 2}
	}`)

	assert.False(t, d.IsHidden)
	assert.True(t, d.IsStatic)
	assert.Equal(t, "void Write(string tag, string msg)", d.Signature)
	since, ok := d.Since()
	assert.True(t, ok)
	assert.Equal(t, "6", since)
	assert.Equal(t, []string{"http://tizen.org/privilege/appmanager.launch", "http://tizen.org/privilege/internet"}, d.Privileges())
	assert.Equal(t, []string{"http://tizen.org/feature/network.wifi"}, d.Features())
	assert.Contains(t, d.Ext, "Obsolete")
}

func TestParseDescriptor_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing IsHidden", `{"IsStatic": false, "Signature": "void F()"}`, FieldIsHidden},
		{"string IsHidden", `{"IsHidden": "no", "IsStatic": false, "Signature": "void F()"}`, FieldIsHidden},
		{"missing IsStatic", `{"IsHidden": false, "Signature": "void F()"}`, FieldIsStatic},
		{"missing Signature", `{"IsHidden": false, "IsStatic": false}`, FieldSignature},
		{"numeric Signature", `{"IsHidden": false, "IsStatic": false, "Signature": 3}`, FieldSignature},
		{"numeric Since", `{"IsHidden": false, "IsStatic": false, "Signature": "s", "Since": 6}`, FieldSince},
		{"Privileges not a list", `{"IsHidden": false, "IsStatic": false, "Signature": "s", "Privileges": "p"}`, FieldPrivileges},
		{"Features with number", `{"IsHidden": false, "IsStatic": false, "Signature": "s", "Features": ["a", 1]}`, FieldFeatures},
		{"null document", `null`, ""},
		{"array document", `[]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptor("T:Foo", []byte(tt.doc))
			require.Error(t, err)
			var mde *MalformedDescriptorError
			require.True(t, errors.As(err, &mde), "got %T", err)
			assert.Equal(t, "T:Foo", mde.DocID)
			assert.Equal(t, tt.field, mde.Field)
			assert.Contains(t, err.Error(), "T:Foo")
		})
	}
}

func TestCanonical_KeyOrderInsensitive(t *testing.T) {
	a := mustParse(t, "A", `{"Signature": "void F()", "IsHidden": false, "Meta": {"b": 1, "a": [2, 1]}, "IsStatic": false}`)
	b := mustParse(t, "A", `{"IsStatic": false, "Meta": {"a": [2, 1], "b": 1}, "IsHidden": false, "Signature": "void F()"}`)

	eq, err := a.Equal(b)
	require.NoError(t, err)
	assert.True(t, eq)

	ca, err := a.Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"IsHidden":false,"IsStatic":false,"Meta":{"a":[2,1],"b":1},"Signature":"void F()"}`, string(ca))
}

func TestCanonical_ListOrderMatters(t *testing.T) {
	a := mustParse(t, "A", `{"IsHidden": false, "IsStatic": false, "Signature": "s", "Privileges": ["p1", "p2"]}`)
	b := mustParse(t, "A", `{"IsHidden": false, "IsStatic": false, "Signature": "s", "Privileges": ["p2", "p1"]}`)
	eq, err := a.Equal(b)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestCanonical_NumbersVerbatim(t *testing.T) {
	d := mustParse(t, "A", `{"IsHidden": false, "IsStatic": false, "Signature": "s", "Level": 10000000000000000001}`)
	c, err := d.Canonical()
	require.NoError(t, err)
	assert.Contains(t, string(c), `"Level":10000000000000000001`)
}

func TestCanonical_NoHTMLEscape(t *testing.T) {
	d := Descriptor{Signature: "IList<T> Items { get; }"}
	c, err := d.Canonical()
	require.NoError(t, err)
	assert.Contains(t, string(c), "IList<T>")
}

func TestDescriptor_JSONRoundTrip(t *testing.T) {
	d := mustParse(t, "A", `{"IsHidden": true, "IsStatic": false, "Signature": "int X", "Since": "8"}`)
	raw, err := d.MarshalJSON()
	require.NoError(t, err)

	var back Descriptor
	require.NoError(t, back.UnmarshalJSON(raw))
	eq, err := d.Equal(back)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestDescriptor_With(t *testing.T) {
	d := Descriptor{Signature: "void F()"}
	d2 := d.With(FieldSince, "9")
	_, ok := d.Since()
	assert.False(t, ok, "With must not mutate the receiver")
	s, ok := d2.Since()
	assert.True(t, ok)
	assert.Equal(t, "9", s)
}

func TestCompare_Identity(t *testing.T) {
	s := snap(t, map[string]string{
		"A": `{"IsHidden": false, "IsStatic": false, "Signature": "void F()"}`,
		"B": `{"IsHidden": true, "IsStatic": true, "Signature": "int G"}`,
	})
	res, err := Compare(s, s)
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Removed)
	assert.Empty(t, res.Changed)
	assert.Zero(t, res.TotalChangedCount)
	assert.False(t, res.PublicAPIChanged())
	assert.False(t, res.InternalAPIChanged())
}

func TestCompare_AntiSymmetric(t *testing.T) {
	a := snap(t, map[string]string{
		"A": `{"IsHidden": false, "IsStatic": false, "Signature": "void F()"}`,
		"B": `{"IsHidden": false, "IsStatic": false, "Signature": "void G()"}`,
	})
	b := snap(t, map[string]string{
		"B": `{"IsHidden": false, "IsStatic": false, "Signature": "void G(int)"}`,
		"C": `{"IsHidden": true, "IsStatic": false, "Signature": "void H()"}`,
	})

	ab, err := Compare(a, b)
	require.NoError(t, err)
	ba, err := Compare(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab.Added, ba.Removed)
	assert.Equal(t, ab.Removed, ba.Added)
	assert.Equal(t, ab.Changed, ba.Changed)
	assert.Equal(t, []string{"C"}, ab.Added)
	assert.Equal(t, []string{"A"}, ab.Removed)
	assert.Equal(t, []string{"B"}, ab.Changed)
}

func TestCompare_SignatureChange(t *testing.T) {
	from := snap(t, map[string]string{"A": `{"IsHidden": false, "IsStatic": false, "Signature": "void F()"}`})
	to := snap(t, map[string]string{"A": `{"IsHidden": false, "IsStatic": false, "Signature": "void F(int)"}`})

	res, err := Compare(from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.Changed)
	assert.Equal(t, 1, res.TotalChangedCount)
	assert.Equal(t, 0, res.HiddenChangedCount)
	assert.True(t, res.PublicAPIChanged())
	assert.False(t, res.InternalAPIChanged())
}

func TestCompare_HiddenClassification(t *testing.T) {
	const (
		visible = `{"IsHidden": false, "IsStatic": false, "Signature": "%s"}`
		hidden  = `{"IsHidden": true, "IsStatic": false, "Signature": "%s"}`
	)
	doc := func(tmpl, sig string) string { return strings.Replace(tmpl, "%s", sig, 1) }

	tests := []struct {
		name         string
		from, to     map[string]string
		wantHidden   int
		wantTotal    int
		wantPublic   bool
		wantInternal bool
	}{
		{
			name:         "hidden added",
			from:         map[string]string{},
			to:           map[string]string{"A": doc(hidden, "a")},
			wantHidden:   1,
			wantTotal:    1,
			wantInternal: true,
		},
		{
			name:         "hidden removed",
			from:         map[string]string{"A": doc(hidden, "a")},
			to:           map[string]string{},
			wantHidden:   1,
			wantTotal:    1,
			wantInternal: true,
		},
		{
			name:         "hidden changed while hidden",
			from:         map[string]string{"A": doc(hidden, "a")},
			to:           map[string]string{"A": doc(hidden, "b")},
			wantHidden:   1,
			wantTotal:    1,
			wantInternal: true,
		},
		{
			name:       "newly exposed",
			from:       map[string]string{"A": doc(hidden, "a")},
			to:         map[string]string{"A": doc(visible, "a")},
			wantTotal:  1,
			wantPublic: true,
		},
		{
			name:       "newly hidden",
			from:       map[string]string{"A": doc(visible, "a")},
			to:         map[string]string{"A": doc(hidden, "a")},
			wantTotal:  1,
			wantPublic: true,
		},
		{
			name:       "visible added",
			from:       map[string]string{},
			to:         map[string]string{"A": doc(visible, "a")},
			wantTotal:  1,
			wantPublic: true,
		},
		{
			name: "mixed",
			from: map[string]string{
				"A": doc(hidden, "a"),
				"B": doc(visible, "b"),
			},
			to: map[string]string{
				"A": doc(hidden, "a2"),
				"C": doc(hidden, "c"),
			},
			wantHidden:   2,
			wantTotal:    3,
			wantPublic:   true,
			wantInternal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compare(snap(t, tt.from), snap(t, tt.to))
			require.NoError(t, err)
			assert.Equal(t, tt.wantHidden, res.HiddenChangedCount)
			assert.Equal(t, tt.wantTotal, res.TotalChangedCount)
			assert.Equal(t, tt.wantPublic, res.PublicAPIChanged())
			assert.Equal(t, tt.wantInternal, res.InternalAPIChanged())
		})
	}
}

func TestCompare_NilSnapshots(t *testing.T) {
	s := snap(t, map[string]string{"A": `{"IsHidden": false, "IsStatic": false, "Signature": "x"}`})
	res, err := Compare(nil, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.Added)
	assert.Equal(t, 0, res.Old.Len())
}

func TestCompare_UncanonicalizableExtension(t *testing.T) {
	good := Descriptor{Signature: "x"}
	bad := good.With("Weight", math.NaN())
	from := NewSnapshot(map[string]Descriptor{"A": good})
	to := NewSnapshot(map[string]Descriptor{"A": bad})

	_, err := Compare(from, to)
	var mde *MalformedDescriptorError
	require.ErrorAs(t, err, &mde)
	assert.Equal(t, "A", mde.DocID)
}

func TestLoadSnapshot(t *testing.T) {
	input := `[
		{"DocId": "T:Tizen.Log", "Info": {"IsHidden": false, "IsStatic": true, "Signature": "class Log"}},
		{"doc_id": "M:Tizen.Log.Hidden", "info": {"IsHidden": true, "IsStatic": false, "Signature": "void Hidden()"}}
	]`
	s, err := LoadSnapshot(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"M:Tizen.Log.Hidden", "T:Tizen.Log"}, s.Keys())

	d, ok := s.Get("M:Tizen.Log.Hidden")
	require.True(t, ok)
	assert.True(t, d.IsHidden)
}

func TestLoadSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "duplicate",
			input: `[{"DocId": "A", "Info": {"IsHidden": false, "IsStatic": false, "Signature": "x"}}, {"DocId": "A", "Info": {"IsHidden": false, "IsStatic": false, "Signature": "y"}}]`,
			check: func(t *testing.T, err error) {
				var dup *DuplicateDocIDError
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, "A", dup.DocID)
			},
		},
		{
			name:  "missing hidden flag",
			input: `[{"DocId": "A", "Info": {"IsStatic": false, "Signature": "x"}}]`,
			check: func(t *testing.T, err error) {
				var mde *MalformedDescriptorError
				require.ErrorAs(t, err, &mde)
				assert.Equal(t, "A", mde.DocID)
				assert.Equal(t, FieldIsHidden, mde.Field)
			},
		},
		{
			name:  "missing info",
			input: `[{"DocId": "A"}]`,
			check: func(t *testing.T, err error) {
				var mde *MalformedDescriptorError
				require.ErrorAs(t, err, &mde)
				assert.Equal(t, "Info", mde.Field)
			},
		},
		{
			name:  "not an array",
			input: `{"DocId": "A"}`,
			check: func(t *testing.T, err error) {
				require.Error(t, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSnapshot(strings.NewReader(tt.input))
			tt.check(t, err)
		})
	}
}

func TestLoadSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.api.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"DocId": "A", "Info": {"IsHidden": false, "IsStatic": false, "Signature": "x"}}]`), 0o644))

	s, err := LoadSnapshotFile(path)
	require.NoError(t, err)
	assert.True(t, s.Has("A"))

	_, err = LoadSnapshotFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSnapshot_Records(t *testing.T) {
	s := snap(t, map[string]string{
		"B": `{"IsHidden": false, "IsStatic": false, "Signature": "b"}`,
		"A": `{"Signature": "a", "IsStatic": true, "IsHidden": true}`,
	})
	recs, err := s.Records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0].DocID)
	assert.JSONEq(t, `{"IsHidden": true, "IsStatic": true, "Signature": "a"}`, string(recs[0].Info))
}
