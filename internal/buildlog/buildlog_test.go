package buildlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `Build started 3/14/2024 10:02:11 AM.
     1>Project "/src/TizenFX.sln" on node 1 (default targets).
  12:5>src/Tizen.NUI/src/public/View.cs(42,17): warning CS0168: The variable 'e' is declared but never used [/src/Tizen.NUI/Tizen.NUI.csproj]
     3>src/Tizen.Log/Log.cs(7,1): error CS1002: ; expected [/src/Tizen.Log/Tizen.Log.csproj]
     3>src/Tizen.Log/Log.cs(9,5): warning CA1822: Member 'Write' does not access instance data and can be marked as static [/src/Tizen.Log/Tizen.Log.csproj]
Build FAILED.
`

func TestParse(t *testing.T) {
	l := Parse(sampleLog)

	require.Len(t, l.Warnings, 2)
	require.Len(t, l.Errors, 1)

	assert.Equal(t, Diagnostic{
		File:    "src/Tizen.NUI/src/public/View.cs",
		Line:    42,
		Column:  17,
		Kind:    KindWarning,
		Code:    "CS0168",
		Message: "The variable 'e' is declared but never used",
	}, l.Warnings[0])
	assert.Equal(t, "CA1822", l.Warnings[1].Code)
	assert.Equal(t, 9, l.Warnings[1].Line)

	assert.Equal(t, "src/Tizen.Log/Log.cs", l.Errors[0].File)
	assert.Equal(t, "CS1002", l.Errors[0].Code)
	assert.Equal(t, "; expected", l.Errors[0].Message)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		wantOK bool
		want   Diagnostic
	}{
		{
			name:   "warning with thread prefix",
			line:   "1>Foo.cs(3,4): warning CS0108: hides member [/p/Foo.csproj]",
			wantOK: true,
			want:   Diagnostic{File: "Foo.cs", Line: 3, Column: 4, Kind: KindWarning, Code: "CS0108", Message: "hides member"},
		},
		{
			name:   "path with parentheses",
			line:   "2>src/Gen (copy)/A.cs(10,2): error CS0246: type not found [/p/A.csproj]",
			wantOK: true,
			want:   Diagnostic{File: "src/Gen (copy)/A.cs", Line: 10, Column: 2, Kind: KindError, Code: "CS0246", Message: "type not found"},
		},
		{
			name: "no timestamp prefix",
			line: "Foo.cs(3,4): warning CS0108: hides member [/p/Foo.csproj]",
		},
		{
			name: "no project suffix",
			line: "1>Foo.cs(3,4): warning CS0108: hides member",
		},
		{
			name: "lowercase code",
			line: "1>Foo.cs(3,4): warning cs0108: hides member [/p/Foo.csproj]",
		},
		{
			name: "info kind is not a diagnostic",
			line: "1>Foo.cs(3,4): info CS0108: hides member [/p/Foo.csproj]",
		},
		{
			name: "plain text",
			line: "Time Elapsed 00:01:02.33",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParse_PreservesOrder(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		b.WriteString("1>A.cs(")
		b.WriteString(string(rune('0' + i)))
		b.WriteString(",1): warning CS0001: w [/p.csproj]\n")
	}
	l := Parse(b.String())
	require.Len(t, l.Warnings, 5)
	for i, w := range l.Warnings {
		assert.Equal(t, i+1, w.Line)
	}
	assert.Empty(t, l.Errors)
}

func TestParse_Empty(t *testing.T) {
	l := Parse("")
	assert.True(t, l.Empty())
	assert.Empty(t, l.All())
}

func TestLog_All(t *testing.T) {
	l := Parse(sampleLog)
	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, KindError, all[0].Kind)
	assert.Equal(t, KindWarning, all[1].Kind)
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{File: "A.cs", Line: 2, Column: 3, Kind: KindError, Code: "CS1", Message: "boom"}
	assert.Equal(t, "A.cs(2,3): error CS1: boom", d.String())
}

func TestLoadIfExists(t *testing.T) {
	dir := t.TempDir()

	l, ok, err := LoadIfExists(filepath.Join(dir, "missing.log"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, l.Empty())

	path := filepath.Join(dir, "msbuild.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

	l, ok, err = LoadIfExists(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, l.Warnings, 2)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.log"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseReader_LongLine(t *testing.T) {
	long := "1>A.cs(1,1): warning CS0001: " + strings.Repeat("x", 200*1024) + " [/p.csproj]\n"
	l, err := ParseReader(strings.NewReader(long))
	require.NoError(t, err)
	require.Len(t, l.Warnings, 1)
	assert.Len(t, l.Warnings[0].Message, 200*1024)
}
