package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONWriter_Comparison(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).WriteComparison(&buf, sampleComparison(t)))

	var doc comparisonJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	_, err := uuid.Parse(doc.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "API9", doc.Category)
	assert.Equal(t, []string{"M:C"}, doc.Added)
	assert.Equal(t, []string{"M:A"}, doc.Changed)
	assert.Equal(t, []string{"M:B"}, doc.Removed)
	assert.Equal(t, 3, doc.TotalChangedCount)
	assert.Equal(t, 1, doc.HiddenChangedCount)
	assert.True(t, doc.PublicAPIChanged)
	assert.True(t, doc.InternalAPIChanged)
	assert.Contains(t, doc.Report, "```diff")
}

func TestJSONWriter_EmptyListsNotNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).WriteComparison(&buf, &Comparison{}))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, []any{}, raw["added"])
	assert.Equal(t, []any{}, raw["changed"])
	assert.Equal(t, []any{}, raw["removed"])
	assert.NotContains(t, raw, "report")
}

func TestJSONWriter_Diagnostics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).WriteDiagnostics(&buf, sampleDiagnostics()))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "1.2.3", raw["version"])
	assert.Len(t, raw["errors"], 1)
	assert.Len(t, raw["warnings"], 2)
	assert.NotContains(t, raw, "placements")

	first := raw["errors"].([]any)[0].(map[string]any)
	assert.Equal(t, "error", first["kind"])
	assert.Equal(t, "CS1002", first["code"])
}

func TestJSONWriter_DistinctRunIDs(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, (&JSONWriter{}).WriteDiagnostics(&a, &Diagnostics{}))
	require.NoError(t, (&JSONWriter{}).WriteDiagnostics(&b, &Diagnostics{}))

	var da, db diagnosticsJSON
	require.NoError(t, json.Unmarshal(a.Bytes(), &da))
	require.NoError(t, json.Unmarshal(b.Bytes(), &db))
	assert.NotEqual(t, da.RunID, db.RunID)
	assert.NotNil(t, da.Errors)
}
