package record

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuex/internal/schema"
)

func sampleSet() *ResultSet {
	r1 := New()
	r1[schema.Title] = "Fix login flow"
	r1[schema.Status] = "OPEN"
	r2 := New()
	r2[schema.Title] = "Renew SSL cert"
	r2[schema.Status] = "DONE"
	return &ResultSet{
		Records: []Record{r1, r2},
		Stats:   Stats{RowsSeen: 2, Extracted: 2, LoadState: "satisfied"},
	}
}

func TestNewPresetsMissing(t *testing.T) {
	r := New()
	require.Len(t, r, len(schema.All()))
	for _, f := range schema.All() {
		assert.Equal(t, Missing, r[f])
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := New()
	r[schema.Title] = "original"
	c := r.Clone()
	c[schema.Title] = "changed"
	assert.Equal(t, "original", r[schema.Title])
}

func TestCountDuplicateTitles(t *testing.T) {
	mk := func(title string) Record {
		r := New()
		r[schema.Title] = title
		return r
	}
	records := []Record{mk("a"), mk("a"), mk("a"), mk("b"), mk("c"), mk("c")}
	assert.Equal(t, 2, CountDuplicateTitles(records))
	assert.Equal(t, 0, CountDuplicateTitles(nil))
}

func TestFieldsIncludeOptionalOnlyWhenPresent(t *testing.T) {
	rs := sampleSet()
	assert.Equal(t, schema.Core, rs.Fields())

	rs.Records[1][schema.Project] = "Migration"
	fields := rs.Fields()
	assert.Contains(t, fields, schema.Project)
	assert.NotContains(t, fields, schema.Component)
}

func TestToCSV(t *testing.T) {
	out, err := sampleSet().ToCSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Title,Type,Priority,Status"))
	assert.Contains(t, lines[1], "Fix login flow")
}

func TestToJSONCarriesStats(t *testing.T) {
	out, err := sampleSet().ToJSON()
	require.NoError(t, err)

	var decoded struct {
		Issues []map[string]string `json:"issues"`
		Stats  Stats               `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Len(t, decoded.Issues, 2)
	assert.Equal(t, "satisfied", decoded.Stats.LoadState)
	assert.Equal(t, 2, decoded.Stats.RowsSeen)
}

func TestToMarkdownEscapesPipes(t *testing.T) {
	rs := sampleSet()
	rs.Records[0][schema.Title] = "a|b"

	out, err := rs.ToMarkdown()
	require.NoError(t, err)
	assert.Contains(t, out, `a\|b`)
	assert.Contains(t, out, "| Title |")
}

func TestToTextIncludesFooter(t *testing.T) {
	out, err := sampleSet().ToText()
	require.NoError(t, err)
	assert.Contains(t, out, "Fix login flow")
	assert.Contains(t, out, "2 issues")
	assert.Contains(t, out, "load satisfied")
}

func TestToHTMLWrapsText(t *testing.T) {
	out, err := sampleSet().ToHTML()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<pre>"))
	assert.True(t, strings.HasSuffix(out, "</pre>"))
}
