package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuex/internal/record"
	"issuex/internal/schema"
)

func TestFormatKnownFormats(t *testing.T) {
	rec := record.New()
	rec[schema.Title] = "Fix login flow"
	rs := &record.ResultSet{Records: []record.Record{rec}}

	for _, format := range []string{"table", "text", "csv", "json", "markdown", "html"} {
		out, err := Format(rs, format)
		require.NoError(t, err, format)
		assert.Contains(t, out, "Fix login flow", format)
	}
}

func TestFormatUnknownFormat(t *testing.T) {
	_, err := Format(&record.ResultSet{}, "yaml")
	assert.Error(t, err)
}
