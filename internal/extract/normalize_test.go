package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"issuex/internal/config"
	"issuex/internal/record"
	"issuex/internal/schema"
)

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Renew SSL cert", "Renew SSL cert"},
		{"Show more Renew SSL cert Show less", "Renew SSL cert"},
		{"show more show more Renew SSL cert", "Renew SSL cert"},
		{"Mehr anzeigen Zertifikat erneuern", "Zertifikat erneuern"},
		{"  Renew   SSL\n cert  ", "Renew SSL cert"},
		{"Show more", ""},
		{"", ""},
	}
	for _, c := range cases {
		got := CleanTitle(c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
		assert.Equal(t, got, CleanTitle(got), "not idempotent for %q", c.in)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"OPEN", "OPEN"},
		{"open", "OPEN"},
		{"Object Status OPEN", "OPEN"},
		{"Ready for publishing", "READY FOR PUBLISHING"},
		{"ready", "READY"},
		{"In Progress\nsince Tuesday", "IN PROGRESS"},
		{"something odd", "something odd"},
		{record.Missing, record.Missing},
	}
	for _, c := range cases {
		got := NormalizeStatus(c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
		assert.Equal(t, got, NormalizeStatus(got), "not a fixed point for %q", c.in)
	}
}

func TestNormalizePriority(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"High", "High"},
		{"HIGH", "High"},
		{"very high", "Very High"},
		{"Medium priority", "Medium"},
		{"P1", "P1"},
		{record.Missing, record.Missing},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizePriority(c.in), "input %q", c.in)
	}
}

func TestNormalizeTruncatesLongValues(t *testing.T) {
	e := New(nil, config.Extract{MaxFieldLength: 20}, nil)

	rec := record.New()
	rec[schema.Title] = "Fix"
	rec[schema.Description] = strings.Repeat("x", 100)
	rec = e.Normalize(rec)

	assert.Len(t, rec[schema.Description], 20)
	assert.True(t, strings.HasSuffix(rec[schema.Description], "..."))
}

func TestNormalizeTinyLimitTruncatesWithoutPanic(t *testing.T) {
	e := New(nil, config.Extract{MaxFieldLength: 2}, nil)

	rec := record.New()
	rec[schema.Title] = "Fix login flow"
	rec = e.Normalize(rec)

	assert.Equal(t, "F...", rec[schema.Title])
}

func TestNormalizeTruncatesOnRuneBoundary(t *testing.T) {
	e := New(nil, config.Extract{MaxFieldLength: 20}, nil)

	rec := record.New()
	rec[schema.Description] = strings.Repeat("ü", 40)
	rec = e.Normalize(rec)

	assert.True(t, utf8.ValidString(rec[schema.Description]))
	assert.True(t, strings.HasSuffix(rec[schema.Description], "..."))
	assert.LessOrEqual(t, len(rec[schema.Description]), 20)
}

func TestNormalizeIdempotent(t *testing.T) {
	e := New(nil, config.Extract{MaxFieldLength: 500}, nil)

	rec := record.New()
	rec[schema.Title] = "Show more Renew SSL cert"
	rec[schema.Status] = "Object Status OPEN"
	rec[schema.Priority] = "very high"

	once := e.Normalize(rec.Clone())
	twice := e.Normalize(once.Clone())
	assert.Equal(t, once, twice)
	assert.Equal(t, "Renew SSL cert", once[schema.Title])
	assert.Equal(t, "OPEN", once[schema.Status])
	assert.Equal(t, "Very High", once[schema.Priority])
}

func TestCrossCorrectSwapsMisplacedValues(t *testing.T) {
	rec := record.New()
	rec[schema.Title] = "Fix login flow"
	rec[schema.Status] = "High"
	rec[schema.Priority] = "OPEN"

	rec = crossCorrect(rec)
	assert.Equal(t, "OPEN", rec[schema.Status])
	assert.Equal(t, "High", rec[schema.Priority])
}

func TestCrossCorrectDateInCreatedBy(t *testing.T) {
	rec := record.New()
	rec[schema.Title] = "Fix login flow"
	rec[schema.CreatedBy] = "Aug 12, 2025"

	rec = crossCorrect(rec)
	assert.Equal(t, "Aug 12, 2025", rec[schema.Deadline])
	assert.Equal(t, record.Missing, rec[schema.CreatedBy])
}

func TestCrossCorrectTypeDuplicatingTitle(t *testing.T) {
	rec := record.New()
	rec[schema.Title] = "Fix login flow"
	rec[schema.Type] = "Fix login flow"

	rec = crossCorrect(rec)
	assert.Equal(t, record.Missing, rec[schema.Type])
}
