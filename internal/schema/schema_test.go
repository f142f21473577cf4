package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferExactHeaders(t *testing.T) {
	headers := []string{"Title", "Type", "Priority", "Status", "Deadline", "Due Date", "Created By", "Created On"}
	m := Infer(headers, nil)

	require.Equal(t, len(Core), m.Mapped())
	for i, f := range Core {
		col, ok := m.Column(f)
		require.True(t, ok, "field %s not mapped", f)
		assert.Equal(t, i, col, "field %s", f)
	}
	assert.Empty(t, m.Unmatched)
}

func TestInferSynonymHeaders(t *testing.T) {
	m := Infer([]string{"Name", "Prio", "State", "Due"}, nil)

	assert.Equal(t, 4, m.Mapped())
	for f, want := range map[Field]int{Title: 0, Priority: 1, Status: 2, DueDate: 3} {
		col, ok := m.Column(f)
		require.True(t, ok, "field %s not mapped", f)
		assert.Equal(t, want, col, "field %s", f)
	}
	// Four confident matches means the header row is trusted as-is; no
	// positional defaults should sneak in.
	_, ok := m.Column(Type)
	assert.False(t, ok)
}

func TestInferSubstringPrefersLongestSynonym(t *testing.T) {
	m := Infer([]string{"Planned Due Date"}, nil)

	col, ok := m.Column(DueDate)
	require.True(t, ok)
	assert.Equal(t, 0, col)
}

func TestInferCaseInsensitive(t *testing.T) {
	m := Infer([]string{"TITLE", "priority", "StAtUs", "created on"}, nil)
	assert.Equal(t, 4, m.Mapped())
}

func TestInferUnmatchedHeadersReported(t *testing.T) {
	m := Infer([]string{"Title", "Flags", "Priority", "Status", "Deadline"}, nil)
	assert.Contains(t, m.Unmatched, "Flags")
}

func TestInferPositionalDefaultsWithoutHeaders(t *testing.T) {
	sample := []string{
		"Fix login flow", "Bug", "High", "OPEN",
		"Aug 12, 2025", "Aug 20, 2025", "I587465", "Aug 1, 2025",
	}
	m := Infer(nil, sample)

	for i, f := range Core {
		col, ok := m.Column(f)
		require.True(t, ok, "field %s not mapped", f)
		assert.Equal(t, i, col, "field %s", f)
	}
}

func TestInferPositionalStopsAtSampleWidth(t *testing.T) {
	m := Infer(nil, []string{"Fix login flow", "Bug", "High"})

	assert.Equal(t, 3, m.Mapped())
	_, ok := m.Column(Status)
	assert.False(t, ok)
}

func TestInferContentHeuristicsForExtraColumns(t *testing.T) {
	sample := []string{
		"Fix login flow", "Bug", "High", "OPEN",
		"Aug 12, 2025", "Aug 20, 2025", "I587465", "Aug 1, 2025",
		"D12345", "12.09.2025",
	}
	m := Infer(nil, sample)

	// Created By is taken positionally, so the second user ID lands on
	// Assigned To; the extra date takes the first free date slot.
	col, ok := m.Column(AssignedTo)
	require.True(t, ok)
	assert.Equal(t, 8, col)

	col, ok = m.Column(LastChangedOn)
	require.True(t, ok)
	assert.Equal(t, 9, col)
}

func TestInferWeakHeadersFallBackToPosition(t *testing.T) {
	// Three matches is below the trust bar; positional defaults fill the
	// remaining columns.
	sample := []string{"Fix cert", "Bug", "High", "OPEN", "Aug 12, 2025"}
	m := Infer([]string{"Title", "Kind", "Prio", "Zustand", "Frist"}, sample)

	col, ok := m.Column(Status)
	require.True(t, ok)
	assert.Equal(t, 3, col)
}

func TestInferTitleAlwaysMapped(t *testing.T) {
	m := Infer(nil, nil)
	col, ok := m.Column(Title)
	require.True(t, ok)
	assert.Equal(t, 0, col)

	m = Infer(nil, []string{"", "", "Something"})
	col, _ = m.Column(Title)
	assert.Equal(t, 0, col) // positional default claims column 0 first
}

func TestFieldsCanonicalOrder(t *testing.T) {
	m := Infer([]string{"Status", "Title", "Priority", "Deadline"}, nil)

	fields := m.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, []Field{Title, Priority, Status, Deadline}, fields)
}

func TestLooksLikeDate(t *testing.T) {
	for _, s := range []string{"Aug 12, 2025", "12.09.2025", "2025-08-12", "1/2/25"} {
		assert.True(t, LooksLikeDate(s), s)
	}
	for _, s := range []string{"Fix login flow", "OPEN", "I587465", ""} {
		assert.False(t, LooksLikeDate(s), s)
	}
}

func TestLooksLikeUserID(t *testing.T) {
	for _, s := range []string{"I587465", "C1234", "D12345678", " I587465 "} {
		assert.True(t, LooksLikeUserID(s), s)
	}
	for _, s := range []string{"X587465", "I123", "I587465extra", "Alice"} {
		assert.False(t, LooksLikeUserID(s), s)
	}
}

func TestKnownVocabularies(t *testing.T) {
	assert.True(t, IsKnownStatus("READY FOR PUBLISHING"))
	assert.True(t, IsKnownStatus("Object Status OPEN"))
	assert.False(t, IsKnownStatus("weird"))

	assert.True(t, IsKnownPriority("Very High"))
	assert.True(t, IsKnownPriority("low"))
	assert.False(t, IsKnownPriority("urgent-ish"))
}
