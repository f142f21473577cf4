// Package record defines the engine's output unit: a flat field-to-string
// mapping per issue, plus the run statistics callers need to judge
// completeness.
package record

import (
	"issuex/internal/schema"
)

// Missing is the placeholder for fields the schema could not map.
const Missing = "N/A"

// Record is one extracted issue. Immutable once normalized; downstream
// consumers perform their own upsert-by-Title logic.
type Record map[schema.Field]string

// New returns a record with every canonical field preset to Missing.
func New() Record {
	r := make(Record, len(schema.All()))
	for _, f := range schema.All() {
		r[f] = Missing
	}
	return r
}

// Title returns the record's required title field.
func (r Record) Title() string { return r[schema.Title] }

// Clone returns an independent copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stats describes how complete a run was. Duplicate titles are counted for
// observability only; every row is retained in the output and whether
// duplicates matter is the consumer's policy call.
type Stats struct {
	RowsSeen        int    `json:"rows_seen"`
	Extracted       int    `json:"extracted"`
	Skipped         int    `json:"skipped"`
	DuplicateTitles int    `json:"duplicate_titles"`
	TargetEstimate  int    `json:"target_estimate"`
	LoadIterations  int    `json:"load_iterations"`
	LoadState       string `json:"load_state"`
}

// ResultSet is the ordered output of one extraction run. An empty set is a
// valid result, distinct from a failed run.
type ResultSet struct {
	Records []Record
	Stats   Stats
}

// Fields returns the columns present in this result set, in canonical
// order: all core fields always, optional fields only when some record
// carries a real value for them.
func (rs *ResultSet) Fields() []schema.Field {
	fields := make([]schema.Field, 0, len(schema.All()))
	fields = append(fields, schema.Core...)
	for _, f := range schema.Optional {
		for _, rec := range rs.Records {
			if v, ok := rec[f]; ok && v != Missing && v != "" {
				fields = append(fields, f)
				break
			}
		}
	}
	return fields
}

// CountDuplicateTitles returns how many distinct titles appear more than
// once across the records.
func CountDuplicateTitles(records []Record) int {
	seen := map[string]int{}
	for _, r := range records {
		seen[r.Title()]++
	}
	dups := 0
	for _, n := range seen {
		if n > 1 {
			dups++
		}
	}
	return dups
}
