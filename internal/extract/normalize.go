package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"issuex/internal/record"
	"issuex/internal/schema"
)

// controlLabels are UI artifacts that leak into extracted titles when a
// row's expand/collapse affordance sits inside the title cell. Localized
// variants included; order is longest-first so "Show more" wins over
// "More".
var controlLabels = []string{
	"show more", "show less",
	"mostrar más", "mostrar menos",
	"ver más", "ver menos",
	"mehr anzeigen", "weniger anzeigen",
}

var spaceRun = regexp.MustCompile(`\s+`)

// CleanTitle strips control-label artifacts from the edges of a title and
// collapses whitespace. Idempotent.
func CleanTitle(title string) string {
	t := strings.TrimSpace(spaceRun.ReplaceAllString(title, " "))
	for changed := true; changed; {
		changed = false
		for _, label := range controlLabels {
			if n := len(label); len(t) >= n && strings.EqualFold(t[:n], label) {
				t = strings.TrimSpace(t[n:])
				changed = true
			}
			if n := len(label); len(t) >= n && strings.EqualFold(t[len(t)-n:], label) {
				t = strings.TrimSpace(t[:len(t)-n])
				changed = true
			}
		}
	}
	return t
}

// NormalizeStatus canonicalizes a raw status onto the fixed vocabulary.
// Unknown values pass through unchanged; fixed-point under repetition.
func NormalizeStatus(status string) string {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(status), "Object Status"))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	u := strings.ToUpper(s)
	switch {
	case strings.Contains(u, "READY") && strings.Contains(u, "PUBLISH"):
		return "READY FOR PUBLISHING"
	case strings.Contains(u, "IN PROGRESS"):
		return "IN PROGRESS"
	case strings.Contains(u, "OPEN"):
		return "OPEN"
	case strings.Contains(u, "DONE"):
		return "DONE"
	case strings.Contains(u, "READY"):
		return "READY"
	case strings.Contains(u, "ACCEPTED"):
		return "ACCEPTED"
	case strings.Contains(u, "DRAFT"):
		return "DRAFT"
	case strings.Contains(u, "CLOSED"):
		return "CLOSED"
	}
	return s
}

// NormalizePriority canonicalizes a raw priority. Unknown values pass
// through unchanged.
func NormalizePriority(priority string) string {
	p := strings.TrimSpace(priority)
	l := strings.ToLower(p)
	switch {
	case strings.Contains(l, "very high"):
		return "Very High"
	case strings.Contains(l, "high"):
		return "High"
	case strings.Contains(l, "medium"):
		return "Medium"
	case strings.Contains(l, "low"):
		return "Low"
	}
	return p
}

// Normalize applies the full normalization pass in place and returns the
// record. Running it twice yields the same record.
func (e *Extractor) Normalize(rec record.Record) record.Record {
	rec[schema.Title] = CleanTitle(rec[schema.Title])
	rec[schema.Status] = NormalizeStatus(rec[schema.Status])
	rec[schema.Priority] = NormalizePriority(rec[schema.Priority])
	for f, v := range rec {
		rec[f] = e.truncate(strings.TrimSpace(v))
	}
	return rec
}

// truncate caps pathologically long values; re-rendered rows sometimes
// concatenate an entire expanded detail pane into one cell.
func (e *Extractor) truncate(v string) string {
	if len(v) <= e.maxFieldLen {
		return v
	}
	cut := e.maxFieldLen - len("...")
	if cut < 1 {
		cut = 1
	}
	return cutRunes(v, cut) + "..."
}

// cutRunes shortens s to at most max bytes without splitting a rune.
func cutRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// crossCorrect repairs column-shift artifacts: values that obviously
// landed in the wrong field are swapped into the field whose vocabulary
// they match. The table occasionally renders a row offset by one column
// mid-virtual-scroll, and the shift is cheaper to repair than to re-read.
func crossCorrect(rec record.Record) record.Record {
	if rec[schema.Type] == rec[schema.Title] {
		rec[schema.Type] = record.Missing
	}

	// Status not status-like: look for the real status in neighbors.
	if v := rec[schema.Status]; v != "" && v != record.Missing && !schema.IsKnownStatus(v) {
		for _, f := range []schema.Field{schema.Priority, schema.Type, schema.Deadline} {
			if schema.IsKnownStatus(rec[f]) {
				rec[schema.Status], rec[f] = rec[f], rec[schema.Status]
				break
			}
		}
	}

	// Priority not priority-like.
	if v := rec[schema.Priority]; v != "" && v != record.Missing && !schema.IsKnownPriority(v) {
		for _, f := range []schema.Field{schema.Type, schema.Status} {
			if schema.IsKnownPriority(rec[f]) {
				rec[schema.Priority], rec[f] = rec[f], rec[schema.Priority]
				break
			}
		}
	}

	// Date fields holding non-dates: swap with a neighbor that holds one.
	for _, df := range []schema.Field{schema.Deadline, schema.DueDate, schema.CreatedOn} {
		if v := rec[df]; v != "" && v != record.Missing && !schema.LooksLikeDate(v) {
			for _, f := range []schema.Field{schema.Status, schema.Priority, schema.Type} {
				if schema.LooksLikeDate(rec[f]) {
					rec[df], rec[f] = rec[f], rec[df]
					break
				}
			}
		}
	}

	// Created By holding a date: move it to the first empty date slot.
	if v := rec[schema.CreatedBy]; v != "" && v != record.Missing && schema.LooksLikeDate(v) {
		for _, df := range []schema.Field{schema.Deadline, schema.DueDate, schema.CreatedOn} {
			if rec[df] == "" || rec[df] == record.Missing {
				rec[df] = v
				rec[schema.CreatedBy] = record.Missing
				break
			}
		}
	}
	return rec
}
