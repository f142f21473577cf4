// Package schema maps the unlabeled or relabeled columns of a rendered
// table onto canonical issue fields. Header text is matched against a
// synonym table first; content-pattern heuristics cover tables that render
// without headers or rename them between releases.
package schema

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Field is a canonical output record key.
type Field string

const (
	Title     Field = "Title"
	Type      Field = "Type"
	Priority  Field = "Priority"
	Status    Field = "Status"
	Deadline  Field = "Deadline"
	DueDate   Field = "Due Date"
	CreatedBy Field = "Created By"
	CreatedOn Field = "Created On"

	AssignedTo    Field = "Assigned To"
	Processor     Field = "Processor"
	Project       Field = "Project"
	Category      Field = "Category"
	Component     Field = "Component"
	Description   Field = "Description"
	LastChangedBy Field = "Last Changed By"
	LastChangedOn Field = "Last Changed On"
	System        Field = "System"
	Reference     Field = "Reference"
)

// Core is the positional default order: tables that drop their header row
// have shipped these eight columns in this order for years.
var Core = []Field{Title, Type, Priority, Status, Deadline, DueDate, CreatedBy, CreatedOn}

// Optional extends Core with columns only some variants render.
var Optional = []Field{
	AssignedTo, Processor, Project, Category, Component,
	Description, LastChangedBy, LastChangedOn, System, Reference,
}

// All returns every canonical field in output order.
func All() []Field {
	out := make([]Field, 0, len(Core)+len(Optional))
	out = append(out, Core...)
	return append(out, Optional...)
}

// synonyms maps uppercased header text onto canonical fields. Exact matches
// are tried before substring matches so "DUE DATE" wins over "DUE".
var synonyms = map[string]Field{
	"TITLE":       Title,
	"ISSUE TITLE": Title,
	"NAME":        Title,
	"ISSUE":       Title,
	"TYPE":        Type,
	"PRIORITY":    Priority,
	"PRIO":        Priority,
	"STATUS":      Status,
	"STATE":       Status,
	"DEADLINE":    Deadline,
	"DUE DATE":    DueDate,
	"DUE":         DueDate,
	"CREATED BY":  CreatedBy,
	"AUTHOR":      CreatedBy,
	"CREATED ON":  CreatedOn,
	"CREATED":     CreatedOn,

	"ASSIGNED TO":     AssignedTo,
	"ASSIGNEE":        AssignedTo,
	"PROCESSOR":       Processor,
	"PROJECT":         Project,
	"CATEGORY":        Category,
	"COMPONENT":       Component,
	"DESCRIPTION":     Description,
	"LAST CHANGED BY": LastChangedBy,
	"CHANGED BY":      LastChangedBy,
	"LAST CHANGED ON": LastChangedOn,
	"CHANGED ON":      LastChangedOn,
	"SYSTEM":          System,
	"REFERENCE":       Reference,
	"REF":             Reference,
}

// synonymPatterns returns the synonym keys longest-first so substring
// matching is deterministic and "DUE DATE" wins over "DUE".
func synonymPatterns() []string {
	patternsOnce.Do(func() {
		for p := range synonyms {
			orderedPatterns = append(orderedPatterns, p)
		}
		sort.Slice(orderedPatterns, func(i, j int) bool {
			if len(orderedPatterns[i]) != len(orderedPatterns[j]) {
				return len(orderedPatterns[i]) > len(orderedPatterns[j])
			}
			return orderedPatterns[i] < orderedPatterns[j]
		})
	})
	return orderedPatterns
}

var (
	patternsOnce    sync.Once
	orderedPatterns []string
)

// minHeaderMatches is the header-mapping quality bar: below it the header
// row is considered unreliable and positional defaults kick in.
const minHeaderMatches = 4

var (
	monthPattern  = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b`)
	numericDate   = regexp.MustCompile(`\b\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4}\b`)
	userIDPattern = regexp.MustCompile(`^[ICD]\d{4,8}$`)
)

// Map is the per-run mapping from canonical field to column index. Built
// once from the header row and first representative data row; per-row
// anomalies are the extractor's problem, not the schema's.
type Map struct {
	columns map[Field]int
	// Unmatched records header strings that matched no synonym, for logs.
	Unmatched []string
}

// Column returns the mapped column index for a field.
func (m *Map) Column(f Field) (int, bool) {
	i, ok := m.columns[f]
	return i, ok
}

// Mapped returns how many fields resolved to a column.
func (m *Map) Mapped() int { return len(m.columns) }

// Fields returns the mapped fields in canonical order.
func (m *Map) Fields() []Field {
	var out []Field
	for _, f := range All() {
		if _, ok := m.columns[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Infer builds a Map from header cell texts (may be nil) and the cell texts
// of one representative data row. Title is always mapped: when nothing else
// claims it, it falls back to column 0.
func Infer(headers []string, sample []string) *Map {
	m := &Map{columns: map[Field]int{}}

	if len(headers) > 0 {
		m.matchHeaders(headers)
	}
	if m.Mapped() < minHeaderMatches {
		m.applyPositionalDefaults(sample)
		m.applyContentHeuristics(sample)
	}
	if _, ok := m.columns[Title]; !ok {
		m.columns[Title] = firstNonEmpty(sample)
	}
	return m
}

func (m *Map) matchHeaders(headers []string) {
	// Exact pass first so short synonyms can't shadow longer headers.
	for i, h := range headers {
		u := strings.ToUpper(strings.TrimSpace(h))
		if u == "" {
			continue
		}
		if f, ok := synonyms[u]; ok {
			m.claim(f, i)
		}
	}
	for i, h := range headers {
		u := strings.ToUpper(strings.TrimSpace(h))
		if u == "" || m.columnClaimed(i) {
			continue
		}
		matched := false
		for _, pattern := range synonymPatterns() {
			if strings.Contains(u, pattern) {
				f := synonyms[pattern]
				if _, taken := m.columns[f]; !taken {
					m.claim(f, i)
					matched = true
				}
				break
			}
		}
		if !matched {
			m.Unmatched = append(m.Unmatched, h)
		}
	}
}

func (m *Map) applyPositionalDefaults(sample []string) {
	n := len(sample)
	if n == 0 {
		n = len(Core)
	}
	for i, f := range Core {
		if i >= n {
			break
		}
		if _, ok := m.columns[f]; !ok && !m.columnClaimed(i) {
			m.claim(f, i)
		}
	}
}

// applyContentHeuristics assigns leftover columns by what their sample
// content looks like: dates go to the first empty date slot, known status
// and priority vocabulary to those fields, internal user IDs to Created By.
func (m *Map) applyContentHeuristics(sample []string) {
	dateSlots := []Field{Deadline, DueDate, CreatedOn, LastChangedOn}
	for i, text := range sample {
		if m.columnClaimed(i) {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		switch {
		case LooksLikeDate(text):
			for _, f := range dateSlots {
				if _, ok := m.columns[f]; !ok {
					m.claim(f, i)
					break
				}
			}
		case IsKnownStatus(text):
			if _, ok := m.columns[Status]; !ok {
				m.claim(Status, i)
			}
		case IsKnownPriority(text):
			if _, ok := m.columns[Priority]; !ok {
				m.claim(Priority, i)
			}
		case LooksLikeUserID(text):
			if _, ok := m.columns[CreatedBy]; !ok {
				m.claim(CreatedBy, i)
			} else if _, ok := m.columns[AssignedTo]; !ok {
				m.claim(AssignedTo, i)
			}
		}
	}
}

func (m *Map) claim(f Field, col int) {
	if _, ok := m.columns[f]; !ok {
		m.columns[f] = col
	}
}

func (m *Map) columnClaimed(col int) bool {
	for _, c := range m.columns {
		if c == col {
			return true
		}
	}
	return false
}

func firstNonEmpty(sample []string) int {
	for i, s := range sample {
		if strings.TrimSpace(s) != "" {
			return i
		}
	}
	return 0
}

// LooksLikeDate reports whether text resembles a rendered date: a month
// name or a numeric day/month/year shape.
func LooksLikeDate(text string) bool {
	return monthPattern.MatchString(text) || numericDate.MatchString(text)
}

// LooksLikeUserID matches the internal user ID shape (I587465 and friends).
func LooksLikeUserID(text string) bool {
	return userIDPattern.MatchString(strings.TrimSpace(text))
}

// statusVocab is the closed status vocabulary, checked by containment.
var statusVocab = []string{
	"READY FOR PUBLISHING", "IN PROGRESS", "ACCEPTED",
	"OPEN", "DONE", "READY", "DRAFT", "CLOSED",
}

// IsKnownStatus reports whether text contains a known status keyword.
func IsKnownStatus(text string) bool {
	u := strings.ToUpper(text)
	for _, s := range statusVocab {
		if strings.Contains(u, s) {
			return true
		}
	}
	return false
}

// priorityVocab in match order: longer phrases first.
var priorityVocab = []string{"VERY HIGH", "HIGH", "MEDIUM", "LOW"}

// IsKnownPriority reports whether text contains a known priority keyword.
func IsKnownPriority(text string) bool {
	u := strings.ToUpper(text)
	for _, p := range priorityVocab {
		if strings.Contains(u, p) {
			return true
		}
	}
	return false
}

// StatusVocab returns the canonical status values in match order.
func StatusVocab() []string { return statusVocab }

// PriorityVocab returns the canonical priority values in match order.
func PriorityVocab() []string { return priorityVocab }
