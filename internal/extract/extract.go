// Package extract turns one rendered row into one normalized issue record.
// Every lookup has a fallback; a row that still cannot yield a usable title
// after all of them is skipped, never fatal.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"issuex/internal/config"
	"issuex/internal/locator"
	"issuex/internal/page"
	"issuex/internal/record"
	"issuex/internal/schema"
)

// ErrSkip means a row could not yield a usable record. The row is excluded
// and the batch continues.
var ErrSkip = errors.New("row skipped")

// Extractor extracts and normalizes issue records from row handles.
type Extractor struct {
	profile     *locator.Profile
	log         *zap.Logger
	maxFieldLen int
}

func New(profile *locator.Profile, cfg config.Extract, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{profile: profile, log: log, maxFieldLen: cfg.MaxFieldLength}
}

// priorityClassHints maps indicator CSS classes to priorities; some
// variants render priority as a colored gauge with no text at all.
var priorityClassHints = []struct {
	selector string
	value    string
}{
	{".sapMGaugeNegativeColor", "Very High"},
	{".sapMGaugeCriticalColor", "High"},
	{".sapMGaugeNeutralColor", "Medium"},
	{".sapMGaugePositiveColor", "Low"},
}

var dateToken = regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s*\d{2,4}\b|\b\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4}\b`)

// Extract locates the row's cells through the schema mapping, applies the
// per-cell and semantic fallbacks, and returns the normalized record.
// Errors other than session loss degrade to ErrSkip.
func (e *Extractor) Extract(row page.Element, sm *schema.Map) (record.Record, error) {
	cells, err := e.cells(row)
	if err != nil {
		if page.IsFatal(err) {
			return nil, err
		}
		e.log.Debug("cell segmentation failed", zap.Error(err))
		return nil, fmt.Errorf("no cells: %w", ErrSkip)
	}

	rec := record.New()
	for _, f := range sm.Fields() {
		idx, _ := sm.Column(f)
		if idx < 0 || idx >= len(cells) {
			continue
		}
		if v := strings.TrimSpace(e.cellValue(cells[idx])); v != "" {
			rec[f] = v
		}
	}

	e.supplementTitle(row, cells, rec)
	e.supplementPriority(row, rec)
	e.supplementStatus(row, rec)
	e.supplementDates(row, rec)

	rec = crossCorrect(rec)
	rec = e.Normalize(rec)

	if rec[schema.Title] == "" || rec[schema.Title] == record.Missing {
		return nil, fmt.Errorf("no usable title: %w", ErrSkip)
	}
	return rec, nil
}

// supplementTitle fills the required title via successively blunter
// lookups when the schema-mapped cell came up empty.
func (e *Extractor) supplementTitle(row page.Element, cells []cell, rec record.Record) {
	if t := rec[schema.Title]; t != "" && t != record.Missing {
		return
	}

	lookups := []func() string{
		func() string { return e.firstText(row, `.//a`) },
		func() string {
			return e.firstText(row, `.//span[contains(@class, 'title')] | .//div[contains(@class, 'title')]`)
		},
		func() string { return e.firstAttr(row, `.//*[@title]`, "title") },
		func() string {
			for _, c := range cells {
				if v := strings.TrimSpace(e.cellValue(c)); v != "" {
					return v
				}
			}
			return ""
		},
		func() string {
			text, err := row.Text()
			if err != nil {
				return ""
			}
			lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
			if len(lines) == 0 {
				return ""
			}
			t := strings.TrimSpace(lines[0])
			if len(t) > 100 {
				t = cutRunes(t, 100) + "..."
			}
			return t
		},
	}
	for _, lookup := range lookups {
		if t := lookup(); t != "" {
			rec[schema.Title] = t
			return
		}
	}
}

// supplementPriority infers priority from color-class indicators and row
// text when the mapped cell was ambiguous.
func (e *Extractor) supplementPriority(row page.Element, rec record.Record) {
	if schema.IsKnownPriority(rec[schema.Priority]) {
		return
	}
	for _, hint := range priorityClassHints {
		if els, err := row.QueryAll(hint.selector); err == nil && len(els) > 0 {
			rec[schema.Priority] = hint.value
			return
		}
	}
	text, err := row.Text()
	if err != nil {
		return
	}
	u := strings.ToUpper(text)
	for _, p := range schema.PriorityVocab() {
		if strings.Contains(u, p) {
			rec[schema.Priority] = p
			return
		}
	}
}

// supplementStatus scans the row text for the status vocabulary.
func (e *Extractor) supplementStatus(row page.Element, rec record.Record) {
	if schema.IsKnownStatus(rec[schema.Status]) {
		return
	}
	text, err := row.Text()
	if err != nil {
		return
	}
	u := strings.ToUpper(text)
	for _, s := range schema.StatusVocab() {
		if strings.Contains(u, s) {
			rec[schema.Status] = s
			return
		}
	}
}

// supplementDates pattern-matches dates across the whole row text and
// assigns them, in rendering order, to whichever date fields the schema
// mapping could not fill.
func (e *Extractor) supplementDates(row page.Element, rec record.Record) {
	empty := func(f schema.Field) bool {
		return rec[f] == "" || rec[f] == record.Missing
	}
	if !empty(schema.Deadline) && !empty(schema.DueDate) && !empty(schema.CreatedOn) {
		return
	}
	text, err := row.Text()
	if err != nil {
		return
	}
	dates := dateToken.FindAllString(text, -1)
	for _, f := range []schema.Field{schema.Deadline, schema.DueDate, schema.CreatedOn} {
		if len(dates) == 0 {
			return
		}
		if empty(f) {
			rec[f] = dates[0]
			dates = dates[1:]
		}
	}
}

func (e *Extractor) firstText(row page.Element, xpath string) string {
	els, err := row.QueryAllX(xpath)
	if err != nil {
		return ""
	}
	for _, el := range els {
		if t, err := el.Text(); err == nil && t != "" {
			return t
		}
	}
	return ""
}

func (e *Extractor) firstAttr(row page.Element, xpath, attr string) string {
	els, err := row.QueryAllX(xpath)
	if err != nil {
		return ""
	}
	for _, el := range els {
		if v, err := el.Attr(attr); err == nil {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
