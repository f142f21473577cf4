// Package engine orchestrates one extraction run: verify the issues view,
// converge the lazy-loaded table, infer the column schema and extract every
// rendered row into records.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"issuex/internal/config"
	"issuex/internal/extract"
	"issuex/internal/loader"
	"issuex/internal/locator"
	"issuex/internal/page"
	"issuex/internal/record"
	"issuex/internal/schema"
)

// Progress is an observation point for long runs; stages are "load" and
// "extract".
type Progress struct {
	Stage     string
	Iteration int
	Rows      int
}

// Engine runs the full pipeline against one already-navigated page.
type Engine struct {
	page    page.Handle
	res     *locator.Resolver
	profile *locator.Profile
	cfg     config.Config
	log     *zap.Logger

	// OnProgress, when set, receives periodic progress updates.
	OnProgress func(Progress)
}

func New(h page.Handle, cfg config.Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	profile, ok := locator.Get(cfg.Profile)
	if !ok {
		return nil, fmt.Errorf("unknown locator profile %q", cfg.Profile)
	}
	return &Engine{
		page:    h,
		res:     locator.New(h, log),
		profile: profile,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Run executes the pipeline and returns the ordered records with run
// statistics. An empty result set is valid; the only hard failures are
// session loss and context cancellation.
func (e *Engine) Run(ctx context.Context) (*record.ResultSet, error) {
	e.awaitReady(ctx)
	e.ensureIssuesView()
	e.enableAllColumns()

	ld := loader.New(e.page, e.res, e.profile, e.cfg.Load, e.cfg.Timeouts.Settle, e.log)
	ld.OnProgress = func(iteration, rows int) {
		e.progress(Progress{Stage: "load", Iteration: iteration, Rows: rows})
	}

	target := ld.EstimateTarget()
	e.log.Info("estimated row target", zap.Int("target", target))

	loadRes, err := ld.LoadAll(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("loading rows: %w", err)
	}
	e.log.Info("load converged",
		zap.Int("rows", loadRes.Rows),
		zap.String("state", string(loadRes.State)),
		zap.Int("iterations", loadRes.Iterations))

	ex := extract.New(e.profile, e.cfg.Extract, e.log)
	sm, err := e.inferSchema(ex)
	if err != nil {
		return nil, err
	}

	records, seen, skipped, err := e.extractAll(ctx, ex, sm)
	if err != nil {
		return nil, err
	}

	rs := &record.ResultSet{
		Records: records,
		Stats: record.Stats{
			RowsSeen:        seen,
			Extracted:       len(records),
			Skipped:         skipped,
			DuplicateTitles: record.CountDuplicateTitles(records),
			TargetEstimate:  target,
			LoadIterations:  loadRes.Iterations,
			LoadState:       string(loadRes.State),
		},
	}
	if dups := rs.Stats.DuplicateTitles; dups > 0 {
		e.log.Info("duplicate titles present", zap.Int("titles", dups))
	}
	return rs, nil
}

// awaitReady polls document readiness for a bounded window. A page that
// never reports ready is still attempted; the locator fallbacks decide.
func (e *Engine) awaitReady(ctx context.Context) {
	deadline := time.Now().Add(e.cfg.Timeouts.Action)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil || e.page.Ready() {
			return
		}
		time.Sleep(e.cfg.Timeouts.Settle)
	}
	e.log.Warn("page never reported ready, proceeding anyway")
}

// ensureIssuesView probes for signs of the issues view (rendered rows, the
// count caption, a header row) and, when none respond, tries to activate
// the issues tab. Strictly best effort: work-center apps frequently land on
// the right view already.
func (e *Engine) ensureIssuesView() {
	if _, err := e.res.ResolveAll(e.profile.Rows, nil); err == nil {
		return
	}
	if _, err := e.res.Resolve(e.profile.CountBadge, nil); err == nil {
		return
	}
	if _, err := e.res.Resolve(e.profile.HeaderRow, nil); err == nil {
		return
	}
	if !e.click(e.profile.IssuesTab) {
		return
	}
	e.log.Info("activated issues tab")
	time.Sleep(e.cfg.Timeouts.Settle)
}

// enableAllColumns opens the table's view-settings dialog and switches every
// available column on, so the optional fields get rendered at all. Strictly
// best effort: a variant without the dialog keeps its default column set.
func (e *Engine) enableAllColumns() {
	if e.profile.Settings.Empty() {
		return
	}
	if !e.click(e.profile.Settings) {
		return
	}
	time.Sleep(e.cfg.Timeouts.Settle)

	// Some variants open straight on the column list; the tab is optional.
	if e.click(e.profile.ColumnsTab) {
		time.Sleep(e.cfg.Timeouts.Settle)
	}
	selected := e.click(e.profile.SelectAll)

	// Confirm even when select-all failed: an open dialog blocks the table
	// underneath it.
	confirmed := e.click(e.profile.DialogOK)
	if selected && confirmed {
		e.log.Info("enabled all table columns")
	}
	time.Sleep(e.cfg.Timeouts.Settle)
}

// click resolves the spec and clicks it, reporting success. Failures are
// logged at debug level only; every caller treats them as optional steps.
func (e *Engine) click(spec locator.QuerySpec) bool {
	if spec.Empty() {
		return false
	}
	err := e.res.ResolveAndAct(spec, nil, func(el page.Element) error {
		_ = el.ScrollIntoView()
		return el.Click()
	})
	if err != nil {
		e.log.Debug("control not clicked",
			zap.String("target", spec.Target),
			zap.Error(err))
		return false
	}
	return true
}

// inferSchema builds the column mapping from the header row (when one
// exists) and a sample data row. Only session loss is fatal here; a table
// with no usable header still gets positional defaults.
func (e *Engine) inferSchema(ex *extract.Extractor) (*schema.Map, error) {
	var headers []string
	if el, err := e.res.Resolve(e.profile.HeaderRow, nil); err == nil {
		headers = ex.HeaderTexts(el)
	} else if page.IsFatal(err) {
		return nil, err
	}

	var sample []string
	rows, err := e.res.ResolveAll(e.profile.Rows, nil)
	if err != nil {
		if page.IsFatal(err) {
			return nil, err
		}
	} else if len(rows) > 0 {
		if texts, err := ex.CellTexts(rows[0]); err == nil {
			sample = texts
		} else if page.IsFatal(err) {
			return nil, err
		}
	}

	sm := schema.Infer(headers, sample)
	e.log.Info("schema inferred",
		zap.Int("headers", len(headers)),
		zap.Int("mapped", sm.Mapped()),
		zap.Strings("unmatched", sm.Unmatched))
	return sm, nil
}

// extractAll walks every rendered row once. A pass that yields nothing
// despite visible rows is retried from a fresh row query, bounded by the
// configured attempt budget; UI5 re-renders can invalidate an entire batch
// of handles at once.
func (e *Engine) extractAll(ctx context.Context, ex *extract.Extractor, sm *schema.Map) ([]record.Record, int, int, error) {
	attempts := e.cfg.Extract.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var records []record.Record
	var seen, skipped int
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return records, seen, skipped, err
		}
		if attempt > 1 {
			e.log.Warn("extraction pass yielded nothing, retrying",
				zap.Int("attempt", attempt))
			time.Sleep(e.cfg.Timeouts.Settle)
		}

		rows, err := e.res.ResolveAll(e.profile.Rows, nil)
		if err != nil {
			if page.IsFatal(err) {
				return nil, 0, 0, err
			}
			return nil, 0, 0, nil
		}

		records = records[:0]
		seen, skipped = len(rows), 0
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return records, seen, skipped, err
			}
			rec, err := ex.Extract(row, sm)
			if err != nil {
				if page.IsFatal(err) {
					return nil, seen, skipped, err
				}
				if errors.Is(err, extract.ErrSkip) {
					skipped++
					continue
				}
				e.log.Debug("row extraction failed", zap.Int("row", i), zap.Error(err))
				skipped++
				continue
			}
			records = append(records, rec)
			if (i+1)%25 == 0 {
				e.progress(Progress{Stage: "extract", Iteration: i + 1, Rows: len(records)})
			}
		}
		if len(records) > 0 || seen == 0 {
			break
		}
	}
	e.progress(Progress{Stage: "extract", Iteration: seen, Rows: len(records)})
	return records, seen, skipped, nil
}

func (e *Engine) progress(p Progress) {
	if e.OnProgress != nil {
		e.OnProgress(p)
	}
}
