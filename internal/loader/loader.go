// Package loader drives a lazily-rendered table until its row count stops
// growing. Virtual scrolling, growing lists and paginated views are all
// handled by one bounded loop: trigger a load, count rows, decide.
package loader

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.uber.org/zap"

	"issuex/internal/config"
	"issuex/internal/locator"
	"issuex/internal/page"
)

// State is the exit condition of a convergence run.
type State string

const (
	// Satisfied means the target count (or enough of it) was reached.
	Satisfied State = "satisfied"
	// Stagnant means the count stopped growing for the stagnation window
	// even after escalated recovery. Partial results, not a failure.
	Stagnant State = "stagnant"
	// Exhausted means the iteration budget ran out first.
	Exhausted State = "exhausted"
)

// Result reports the best row count observed and how the loop ended.
type Result struct {
	Rows       int
	State      State
	Iterations int
	Target     int
}

// Loader owns the transient convergence counters for one extraction run.
// It is not reused across runs.
type Loader struct {
	page    page.Handle
	res     *locator.Resolver
	profile *locator.Profile
	cfg     config.Convergence
	settle  time.Duration
	log     *zap.Logger

	// OnProgress, when set, is invoked once per iteration.
	OnProgress func(iteration, rows int)
}

func New(h page.Handle, res *locator.Resolver, profile *locator.Profile, cfg config.Convergence, settle time.Duration, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{page: h, res: res, profile: profile, cfg: cfg, settle: settle, log: log}
}

var (
	parenCount = regexp.MustCompile(`\((\d+)\)`)
	ofCount    = regexp.MustCompile(`(?i)\b\d+\s+of\s+(\d+)\b`)
	bareCount  = regexp.MustCompile(`^\d+$`)
)

// EstimateTarget probes the page for the expected total row count: a
// caption like "Issues (137)", an "N of M" label, or a bare numeric badge.
// Failing all of those it extrapolates from the visible rows, capped at a
// safety ceiling so a bad probe can't run the loop forever.
func (l *Loader) EstimateTarget() int {
	if l.cfg.TargetOverride > 0 {
		return l.cfg.TargetOverride
	}
	if el, err := l.res.Resolve(l.profile.CountBadge, nil); err == nil {
		if text, err := el.Text(); err == nil {
			if m := parenCount.FindStringSubmatch(text); m != nil {
				return l.cap(atoi(m[1]))
			}
			if m := ofCount.FindStringSubmatch(text); m != nil {
				return l.cap(atoi(m[1]))
			}
			if bareCount.MatchString(text) {
				return l.cap(atoi(text))
			}
		}
	}
	visible, err := l.countRows()
	if err != nil || visible == 0 {
		return l.cfg.DefaultTarget
	}
	est := visible * 3
	if est < l.cfg.DefaultTarget {
		est = l.cfg.DefaultTarget
	}
	return l.cap(est)
}

func (l *Loader) cap(n int) int {
	if l.cfg.TargetCeiling > 0 && n > l.cfg.TargetCeiling {
		return l.cfg.TargetCeiling
	}
	return n
}

// LoadAll runs the convergence loop. The observed best count never
// decreases, the loop always terminates within the iteration budget and a
// partial result is always preferred over an error; the only error it
// returns is loss of the page session (or the caller's context).
func (l *Loader) LoadAll(ctx context.Context, target int) (Result, error) {
	best, err := l.countRows()
	if err != nil {
		return Result{Target: target}, err
	}
	streak := 0

	for i := 1; i <= l.cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return Result{Rows: best, State: Exhausted, Iterations: i, Target: target}, err
		}

		l.trigger(i, streak)
		time.Sleep(l.settle)
		l.awaitIdle()

		count, err := l.countRows()
		if err != nil {
			return Result{Rows: best, State: Exhausted, Iterations: i, Target: target}, err
		}
		if count > best {
			best = count
			streak = 0
		} else {
			streak++
		}
		if l.OnProgress != nil {
			l.OnProgress(i, best)
		}

		if target > 0 && best >= target {
			l.log.Info("load target reached", zap.Int("rows", best), zap.Int("target", target))
			return Result{Rows: best, State: Satisfied, Iterations: i, Target: target}, nil
		}
		if target > 0 && streak >= 3 && float64(best) >= l.cfg.EarlyExitRatio*float64(target) {
			l.log.Info("load coverage good enough",
				zap.Int("rows", best), zap.Int("target", target), zap.Int("streak", streak))
			return Result{Rows: best, State: Satisfied, Iterations: i, Target: target}, nil
		}
		if streak == l.cfg.StagnationLimit {
			l.log.Warn("row count stagnant, attempting recovery",
				zap.Int("rows", best), zap.Int("streak", streak))
			l.recover()
		}
		if streak > l.cfg.StagnationLimit {
			l.log.Warn("giving up on further rows",
				zap.Int("rows", best), zap.Int("target", target))
			return Result{Rows: best, State: Stagnant, Iterations: i, Target: target}, nil
		}
	}
	return Result{Rows: best, State: Exhausted, Iterations: l.cfg.MaxIterations, Target: target}, nil
}

// awaitIdle waits for the UI's busy indicator to clear, bounded so a stuck
// spinner cannot stall the loop.
func (l *Loader) awaitIdle() {
	for i := 0; i < 10; i++ {
		els, err := l.res.ResolveAll(l.profile.Busy, nil)
		if err != nil || len(els) == 0 {
			return
		}
		time.Sleep(l.settle)
	}
}

// countRows counts the currently rendered candidate rows. Handles are not
// kept: rows are re-queried every pass because any trigger may reflow them.
func (l *Loader) countRows() (int, error) {
	rows, err := l.res.ResolveAll(l.profile.Rows, nil)
	if err != nil {
		if page.IsFatal(err) {
			return 0, err
		}
		if errors.Is(err, page.ErrNotFound) {
			return 0, nil
		}
		return 0, nil
	}
	return len(rows), nil
}

// trigger performs the composite load action for one iteration: scroll the
// window, scroll any nested scrollable containers, and periodically mix in
// synthetic paging keys or a show-more click.
func (l *Loader) trigger(iteration, streak int) {
	_ = l.page.ScrollBottom()
	_, _ = l.page.Eval(nestedScrollJS)

	if iteration%4 == 0 {
		_, _ = l.page.Eval(pagingKeysJS)
	}
	if streak > 0 && streak%5 == 0 {
		switch (streak / 5) % 2 {
		case 0:
			l.clickShowMore()
		case 1:
			_, _ = l.page.Eval(progressiveScrollJS)
		}
	}
}

// clickShowMore clicks a show-more control if one exists, but never one
// nested inside a row: those expand row content, not the data set.
func (l *Loader) clickShowMore() {
	el, err := l.res.Resolve(l.profile.ShowMore, nil)
	if err != nil {
		return
	}
	if v, err := el.Eval(`() => this.closest('tr, li, [role="row"]') === null`); err != nil || !v.Bool() {
		return
	}
	_ = el.ScrollIntoView()
	if err := el.Click(); err == nil {
		l.log.Debug("clicked show-more control")
	}
}

// recover escalates when normal triggers stop producing rows: provoke a
// re-render, poke the last visible row, and try the pagination control.
func (l *Loader) recover() {
	_, _ = l.page.Eval(`() => window.dispatchEvent(new Event('resize'))`)

	if rows, err := l.res.ResolveAll(l.profile.Rows, nil); err == nil && len(rows) > 0 {
		last := rows[len(rows)-1]
		_ = last.ScrollIntoView()
		_, _ = last.Eval(`() => { this.focus && this.focus(); }`)
	}

	err := l.res.ResolveAndAct(l.profile.NextPage, nil, func(el page.Element) error {
		_ = el.ScrollIntoView()
		return el.Click()
	})
	if err == nil {
		l.log.Info("advanced to next page during recovery")
	}
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// nestedScrollJS scrolls every vertically scrollable container to its
// bottom and reports how many actually moved. Virtualized tables often
// render inside such containers rather than the window.
const nestedScrollJS = `() => {
	let moved = 0;
	document.querySelectorAll('*').forEach((el) => {
		const style = window.getComputedStyle(el);
		if ((style.overflowY === 'scroll' || style.overflowY === 'auto') &&
			el.scrollHeight > el.clientHeight) {
			const before = el.scrollTop;
			el.scrollTop = el.scrollHeight;
			if (el.scrollTop > before) moved++;
		}
	});
	return moved;
}`

// pagingKeysJS simulates PageDown/End key input, which some grids listen
// for instead of wheel or scroll events.
const pagingKeysJS = `() => {
	const target = document.activeElement || document.body;
	for (const key of ['PageDown', 'End']) {
		target.dispatchEvent(new KeyboardEvent('keydown', { key, bubbles: true }));
		target.dispatchEvent(new KeyboardEvent('keyup', { key, bubbles: true }));
	}
	return true;
}`

// progressiveScrollJS walks the window down in increments; some lazy
// loaders only fire when intermediate positions become visible.
const progressiveScrollJS = `() => {
	let pos = 0;
	const step = Math.max(400, Math.floor(window.innerHeight / 2));
	const max = document.body.scrollHeight;
	while (pos < max) {
		pos += step;
		window.scrollTo(0, pos);
	}
	window.scrollTo(0, max);
	return true;
}`
