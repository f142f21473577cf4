// Package locator finds UI elements despite attribute drift. Every logical
// target (a data row, the next-page control, the count badge) is described
// by a QuerySpec: an ordered list of strategies tried until one yields a
// usable element. New UI variants are handled by appending strategies to
// the strategy tables, not by branching code.
package locator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"issuex/internal/page"
)

// Kind selects how a strategy's Query is interpreted.
type Kind string

const (
	// CSS queries the live tree with a CSS selector.
	CSS Kind = "css"
	// XPath queries the live tree with an XPath expression.
	XPath Kind = "xpath"
	// Text matches elements whose visible text contains the query string.
	Text Kind = "text"
	// Script evaluates a JS predicate against the document. The predicate
	// must tag its pick with the data-issuex-hit attribute and return true.
	// It may scroll the candidate into view as a visibility precondition.
	Script Kind = "script"
)

// hitMarker is the attribute a Script strategy sets on its pick so the
// element can be re-acquired by identity.
const hitMarker = "data-issuex-hit"

// Strategy is one technique for finding a logical target.
type Strategy struct {
	Kind  Kind   `yaml:"kind"`
	Query string `yaml:"query"`
}

// QuerySpec is the ordered strategy list for one logical target. Immutable
// once built; strategies are tried in priority order and the first usable
// match wins. Failed attempts have no side effects.
type QuerySpec struct {
	Target     string     `yaml:"target"`
	Strategies []Strategy `yaml:"strategies"`
}

// Empty reports whether the spec has no strategies at all.
func (s QuerySpec) Empty() bool { return len(s.Strategies) == 0 }

// Resolver runs QuerySpecs against a page.
type Resolver struct {
	page page.Handle
	log  *zap.Logger

	// Retries and Backoff bound the stale-handle retry loop in
	// ResolveAndAct. Re-rendering UIs can invalidate a handle between
	// resolution and action; that race is expected, not exceptional.
	Retries int
	Backoff time.Duration
}

func New(h page.Handle, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		page:    h,
		log:     log,
		Retries: 3,
		Backoff: 250 * time.Millisecond,
	}
}

// Resolve returns the first visible and interactable element matching the
// spec, trying each strategy in order. It returns page.ErrNotFound once
// every strategy is exhausted; callers decide whether that is fatal or just
// means the feature is absent.
func (r *Resolver) Resolve(spec QuerySpec, scope page.Scope) (page.Element, error) {
	if scope == nil {
		scope = r.page
	}
	for _, st := range spec.Strategies {
		candidates, err := r.candidates(st, scope)
		if err != nil {
			if page.IsFatal(err) {
				return nil, err
			}
			r.log.Debug("strategy failed",
				zap.String("target", spec.Target),
				zap.String("kind", string(st.Kind)),
				zap.Error(err))
			continue
		}
		for _, el := range candidates {
			if usable(el) {
				return el, nil
			}
		}
	}
	return nil, fmt.Errorf("%s: %w", spec.Target, page.ErrNotFound)
}

// ResolveAll returns every visible element matched by the first strategy
// that yields any. Used for repeated targets like data rows, where the
// matching elements need not be interactable.
func (r *Resolver) ResolveAll(spec QuerySpec, scope page.Scope) ([]page.Element, error) {
	if scope == nil {
		scope = r.page
	}
	for _, st := range spec.Strategies {
		candidates, err := r.candidates(st, scope)
		if err != nil {
			if page.IsFatal(err) {
				return nil, err
			}
			continue
		}
		var visible []page.Element
		for _, el := range candidates {
			if v, err := el.Visible(); err == nil && v {
				visible = append(visible, el)
			}
		}
		if len(visible) > 0 {
			return visible, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", spec.Target, page.ErrNotFound)
}

// ResolveAndAct composes resolution with a guarded action. When the handle
// goes stale between resolution and action the target is re-resolved and
// the action retried, up to Retries times with linear backoff.
func (r *Resolver) ResolveAndAct(spec QuerySpec, scope page.Scope, act func(page.Element) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * r.Backoff)
		}
		el, err := r.Resolve(spec, scope)
		if err != nil {
			return err
		}
		err = act(el)
		if err == nil {
			return nil
		}
		if !errors.Is(err, page.ErrStale) {
			return err
		}
		lastErr = err
		r.log.Debug("handle went stale, re-resolving",
			zap.String("target", spec.Target),
			zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("%s: action kept hitting stale handles: %w", spec.Target, lastErr)
}

func (r *Resolver) candidates(st Strategy, scope page.Scope) ([]page.Element, error) {
	switch st.Kind {
	case CSS:
		return scope.QueryAll(st.Query)
	case XPath:
		return scope.QueryAllX(st.Query)
	case Text:
		return scope.QueryAllX(textXPath(st.Query))
	case Script:
		v, err := r.page.Eval(st.Query)
		if err != nil {
			return nil, err
		}
		if !v.Bool() {
			return nil, nil
		}
		hits, err := r.page.QueryAll("[" + hitMarker + "]")
		if err != nil {
			return nil, err
		}
		// Handles stay valid once acquired; strip the markers so a later
		// Script resolution for a different target cannot pick up leftovers.
		r.clearMarkers()
		return hits, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", st.Kind)
	}
}

func usable(el page.Element) bool {
	v, err := el.Visible()
	if err != nil || !v {
		return false
	}
	i, err := el.Interactable()
	return err == nil && i
}

func (r *Resolver) clearMarkers() {
	_, _ = r.page.Eval(clearMarkersJS)
}

const clearMarkersJS = `() => {
	document.querySelectorAll('[` + hitMarker + `]').forEach((el) => el.removeAttribute('` + hitMarker + `'));
}`

func textXPath(text string) string {
	return ".//*[contains(normalize-space(.), " + xpathLiteral(text) + ")]"
}

// xpathLiteral quotes a string for embedding in an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
