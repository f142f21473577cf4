package locator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuex/internal/page"
	"issuex/internal/page/pagetest"
)

func testResolver(p *pagetest.Page) *Resolver {
	r := New(p, nil)
	r.Backoff = 0
	return r
}

func TestResolveStrategyOrder(t *testing.T) {
	p := pagetest.NewPage()
	p.Set(".primary", pagetest.NewElem("first"))
	p.Set(".fallback", pagetest.NewElem("second"))

	spec := QuerySpec{Target: "control", Strategies: []Strategy{
		{CSS, ".primary"},
		{CSS, ".fallback"},
	}}

	el, err := testResolver(p).Resolve(spec, nil)
	require.NoError(t, err)
	text, _ := el.Text()
	assert.Equal(t, "first", text)
}

func TestResolveSkipsUnusableMatches(t *testing.T) {
	p := pagetest.NewPage()
	hidden := pagetest.NewElem("hidden")
	hidden.Hidden = true
	blocked := pagetest.NewElem("blocked")
	blocked.Blocked = true
	p.Set(".primary", hidden, blocked)
	p.Set(".fallback", pagetest.NewElem("usable"))

	spec := QuerySpec{Target: "control", Strategies: []Strategy{
		{CSS, ".primary"},
		{CSS, ".fallback"},
	}}

	el, err := testResolver(p).Resolve(spec, nil)
	require.NoError(t, err)
	text, _ := el.Text()
	assert.Equal(t, "usable", text)
}

func TestResolveNotFound(t *testing.T) {
	p := pagetest.NewPage()
	spec := QuerySpec{Target: "control", Strategies: []Strategy{{CSS, ".missing"}}}

	_, err := testResolver(p).Resolve(spec, nil)
	assert.ErrorIs(t, err, page.ErrNotFound)
	assert.Contains(t, err.Error(), "control")
}

func TestResolveAllKeepsVisibleOnly(t *testing.T) {
	p := pagetest.NewPage()
	hidden := pagetest.NewElem("hidden")
	hidden.Hidden = true
	blocked := pagetest.NewElem("blocked")
	blocked.Blocked = true
	p.Set(".rows", pagetest.NewElem("a"), hidden, blocked, pagetest.NewElem("b"))

	spec := QuerySpec{Target: "rows", Strategies: []Strategy{{CSS, ".rows"}}}

	els, err := testResolver(p).ResolveAll(spec, nil)
	require.NoError(t, err)
	// Rows need not be interactable, only visible.
	assert.Len(t, els, 3)
}

func TestResolveScriptStrategy(t *testing.T) {
	p := pagetest.NewPage()
	p.EvalFn = func(js string, args ...interface{}) (interface{}, error) {
		return true, nil
	}
	p.Set("[data-issuex-hit]", pagetest.NewElem("tagged"))

	spec := QuerySpec{Target: "rows", Strategies: []Strategy{{Script, "() => true"}}}

	el, err := testResolver(p).Resolve(spec, nil)
	require.NoError(t, err)
	text, _ := el.Text()
	assert.Equal(t, "tagged", text)
}

func TestResolveScriptStrategyClearsMarkers(t *testing.T) {
	p := pagetest.NewPage()
	var evals []string
	p.EvalFn = func(js string, args ...interface{}) (interface{}, error) {
		evals = append(evals, js)
		return true, nil
	}
	p.Set("[data-issuex-hit]", pagetest.NewElem("row one"), pagetest.NewElem("row two"))

	spec := QuerySpec{Target: "rows", Strategies: []Strategy{{Script, "() => true"}}}

	els, err := testResolver(p).ResolveAll(spec, nil)
	require.NoError(t, err)
	require.Len(t, els, 2)

	// The marking script ran, then every marker was stripped again so the
	// next Script target starts from a clean document.
	require.Len(t, evals, 2)
	assert.Contains(t, evals[1], "removeAttribute")

	evals = nil
	_, err = testResolver(p).Resolve(spec, nil)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Contains(t, evals[1], "removeAttribute")
}

func TestResolveScriptStrategyNoMatch(t *testing.T) {
	p := pagetest.NewPage()
	p.EvalFn = func(js string, args ...interface{}) (interface{}, error) {
		return false, nil
	}

	spec := QuerySpec{Target: "rows", Strategies: []Strategy{{Script, "() => false"}}}

	_, err := testResolver(p).Resolve(spec, nil)
	assert.ErrorIs(t, err, page.ErrNotFound)
}

func TestResolveAndActRetriesStaleHandles(t *testing.T) {
	p := pagetest.NewPage()
	p.Set(".button", pagetest.NewElem("ok"))

	spec := QuerySpec{Target: "button", Strategies: []Strategy{{CSS, ".button"}}}

	attempts := 0
	err := testResolver(p).ResolveAndAct(spec, nil, func(el page.Element) error {
		attempts++
		if attempts < 3 {
			return page.ErrStale
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestResolveAndActGivesUpEventually(t *testing.T) {
	p := pagetest.NewPage()
	p.Set(".button", pagetest.NewElem("ok"))

	spec := QuerySpec{Target: "button", Strategies: []Strategy{{CSS, ".button"}}}

	err := testResolver(p).ResolveAndAct(spec, nil, func(el page.Element) error {
		return page.ErrStale
	})
	assert.ErrorIs(t, err, page.ErrStale)
}

func TestResolveAndActPropagatesOtherErrors(t *testing.T) {
	p := pagetest.NewPage()
	p.Set(".button", pagetest.NewElem("ok"))

	spec := QuerySpec{Target: "button", Strategies: []Strategy{{CSS, ".button"}}}

	boom := errors.New("boom")
	attempts := 0
	err := testResolver(p).ResolveAndAct(spec, nil, func(el page.Element) error {
		attempts++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'Issues'", xpathLiteral("Issues"))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	assert.Equal(t, `concat('a', "'", 'b"c')`, xpathLiteral(`a'b"c`))
}

func TestProfileRegistry(t *testing.T) {
	p, ok := Get("FIORI")
	require.True(t, ok)
	assert.Equal(t, "fiori", p.Name)
	assert.False(t, p.Rows.Empty())

	_, ok = Get("unknown")
	assert.False(t, ok)
}
