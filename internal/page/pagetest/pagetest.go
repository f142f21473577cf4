// Package pagetest provides in-memory implementations of the page contracts
// so the engine, locator, loader and extractor can be exercised without a
// browser. Queries are resolved by literal selector lookup: a fake "DOM" is
// a map from the exact selector/xpath string to the elements it yields.
package pagetest

import (
	"encoding/json"

	"issuex/internal/page"
)

// Val adapts a plain Go value to page.Value via a JSON round trip.
type Val struct {
	V interface{}
}

func (v Val) String() string {
	if s, ok := v.V.(string); ok {
		return s
	}
	b, _ := json.Marshal(v.V)
	return string(b)
}

func (v Val) Int() int {
	switch n := v.V.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func (v Val) Bool() bool {
	b, _ := v.V.(bool)
	return b
}

func (v Val) Unmarshal(x interface{}) error {
	b, err := json.Marshal(v.V)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, x)
}

// Elem is a scriptable fake element.
type Elem struct {
	TextVal      string
	HTMLVal      string
	Attrs        map[string]string
	Hidden       bool
	Blocked      bool  // visible but not interactable
	Err          error // when set, every operation fails with it
	Children     map[string][]*Elem
	EvalFn       func(js string) (interface{}, error)
	Clicks       int
	TypedText    string
	ScrolledInto bool
}

// NewElem returns a visible, interactable element with the given text.
func NewElem(text string) *Elem {
	return &Elem{TextVal: text}
}

// WithAttr sets an attribute and returns the element for chaining setup.
func (e *Elem) WithAttr(name, value string) *Elem {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[name] = value
	return e
}

// WithChildren registers child elements under a literal selector.
func (e *Elem) WithChildren(selector string, children ...*Elem) *Elem {
	if e.Children == nil {
		e.Children = map[string][]*Elem{}
	}
	e.Children[selector] = children
	return e
}

func (e *Elem) QueryAll(selector string) ([]page.Element, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return wrap(e.Children[selector]), nil
}

func (e *Elem) QueryAllX(xpath string) ([]page.Element, error) {
	return e.QueryAll(xpath)
}

func (e *Elem) Text() (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return e.TextVal, nil
}

func (e *Elem) Attr(name string) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return e.Attrs[name], nil
}

func (e *Elem) HTML() (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return e.HTMLVal, nil
}

func (e *Elem) Visible() (bool, error) {
	if e.Err != nil {
		return false, e.Err
	}
	return !e.Hidden, nil
}

func (e *Elem) Interactable() (bool, error) {
	if e.Err != nil {
		return false, e.Err
	}
	return !e.Hidden && !e.Blocked, nil
}

func (e *Elem) Click() error {
	if e.Err != nil {
		return e.Err
	}
	e.Clicks++
	return nil
}

func (e *Elem) Input(text string) error {
	if e.Err != nil {
		return e.Err
	}
	e.TypedText = text
	return nil
}

func (e *Elem) ScrollIntoView() error {
	if e.Err != nil {
		return e.Err
	}
	e.ScrolledInto = true
	return nil
}

func (e *Elem) Eval(js string) (page.Value, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if e.EvalFn != nil {
		v, err := e.EvalFn(js)
		if err != nil {
			return nil, err
		}
		return Val{V: v}, nil
	}
	return Val{V: e.TextVal}, nil
}

func wrap(els []*Elem) []page.Element {
	out := make([]page.Element, 0, len(els))
	for _, e := range els {
		out = append(out, e)
	}
	return out
}

// Page is a scriptable fake page handle.
type Page struct {
	Selectors   map[string][]*Elem
	EvalFn      func(js string, args ...interface{}) (interface{}, error)
	OnScroll    func()
	ScrollCalls int
	NotReady    bool
	Err         error
}

func NewPage() *Page {
	return &Page{Selectors: map[string][]*Elem{}}
}

// Set replaces the elements a selector yields.
func (p *Page) Set(selector string, els ...*Elem) {
	p.Selectors[selector] = els
}

// Add appends elements to a selector's results.
func (p *Page) Add(selector string, els ...*Elem) {
	p.Selectors[selector] = append(p.Selectors[selector], els...)
}

func (p *Page) QueryAll(selector string) ([]page.Element, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return wrap(p.Selectors[selector]), nil
}

func (p *Page) QueryAllX(xpath string) ([]page.Element, error) {
	return p.QueryAll(xpath)
}

func (p *Page) Eval(js string, args ...interface{}) (page.Value, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.EvalFn != nil {
		v, err := p.EvalFn(js, args...)
		if err != nil {
			return nil, err
		}
		return Val{V: v}, nil
	}
	return Val{V: nil}, nil
}

func (p *Page) ScrollBottom() error {
	if p.Err != nil {
		return p.Err
	}
	p.ScrollCalls++
	if p.OnScroll != nil {
		p.OnScroll()
	}
	return nil
}

func (p *Page) Ready() bool {
	return p.Err == nil && !p.NotReady
}
