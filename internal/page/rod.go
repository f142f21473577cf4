package page

import (
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// RodPage adapts a *rod.Page to the Handle contract. Every call carries the
// per-operation timeout so no query can block indefinitely.
type RodPage struct {
	page    *rod.Page
	timeout time.Duration
}

// FromRod wraps an already-navigated rod page.
func FromRod(p *rod.Page, timeout time.Duration) *RodPage {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RodPage{page: p, timeout: timeout}
}

func (p *RodPage) QueryAll(selector string) ([]Element, error) {
	els, err := p.page.Timeout(p.timeout).Elements(selector)
	if err != nil {
		return nil, classify(err)
	}
	return p.wrapAll(els), nil
}

func (p *RodPage) QueryAllX(xpath string) ([]Element, error) {
	els, err := p.page.Timeout(p.timeout).ElementsX(xpath)
	if err != nil {
		return nil, classify(err)
	}
	return p.wrapAll(els), nil
}

func (p *RodPage) Eval(js string, args ...interface{}) (Value, error) {
	obj, err := p.page.Timeout(p.timeout).Eval(js, args...)
	if err != nil {
		return nil, classify(err)
	}
	return rodValue{j: p.page.MustObjectToJSON(obj)}, nil
}

func (p *RodPage) ScrollBottom() error {
	_, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// Ready probes the document with a trivial script. A failure here means the
// session itself is gone, not that some element is missing.
func (p *RodPage) Ready() bool {
	v, err := p.Eval(`() => document.readyState`)
	if err != nil {
		return false
	}
	s := v.String()
	return s == "complete" || s == "interactive"
}

func (p *RodPage) wrapAll(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, page: p})
	}
	return out
}

type rodElement struct {
	el   *rod.Element
	page *RodPage
}

func (e *rodElement) QueryAll(selector string) ([]Element, error) {
	els, err := e.el.Timeout(e.page.timeout).Elements(selector)
	if err != nil {
		return nil, classify(err)
	}
	return e.page.wrapAll(els), nil
}

func (e *rodElement) QueryAllX(xpath string) ([]Element, error) {
	els, err := e.el.Timeout(e.page.timeout).ElementsX(xpath)
	if err != nil {
		return nil, classify(err)
	}
	return e.page.wrapAll(els), nil
}

func (e *rodElement) Text() (string, error) {
	s, err := e.el.Timeout(e.page.timeout).Text()
	if err != nil {
		return "", classify(err)
	}
	return strings.TrimSpace(s), nil
}

func (e *rodElement) Attr(name string) (string, error) {
	v, err := e.el.Timeout(e.page.timeout).Attribute(name)
	if err != nil {
		return "", classify(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *rodElement) HTML() (string, error) {
	s, err := e.el.Timeout(e.page.timeout).HTML()
	if err != nil {
		return "", classify(err)
	}
	return s, nil
}

func (e *rodElement) Visible() (bool, error) {
	ok, err := e.el.Timeout(e.page.timeout).Visible()
	if err != nil {
		return false, classify(err)
	}
	return ok, nil
}

// Interactable treats "not interactable" as a plain false rather than an
// error: an obscured element is an expected state, not a failure.
func (e *rodElement) Interactable() (bool, error) {
	_, err := e.el.Timeout(e.page.timeout).Interactable()
	if err != nil {
		err = classify(err)
		if err == ErrStale || err == ErrSessionLost {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (e *rodElement) Click() error {
	return classify(e.el.Timeout(e.page.timeout).Click(proto.InputMouseButtonLeft, 1))
}

func (e *rodElement) Input(text string) error {
	return classify(e.el.Timeout(e.page.timeout).Input(text))
}

func (e *rodElement) ScrollIntoView() error {
	return classify(e.el.Timeout(e.page.timeout).ScrollIntoView())
}

func (e *rodElement) Eval(js string) (Value, error) {
	obj, err := e.el.Timeout(e.page.timeout).Eval(js)
	if err != nil {
		return nil, classify(err)
	}
	return rodValue{j: e.page.page.MustObjectToJSON(obj)}, nil
}

type rodValue struct {
	j gson.JSON
}

func (v rodValue) String() string { return v.j.String() }

func (v rodValue) Int() int { return v.j.Int() }

func (v rodValue) Bool() bool { return v.j.Bool() }

func (v rodValue) Unmarshal(x interface{}) error { return v.j.Unmarshal(x) }
