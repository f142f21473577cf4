// Package page defines the contract between the extraction engine and a
// live browser page. The engine never talks to a driver directly; it sees
// only Handle and Element, which keeps every component testable against an
// in-memory fake and confines driver specifics to the rod adapter.
package page

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound means a query matched nothing. Usually non-fatal: callers
	// decide whether the target was optional.
	ErrNotFound = errors.New("element not found")

	// ErrStale means the handle was invalidated by a re-render. The fix is
	// to re-resolve, not to retry the same handle.
	ErrStale = errors.New("element handle is stale")

	// ErrSessionLost means the page itself is unusable (browser or tab
	// gone). This is the only error that aborts an extraction run.
	ErrSessionLost = errors.New("page session lost")
)

// Value is the JSON result of a script evaluation.
type Value interface {
	String() string
	Int() int
	Bool() bool
	Unmarshal(v interface{}) error
}

// Scope is anything elements can be queried under: the whole page or a
// single element subtree.
type Scope interface {
	// QueryAll returns every element matching a CSS selector. An empty
	// result is not an error.
	QueryAll(selector string) ([]Element, error)

	// QueryAllX is QueryAll for XPath expressions.
	QueryAllX(xpath string) ([]Element, error)
}

// Element is an opaque reference to one live DOM node. It is valid only for
// the current render: the host application re-renders at will, so handles
// must never be cached across a load iteration. Re-query instead.
type Element interface {
	Scope

	// Text returns the node's trimmed visible text.
	Text() (string, error)

	// Attr returns the named attribute, or "" when absent.
	Attr(name string) (string, error)

	// HTML returns the node's outer HTML.
	HTML() (string, error)

	Visible() (bool, error)
	Interactable() (bool, error)

	Click() error
	Input(text string) error
	ScrollIntoView() error

	// Eval runs js against the node (`this` is the node) and returns the
	// JSON-converted result.
	Eval(js string) (Value, error)
}

// Handle abstracts one live page. Supplied by the browser-session
// collaborator; navigation and authentication are its problem, not ours.
type Handle interface {
	Scope

	// Eval runs js against the document and returns the JSON result.
	Eval(js string, args ...interface{}) (Value, error)

	// ScrollBottom scrolls the window to the bottom of the document.
	ScrollBottom() error

	// Ready reports whether the page is still usable.
	Ready() bool
}

// IsFatal reports whether err should abort the whole run rather than a
// single operation.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionLost)
}

// classify maps raw driver errors onto the package taxonomy. CDP does not
// expose staleness as a typed error, so match on the known message shapes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Cannot find context"),
		strings.Contains(msg, "Could not find node"),
		strings.Contains(msg, "Object couldn't be returned"),
		strings.Contains(msg, "Node with given id does not belong"):
		return ErrStale
	case strings.Contains(msg, "connection closed"),
		strings.Contains(msg, "use of closed network connection"),
		strings.Contains(msg, "websocket"),
		strings.Contains(msg, "target closed"):
		return ErrSessionLost
	}
	return err
}
