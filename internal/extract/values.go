package extract

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// valueAttrs are the attributes that commonly carry a cell's real value
// when its text nodes are empty (truncated cells, icon-only cells).
var valueAttrs = []string{"title", "aria-label", "value"}

// cellValue extracts a cell's raw string value through nested fallbacks:
// direct text, value-bearing attributes, first non-empty descendant text,
// scripted textContent, and finally a markdown flattening of the cell's
// inner HTML.
func (e *Extractor) cellValue(c cell) string {
	if c.el == nil {
		return c.text
	}

	if text, err := c.el.Text(); err == nil && text != "" {
		return text
	}

	for _, attr := range valueAttrs {
		if v, err := c.el.Attr(attr); err == nil {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}

	if descendants, err := c.el.QueryAllX(`.//*[normalize-space(text())]`); err == nil {
		for _, d := range descendants {
			if text, err := d.Text(); err == nil && text != "" {
				return text
			}
		}
	}

	if v, err := c.el.Eval(`() => this.textContent || ''`); err == nil {
		if text := strings.TrimSpace(v.String()); text != "" {
			return text
		}
	}

	if html, err := c.el.HTML(); err == nil && html != "" {
		return flattenHTML(html)
	}
	return ""
}

var htmlConverter = md.NewConverter("", true, nil)

// flattenHTML reduces markup to readable text. Values hidden in styled
// spans survive this when every text-oriented accessor came back empty.
func flattenHTML(html string) string {
	text, err := htmlConverter.ConvertString(html)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
