package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"issuex/internal/locator"
	"issuex/internal/page"
)

// cell is one column slot of a row. Live cells keep their element handle;
// pseudo-cells carry only text recovered from the row's markup or text.
type cell struct {
	el   page.Element
	text string
}

// cells segments a row using the profile's strategies in priority order,
// then degrades to parsing the row's HTML and finally to splitting its
// visible text by line breaks. Some variants render rows whose "cells" are
// nothing but styled divs; the answer is more fallbacks, not more branches.
func (e *Extractor) cells(row page.Element) ([]cell, error) {
	for _, st := range e.profile.Cells {
		var els []page.Element
		var err error
		switch st.Kind {
		case locator.CSS:
			els, err = row.QueryAll(st.Query)
		case locator.XPath:
			els, err = row.QueryAllX(st.Query)
		default:
			continue
		}
		if err != nil {
			if page.IsFatal(err) {
				return nil, err
			}
			continue
		}
		if len(els) >= minCells {
			out := make([]cell, 0, len(els))
			for _, el := range els {
				out = append(out, cell{el: el})
			}
			return out, nil
		}
	}

	if html, err := row.HTML(); err == nil && html != "" {
		if cells := pseudoCellsFromHTML(html); len(cells) >= minCells {
			return cells, nil
		}
	}

	text, err := row.Text()
	if err != nil {
		if page.IsFatal(err) {
			return nil, err
		}
		return nil, nil
	}
	return pseudoCellsFromText(text), nil
}

// minCells is the plausibility bar for a segmentation strategy: fewer
// matches than this usually means the selector grabbed decoration.
const minCells = 3

// pseudoCellsFromHTML parses the row's markup offline and treats its
// leaf-ish blocks as cells.
func pseudoCellsFromHTML(html string) []cell {
	// Row fragments start at <tr>; the HTML5 parser discards table
	// elements that appear outside a <table>, so re-root them first.
	if strings.Contains(html, "<tr") || strings.Contains(html, "<td") {
		html = "<table>" + html + "</table>"
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []cell
	doc.Find("td, [role=gridcell], li > div, tr > div").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			out = append(out, cell{text: text})
		}
	})
	if len(out) >= minCells {
		return out
	}
	// No recognizable cell markup: take the root's direct children.
	out = nil
	doc.Find("body > * > *").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			out = append(out, cell{text: text})
		}
	})
	return out
}

// pseudoCellsFromText splits a row's visible text into one cell per line.
func pseudoCellsFromText(text string) []cell {
	var out []cell
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, cell{text: line})
		}
	}
	return out
}

// HeaderTexts segments the header row with the profile's header strategies
// and returns the column captions. Headers are advisory; failures degrade
// to an empty slice and schema inference falls back to positional defaults.
func (e *Extractor) HeaderTexts(headerRow page.Element) []string {
	for _, st := range e.profile.HeaderCells {
		var els []page.Element
		var err error
		switch st.Kind {
		case locator.CSS:
			els, err = headerRow.QueryAll(st.Query)
		case locator.XPath:
			els, err = headerRow.QueryAllX(st.Query)
		default:
			continue
		}
		if err != nil {
			continue
		}
		var out []string
		for _, el := range els {
			text, err := el.Text()
			if err != nil {
				text = ""
			}
			out = append(out, strings.TrimSpace(text))
		}
		if len(out) >= minCells {
			return out
		}
	}
	return nil
}

// CellTexts returns the value of every cell in the row, for schema
// sampling.
func (e *Extractor) CellTexts(row page.Element) ([]string, error) {
	cells, err := e.cells(row)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, e.cellValue(c))
	}
	return out, nil
}
