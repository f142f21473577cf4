package record

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Content is the renderable form of an extraction result.
type Content interface {
	ToText() (string, error)
	ToCSV() (string, error)
	ToJSON() ([]byte, error)
	ToMarkdown() (string, error)
	ToHTML() (string, error)
}

// ToText renders the result set as a console table with a completeness
// footer.
func (rs *ResultSet) ToText() (string, error) {
	fields := rs.Fields()
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(fields))
	for _, f := range fields {
		header = append(header, string(f))
	}
	t.AppendHeader(header)

	for _, rec := range rs.Records {
		row := make(table.Row, 0, len(fields))
		for _, f := range fields {
			row = append(row, rec[f])
		}
		t.AppendRow(row)
	}

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%d issues (%d rows seen, %d skipped, %d duplicate titles, load %s)\n",
		len(rs.Records), rs.Stats.RowsSeen, rs.Stats.Skipped,
		rs.Stats.DuplicateTitles, rs.Stats.LoadState))
	return sb.String(), nil
}

// ToCSV renders one header row plus one line per record.
func (rs *ResultSet) ToCSV() (string, error) {
	fields := rs.Fields()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(fields))
	for _, f := range fields {
		header = append(header, string(f))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, rec := range rs.Records {
		row := make([]string, 0, len(fields))
		for _, f := range fields {
			row = append(row, rec[f])
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// ToJSON emits the records and stats together so consumers can judge
// completeness without a side channel.
func (rs *ResultSet) ToJSON() ([]byte, error) {
	return json.MarshalIndent(struct {
		Issues []Record `json:"issues"`
		Stats  Stats    `json:"stats"`
	}{Issues: rs.Records, Stats: rs.Stats}, "", "  ")
}

// ToMarkdown renders a pipe table.
func (rs *ResultSet) ToMarkdown() (string, error) {
	fields := rs.Fields()
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Issues (%d)\n\n", len(rs.Records)))
	sb.WriteString("|")
	for _, f := range fields {
		sb.WriteString(" " + string(f) + " |")
	}
	sb.WriteString("\n|")
	for range fields {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, rec := range rs.Records {
		sb.WriteString("|")
		for _, f := range fields {
			sb.WriteString(" " + escapePipes(rec[f]) + " |")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n%d duplicate titles, load state: %s\n",
		rs.Stats.DuplicateTitles, rs.Stats.LoadState))
	return sb.String(), nil
}

// ToHTML wraps the text rendering; the engine's consumers want data, not a
// styled report.
func (rs *ResultSet) ToHTML() (string, error) {
	text, err := rs.ToText()
	if err != nil {
		return "", err
	}
	return "<pre>" + text + "</pre>", nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "\\|")
}
