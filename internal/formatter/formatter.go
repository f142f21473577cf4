package formatter

import (
	"fmt"

	"issuex/internal/record"
)

func Format(content record.Content, format string) (string, error) {
	switch format {
	case "table", "text":
		return content.ToText()
	case "html":
		return content.ToHTML()
	case "markdown":
		return content.ToMarkdown()
	case "csv":
		return content.ToCSV()
	case "json":
		b, err := content.ToJSON()
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
