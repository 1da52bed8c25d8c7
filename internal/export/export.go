// Package export renders leads as CSV or XLSX and reads those files back.
package export

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Headers is the column order of every export.
var Headers = []string{
	"Name",
	"Company",
	"City",
	"Signal Type",
	"Source Link",
	"Explanation",
	"LinkedIn URL",
}

func leadToRow(l model.Lead) []string {
	return []string{
		l.Name,
		l.Company,
		l.City,
		l.SignalType,
		l.SourceLink,
		l.Explanation,
		l.LinkedInURL,
	}
}

// columnIndex maps a header row to field positions. The LinkedIn column is
// optional so six-column exports still load.
type columnIndex map[string]int

func newColumnIndex(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range Headers[:6] {
		if _, ok := idx[strings.ToLower(required)]; !ok {
			return nil, eris.Errorf("export: missing column %q", required)
		}
	}
	return idx, nil
}

func (c columnIndex) get(row []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (c columnIndex) lead(row []string) model.Lead {
	return model.Lead{
		Name:        c.get(row, "Name"),
		Company:     c.get(row, "Company"),
		City:        c.get(row, "City"),
		SignalType:  c.get(row, "Signal Type"),
		SourceLink:  c.get(row, "Source Link"),
		Explanation: c.get(row, "Explanation"),
		LinkedInURL: c.get(row, "LinkedIn URL"),
	}
}

// Filename turns a list name into a safe attachment or download name: only
// letters, digits, '-', '_' and spaces survive, and each run of spaces
// becomes a single '_'.
func Filename(listName, ext string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range listName {
		switch {
		case r == ' ':
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			// Dropped characters do not break a space run.
			continue
		}
		inSpace = false
	}
	return b.String() + ext
}
