package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SheetName is the worksheet every XLSX export uses.
const SheetName = "Leads"

// WriteXLSX writes a single-sheet workbook with a header row.
func WriteXLSX(w io.Writer, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	addRow(sheet, Headers)
	for _, l := range leads {
		addRow(sheet, leadToRow(l))
	}

	return eris.Wrap(f.Write(w), "xlsx: write")
}

// ReadXLSX parses a workbook written by WriteXLSX.
func ReadXLSX(data []byte) ([]model.Lead, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open")
	}

	sheet, ok := f.Sheet[SheetName]
	if !ok {
		if len(f.Sheets) == 0 {
			return nil, eris.New("xlsx: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: empty sheet")
	}

	idx, err := newColumnIndex(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		leads = append(leads, idx.lead(rowToStrings(row)))
	}
	return leads, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
