package export

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// WriteCSV writes a header row followed by one row per lead. Fields holding
// commas, quotes or newlines are quoted.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, l := range leads {
		if err := cw.Write(leadToRow(l)); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// CSV renders leads to a byte slice.
func CSV(leads []model.Lead) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, leads); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadCSV parses a file written by WriteCSV.
func ReadCSV(r io.Reader) ([]model.Lead, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, eris.New("csv: empty file")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	idx, err := newColumnIndex(header)
	if err != nil {
		return nil, err
	}

	var leads []model.Lead
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return leads, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		leads = append(leads, idx.lead(row))
	}
}
