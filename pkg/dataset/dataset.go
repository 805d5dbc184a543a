// Package dataset holds the in-memory tabular representation used for
// bulk submissions and downloaded results, with CSV as the wire format.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Dataset is an ordered table: a header row plus data rows. Row order is
// significant everywhere it is used; nothing in this package re-sorts or
// deduplicates.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// NumRows returns the number of data rows, excluding the header.
func (d Dataset) NumRows() int {
	return len(d.Rows)
}

// Empty reports whether the dataset has no data rows.
func (d Dataset) Empty() bool {
	return len(d.Rows) == 0
}

// ReadCSV parses delimited text into a Dataset. The first record is taken
// as the header. Empty input yields an empty dataset.
func ReadCSV(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset: parse csv: %w", err)
	}
	if len(records) == 0 {
		return Dataset{}, nil
	}

	return Dataset{Columns: records[0], Rows: records[1:]}, nil
}

// ParseCSV is ReadCSV over a string.
func ParseCSV(s string) (Dataset, error) {
	return ReadCSV(strings.NewReader(s))
}

// WriteCSV serializes the dataset as delimited text, header first.
func (d Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	for _, row := range d.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("dataset: write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("dataset: flush csv: %w", err)
	}
	return nil
}

// MarshalCSV returns the dataset as a CSV string.
func (d Dataset) MarshalCSV() (string, error) {
	var b strings.Builder
	if err := d.WriteCSV(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Concat appends the parts in order into a single dataset. The header is
// taken from the first part that has one; row order within and across
// parts is preserved.
func Concat(parts ...Dataset) Dataset {
	var out Dataset
	for _, p := range parts {
		if out.Columns == nil && p.Columns != nil {
			out.Columns = p.Columns
		}
		out.Rows = append(out.Rows, p.Rows...)
	}
	return out
}
