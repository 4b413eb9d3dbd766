// Package export renders statement tables into downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSV renders export tables as comma separated values. The title is not
// part of the output so the file stays machine readable.
type CSV struct{}

func NewCSV() CSV { return CSV{} }

func (CSV) Format() string      { return "csv" }
func (CSV) ContentType() string { return "text/csv; charset=utf-8" }

func (CSV) Render(_ string, table [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(table); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}
