package inference

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\uFEFF"

// IRowSource yields raw CSV records. *csv.Reader satisfies it.
type IRowSource interface {
	Read() ([]string, error)
}

// NewCSVReader returns a reader that allows ragged rows; width checks are
// done by the caller against the schema.
func NewCSVReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return reader
}

// HeaderNames normalizes a header record into column names. A UTF-8 BOM on
// the first cell is removed and blank cells are named by position.
func HeaderNames(header []string) []string {
	names := make([]string, len(header))
	for i, cell := range header {
		if i == 0 {
			cell = strings.TrimPrefix(cell, utf8BOM)
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			cell = PositionalName(i)
		}
		names[i] = cell
	}
	return names
}

// PositionalNames returns column_0 ... column_{n-1}.
func PositionalNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = PositionalName(i)
	}
	return names
}

func PositionalName(i int) string {
	return fmt.Sprintf("column_%d", i)
}
