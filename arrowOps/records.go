package arrowops

import (
	"fmt"
	"slices"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// ConcatenateRecords appends records with the same schema into a single
// record. The inputs are not released.
func ConcatenateRecords(mem memory.Allocator, records ...arrow.Record) (arrow.Record, error) {
	if len(records) == 0 {
		return nil, elements.NewStackError(ErrNoDataLeft)
	}
	schema := records[0].Schema()
	for idx, record := range records {
		if !schema.Equal(record.Schema()) {
			return nil, elements.NewStackError(fmt.Errorf("%w| record %d: %s", ErrSchemasNotEqual, idx, record.Schema()))
		}
	}

	columns := make([]arrow.Array, 0, schema.NumFields())
	release := func() {
		for _, column := range columns {
			column.Release()
		}
	}

	var numRows int64
	for _, record := range records {
		numRows += record.NumRows()
	}

	chunks := make([]arrow.Array, len(records))
	for i := 0; i < schema.NumFields(); i++ {
		for recordIdx, record := range records {
			chunks[recordIdx] = record.Column(i)
		}
		column, err := array.Concatenate(chunks, mem)
		if err != nil {
			release()
			return nil, elements.NewStackError(err)
		}
		columns = append(columns, column)
	}

	// the record holds its own references to the columns
	defer release()
	return array.NewRecord(schema, columns, numRows), nil
}

// RecordsEqual compares the named columns of two records. With no names
// every column is compared.
func RecordsEqual(rec1, rec2 arrow.Record, fields ...string) bool {
	if rec1.NumRows() != rec2.NumRows() || rec1.NumCols() != rec2.NumCols() {
		return false
	}
	for i := 0; i < int(rec1.NumCols()); i++ {
		columnName := rec1.ColumnName(i)
		if len(fields) > 0 && !slices.Contains(fields, columnName) {
			continue
		}
		if columnName != rec2.ColumnName(i) || !array.Equal(rec1.Column(i), rec2.Column(i)) {
			return false
		}
	}
	return true
}
