package dataops

import (
	"fmt"

	"github.com/alekLukanen/csv2parquet/elements"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

type cellValue struct {
	valid bool
	i     int64
	f     float64
	b     bool
	s     string
}

// RowBatch buffers typed rows for one row group. A row is coerced in full
// before any of its cells reach the builder, so a failed row leaves the
// batch unchanged.
type RowBatch struct {
	schema  *elements.Schema
	builder *array.RecordBuilder
	cells   []cellValue
	numRows int
}

func NewRowBatch(mem memory.Allocator, schema *elements.Schema, arrowSchema *arrow.Schema) (*RowBatch, error) {
	if schema.NumColumns() != arrowSchema.NumFields() {
		return nil, elements.NewStackError(
			fmt.Errorf("%w| %d columns but %d arrow fields", ErrSchemasNotEqual, schema.NumColumns(), arrowSchema.NumFields()),
		)
	}
	for i := 0; i < schema.NumColumns(); i++ {
		expected := schema.Column(i).Type.ArrowType()
		if !arrow.TypeEqual(expected, arrowSchema.Field(i).Type) {
			return nil, elements.NewStackError(ErrDataTypesNotEqual)
		}
	}

	return &RowBatch{
		schema:  schema,
		builder: array.NewRecordBuilder(mem, arrowSchema),
		cells:   make([]cellValue, schema.NumColumns()),
	}, nil
}

func (obj *RowBatch) Release() {
	obj.builder.Release()
}

func (obj *RowBatch) Len() int {
	return obj.numRows
}

// AppendRow coerces row into the schema's types and appends it. Missing
// trailing cells are null. rowNumber is only used for error messages.
func (obj *RowBatch) AppendRow(row []string, rowNumber int64) error {
	if len(row) > len(obj.cells) {
		return elements.NewStackError(
			fmt.Errorf("%w| malformed row %d: %d fields, expected at most %d", elements.ErrIo, rowNumber, len(row), len(obj.cells)),
		)
	}

	for i := range obj.cells {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		col := obj.schema.Column(i)
		if err := coerceCell(&obj.cells[i], col.Type, value); err != nil {
			return elements.NewStackError(
				fmt.Errorf(
					"%w| row %d column %q: cannot convert %q to %s",
					elements.ErrTypeCoercion, rowNumber, col.Name, value, col.Type,
				),
			)
		}
	}

	for i, cell := range obj.cells {
		appendCell(obj.builder.Field(i), obj.schema.Column(i).Type, cell)
	}
	obj.numRows++
	return nil
}

// NewRecord moves the buffered rows into a record and resets the batch.
// The caller must release the record.
func (obj *RowBatch) NewRecord() arrow.Record {
	obj.numRows = 0
	return obj.builder.NewRecord()
}

func coerceCell(cell *cellValue, tag elements.TypeTag, value string) error {
	*cell = cellValue{}
	if value == "" {
		return nil
	}

	switch tag {
	case elements.TypeInteger:
		v, ok := elements.ParseInteger(value)
		if !ok {
			return ErrUnsupportedDataType
		}
		cell.i = v
	case elements.TypeFloat:
		v, ok := elements.ParseFloat(value)
		if !ok {
			return ErrUnsupportedDataType
		}
		cell.f = v
	case elements.TypeBoolean:
		v, ok := elements.ParseBoolean(value)
		if !ok {
			return ErrUnsupportedDataType
		}
		cell.b = v
	default:
		cell.s = value
	}
	cell.valid = true
	return nil
}

func appendCell(bldr array.Builder, tag elements.TypeTag, cell cellValue) {
	if !cell.valid {
		bldr.AppendNull()
		return
	}

	switch tag {
	case elements.TypeInteger:
		bldr.(*array.Int64Builder).Append(cell.i)
	case elements.TypeFloat:
		bldr.(*array.Float64Builder).Append(cell.f)
	case elements.TypeBoolean:
		bldr.(*array.BooleanBuilder).Append(cell.b)
	default:
		bldr.(*array.StringBuilder).Append(cell.s)
	}
}
