package arrowops

import (
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
)

func TestConcatenateRecords(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "b", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	first := mockRecord(mem, schema, 0, 3)
	defer first.Release()
	second := mockRecord(mem, schema, 3, 2)
	defer second.Release()
	all := mockRecord(mem, schema, 0, 5)
	defer all.Release()

	concatenated, err := ConcatenateRecords(mem, first, second)
	if !assert.Nil(t, err) {
		return
	}
	defer concatenated.Release()

	assert.Equal(t, int64(5), concatenated.NumRows())
	assert.True(t, RecordsEqual(all, concatenated))
	assert.False(t, RecordsEqual(first, concatenated))

	_, err = ConcatenateRecords(mem)
	assert.ErrorIs(t, err, ErrNoDataLeft)

	otherSchema := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int64}}, nil)
	builder := array.NewRecordBuilder(mem, otherSchema)
	defer builder.Release()
	builder.Field(0).(*array.Int64Builder).Append(1)
	other := builder.NewRecord()
	defer other.Release()

	_, err = ConcatenateRecords(mem, first, other)
	assert.ErrorIs(t, err, ErrSchemasNotEqual)
}
