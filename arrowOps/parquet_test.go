package arrowops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
)

func mockRecord(mem memory.Allocator, schema *arrow.Schema, start, numRows int) arrow.Record {
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()

	for i := start; i < start+numRows; i++ {
		bldr.Field(0).(*array.Int64Builder).Append(int64(i))
		if i%3 == 0 {
			bldr.Field(1).(*array.StringBuilder).AppendNull()
		} else {
			bldr.Field(1).(*array.StringBuilder).Append(fmt.Sprintf("s%d", i))
		}
	}
	return bldr.NewRecord()
}

func TestWritingAndReadingParquetFile(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	md := arrow.NewMetadata([]string{"origin"}, []string{"test"})
	schema := arrow.NewSchema(
		[]arrow.Field{
			{Name: "a", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
			{Name: "b", Type: arrow.BinaryTypes.String, Nullable: true},
		}, &md,
	)

	workingDir, err := os.MkdirTemp("", "arrowops")
	if err != nil {
		t.Fatalf("os.MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(workingDir)

	filePath := filepath.Join(workingDir, "test.parquet")
	file, err := os.Create(filePath)
	if err != nil {
		t.Fatalf("os.Create failed: %v", err)
	}

	options := DefaultParquetWriterOptions()
	options.MaxRowGroupLength = 4
	writer, err := NewParquetFileWriter(logger, mem, schema, file, options)
	if err != nil {
		t.Fatalf("NewParquetFileWriter failed: %v", err)
	}

	first := mockRecord(mem, schema, 0, 4)
	defer first.Release()
	second := mockRecord(mem, schema, 4, 6)
	defer second.Release()
	empty := mockRecord(mem, schema, 10, 0)
	defer empty.Release()

	for _, record := range []arrow.Record{first, second, empty} {
		if err := writer.Write(record); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	assert.Nil(t, writer.Close(), "closing twice is a no-op")
	assert.ErrorIs(t, writer.Write(first), ErrWriterClosed)

	assert.Equal(t, int64(10), writer.NumRows())
	// 4 rows, then 6 rows split into 4 + 2
	assert.Equal(t, 3, writer.NumRowGroups())

	info, err := ReadParquetFileInfo(filePath)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, int64(10), info.NumRows)
	assert.Equal(t, 3, info.NumRowGroups)
	assert.Equal(t, "test", info.Metadata["origin"])
	assert.Equal(t, 2, info.Schema.NumFields())

	readRecords, err := ReadParquetFile(ctx, mem, filePath, 100)
	if err != nil {
		t.Fatalf("ReadParquetFile failed: %v", err)
	}
	defer func() {
		for _, record := range readRecords {
			record.Release()
		}
	}()

	var total int64
	for _, record := range readRecords {
		total += record.NumRows()
	}
	if total != 10 {
		t.Fatalf("ReadParquetFile failed: expected 10 rows, got %d", total)
	}

	expected, err := ConcatenateRecords(mem, first, second)
	if err != nil {
		t.Fatalf("ConcatenateRecords failed: %v", err)
	}
	defer expected.Release()
	actual, err := ConcatenateRecords(mem, readRecords...)
	if err != nil {
		t.Fatalf("ConcatenateRecords failed: %v", err)
	}
	defer actual.Release()

	if !RecordsEqual(expected, actual, "a", "b") {
		t.Log("Expected:", expected)
		t.Log("Got:", actual)
		t.Errorf("ReadParquetFile failed: records are not equal")
	}
}
