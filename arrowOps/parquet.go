package arrowops

import (
	"context"
	"io"
	"log/slog"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	parquetFileUtils "github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

const (
	DefaultRowGroupSize = 1024
	ParquetCreatedBy    = "csv2parquet"
)

type ParquetFile struct {
	FilePath     string
	NumRows      int64
	NumRowGroups int
	Schema       *arrow.Schema
	Metadata     map[string]string
}

type ParquetWriterOptions struct {
	// MaxRowGroupLength bounds the rows per row group. Records larger than
	// this are split by the writer.
	MaxRowGroupLength int64
	Compression       compress.Compression
}

func DefaultParquetWriterOptions() ParquetWriterOptions {
	return ParquetWriterOptions{
		MaxRowGroupLength: DefaultRowGroupSize,
		Compression:       compress.Codecs.Snappy,
	}
}

// ParquetFileWriter writes every record as one or more row groups and keeps
// a count of what it has written.
type ParquetFileWriter struct {
	logger *slog.Logger
	writer *pqarrow.FileWriter

	maxRowGroupLength int64
	numRows           int64
	numRowGroups      int
	closed            bool
}

// NewParquetFileWriter wraps w in a parquet writer. Closing the returned
// writer also closes w when w is an io.Closer.
func NewParquetFileWriter(
	logger *slog.Logger,
	mem memory.Allocator,
	schema *arrow.Schema,
	w io.Writer,
	options ParquetWriterOptions,
) (*ParquetFileWriter, error) {
	if options.MaxRowGroupLength <= 0 {
		options.MaxRowGroupLength = DefaultRowGroupSize
	}

	parquetWriteProps := parquet.NewWriterProperties(
		parquet.WithAllocator(mem),
		parquet.WithCompression(options.Compression),
		parquet.WithStats(true),
		parquet.WithMaxRowGroupLength(options.MaxRowGroupLength),
		parquet.WithCreatedBy(ParquetCreatedBy),
	)
	arrowWriteProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
		pqarrow.WithStoreSchema(),
	)

	fileWriter, err := pqarrow.NewFileWriter(schema, w, parquetWriteProps, arrowWriteProps)
	if err != nil {
		return nil, elements.NewStackError(err)
	}

	return &ParquetFileWriter{
		logger:            logger,
		writer:            fileWriter,
		maxRowGroupLength: options.MaxRowGroupLength,
	}, nil
}

// Write appends the record as new row groups. Empty records are ignored.
func (obj *ParquetFileWriter) Write(record arrow.Record) error {
	if obj.closed {
		return elements.NewStackError(ErrWriterClosed)
	}
	if record.NumRows() == 0 {
		return nil
	}

	err := obj.writer.Write(record)
	if err != nil {
		return elements.NewStackError(err)
	}

	obj.numRows += record.NumRows()
	obj.numRowGroups += int((record.NumRows() + obj.maxRowGroupLength - 1) / obj.maxRowGroupLength)
	obj.logger.Debug(
		"wrote parquet row group",
		slog.Int64("rows", record.NumRows()),
		slog.Int("rowGroups", obj.numRowGroups),
	)
	return nil
}

// Close writes the footer. It is safe to call more than once.
func (obj *ParquetFileWriter) Close() error {
	if obj.closed {
		return nil
	}
	obj.closed = true
	if err := obj.writer.Close(); err != nil {
		return elements.NewStackError(err)
	}
	return nil
}

func (obj *ParquetFileWriter) NumRows() int64 {
	return obj.numRows
}

func (obj *ParquetFileWriter) NumRowGroups() int {
	return obj.numRowGroups
}

// ReadParquetFileInfo reads the footer of a parquet file.
func ReadParquetFileInfo(filePath string) (ParquetFile, error) {
	parquetFileReader, err := parquetFileUtils.OpenParquetFile(filePath, false)
	if err != nil {
		return ParquetFile{}, elements.NewStackError(err)
	}
	defer parquetFileReader.Close()

	arrowSchema, err := pqarrow.FromParquet(
		parquetFileReader.MetaData().Schema,
		&pqarrow.ArrowReadProperties{},
		parquetFileReader.MetaData().KeyValueMetadata(),
	)
	if err != nil {
		return ParquetFile{}, elements.NewStackError(err)
	}

	metadata := make(map[string]string)
	kvMetadata := parquetFileReader.MetaData().KeyValueMetadata()
	for i, key := range kvMetadata.Keys() {
		metadata[key] = kvMetadata.Values()[i]
	}

	return ParquetFile{
		FilePath:     filePath,
		NumRows:      parquetFileReader.NumRows(),
		NumRowGroups: parquetFileReader.NumRowGroups(),
		Schema:       arrowSchema,
		Metadata:     metadata,
	}, nil
}

// ReadParquetFile reads the whole file into records of at most batchSize
// rows. The caller owns the returned records.
func ReadParquetFile(ctx context.Context, mem memory.Allocator, filePath string, batchSize int64) ([]arrow.Record, error) {

	parquetFileReader, err := parquetFileUtils.OpenParquetFile(filePath, false)
	if err != nil {
		return nil, elements.NewStackError(err)
	}
	defer parquetFileReader.Close()

	if batchSize <= 0 {
		batchSize = DefaultRowGroupSize
	}
	parquetReadProps := pqarrow.ArrowReadProperties{
		Parallel:  true,
		BatchSize: batchSize,
	}
	arrowFileReader, err := pqarrow.NewFileReader(parquetFileReader, parquetReadProps, mem)
	if err != nil {
		return nil, elements.NewStackError(err)
	}

	recordReader, err := arrowFileReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, elements.NewStackError(err)
	}
	defer recordReader.Release()

	records := make([]arrow.Record, 0)
	for recordReader.Next() {
		record := recordReader.Record()
		record.Retain()
		records = append(records, record)
	}
	if err := recordReader.Err(); err != nil && err != io.EOF {
		for _, record := range records {
			record.Release()
		}
		return nil, elements.NewStackError(err)
	}

	return records, nil
}
