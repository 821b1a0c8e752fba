package dataops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/csv2parquet/inference"
	"github.com/alekLukanen/errs"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

const DefaultRowGroupSize = 1024

// IRecordWriter receives each completed row group.
type IRecordWriter interface {
	Write(arrow.Record) error
}

type RowConverterOptions struct {
	HasHeader    bool
	RowGroupSize int
}

type ConvertStats struct {
	NumRows    int64
	NumBatches int
}

// RowConverter streams CSV rows through a RowBatch into a record writer.
type RowConverter struct {
	logger      *slog.Logger
	mem         memory.Allocator
	schema      *elements.Schema
	arrowSchema *arrow.Schema
	options     RowConverterOptions
}

func NewRowConverter(
	logger *slog.Logger,
	mem memory.Allocator,
	schema *elements.Schema,
	arrowSchema *arrow.Schema,
	options RowConverterOptions,
) *RowConverter {
	if options.RowGroupSize <= 0 {
		options.RowGroupSize = DefaultRowGroupSize
	}
	return &RowConverter{
		logger:      logger,
		mem:         mem,
		schema:      schema,
		arrowSchema: arrowSchema,
		options:     options,
	}
}

// Convert reads every row from the start of rows, coerces it against the
// schema and writes one record per RowGroupSize rows. Any failure aborts
// the whole conversion.
func (obj *RowConverter) Convert(ctx context.Context, rows inference.IRowSource, writer IRecordWriter) (ConvertStats, error) {
	stats := ConvertStats{}

	batch, err := NewRowBatch(obj.mem, obj.schema, obj.arrowSchema)
	if err != nil {
		return stats, errs.Wrap(err)
	}
	defer batch.Release()

	if obj.options.HasHeader {
		_, err := rows.Read()
		if errors.Is(err, io.EOF) {
			return stats, elements.NewStackError(fmt.Errorf("%w| no rows", elements.ErrEmptyFile))
		} else if err != nil {
			return stats, elements.NewStackError(fmt.Errorf("%w| reading header: %w", elements.ErrIo, err))
		}
	}

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		record := batch.NewRecord()
		defer record.Release()

		if err := writer.Write(record); err != nil {
			return elements.NewStackError(fmt.Errorf("%w| writing row group: %w", elements.ErrIo, err))
		}
		stats.NumBatches++
		return nil
	}

	var rowNumber int64
	for {
		if batch.Len() == 0 && ctx.Err() != nil {
			return stats, elements.NewStackError(ctx.Err())
		}

		row, err := rows.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return stats, elements.NewStackError(fmt.Errorf("%w| reading row %d: %w", elements.ErrIo, rowNumber+1, err))
		}
		rowNumber++

		if err := batch.AppendRow(row, rowNumber); err != nil {
			return stats, err
		}
		stats.NumRows++

		if batch.Len() >= obj.options.RowGroupSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	obj.logger.Debug(
		"converted rows",
		slog.Int64("rows", stats.NumRows),
		slog.Int("batches", stats.NumBatches),
	)
	return stats, nil
}
