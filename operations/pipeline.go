package operations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	arrowops "github.com/alekLukanen/csv2parquet/arrowOps"
	dataops "github.com/alekLukanen/csv2parquet/dataOps"
	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/csv2parquet/inference"
	"github.com/alekLukanen/errs"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet/compress"
)

const ParquetExtension = ".parquet"

type FileConverterOptions struct {
	Delimiter  rune
	HasHeader  bool
	SampleSize int

	// RowGroupSize defaults to dataops.DefaultRowGroupSize.
	RowGroupSize int
	Compression  compress.Compression
}

func DefaultFileConverterOptions() FileConverterOptions {
	return FileConverterOptions{
		Delimiter:    ',',
		HasHeader:    true,
		SampleSize:   inference.DefaultSampleSize,
		RowGroupSize: dataops.DefaultRowGroupSize,
		Compression:  compress.Codecs.Snappy,
	}
}

type ConversionResult struct {
	InputPath    string
	OutputPath   string
	Schema       *elements.Schema
	NumRows      int64
	NumRowGroups int
}

type IFileConverter interface {
	ConvertFile(context.Context, elements.ConversionTask) (ConversionResult, error)
}

// FileConverter runs inference, finalization and conversion for one file
// at a time. It holds no per-file state and may be shared by workers.
type FileConverter struct {
	logger  *slog.Logger
	mem     memory.Allocator
	options FileConverterOptions
}

func NewFileConverter(logger *slog.Logger, mem memory.Allocator, options FileConverterOptions) *FileConverter {
	if options.Delimiter == 0 {
		options.Delimiter = ','
	}
	if options.SampleSize <= 0 {
		options.SampleSize = inference.DefaultSampleSize
	}
	if options.RowGroupSize <= 0 {
		options.RowGroupSize = dataops.DefaultRowGroupSize
	}
	return &FileConverter{
		logger:  logger,
		mem:     mem,
		options: options,
	}
}

// ConvertFile converts task.InputPath into a parquet file. The output is
// written to a temporary file in the destination directory and renamed into
// place once complete; on failure nothing is left at the output path. The
// returned error is always a *elements.FileError.
func (obj *FileConverter) ConvertFile(ctx context.Context, task elements.ConversionTask) (ConversionResult, error) {
	result, err := obj.convertFile(ctx, task)
	if err != nil {
		return ConversionResult{}, elements.NewFileError(task.InputPath, err)
	}
	return result, nil
}

func (obj *FileConverter) convertFile(ctx context.Context, task elements.ConversionTask) (ConversionResult, error) {
	if ctx.Err() != nil {
		return ConversionResult{}, elements.NewStackError(ctx.Err())
	}

	outputPath := task.OutputPath
	if outputPath == "" {
		outputPath = ResolveOutputPath(task.InputPath, "")
	}

	input, err := os.Open(task.InputPath)
	if err != nil {
		return ConversionResult{}, elements.NewStackError(fmt.Errorf("%w| opening input: %w", elements.ErrIo, err))
	}
	defer input.Close()

	// 1. infer the column types from the first rows
	candidates, err := inference.SampleColumns(
		inference.NewCSVReader(input, obj.options.Delimiter),
		inference.SampleOptions{HasHeader: obj.options.HasHeader, SampleSize: obj.options.SampleSize},
	)
	if err != nil {
		return ConversionResult{}, errs.Wrap(err)
	}

	// 2. finalize the schema
	schema, err := inference.FinalizeSchema(candidates)
	if err != nil {
		return ConversionResult{}, errs.Wrap(err)
	}
	obj.logger.Debug(
		"inferred schema",
		slog.String("file", task.InputPath),
		slog.Any("columns", schema.Columns()),
	)

	// 3. start over from the beginning of the file
	if _, err := input.Seek(0, io.SeekStart); err != nil {
		return ConversionResult{}, elements.NewStackError(fmt.Errorf("%w| rewinding input: %w", elements.ErrIo, err))
	}

	arrowSchema := schema.ArrowSchema(filepath.Base(task.InputPath), obj.options.SampleSize)

	outputDir := filepath.Dir(outputPath)
	tmpFile, err := os.CreateTemp(outputDir, "."+filepath.Base(outputPath)+".tmp-*")
	if err != nil {
		return ConversionResult{}, elements.NewStackError(fmt.Errorf("%w| creating output: %w", elements.ErrIo, err))
	}
	tmpPath := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	writer, err := arrowops.NewParquetFileWriter(
		obj.logger,
		obj.mem,
		arrowSchema,
		tmpFile,
		arrowops.ParquetWriterOptions{
			MaxRowGroupLength: int64(obj.options.RowGroupSize),
			Compression:       obj.options.Compression,
		},
	)
	if err != nil {
		return ConversionResult{}, elements.NewStackError(fmt.Errorf("%w| creating parquet writer: %w", elements.ErrIo, err))
	}

	// 4. stream every row into row groups
	converter := dataops.NewRowConverter(
		obj.logger,
		obj.mem,
		schema,
		arrowSchema,
		dataops.RowConverterOptions{HasHeader: obj.options.HasHeader, RowGroupSize: obj.options.RowGroupSize},
	)
	stats, err := converter.Convert(ctx, inference.NewCSVReader(input, obj.options.Delimiter), writer)
	if err != nil {
		writer.Close()
		return ConversionResult{}, errs.Wrap(err)
	}

	// closing the writer also closes the temporary file
	if err := writer.Close(); err != nil {
		return ConversionResult{}, elements.NewStackError(fmt.Errorf("%w| finishing parquet file: %w", elements.ErrIo, err))
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return ConversionResult{}, elements.NewStackError(fmt.Errorf("%w| moving output into place: %w", elements.ErrIo, err))
	}
	committed = true

	obj.logger.Info(
		"converted file",
		slog.String("input", task.InputPath),
		slog.String("output", outputPath),
		slog.Int64("rows", stats.NumRows),
		slog.Int("rowGroups", writer.NumRowGroups()),
	)

	return ConversionResult{
		InputPath:    task.InputPath,
		OutputPath:   outputPath,
		Schema:       schema,
		NumRows:      stats.NumRows,
		NumRowGroups: writer.NumRowGroups(),
	}, nil
}

// ResolveOutputPath returns the parquet path for inputPath. An empty
// outputDir keeps the input's directory.
func ResolveOutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ParquetExtension
	if outputDir == "" {
		return filepath.Join(filepath.Dir(inputPath), name)
	}
	return filepath.Join(outputDir, name)
}
