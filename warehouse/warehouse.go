package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/csv2parquet/observability"
	"github.com/alekLukanen/csv2parquet/operations"
	"github.com/alekLukanen/csv2parquet/storage"
	taskpackets "github.com/alekLukanen/csv2parquet/taskPackets"
	"github.com/alekLukanen/csv2parquet/tasker"
	"github.com/alekLukanen/csv2parquet/tasks"
	"github.com/alekLukanen/errs"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apache/arrow/go/v17/arrow/memory"
)

const ManifestFilePrefix = "_manifest_"

type WarehouseOptions struct {
	Converter operations.FileConverterOptions
	Workers   int
	OutputDir string

	// MetricsFile receives the run metrics in the textfile format when set.
	MetricsFile string

	LockDuration  time.Duration
	SkipUnchanged bool
}

// Warehouse converts a set of input files into parquet files, one task per
// file, and records the run in a manifest.
type Warehouse struct {
	logger        *slog.Logger
	keyStorage    storage.IKeyStorage
	outputStore   *storage.OutputStore
	allocator     memory.Allocator
	fileConverter operations.IFileConverter
	metrics       *observability.Metrics

	options WarehouseOptions
}

// NewWarehouse wires the conversion run. keyStorage and outputStore are
// optional; without them files are never claimed, skipped or uploaded.
func NewWarehouse(
	ctx context.Context,
	logger *slog.Logger,
	keyStorage storage.IKeyStorage,
	outputStore *storage.OutputStore,
	options WarehouseOptions,
) (*Warehouse, error) {
	if options.Workers <= 0 {
		return nil, elements.NewStackError(fmt.Errorf("%w| workers must be positive, got %d", tasker.ErrInvalidWorkerCount, options.Workers))
	}

	allocator := memory.NewGoAllocator()
	fileConverter := operations.NewFileConverter(logger, allocator, options.Converter)

	warehouse := &Warehouse{
		logger:        logger,
		keyStorage:    keyStorage,
		outputStore:   outputStore,
		allocator:     allocator,
		fileConverter: fileConverter,
		metrics:       observability.NewMetrics(prometheus.NewRegistry()),
		options:       options,
	}
	return warehouse, nil
}

func (obj *Warehouse) Metrics() *observability.Metrics {
	return obj.metrics
}

type RunReport struct {
	RunId        string
	Manifest     *storage.RunManifest
	ManifestPath string
	ManifestKey  string
	Summary      tasker.Summary
	Errors       []elements.ErrorRecord
}

// Run converts every file matching pattern. File level failures are
// returned in the report; the error is reserved for problems with the run
// itself, such as an invalid pattern or an unwritable manifest.
func (obj *Warehouse) Run(ctx context.Context, pattern string, sink observability.IProgressSink) (*RunReport, error) {
	runId := uuid.NewString()
	startedAt := time.Now().UTC()
	logger := obj.logger.With(slog.String("runId", runId))

	inputs, err := operations.FindFiles(pattern)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	logger.Info("found input files", slog.String("pattern", pattern), slog.Int("files", len(inputs)))

	if obj.options.OutputDir != "" {
		if err := os.MkdirAll(obj.options.OutputDir, 0o755); err != nil {
			return nil, elements.NewStackError(fmt.Errorf("%w| %w", elements.ErrIo, err))
		}
	}

	conversionTasks := operations.BuildConversionTasks(inputs, obj.options.OutputDir)
	if collisions := operations.OutputCollisions(conversionTasks); len(collisions) > 0 {
		return nil, elements.NewStackError(fmt.Errorf("%w| %v", operations.ErrOutputCollision, collisions))
	}

	manifestBuilder := storage.NewRunManifestBuilder(runId, startedAt, obj.options.Workers)
	tr, err := obj.buildTasker(ctx, logger, manifestBuilder)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	if sink == nil {
		sink = observability.DiscardProgress{}
	}
	progress := observability.NewMultiProgress(observability.NewMetricsProgress(obj.metrics), sink)

	failures := tr.Run(ctx, taskpackets.NewConversionTaskPackets(conversionTasks), progress)
	progress.Finish()

	report := &RunReport{
		RunId:    runId,
		Manifest: manifestBuilder.Build(time.Now().UTC(), failures),
		Summary:  tr.Summary(),
		Errors:   failures,
	}

	if err := obj.writeOutputs(ctx, logger, report); err != nil {
		return report, err
	}
	return report, nil
}

func (obj *Warehouse) buildTasker(
	ctx context.Context,
	logger *slog.Logger,
	manifestBuilder *storage.RunManifestBuilder,
) (*tasker.Tasker, error) {
	tr, err := tasker.NewTasker(ctx, logger, tasker.Options{Workers: obj.options.Workers})
	if err != nil {
		return nil, errs.Wrap(err)
	}

	conversionTask := tasks.NewFileConversionTask(
		logger,
		obj.fileConverter,
		obj.keyStorage,
		obj.outputStore,
		manifestBuilder,
		obj.metrics,
		tasks.FileConversionTaskOptions{
			LockDuration:  obj.options.LockDuration,
			SkipUnchanged: obj.options.SkipUnchanged,
		},
	)
	if err := tr.RegisterTask(conversionTask); err != nil {
		return nil, errs.Wrap(err)
	}
	return tr, nil
}

// writeOutputs stores the manifest next to the outputs and in the bucket,
// then the metrics textfile. Every step is attempted; the first error is
// returned.
func (obj *Warehouse) writeOutputs(ctx context.Context, logger *slog.Logger, report *RunReport) error {
	var firstErr error

	if obj.options.OutputDir != "" {
		manifestPath, err := WriteManifest(obj.options.OutputDir, report.Manifest)
		if err != nil {
			logger.Error("unable to write run manifest", slog.String("error", err.Error()))
			firstErr = err
		}
		report.ManifestPath = manifestPath
	}

	if obj.outputStore != nil {
		key, err := obj.outputStore.PublishManifest(ctx, report.Manifest)
		if err != nil {
			logger.Error("unable to publish run manifest", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
		report.ManifestKey = key
	}

	if obj.options.MetricsFile != "" {
		if err := obj.metrics.WriteTextfile(obj.options.MetricsFile); err != nil {
			logger.Error("unable to write metrics file", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// WriteManifest writes manifest as _manifest_<run id>.json inside dir.
func WriteManifest(dir string, manifest *storage.RunManifest) (string, error) {
	data, err := manifest.ToBytes()
	if err != nil {
		return "", errs.Wrap(err)
	}

	manifestPath := filepath.Join(dir, ManifestFilePrefix+manifest.Id+".json")
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return "", elements.NewStackError(fmt.Errorf("%w| %w", elements.ErrIo, err))
	}
	return manifestPath, nil
}
