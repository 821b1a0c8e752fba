package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alekLukanen/csv2parquet/config"
	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/csv2parquet/observability"
	"github.com/alekLukanen/csv2parquet/operations"
	"github.com/alekLukanen/csv2parquet/storage"
	"github.com/alekLukanen/csv2parquet/warehouse"
	"github.com/alekLukanen/errs"
	"github.com/spf13/pflag"
)

const (
	ExitOk          = 0
	ExitFailures    = 1
	ExitConfigError = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	start := time.Now()

	loader := config.NewLoader("csv2parquet")
	loader.SetOutput(stderr)
	cfg, err := loader.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return ExitOk
	} else if err != nil {
		fmt.Fprintf(stderr, "csv2parquet: %s\n", elements.ErrorMessage(err))
		return ExitConfigError
	}

	logWriter := stderr
	if strings.EqualFold(cfg.Logging.Output, "stdout") {
		logWriter = stdout
	}
	logger := slog.New(observability.NewHandler(observability.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, logWriter))

	logger.Info(
		"starting csv2parquet",
		slog.String("path", cfg.Path),
		slog.String("delimiter", string(cfg.DelimiterRune())),
		slog.Bool("header", cfg.HasHeader()),
		slog.Int("workers", cfg.Worker),
		slog.Int("sampling", cfg.Sampling),
		slog.String("outputDir", cfg.OutputDir),
		slog.Bool("s3", cfg.S3.Enabled()),
		slog.Bool("keydb", cfg.KeyDB.Enabled()),
	)

	wh, closeFunc, err := buildWarehouse(ctx, logger, cfg)
	if err != nil {
		logger.Error("unable to start", slog.String("error", errs.ErrorWithStack(err)))
		fmt.Fprintf(stderr, "csv2parquet: %s\n", elements.ErrorMessage(err))
		return ExitFailures
	}
	defer closeFunc()

	var sink observability.IProgressSink
	if cfg.Progress.Enabled {
		sink = observability.NewTerminalProgress(stderr, "converting")
	}

	report, err := wh.Run(ctx, cfg.Path, sink)
	exitCode := ExitOk
	if err != nil {
		logger.Error("run failed", slog.String("error", errs.ErrorWithStack(err)))
		fmt.Fprintf(stderr, "csv2parquet: %s\n", elements.ErrorMessage(err))
		exitCode = ExitFailures
	}
	if report != nil {
		for _, record := range report.Errors {
			fmt.Fprintf(stdout, "%s\n\n", record.String())
		}
		if len(report.Errors) > 0 {
			exitCode = ExitFailures
		}
	}

	fmt.Fprintf(stdout, "Elapsed time %d ms\n", time.Since(start).Milliseconds())
	return exitCode
}

func buildWarehouse(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*warehouse.Warehouse, func(), error) {
	closeFunc := func() {}

	var keyStorage storage.IKeyStorage
	if cfg.KeyDB.Enabled() {
		redisStorage, err := storage.NewKeyStorage(ctx, logger, storage.KeyStorageOptions{
			Address:   cfg.KeyDB.Address,
			Password:  cfg.KeyDB.Password,
			KeyPrefix: cfg.KeyDB.KeyPrefix,
		})
		if err != nil {
			return nil, closeFunc, errs.Wrap(err)
		}
		if err := redisStorage.Ping(ctx); err != nil {
			_ = redisStorage.Close()
			return nil, closeFunc, errs.Wrap(err)
		}
		keyStorage = redisStorage
		closeFunc = func() {
			if err := redisStorage.Close(); err != nil {
				logger.Warn("failed to close key storage", slog.String("error", err.Error()))
			}
		}
	}

	var outputStore *storage.OutputStore
	if cfg.S3.Enabled() {
		objectStorageOptions := storage.ObjectStorageOptions{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			AuthKey:      cfg.S3.AuthKey,
			AuthSecret:   cfg.S3.AuthSecret,
			UsePathStyle: cfg.S3.UsePathStyle,
		}
		if cfg.S3.AuthKey != "" {
			objectStorageOptions.AuthType = storage.ObjectStorageAuthTypeStatic
		}
		objectStorage, err := storage.NewObjectStorage(ctx, logger, objectStorageOptions)
		if err != nil {
			closeFunc()
			return nil, func() {}, errs.Wrap(err)
		}
		outputStore = storage.NewOutputStore(ctx, logger, objectStorage, storage.OutputStoreOptions{
			BucketName: cfg.S3.Bucket,
			KeyPrefix:  cfg.S3.Prefix,
		})
	}

	converterOptions := operations.DefaultFileConverterOptions()
	converterOptions.Delimiter = cfg.DelimiterRune()
	converterOptions.HasHeader = cfg.HasHeader()
	converterOptions.SampleSize = cfg.Sampling

	wh, err := warehouse.NewWarehouse(ctx, logger, keyStorage, outputStore, warehouse.WarehouseOptions{
		Converter:     converterOptions,
		Workers:       cfg.Worker,
		OutputDir:     cfg.OutputDir,
		MetricsFile:   cfg.Metrics.File,
		LockDuration:  cfg.KeyDB.LockDuration,
		SkipUnchanged: cfg.KeyDB.SkipUnchanged,
	})
	if err != nil {
		closeFunc()
		return nil, func() {}, errs.Wrap(err)
	}
	return wh, closeFunc, nil
}
