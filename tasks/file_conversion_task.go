package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/csv2parquet/operations"
	"github.com/alekLukanen/csv2parquet/storage"
	taskpackets "github.com/alekLukanen/csv2parquet/taskPackets"
	"github.com/alekLukanen/csv2parquet/tasker"
	"github.com/alekLukanen/errs"
)

// IConversionObserver receives the outcome of every conversion.
type IConversionObserver interface {
	ObserveConversion(result operations.ConversionResult, duration time.Duration, err error)
	ObserveSkipped(inputPath string)
}

type FileConversionTaskOptions struct {
	// LockDuration bounds how long a file claim is held. Only used with a
	// key storage.
	LockDuration time.Duration
	// SkipUnchanged skips inputs whose ledger entry matches the current
	// file and whose output still exists.
	SkipUnchanged bool
}

// FileConversionTask converts the file named by a ConversionTaskPacket.
// Key storage, output store, manifest and observer are optional.
type FileConversionTask struct {
	logger        *slog.Logger
	fileConverter operations.IFileConverter
	keyStorage    storage.IKeyStorage
	outputStore   *storage.OutputStore
	manifest      *storage.RunManifestBuilder
	observer      IConversionObserver

	options FileConversionTaskOptions
}

func NewFileConversionTask(
	logger *slog.Logger,
	fileConverter operations.IFileConverter,
	keyStorage storage.IKeyStorage,
	outputStore *storage.OutputStore,
	manifest *storage.RunManifestBuilder,
	observer IConversionObserver,
	options FileConversionTaskOptions,
) *FileConversionTask {
	if options.LockDuration <= 0 {
		options.LockDuration = 10 * time.Minute
	}
	return &FileConversionTask{
		logger:        logger,
		fileConverter: fileConverter,
		keyStorage:    keyStorage,
		outputStore:   outputStore,
		manifest:      manifest,
		observer:      observer,
		options:       options,
	}
}

func (obj *FileConversionTask) Name() string {
	return taskpackets.FileConversionTaskName
}
func (obj *FileConversionTask) NewPacket() tasker.ITaskPacket {
	return new(taskpackets.ConversionTaskPacket)
}
func (obj *FileConversionTask) Process(ctx context.Context, packet tasker.ITaskPacket) (result tasker.Result, err error) {
	ctPacket, ok := packet.(*taskpackets.ConversionTaskPacket)
	if !ok {
		return tasker.Result{}, elements.NewStackError(ErrInvalidPacketType)
	}
	task := ctPacket.Task

	inputInfo, err := os.Stat(task.InputPath)
	if err != nil {
		err = elements.NewFileError(task.InputPath, elements.NewStackError(fmt.Errorf("%w| %w", elements.ErrIo, err)))
		return tasker.Result{}, err
	}

	// 1. claim the file so other hosts sharing the inputs leave it alone
	if obj.keyStorage != nil {
		lock, claimErr := obj.keyStorage.ClaimFile(ctx, task.InputPath, obj.options.LockDuration)
		if claimErr != nil {
			err = elements.NewFileError(
				task.InputPath,
				elements.NewStackError(fmt.Errorf("%w| file is being converted elsewhere: %w", ErrFileClaimFailed, claimErr)),
			)
			return tasker.Result{}, err
		}
		defer func() {
			_, unlockErr := obj.keyStorage.ReleaseFileLock(ctx, lock)
			if unlockErr != nil {
				obj.logger.Warn(
					"failed to release file claim",
					slog.String("file", task.InputPath),
					slog.String("error", unlockErr.Error()),
				)
			}
		}()

		// 2. skip inputs that have not changed since the last conversion
		if obj.options.SkipUnchanged {
			skipped, skipErr := obj.alreadyConverted(ctx, task, inputInfo)
			if skipErr != nil {
				obj.logger.Warn(
					"unable to read conversion ledger",
					slog.String("file", task.InputPath),
					slog.String("error", skipErr.Error()),
				)
			} else if skipped {
				obj.logger.Info("skipping unchanged file", slog.String("file", task.InputPath))
				if obj.observer != nil {
					obj.observer.ObserveSkipped(task.InputPath)
				}
				if obj.manifest != nil {
					obj.manifest.AddFile(storage.ManifestFile{
						InputPath: task.InputPath, OutputPath: task.OutputPath, Skipped: true,
					})
				}
				return tasker.Result{Skipped: true}, nil
			}
		}
	}

	// 3. convert
	start := time.Now()
	conversion, err := obj.fileConverter.ConvertFile(ctx, task)
	if obj.observer != nil {
		obj.observer.ObserveConversion(conversion, time.Since(start), err)
	}
	if err != nil {
		return tasker.Result{}, err
	}

	manifestFile := storage.ManifestFile{
		InputPath:    conversion.InputPath,
		OutputPath:   conversion.OutputPath,
		NumRows:      conversion.NumRows,
		NumRowGroups: conversion.NumRowGroups,
		Columns:      storage.ManifestColumnsFromSchema(conversion.Schema),
	}

	// 4. publish
	if obj.outputStore != nil {
		key, uploadErr := obj.outputStore.PublishFile(ctx, conversion.OutputPath)
		if uploadErr != nil {
			err = elements.NewFileError(task.InputPath, errs.Wrap(uploadErr))
			return tasker.Result{}, err
		}
		manifestFile.ObjectKey = key
	}

	// 5. remember the input state
	if obj.keyStorage != nil {
		entry := &storage.LedgerEntry{
			InputPath:   task.InputPath,
			OutputPath:  conversion.OutputPath,
			Size:        inputInfo.Size(),
			ModTime:     inputInfo.ModTime(),
			NumRows:     conversion.NumRows,
			ConvertedAt: time.Now().UTC(),
			Columns:     manifestFile.Columns,
		}
		if ledgerErr := obj.keyStorage.PutLedgerEntry(ctx, entry); ledgerErr != nil {
			obj.logger.Warn(
				"unable to record conversion",
				slog.String("file", task.InputPath),
				slog.String("error", ledgerErr.Error()),
			)
		}
	}

	if obj.manifest != nil {
		obj.manifest.AddFile(manifestFile)
	}

	return tasker.Result{}, nil
}

func (obj *FileConversionTask) alreadyConverted(ctx context.Context, task elements.ConversionTask, inputInfo os.FileInfo) (bool, error) {
	entry, found, err := obj.keyStorage.GetLedgerEntry(ctx, task.InputPath)
	if err != nil {
		return false, errs.Wrap(err)
	}
	if !found || !entry.Matches(inputInfo.Size(), inputInfo.ModTime()) {
		return false, nil
	}

	outputPath := task.OutputPath
	if outputPath == "" {
		outputPath = operations.ResolveOutputPath(task.InputPath, "")
	}
	if entry.OutputPath != outputPath {
		return false, nil
	}
	if _, err := os.Stat(outputPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, elements.NewStackError(err)
	}
	return true, nil
}
