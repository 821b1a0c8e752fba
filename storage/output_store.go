package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/errs"
)

type OutputStoreOptions struct {
	BucketName string
	KeyPrefix  string
}

// OutputStore publishes converted files and run manifests to a bucket.
type OutputStore struct {
	logger *slog.Logger

	IObjectStorage

	bucketName string
	keyPrefix  string
}

func NewOutputStore(
	ctx context.Context,
	logger *slog.Logger,
	objectStorage IObjectStorage,
	options OutputStoreOptions,
) *OutputStore {
	return &OutputStore{
		logger:         logger,
		IObjectStorage: objectStorage,
		bucketName:     options.BucketName,
		keyPrefix:      strings.Trim(options.KeyPrefix, "/"),
	}
}

func (obj *OutputStore) Key(name string) string {
	if obj.keyPrefix == "" {
		return name
	}
	return path.Join(obj.keyPrefix, name)
}

func (obj *OutputStore) ManifestKey(runId string) string {
	return obj.Key(fmt.Sprintf("_manifests/manifest_%s.json", runId))
}

// PublishFile uploads a converted parquet file under the key prefix and
// returns its object key.
func (obj *OutputStore) PublishFile(ctx context.Context, filePath string) (string, error) {
	key := obj.Key(filepath.Base(filePath))
	err := obj.UploadFile(ctx, obj.bucketName, key, filePath)
	if err != nil {
		return "", elements.NewStackError(fmt.Errorf("%w| %s: %w", ErrUploadFailed, key, err))
	}
	return key, nil
}

func (obj *OutputStore) PublishManifest(ctx context.Context, manifest *RunManifest) (string, error) {
	data, err := manifest.ToBytes()
	if err != nil {
		return "", elements.NewStackError(err)
	}

	key := obj.ManifestKey(manifest.Id)
	err = obj.Upload(ctx, obj.bucketName, key, data)
	if err != nil {
		return "", elements.NewStackError(fmt.Errorf("%w| %s: %w", ErrUploadFailed, key, err))
	}
	obj.logger.Info("published run manifest", slog.String("bucket", obj.bucketName), slog.String("key", key))
	return key, nil
}

func (obj *OutputStore) FetchManifest(ctx context.Context, runId string) (*RunManifest, error) {
	data, err := obj.Download(ctx, obj.bucketName, obj.ManifestKey(runId))
	if err != nil {
		return nil, elements.NewStackError(err)
	}
	manifest, err := NewRunManifestFromBytes(data)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return manifest, nil
}
