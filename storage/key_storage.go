package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"

	"github.com/alekLukanen/csv2parquet/elements"
)

type ILock interface {
	TryLockContext(context.Context) error
	UnlockContext(context.Context) (bool, error)
	Name() string
}

// IKeyStorage coordinates conversions between hosts that share inputs.
type IKeyStorage interface {
	ClaimFile(context.Context, string, time.Duration) (ILock, error)
	ReleaseFileLock(context.Context, ILock) (bool, error)

	GetLedgerEntry(context.Context, string) (*LedgerEntry, bool, error)
	PutLedgerEntry(context.Context, *LedgerEntry) error
}

type KeyStorageOptions struct {
	Address   string
	Password  string
	KeyPrefix string
}

type KeyStorage struct {
	logger *slog.Logger
	client *goredislib.Client
	pool   redsyncredis.Pool
	sync   *redsync.Redsync

	KeyPrefix string
}

func NewKeyStorage(
	ctx context.Context,
	logger *slog.Logger,
	options KeyStorageOptions,
) (*KeyStorage, error) {
	client := goredislib.NewClient(&goredislib.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       0,
	})

	redisPool := goredis.NewPool(client)
	mutexSync := redsync.New(redisPool)

	keyStorage := KeyStorage{
		logger:    logger,
		client:    client,
		pool:      redisPool,
		sync:      mutexSync,
		KeyPrefix: options.KeyPrefix,
	}
	return &keyStorage, nil
}

// Ping checks that the server is reachable.
func (obj *KeyStorage) Ping(ctx context.Context) error {
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()
	if err := obj.client.Ping(ctx).Err(); err != nil {
		return elements.NewStackError(err)
	}
	return nil
}

func (obj *KeyStorage) Close() error {
	return obj.client.Close()
}

func (obj *KeyStorage) Key(key string) string {
	return fmt.Sprintf("%s-%s", obj.KeyPrefix, key)
}

func (obj *KeyStorage) DerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	derivedCtx, cancelFunc := context.WithTimeout(ctx, time.Second*15)
	return derivedCtx, cancelFunc
}

func (obj *KeyStorage) AcquireLock(ctx context.Context, key string, duration time.Duration) (ILock, error) {
	mutex := obj.sync.NewMutex(obj.Key(key), redsync.WithExpiry(duration), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		return nil, err
	}
	return mutex, nil
}

func (obj *KeyStorage) ReleaseLock(ctx context.Context, lock ILock) (bool, error) {
	ok, err := lock.UnlockContext(ctx)
	return ok, err
}

// ClaimFile locks an input path for the given duration. It fails with
// ErrLockFailed when another worker holds the claim.
func (obj *KeyStorage) ClaimFile(ctx context.Context, filePath string, duration time.Duration) (ILock, error) {
	return obj.AcquireLock(ctx, FileLockKey(filePath), duration)
}

func (obj *KeyStorage) ReleaseFileLock(ctx context.Context, lock ILock) (bool, error) {
	return obj.ReleaseLock(ctx, lock)
}

// GetLedgerEntry returns the recorded conversion for filePath. The bool is
// false when there is no entry.
func (obj *KeyStorage) GetLedgerEntry(ctx context.Context, filePath string) (*LedgerEntry, bool, error) {
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()

	data, err := obj.client.Get(ctx, obj.Key(LedgerKey(filePath))).Bytes()
	if errors.Is(err, goredislib.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, elements.NewStackError(err)
	}

	entry, err := NewLedgerEntryFromAvro(data)
	if err != nil {
		return nil, false, elements.NewStackError(err)
	}
	return entry, true, nil
}

func (obj *KeyStorage) PutLedgerEntry(ctx context.Context, entry *LedgerEntry) error {
	data, err := entry.ToAvro()
	if err != nil {
		return elements.NewStackError(err)
	}

	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()

	err = obj.client.Set(ctx, obj.Key(LedgerKey(entry.InputPath)), data, 0).Err()
	if err != nil {
		return elements.NewStackError(err)
	}
	return nil
}

func FileLockKey(filePath string) string {
	return fmt.Sprintf("file-lock/%s", pathDigest(filePath))
}

func LedgerKey(filePath string) string {
	return fmt.Sprintf("ledger/%s", pathDigest(filePath))
}

// paths are hashed so keys stay short and free of separators
func pathDigest(filePath string) string {
	sum := sha1.Sum([]byte(filePath))
	return hex.EncodeToString(sum[:])
}
