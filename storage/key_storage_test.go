package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerEntryAvro(t *testing.T) {
	entry := &LedgerEntry{
		InputPath:   "/data/in/sales.csv",
		OutputPath:  "/data/out/sales.parquet",
		Size:        2048,
		ModTime:     time.Date(2024, 5, 1, 12, 30, 15, 250_000_000, time.UTC),
		NumRows:     77,
		ConvertedAt: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
		Columns: []ManifestColumn{
			{Name: "id", Type: "integer", Nullable: false},
			{Name: "note", Type: "string", Nullable: true},
		},
	}

	data, err := entry.ToAvro()
	if !assert.Nil(t, err) {
		return
	}

	decoded, err := NewLedgerEntryFromAvro(data)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, entry, decoded)

	assert.True(t, decoded.Matches(2048, entry.ModTime.Add(200*time.Microsecond)))
	assert.False(t, decoded.Matches(2049, entry.ModTime))
	assert.False(t, decoded.Matches(2048, entry.ModTime.Add(time.Second)))

	_, err = NewLedgerEntryFromAvro([]byte{0xff})
	assert.ErrorIs(t, err, ErrLedgerEntryInvalid)
}

func TestKeyStorageKeys(t *testing.T) {
	keyStorage := &KeyStorage{KeyPrefix: "csv2parquet"}

	lockKey := FileLockKey("/data/in/sales.csv")
	assert.Equal(t, lockKey, FileLockKey("/data/in/sales.csv"))
	assert.NotEqual(t, lockKey, FileLockKey("/data/in/sales2.csv"))
	assert.NotEqual(t, lockKey, LedgerKey("/data/in/sales.csv"))
	assert.Equal(t, "csv2parquet-"+lockKey, keyStorage.Key(lockKey))
	assert.Len(t, lockKey, len("file-lock/")+40)
}
