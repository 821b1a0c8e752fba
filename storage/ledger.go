package storage

import (
	"fmt"
	"time"

	"github.com/linkedin/goavro/v2"
)

const ledgerAvroSchema = `{
  "type": "record",
  "name": "LedgerEntry",
  "namespace": "csv2parquet",
  "fields": [
    {"name": "input_path", "type": "string"},
    {"name": "output_path", "type": "string"},
    {"name": "size", "type": "long"},
    {"name": "mod_time_ms", "type": "long"},
    {"name": "num_rows", "type": "long"},
    {"name": "converted_at_ms", "type": "long"},
    {"name": "columns", "type": {
      "type": "array",
      "items": {
        "type": "record",
        "name": "LedgerColumn",
        "fields": [
          {"name": "name", "type": "string"},
          {"name": "type", "type": "string"},
          {"name": "nullable", "type": "boolean"}
        ]
      }
    }}
  ]
}`

var ledgerCodec *goavro.Codec

func init() {
	codec, err := goavro.NewCodec(ledgerAvroSchema)
	if err != nil {
		panic(fmt.Sprintf("invalid ledger avro schema: %v", err))
	}
	ledgerCodec = codec
}

// LedgerEntry remembers the input file state that produced an output, so
// unchanged inputs can be skipped on later runs.
type LedgerEntry struct {
	InputPath   string
	OutputPath  string
	Size        int64
	ModTime     time.Time
	NumRows     int64
	ConvertedAt time.Time
	Columns     []ManifestColumn
}

// Matches reports whether the entry was recorded for a file with the given
// size and modification time.
func (obj *LedgerEntry) Matches(size int64, modTime time.Time) bool {
	return obj.Size == size && obj.ModTime.UnixMilli() == modTime.UnixMilli()
}

func (obj *LedgerEntry) ToAvro() ([]byte, error) {
	columns := make([]interface{}, len(obj.Columns))
	for i, col := range obj.Columns {
		columns[i] = map[string]interface{}{
			"name":     col.Name,
			"type":     col.Type,
			"nullable": col.Nullable,
		}
	}

	native := map[string]interface{}{
		"input_path":      obj.InputPath,
		"output_path":     obj.OutputPath,
		"size":            obj.Size,
		"mod_time_ms":     obj.ModTime.UnixMilli(),
		"num_rows":        obj.NumRows,
		"converted_at_ms": obj.ConvertedAt.UnixMilli(),
		"columns":         columns,
	}
	return ledgerCodec.BinaryFromNative(nil, native)
}

func NewLedgerEntryFromAvro(data []byte) (*LedgerEntry, error) {
	native, _, err := ledgerCodec.NativeFromBinary(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerEntryInvalid, err)
	}
	record, ok := native.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected native type %T", ErrLedgerEntryInvalid, native)
	}

	entry := &LedgerEntry{
		InputPath:   record["input_path"].(string),
		OutputPath:  record["output_path"].(string),
		Size:        record["size"].(int64),
		ModTime:     time.UnixMilli(record["mod_time_ms"].(int64)).UTC(),
		NumRows:     record["num_rows"].(int64),
		ConvertedAt: time.UnixMilli(record["converted_at_ms"].(int64)).UTC(),
	}

	columns, _ := record["columns"].([]interface{})
	entry.Columns = make([]ManifestColumn, len(columns))
	for i, item := range columns {
		col, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: column %d has type %T", ErrLedgerEntryInvalid, i, item)
		}
		entry.Columns[i] = ManifestColumn{
			Name:     col["name"].(string),
			Type:     col["type"].(string),
			Nullable: col["nullable"].(bool),
		}
	}

	return entry, nil
}
