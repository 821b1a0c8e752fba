package elements

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
)

const (
	MetadataKeyType       = "csv2parquet.type"
	MetadataKeyNullable   = "csv2parquet.nullable"
	MetadataKeySource     = "csv2parquet.source"
	MetadataKeySampleSize = "csv2parquet.sample_size"
)

// ColumnCandidate accumulates evidence for one column while sampling.
type ColumnCandidate struct {
	Name       string
	SeenNull   bool
	WidestType TypeTag
}

func NewColumnCandidate(name string) ColumnCandidate {
	return ColumnCandidate{Name: name, WidestType: TypeNull}
}

// Observe folds one raw cell into the candidate.
func (obj *ColumnCandidate) Observe(value string) {
	tag := ClassifyCell(value)
	if tag == TypeNull {
		obj.SeenNull = true
		return
	}
	obj.WidestType = Widen(obj.WidestType, tag)
}

type ColumnDef struct {
	Name     string
	Type     TypeTag
	Nullable bool
}

func (obj ColumnDef) ArrowField() arrow.Field {
	md := arrow.NewMetadata(
		[]string{MetadataKeyType, MetadataKeyNullable},
		[]string{obj.Type.String(), strconv.FormatBool(obj.Nullable)},
	)
	// every parquet column is optional; empty cells are written as nulls
	// even when the sample saw none
	return arrow.Field{
		Name:     obj.Name,
		Type:     obj.Type.ArrowType(),
		Nullable: true,
		Metadata: md,
	}
}

// Schema is the ordered, immutable column layout of one file.
type Schema struct {
	columns []ColumnDef
}

func NewSchema(columns ...ColumnDef) (*Schema, error) {
	if len(columns) == 0 {
		return nil, ErrEmptySchema
	}

	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if _, ok := seen[col.Name]; ok {
			return nil, fmt.Errorf("%w| %s", ErrDuplicateColumnName, col.Name)
		}
		seen[col.Name] = struct{}{}
	}

	return &Schema{columns: append([]ColumnDef(nil), columns...)}, nil
}

func (obj *Schema) NumColumns() int {
	return len(obj.columns)
}

func (obj *Schema) Column(i int) ColumnDef {
	return obj.columns[i]
}

func (obj *Schema) Columns() []ColumnDef {
	return append([]ColumnDef(nil), obj.columns...)
}

func (obj *Schema) ColumnNames() []string {
	names := make([]string, len(obj.columns))
	for i, col := range obj.columns {
		names[i] = col.Name
	}
	return names
}

func (obj *Schema) GetColumnByName(name string) (ColumnDef, error) {
	for _, col := range obj.columns {
		if col.Name == name {
			return col, nil
		}
	}
	return ColumnDef{}, fmt.Errorf("%w| %s", ErrColumnNotFound, name)
}

// ArrowSchema builds the arrow schema written to parquet. The source file
// and sample size are recorded in the schema metadata when provided.
func (obj *Schema) ArrowSchema(source string, sampleSize int) *arrow.Schema {
	fields := make([]arrow.Field, len(obj.columns))
	for i, col := range obj.columns {
		fields[i] = col.ArrowField()
	}

	keys := make([]string, 0, 2)
	values := make([]string, 0, 2)
	if source != "" {
		keys = append(keys, MetadataKeySource)
		values = append(values, source)
	}
	if sampleSize > 0 {
		keys = append(keys, MetadataKeySampleSize)
		values = append(values, strconv.Itoa(sampleSize))
	}
	if len(keys) == 0 {
		return arrow.NewSchema(fields, nil)
	}

	md := arrow.NewMetadata(keys, values)
	return arrow.NewSchema(fields, &md)
}

// SchemaFromArrow recovers the inferred column definitions from a schema
// previously produced by ArrowSchema.
func SchemaFromArrow(schema *arrow.Schema) (*Schema, error) {
	columns := make([]ColumnDef, schema.NumFields())
	for i, field := range schema.Fields() {
		col := ColumnDef{Name: field.Name, Nullable: field.Nullable}

		if idx := field.Metadata.FindKey(MetadataKeyType); idx >= 0 {
			tag, err := ParseTypeTag(field.Metadata.Values()[idx])
			if err != nil {
				return nil, err
			}
			col.Type = tag
		} else {
			tag, err := typeTagFromArrow(field.Type)
			if err != nil {
				return nil, err
			}
			col.Type = tag
		}

		if idx := field.Metadata.FindKey(MetadataKeyNullable); idx >= 0 {
			nullable, err := strconv.ParseBool(field.Metadata.Values()[idx])
			if err != nil {
				return nil, fmt.Errorf("%w| nullable metadata for %s: %w", ErrInvalidMetadata, field.Name, err)
			}
			col.Nullable = nullable
		}

		columns[i] = col
	}
	return NewSchema(columns...)
}

func typeTagFromArrow(dt arrow.DataType) (TypeTag, error) {
	switch dt.ID() {
	case arrow.INT64:
		return TypeInteger, nil
	case arrow.FLOAT64:
		return TypeFloat, nil
	case arrow.BOOL:
		return TypeBoolean, nil
	case arrow.STRING:
		return TypeString, nil
	default:
		return TypeNull, fmt.Errorf("%w| %s", ErrUnsupportedDataType, dt)
	}
}

// ConversionTask is one unit of work for the dispatch harness.
type ConversionTask struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
}

// ErrorRecord describes one failed conversion.
type ErrorRecord struct {
	FilePath string `json:"file_path"`
	Error    string `json:"error"`
}

func (obj ErrorRecord) String() string {
	return fmt.Sprintf("File: %s  Error: %s", obj.FilePath, obj.Error)
}
