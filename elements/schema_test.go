package elements

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/stretchr/testify/assert"
)

func TestColumnCandidateObserve(t *testing.T) {
	cand := NewColumnCandidate("score")
	for _, value := range []string{"3.5", "", "7"} {
		cand.Observe(value)
	}

	assert.Equal(t, TypeFloat, cand.WidestType)
	assert.True(t, cand.SeenNull)
}

func TestNewSchemaRejectsDuplicatesAndEmpty(t *testing.T) {
	_, err := NewSchema()
	assert.ErrorIs(t, err, ErrEmptySchema)

	_, err = NewSchema(
		ColumnDef{Name: "a", Type: TypeInteger},
		ColumnDef{Name: "a", Type: TypeString},
	)
	assert.ErrorIs(t, err, ErrDuplicateColumnName)
}

func TestSchemaArrowRoundTrip(t *testing.T) {
	schema, err := NewSchema(
		ColumnDef{Name: "id", Type: TypeInteger, Nullable: false},
		ColumnDef{Name: "score", Type: TypeFloat, Nullable: true},
		ColumnDef{Name: "ok", Type: TypeBoolean, Nullable: false},
		ColumnDef{Name: "name", Type: TypeString, Nullable: true},
	)
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	arrowSchema := schema.ArrowSchema("data.csv", 100)

	expectedTypes := []arrow.DataType{
		arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Float64,
		arrow.FixedWidthTypes.Boolean,
		arrow.BinaryTypes.String,
	}
	for idx, field := range arrowSchema.Fields() {
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			assert.True(t, arrow.TypeEqual(expectedTypes[idx], field.Type))
			assert.True(t, field.Nullable, "all written fields are nullable")
		})
	}

	md := arrowSchema.Metadata()
	assert.Equal(t, "data.csv", md.Values()[md.FindKey(MetadataKeySource)])
	assert.Equal(t, "100", md.Values()[md.FindKey(MetadataKeySampleSize)])

	recovered, err := SchemaFromArrow(arrowSchema)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, schema.Columns(), recovered.Columns())
}

func TestSchemaColumnsIsACopy(t *testing.T) {
	schema, err := NewSchema(ColumnDef{Name: "a", Type: TypeInteger})
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	cols := schema.Columns()
	cols[0].Name = "changed"
	assert.Equal(t, "a", schema.Column(0).Name)

	_, err = schema.GetColumnByName("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestFileError(t *testing.T) {
	inner := fmt.Errorf("%w| row 3", ErrTypeCoercion)
	err := error(NewFileError("in.csv", inner))

	assert.True(t, errors.Is(err, ErrTypeCoercion))
	assert.Equal(t, "type_coercion", ErrorKind(err))

	var fileErr *FileError
	if !assert.True(t, errors.As(err, &fileErr)) {
		return
	}
	record := fileErr.ErrorRecord()
	assert.Equal(t, "in.csv", record.FilePath)
	assert.Equal(t, "type coercion error| row 3", record.Error)
	assert.Equal(t, "File: in.csv  Error: type coercion error| row 3", record.String())
}

func TestNewStackErrorKeepsChain(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStackError(fmt.Errorf("%w| writing row group: %w", ErrIo, cause))

	assert.True(t, errors.Is(err, ErrIo))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "io", ErrorKind(err))
	assert.Contains(t, errs.ErrorWithStack(err), errs.ERR_STACK_TITLE)

	wrapped := errs.Wrap(err, fmt.Errorf("converting %s", "in.csv"))
	assert.True(t, errors.Is(wrapped, ErrIo))
}

func TestErrorMessage(t *testing.T) {
	inner := NewStackError(fmt.Errorf("%w| row 2 column %q", ErrTypeCoercion, "a"))

	testCases := []struct {
		err      error
		expected string
	}{
		{err: nil, expected: ""},
		{err: ErrEmptyFile, expected: "empty file"},
		{err: NewStackError(fmt.Errorf("%w| no rows", ErrEmptyFile)), expected: "empty file| no rows"},
		{err: errs.NewStackError(ErrEmptySchema), expected: "empty schema"},
		{err: inner, expected: `type coercion error| row 2 column "a"`},
		{
			err:      NewStackError(fmt.Errorf("%w| writing: %w", ErrIo, inner)),
			expected: `io error| writing: type coercion error| row 2 column "a"`,
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			assert.Equal(t, tc.expected, ErrorMessage(tc.err))
		})
	}

	fileErr := NewFileError("in.csv", inner)
	assert.Equal(t, `in.csv: type coercion error| row 2 column "a"`, fileErr.Error())
	assert.Equal(t, `type coercion error| row 2 column "a"`, fileErr.ErrorRecord().Error)
	assert.Equal(t, "type_coercion", ErrorKind(fileErr))
}
