package elements

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/alekLukanen/errs"
)

// file-scoped conversion failures
var (
	ErrIo           = errors.New("io error")
	ErrEmptyFile    = errors.New("empty file")
	ErrEmptySchema  = errors.New("empty schema")
	ErrTypeCoercion = errors.New("type coercion error")
)

var (
	ErrColumnNotFound      = errors.New("column not found")
	ErrDuplicateColumnName = errors.New("duplicate column name")
	ErrUnknownTypeTag      = errors.New("unknown type tag")
	ErrUnsupportedDataType = errors.New("unsupported data type")
	ErrInvalidMetadata     = errors.New("invalid metadata")
)

// NewStackError captures the stack like errs.NewStackError. The stack error
// only unwraps to its wrapped list, so err is added there to keep it
// visible to errors.Is and errors.As.
func NewStackError(err error) error {
	return errs.Wrap(errs.NewStackError(err), err)
}

var stackMessageMarker = regexp.MustCompile(`^- \[\d+\] `)

// ErrorMessage flattens err into a single line without the stack error
// heading, list markers or repeated messages.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	seen := make(map[string]bool)
	parts := make([]string, 0)
	for _, line := range strings.Split(err.Error(), "\n") {
		line = stackMessageMarker.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.TrimSuffix(line, errs.ERR_MSG_TITLE))
		if line == "" || line == errs.ERR_MSG_TITLE || seen[line] {
			continue
		}
		seen[line] = true
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}

// FileError attaches the input path to the error that failed its
// conversion.
type FileError struct {
	FilePath string
	Err      error
}

func NewFileError(filePath string, err error) *FileError {
	return &FileError{FilePath: filePath, Err: err}
}

func (obj *FileError) Error() string {
	return fmt.Sprintf("%s: %s", obj.FilePath, ErrorMessage(obj.Err))
}

func (obj *FileError) Unwrap() error {
	return obj.Err
}

// ErrorRecord converts the failure into its reportable form.
func (obj *FileError) ErrorRecord() ErrorRecord {
	return ErrorRecord{FilePath: obj.FilePath, Error: ErrorMessage(obj.Err)}
}

// ErrorKind names the taxonomy entry err belongs to, or "unknown".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyFile):
		return "empty_file"
	case errors.Is(err, ErrEmptySchema):
		return "empty_schema"
	case errors.Is(err, ErrTypeCoercion):
		return "type_coercion"
	case errors.Is(err, ErrIo):
		return "io"
	default:
		return "unknown"
	}
}
