package elements

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
)

// TypeTag is a point in the inference lattice.
//
//	TypeNull < TypeInteger < TypeFloat < TypeString
//	TypeNull < TypeBoolean < TypeString
type TypeTag int

const (
	TypeNull TypeTag = iota
	TypeInteger
	TypeFloat
	TypeBoolean
	TypeString
)

func (obj TypeTag) String() string {
	switch obj {
	case TypeNull:
		return "null"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("unknown(%d)", int(obj))
	}
}

func ParseTypeTag(name string) (TypeTag, error) {
	switch strings.ToLower(name) {
	case "null":
		return TypeNull, nil
	case "integer":
		return TypeInteger, nil
	case "float":
		return TypeFloat, nil
	case "boolean":
		return TypeBoolean, nil
	case "string":
		return TypeString, nil
	default:
		return TypeNull, fmt.Errorf("%w| %s", ErrUnknownTypeTag, name)
	}
}

// ArrowType maps the tag onto the arrow type written to parquet. TypeNull
// has no evidence and is stored as a string column.
func (obj TypeTag) ArrowType() arrow.DataType {
	switch obj {
	case TypeInteger:
		return arrow.PrimitiveTypes.Int64
	case TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// Widen returns the least upper bound of a and b. It is commutative,
// associative and idempotent.
func Widen(a, b TypeTag) TypeTag {
	if a == b {
		return a
	}
	if a == TypeNull {
		return b
	}
	if b == TypeNull {
		return a
	}
	if a == TypeString || b == TypeString {
		return TypeString
	}
	if a == TypeBoolean || b == TypeBoolean {
		return TypeString
	}

	// both are numeric and different
	return TypeFloat
}

// ClassifyCell returns the narrowest tag that accepts value. Empty cells
// are TypeNull.
func ClassifyCell(value string) TypeTag {
	if value == "" {
		return TypeNull
	}
	if _, ok := ParseInteger(value); ok {
		return TypeInteger
	}
	if _, ok := ParseFloat(value); ok {
		return TypeFloat
	}
	if _, ok := ParseBoolean(value); ok {
		return TypeBoolean
	}
	return TypeString
}

// ParseInteger accepts an optional sign followed by decimal digits that fit
// in an int64.
func ParseInteger(value string) (int64, bool) {
	if !isDecimalInteger(value) {
		return 0, false
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseFloat accepts decimal and exponent notation. Special values such as
// NaN, Inf and hexadecimal floats are rejected.
func ParseFloat(value string) (float64, bool) {
	if !isDecimalFloat(value) {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		// out of range values still classify as floats
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return v, true
		}
		return 0, false
	}
	return v, true
}

func ParseBoolean(value string) (bool, bool) {
	switch {
	case strings.EqualFold(value, "true"):
		return true, true
	case strings.EqualFold(value, "false"):
		return false, true
	default:
		return false, false
	}
}

func isDecimalInteger(value string) bool {
	if len(value) > 0 && (value[0] == '-' || value[0] == '+') {
		value = value[1:]
	}
	if len(value) == 0 {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

// isDecimalFloat matches [+-]? (digits [. digits?] | . digits) ([eE] [+-]? digits)?
func isDecimalFloat(value string) bool {
	i := 0
	if i < len(value) && (value[i] == '-' || value[i] == '+') {
		i++
	}

	mantissaDigits := 0
	for i < len(value) && value[i] >= '0' && value[i] <= '9' {
		i++
		mantissaDigits++
	}
	if i < len(value) && value[i] == '.' {
		i++
		for i < len(value) && value[i] >= '0' && value[i] <= '9' {
			i++
			mantissaDigits++
		}
	}
	if mantissaDigits == 0 {
		return false
	}

	if i < len(value) && (value[i] == 'e' || value[i] == 'E') {
		i++
		if i < len(value) && (value[i] == '-' || value[i] == '+') {
			i++
		}
		exponentDigits := 0
		for i < len(value) && value[i] >= '0' && value[i] <= '9' {
			i++
			exponentDigits++
		}
		if exponentDigits == 0 {
			return false
		}
	}

	return i == len(value)
}
