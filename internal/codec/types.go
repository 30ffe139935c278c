// internal/codec/types.go
package codec

import (
	"fmt"
	"strings"
)

// DataType is the register interpretation of a channel.
type DataType string

const (
	Int16   DataType = "Int16"
	UInt16  DataType = "UInt16"
	Float32 DataType = "Float32"
)

// ParseDataType accepts the canonical names case-insensitively.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int16":
		return Int16, nil
	case "uint16":
		return UInt16, nil
	case "float32", "float":
		return Float32, nil
	}
	return "", fmt.Errorf("codec: unknown data type %q", s)
}

// Words is the number of 16-bit registers one value occupies.
func (d DataType) Words() int {
	if d == Float32 {
		return 2
	}
	return 1
}

// WordOrder selects how two registers form a 32-bit value.
type WordOrder string

const (
	// ABCD: first register holds the high word.
	ABCD WordOrder = "ABCD"
	// BADC: first register holds the low word.
	BADC WordOrder = "BADC"
)

// ParseWordOrder returns ABCD for an empty string.
func ParseWordOrder(s string) (WordOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ABCD":
		return ABCD, nil
	case "BADC":
		return BADC, nil
	}
	return "", fmt.Errorf("codec: unknown word order %q", s)
}
