package types

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ParseField reads one field of the given type from r; capacity is the
// string capacity used when t is StringType and is ignored otherwise.
func ParseField(r io.Reader, t Type, capacity int) (Field, error) {
	switch t {
	case IntType:
		return ParseIntField(r)
	case StringType:
		return ParseStringField(r, capacity)
	default:
		return nil, fmt.Errorf("unknown field type %v", t)
	}
}

// ParseIntField reads a 4-byte big-endian integer field.
func ParseIntField(r io.Reader) (*IntField, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read int field: %w", err)
	}
	return NewIntField(int32(binary.BigEndian.Uint32(buf))), nil // #nosec G115
}

// ParseStringField reads a 4-byte length prefix followed by capacity
// bytes of payload (the excess beyond the actual string is padding).
func ParseStringField(r io.Reader, capacity int) (*StringField, error) {
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBuf); err != nil {
		return nil, fmt.Errorf("failed to read string length: %w", err)
	}
	length := int(binary.BigEndian.Uint32(lengthBuf))
	if length > capacity {
		return nil, fmt.Errorf("string length %d exceeds capacity %d", length, capacity)
	}

	payload := make([]byte, capacity)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read string payload: %w", err)
	}

	return NewStringField(string(payload[:length]), capacity), nil
}
