package types

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"storemy/pkg/primitives"
	"strconv"
)

// IntField is a 4-byte signed integer field, stored big-endian.
type IntField struct {
	Value int32
}

func NewIntField(value int32) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, uint32(f.Value)) // #nosec G115
	_, err := w.Write(bytes)
	return err
}

func (f *IntField) Compare(op primitives.Predicate, other Field) (bool, error) {
	otherField, ok := other.(*IntField)
	if !ok {
		return false, nil
	}
	return compareInt32(f.Value, otherField.Value, op), nil
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return strconv.FormatInt(int64(f.Value), 10)
}

func (f *IntField) Equals(other Field) bool {
	otherField, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == otherField.Value
}

func (f *IntField) Hash() (primitives.HashCode, error) {
	h := fnv.New32a()
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, uint32(f.Value)) // #nosec G115
	_, _ = h.Write(bytes)
	return primitives.HashCode(h.Sum32()), nil
}

func (f *IntField) Length() uint32 {
	return 4
}

func compareInt32(a, b int32, op primitives.Predicate) bool {
	switch op {
	case primitives.Equals:
		return a == b
	case primitives.LessThan:
		return a < b
	case primitives.GreaterThan:
		return a > b
	case primitives.LessThanOrEqual:
		return a <= b
	case primitives.GreaterThanOrEqual:
		return a >= b
	case primitives.NotEqual, primitives.NotEqualsBracket:
		return a != b
	default:
		return false
	}
}
