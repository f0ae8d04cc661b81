package tuple

import (
	"fmt"
	"storemy/pkg/types"
	"strings"
)

// TupleDescription describes the schema of a tuple (like a table schema).
// Because StringType fields have a capacity fixed per-column rather than
// per-type, sizing a tuple requires more than the type list: Capacities
// holds each field's on-disk footprint in bytes (IntType fields always
// report 4; StringType fields report their configured capacity + 4 for
// the length prefix).
type TupleDescription struct {
	// Types contains the data type of each field in order
	Types []types.Type
	// FieldNames contains the name of each field (optional, may be nil)
	FieldNames []string
	// Capacities holds the serialized byte length of each field
	Capacities []uint32
}

// NewTupleDesc creates a schema for fields that need no extra sizing
// information (IntType only, or StringType at the default capacity).
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	capacities := make([]uint32, len(fieldTypes))
	for i, t := range fieldTypes {
		if t == types.StringType {
			capacities[i] = 4 + types.DefaultStringCapacity
		} else {
			capacities[i] = 4
		}
	}
	return NewTupleDescWithCapacities(fieldTypes, fieldNames, capacities)
}

// NewTupleDescWithCapacities creates a schema with an explicit per-field
// byte footprint, required whenever a string column's capacity differs
// from the default.
func NewTupleDescWithCapacities(fieldTypes []types.Type, fieldNames []string, capacities []uint32) (*TupleDescription, error) {
	if len(fieldTypes) < 1 {
		return nil, fmt.Errorf("must provide at least one field type")
	}
	if len(capacities) != len(fieldTypes) {
		return nil, fmt.Errorf("capacities length (%d) must match field types length (%d)",
			len(capacities), len(fieldTypes))
	}

	typesCopy := make([]types.Type, len(fieldTypes))
	copy(typesCopy, fieldTypes)

	capsCopy := make([]uint32, len(capacities))
	copy(capsCopy, capacities)

	var namesCopy []string
	if fieldNames != nil {
		if len(fieldNames) != len(fieldTypes) {
			return nil, fmt.Errorf("field names length (%d) must match field types length (%d)",
				len(fieldNames), len(fieldTypes))
		}
		namesCopy = make([]string, len(fieldNames))
		copy(namesCopy, fieldNames)
	}

	return &TupleDescription{
		Types:      typesCopy,
		FieldNames: namesCopy,
		Capacities: capsCopy,
	}, nil
}

// NumFields returns the number of fields in this tuple descriptor.
func (td *TupleDescription) NumFields() int {
	return len(td.Types)
}

// GetFieldName returns the name of the ith field.
func (td *TupleDescription) GetFieldName(i int) (string, error) {
	if i < 0 || i >= len(td.Types) {
		return "", fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}

	if td.FieldNames == nil {
		return "", nil
	}

	return td.FieldNames[i], nil
}

// TypeAtIndex returns the type of the ith field.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if i < 0 || i >= len(td.Types) {
		return 0, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	return td.Types[i], nil
}

// StringCapacity returns the payload capacity (excluding the length
// prefix) of the ith field. Only meaningful for StringType fields.
func (td *TupleDescription) StringCapacity(i int) (int, error) {
	if i < 0 || i >= len(td.Types) {
		return 0, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	if td.Types[i] != types.StringType {
		return 0, fmt.Errorf("field %d is not a string field", i)
	}
	return int(td.Capacities[i]) - 4, nil
}

// GetSize returns the on-disk byte footprint of a tuple matching this
// schema: the sum of every field's fixed capacity.
func (td *TupleDescription) GetSize() uint32 {
	var size uint32
	for _, c := range td.Capacities {
		size += c
	}
	return size
}

// Equals checks if two TupleDescriptions are equal. Two descriptors are
// equal if they have the same field types and capacities, in order.
// Field names are not compared.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil {
		return false
	}

	if len(td.Types) != len(other.Types) {
		return false
	}

	for i, fieldType := range td.Types {
		if fieldType != other.Types[i] {
			return false
		}
		if td.Capacities[i] != other.Capacities[i] {
			return false
		}
	}
	return true
}

// String returns a string representation of this TupleDescription.
// Format: "Type1(fieldName1),Type2(fieldName2),..."
func (td *TupleDescription) String() string {
	var parts []string

	for i, fieldType := range td.Types {
		var fieldName string
		if td.FieldNames != nil && i < len(td.FieldNames) {
			fieldName = td.FieldNames[i]
		} else {
			fieldName = "null"
		}

		part := fmt.Sprintf("%s(%s)", fieldType.String(), fieldName)
		parts = append(parts, part)
	}

	return strings.Join(parts, ",")
}

// FindFieldIndex locates a field by name in the tuple descriptor.
func (td *TupleDescription) FindFieldIndex(fieldName string) (int, error) {
	for i := 0; i < td.NumFields(); i++ {
		name, _ := td.GetFieldName(i)
		if name == fieldName {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %s not found", fieldName)
}

// WithAlias returns a copy of td whose field names are prefixed with
// "alias.", the way a scan's output is named so a later join or filter
// can disambiguate two tables that share a column name. An empty alias
// returns td unchanged.
func (td *TupleDescription) WithAlias(alias string) *TupleDescription {
	if alias == "" || td.FieldNames == nil {
		return td
	}

	prefixed := make([]string, len(td.FieldNames))
	for i, name := range td.FieldNames {
		prefixed[i] = alias + "." + name
	}

	aliased, _ := NewTupleDescWithCapacities(td.Types, prefixed, td.Capacities)
	return aliased
}

// Combine merges two TupleDescriptions into one, td1's fields followed
// by td2's. A nil argument is treated as the identity.
func Combine(td1, td2 *TupleDescription) *TupleDescription {
	if td1 == nil && td2 == nil {
		return nil
	}
	if td1 == nil {
		return td2
	}
	if td2 == nil {
		return td1
	}

	newTypes := make([]types.Type, 0, len(td1.Types)+len(td2.Types))
	newTypes = append(newTypes, td1.Types...)
	newTypes = append(newTypes, td2.Types...)

	newCapacities := make([]uint32, 0, len(newTypes))
	newCapacities = append(newCapacities, td1.Capacities...)
	newCapacities = append(newCapacities, td2.Capacities...)

	var newFieldNames []string
	if td1.FieldNames != nil || td2.FieldNames != nil {
		newFieldNames = make([]string, 0, len(newTypes))

		if td1.FieldNames != nil {
			newFieldNames = append(newFieldNames, td1.FieldNames...)
		} else {
			for i := 0; i < len(td1.Types); i++ {
				newFieldNames = append(newFieldNames, "")
			}
		}

		if td2.FieldNames != nil {
			newFieldNames = append(newFieldNames, td2.FieldNames...)
		} else {
			for i := 0; i < len(td2.Types); i++ {
				newFieldNames = append(newFieldNames, "")
			}
		}
	}

	combined, _ := NewTupleDescWithCapacities(newTypes, newFieldNames, newCapacities)
	return combined
}
