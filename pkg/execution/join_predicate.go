package execution

import (
	"fmt"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// JoinPredicate compares one field of a left tuple against one field of
// a right tuple using op.
type JoinPredicate struct {
	field1 int
	field2 int
	op     primitives.Predicate
}

func NewJoinPredicate(field1, field2 int, op primitives.Predicate) (*JoinPredicate, error) {
	if field1 < 0 {
		return nil, fmt.Errorf("field1 index cannot be negative: %d", field1)
	}
	if field2 < 0 {
		return nil, fmt.Errorf("field2 index cannot be negative: %d", field2)
	}
	return &JoinPredicate{field1: field1, field2: field2, op: op}, nil
}

func (jp *JoinPredicate) Filter(left, right *tuple.Tuple) (bool, error) {
	if left == nil || right == nil {
		return false, fmt.Errorf("tuples cannot be nil")
	}

	f1, err := left.GetField(jp.field1)
	if err != nil {
		return false, fmt.Errorf("failed to get field %d from left tuple: %w", jp.field1, err)
	}
	f2, err := right.GetField(jp.field2)
	if err != nil {
		return false, fmt.Errorf("failed to get field %d from right tuple: %w", jp.field2, err)
	}
	if f1 == nil || f2 == nil {
		return false, nil
	}

	return f1.Compare(jp.op, f2)
}

func (jp *JoinPredicate) String() string {
	return fmt.Sprintf("JoinPredicate(field1=%d %s field2=%d)", jp.field1, jp.op.String(), jp.field2)
}
