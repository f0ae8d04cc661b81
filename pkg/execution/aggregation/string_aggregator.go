package aggregation

import (
	"fmt"
	"storemy/pkg/dberr"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
	"sync"
)

// StringAggregator supports only COUNT over a string field; there is no
// well-defined MIN/MAX/SUM/AVG for a byte string in this engine, so any
// other op is rejected at construction.
type StringAggregator struct {
	groupByField   int
	groupFieldType types.Type
	aggrField      int
	groupKeys      map[string]types.Field
	groupToCount   map[string]int32
	tupleDesc      *tuple.TupleDescription
	mutex          sync.RWMutex
}

func NewStringAggregator(gbField int, gbFieldType types.Type, aField int, op AggregateOp) (*StringAggregator, error) {
	if op != Count {
		return nil, dberr.New(dberr.CategoryUser, dberr.CodeUnsupportedAggregate,
			fmt.Sprintf("string fields only support COUNT, got %s", op))
	}

	sa := &StringAggregator{
		groupByField:   gbField,
		groupFieldType: gbFieldType,
		aggrField:      aField,
		groupKeys:      make(map[string]types.Field),
		groupToCount:   make(map[string]int32),
	}

	td, err := sa.createTupleDesc()
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator tuple desc: %w", err)
	}
	sa.tupleDesc = td
	return sa, nil
}

func (sa *StringAggregator) createTupleDesc() (*tuple.TupleDescription, error) {
	if sa.groupByField == NoGrouping {
		return tuple.NewTupleDesc([]types.Type{types.IntType}, []string{Count.String()})
	}
	return tuple.NewTupleDesc(
		[]types.Type{sa.groupFieldType, types.IntType},
		[]string{"group", Count.String()},
	)
}

func (sa *StringAggregator) GetTupleDesc() *tuple.TupleDescription {
	return sa.tupleDesc
}

func (sa *StringAggregator) Merge(t *tuple.Tuple) error {
	sa.mutex.Lock()
	defer sa.mutex.Unlock()

	groupKey, groupField, err := groupKeyOf(t, sa.groupByField)
	if err != nil {
		return err
	}

	if _, exists := sa.groupToCount[groupKey]; !exists {
		sa.groupKeys[groupKey] = groupField
	}
	sa.groupToCount[groupKey]++
	return nil
}

func (sa *StringAggregator) Iterator() (*tuple.Iterator, error) {
	sa.mutex.RLock()
	defer sa.mutex.RUnlock()

	results := make([]*tuple.Tuple, 0, len(sa.groupToCount))
	for groupKey, count := range sa.groupToCount {
		t := tuple.NewTuple(sa.tupleDesc)
		if sa.groupByField == NoGrouping {
			if err := t.SetField(0, types.NewIntField(count)); err != nil {
				return nil, err
			}
		} else {
			if err := t.SetField(0, sa.groupKeys[groupKey]); err != nil {
				return nil, err
			}
			if err := t.SetField(1, types.NewIntField(count)); err != nil {
				return nil, err
			}
		}
		results = append(results, t)
	}

	return tuple.NewIteratorWithDesc(results, sa.tupleDesc), nil
}
