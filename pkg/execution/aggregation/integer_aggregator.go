package aggregation

import (
	"fmt"
	"math"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
	"sync"
)

// IntegerAggregator computes MIN, MAX, SUM, AVG, or COUNT over an integer
// field, optionally grouped by another field of any type. AVG is kept as
// a running sum and count and divided (integer division) only when a
// result tuple is materialized.
type IntegerAggregator struct {
	groupByField   int
	groupFieldType types.Type
	aggrField      int
	op             AggregateOp
	groupKeys      map[string]types.Field
	groupToAgg     map[string]int32
	groupToCount   map[string]int32
	tupleDesc      *tuple.TupleDescription
	mutex          sync.RWMutex
}

func NewIntAggregator(gbField int, gbFieldType types.Type, aField int, op AggregateOp) (*IntegerAggregator, error) {
	ia := &IntegerAggregator{
		groupByField:   gbField,
		groupFieldType: gbFieldType,
		aggrField:      aField,
		op:             op,
		groupKeys:      make(map[string]types.Field),
		groupToAgg:     make(map[string]int32),
		groupToCount:   make(map[string]int32),
	}

	td, err := ia.createTupleDesc()
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator tuple desc: %w", err)
	}
	ia.tupleDesc = td
	return ia, nil
}

func (ia *IntegerAggregator) createTupleDesc() (*tuple.TupleDescription, error) {
	if ia.groupByField == NoGrouping {
		return tuple.NewTupleDesc([]types.Type{types.IntType}, []string{ia.op.String()})
	}
	return tuple.NewTupleDesc(
		[]types.Type{ia.groupFieldType, types.IntType},
		[]string{"group", ia.op.String()},
	)
}

func (ia *IntegerAggregator) GetTupleDesc() *tuple.TupleDescription {
	return ia.tupleDesc
}

func (ia *IntegerAggregator) Merge(t *tuple.Tuple) error {
	ia.mutex.Lock()
	defer ia.mutex.Unlock()

	groupKey, groupField, err := groupKeyOf(t, ia.groupByField)
	if err != nil {
		return err
	}

	aggField, err := t.GetField(ia.aggrField)
	if err != nil {
		return fmt.Errorf("failed to read aggregate field: %w", err)
	}
	intField, ok := aggField.(*types.IntField)
	if !ok {
		return fmt.Errorf("aggregate field is not an integer")
	}

	ia.initGroup(groupKey, groupField)
	return ia.update(groupKey, intField.Value)
}

func (ia *IntegerAggregator) initGroup(groupKey string, groupField types.Field) {
	if _, exists := ia.groupToAgg[groupKey]; exists {
		return
	}
	ia.groupKeys[groupKey] = groupField
	ia.groupToAgg[groupKey] = ia.initValue()
	if ia.op == Avg {
		ia.groupToCount[groupKey] = 0
	}
}

func (ia *IntegerAggregator) initValue() int32 {
	switch ia.op {
	case Min:
		return math.MaxInt32
	case Max:
		return math.MinInt32
	default:
		return 0
	}
}

func (ia *IntegerAggregator) update(groupKey string, value int32) error {
	current := ia.groupToAgg[groupKey]

	switch ia.op {
	case Min:
		if value < current {
			ia.groupToAgg[groupKey] = value
		}
	case Max:
		if value > current {
			ia.groupToAgg[groupKey] = value
		}
	case Sum:
		ia.groupToAgg[groupKey] = current + value
	case Avg:
		ia.groupToAgg[groupKey] = current + value
		ia.groupToCount[groupKey]++
	case Count:
		ia.groupToAgg[groupKey]++
	default:
		return fmt.Errorf("unsupported aggregate operation: %v", ia.op)
	}
	return nil
}

func (ia *IntegerAggregator) Iterator() (*tuple.Iterator, error) {
	ia.mutex.RLock()
	defer ia.mutex.RUnlock()

	results := make([]*tuple.Tuple, 0, len(ia.groupToAgg))
	for groupKey, aggValue := range ia.groupToAgg {
		if ia.op == Avg {
			count := ia.groupToCount[groupKey]
			if count > 0 {
				aggValue = aggValue / count
			}
		}

		t := tuple.NewTuple(ia.tupleDesc)
		if ia.groupByField == NoGrouping {
			if err := t.SetField(0, types.NewIntField(aggValue)); err != nil {
				return nil, err
			}
		} else {
			if err := t.SetField(0, ia.groupKeys[groupKey]); err != nil {
				return nil, err
			}
			if err := t.SetField(1, types.NewIntField(aggValue)); err != nil {
				return nil, err
			}
		}
		results = append(results, t)
	}

	return tuple.NewIteratorWithDesc(results, ia.tupleDesc), nil
}
