package aggregation

import (
	"fmt"
	"storemy/pkg/execution"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// AggregateOperator is a pull-iterator that computes a single aggregate
// function over its child, optionally grouped by a field. Unlike the
// other operators in this package it is not pipelined: Open drains the
// entire child before the first result is available, since the result
// for a group cannot be known until every row in it has been seen.
type AggregateOperator struct {
	base       *execution.BaseIterator
	source     execution.DbIterator
	aField     int
	gField     int
	op         AggregateOp
	aggregator Aggregator
	results    *tuple.Iterator
	tupleDesc  *tuple.TupleDescription
}

func NewAggregateOperator(source execution.DbIterator, aField, gField int, op AggregateOp) (*AggregateOperator, error) {
	if source == nil {
		return nil, fmt.Errorf("source iterator cannot be nil")
	}

	sourceDesc := source.GetTupleDesc()
	if sourceDesc == nil {
		return nil, fmt.Errorf("source tuple description cannot be nil")
	}
	if aField < 0 || aField >= sourceDesc.NumFields() {
		return nil, fmt.Errorf("invalid aggregate field index: %d", aField)
	}
	if gField != NoGrouping && (gField < 0 || gField >= sourceDesc.NumFields()) {
		return nil, fmt.Errorf("invalid group field index: %d", gField)
	}

	agg := &AggregateOperator{source: source, aField: aField, gField: gField, op: op}

	aggFieldType := sourceDesc.Types[aField]
	var gbFieldType types.Type
	if gField != NoGrouping {
		gbFieldType = sourceDesc.Types[gField]
	}

	var err error
	switch aggFieldType {
	case types.IntType:
		agg.aggregator, err = NewIntAggregator(gField, gbFieldType, aField, op)
	case types.StringType:
		agg.aggregator, err = NewStringAggregator(gField, gbFieldType, aField, op)
	default:
		return nil, fmt.Errorf("unsupported field type for aggregation: %v", aggFieldType)
	}
	if err != nil {
		return nil, err
	}

	agg.tupleDesc = agg.aggregator.GetTupleDesc()
	agg.base = execution.NewBaseIterator(agg.readNext)
	return agg, nil
}

func (agg *AggregateOperator) Open() error {
	if err := agg.source.Open(); err != nil {
		return fmt.Errorf("failed to open aggregate source: %w", err)
	}

	for {
		hasNext, err := agg.source.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			break
		}
		t, err := agg.source.Next()
		if err != nil {
			return err
		}
		if err := agg.aggregator.Merge(t); err != nil {
			return fmt.Errorf("failed to merge tuple into aggregate: %w", err)
		}
	}

	results, err := agg.aggregator.Iterator()
	if err != nil {
		return err
	}
	if err := results.Open(); err != nil {
		return err
	}
	agg.results = results

	agg.base.MarkOpened()
	return nil
}

func (agg *AggregateOperator) readNext() (*tuple.Tuple, error) {
	hasNext, err := agg.results.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, nil
	}
	return agg.results.Next()
}

func (agg *AggregateOperator) GetTupleDesc() *tuple.TupleDescription {
	return agg.tupleDesc
}

func (agg *AggregateOperator) Close() error {
	if agg.source != nil {
		agg.source.Close()
	}
	if agg.results != nil {
		agg.results.Close()
	}
	return agg.base.Close()
}

func (agg *AggregateOperator) HasNext() (bool, error)      { return agg.base.HasNext() }
func (agg *AggregateOperator) Next() (*tuple.Tuple, error) { return agg.base.Next() }

func (agg *AggregateOperator) Rewind() error {
	agg.base.ClearCache()
	if agg.results != nil {
		return agg.results.Rewind()
	}
	return nil
}
