package execution

import (
	"storemy/pkg/tuple"
)

// DbIterator is the pull-based contract every operator in the execution
// engine implements: a scan, a filter, a join, or any other operator
// that produces a stream of tuples.
type DbIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*tuple.Tuple, error)
	Rewind() error
	Close() error
	GetTupleDesc() *tuple.TupleDescription
}

func iterate(iter DbIterator, processFunc func(*tuple.Tuple) (bool, error)) error {
	for {
		hasNext, err := iter.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			break
		}

		tup, err := iter.Next()
		if err != nil {
			return err
		}
		if tup == nil {
			continue
		}

		shouldContinue, err := processFunc(tup)
		if err != nil {
			return err
		}
		if !shouldContinue {
			break
		}
	}
	return nil
}

// ForEach applies processFunc to every tuple the iterator produces.
func ForEach(iter DbIterator, processFunc func(*tuple.Tuple) error) error {
	return iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		return true, processFunc(tup)
	})
}

// Drain exhausts an iterator, returning every tuple it produces.
func Drain(iter DbIterator) ([]*tuple.Tuple, error) {
	var results []*tuple.Tuple
	err := iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		results = append(results, tup)
		return true, nil
	})
	return results, err
}
