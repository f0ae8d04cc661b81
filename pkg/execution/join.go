package execution

import (
	"fmt"
	"storemy/pkg/tuple"
)

// Join implements simple nested-loop join: left is the outer relation,
// right is the inner. For each left row every matching right row is
// emitted before the next left row is fetched; once the right child is
// exhausted for the current left row it is rewound for the next one.
type Join struct {
	base      *BaseIterator
	predicate *JoinPredicate
	left      DbIterator
	right     DbIterator
	tupleDesc *tuple.TupleDescription
	curLeft   *tuple.Tuple
}

func NewJoin(predicate *JoinPredicate, left, right DbIterator) (*Join, error) {
	if predicate == nil {
		return nil, fmt.Errorf("join predicate cannot be nil")
	}
	if left == nil || right == nil {
		return nil, fmt.Errorf("join children cannot be nil")
	}

	j := &Join{
		predicate: predicate,
		left:      left,
		right:     right,
		tupleDesc: tuple.Combine(left.GetTupleDesc(), right.GetTupleDesc()),
	}
	j.base = NewBaseIterator(j.readNext)
	return j, nil
}

func (j *Join) Open() error {
	if err := j.left.Open(); err != nil {
		return fmt.Errorf("failed to open left child: %w", err)
	}
	if err := j.right.Open(); err != nil {
		return fmt.Errorf("failed to open right child: %w", err)
	}
	j.curLeft = nil
	j.base.MarkOpened()
	return nil
}

func (j *Join) readNext() (*tuple.Tuple, error) {
	for {
		if j.curLeft == nil {
			hasNext, err := j.left.HasNext()
			if err != nil {
				return nil, err
			}
			if !hasNext {
				return nil, nil
			}
			j.curLeft, err = j.left.Next()
			if err != nil {
				return nil, err
			}
		}

		for {
			hasNext, err := j.right.HasNext()
			if err != nil {
				return nil, err
			}
			if !hasNext {
				break
			}

			rightTuple, err := j.right.Next()
			if err != nil {
				return nil, err
			}

			matches, err := j.predicate.Filter(j.curLeft, rightTuple)
			if err != nil {
				return nil, err
			}
			if matches {
				return tuple.CombineTuples(j.curLeft, rightTuple)
			}
		}

		if err := j.right.Rewind(); err != nil {
			return nil, err
		}
		j.curLeft = nil
	}
}

func (j *Join) GetTupleDesc() *tuple.TupleDescription {
	return j.tupleDesc
}

func (j *Join) Close() error {
	j.curLeft = nil
	if j.left != nil {
		j.left.Close()
	}
	if j.right != nil {
		j.right.Close()
	}
	return j.base.Close()
}

func (j *Join) HasNext() (bool, error)      { return j.base.HasNext() }
func (j *Join) Next() (*tuple.Tuple, error) { return j.base.Next() }

func (j *Join) Rewind() error {
	if err := j.left.Rewind(); err != nil {
		return err
	}
	if err := j.right.Rewind(); err != nil {
		return err
	}
	j.curLeft = nil
	j.base.ClearCache()
	return nil
}
