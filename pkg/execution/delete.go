package execution

import (
	"storemy/pkg/buffer"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// Delete drains its child and deletes every row through the buffer pool.
// Like Insert, it does all its work on the first Next call and returns a
// single-field count tuple.
type Delete struct {
	base     *BaseIterator
	tid      *transaction.TransactionID
	child    DbIterator
	pool     *buffer.BufferPool
	resultTD *tuple.TupleDescription
	done     bool
}

func NewDelete(tid *transaction.TransactionID, child DbIterator, pool *buffer.BufferPool) (*Delete, error) {
	resultTD, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"count"})
	if err != nil {
		return nil, err
	}

	del := &Delete{
		tid:      tid,
		child:    child,
		pool:     pool,
		resultTD: resultTD,
	}
	del.base = NewBaseIterator(del.readNext)
	return del, nil
}

func (del *Delete) Open() error {
	if err := del.child.Open(); err != nil {
		return err
	}
	del.done = false
	del.base.MarkOpened()
	return nil
}

func (del *Delete) readNext() (*tuple.Tuple, error) {
	if del.done {
		return nil, nil
	}
	del.done = true

	count := 0
	for {
		hasNext, err := del.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}

		t, err := del.child.Next()
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}

		if err := del.pool.DeleteTuple(del.tid, t); err != nil {
			return nil, err
		}
		count++
	}

	result := tuple.NewTuple(del.resultTD)
	if err := result.SetField(0, types.NewIntField(int32(count))); err != nil {
		return nil, err
	}
	return result, nil
}

func (del *Delete) GetTupleDesc() *tuple.TupleDescription {
	return del.resultTD
}

func (del *Delete) Close() error {
	if del.child != nil {
		del.child.Close()
	}
	return del.base.Close()
}

func (del *Delete) HasNext() (bool, error)      { return del.base.HasNext() }
func (del *Delete) Next() (*tuple.Tuple, error) { return del.base.Next() }

func (del *Delete) Rewind() error {
	del.done = false
	del.base.ClearCache()
	return del.child.Rewind()
}
