package execution

import (
	"storemy/pkg/buffer"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/dberr"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// Insert drains its child and inserts every row into tableID through the
// buffer pool. The first Next call does all the work and returns a
// single-field tuple holding the count inserted; every call after that
// signals exhaustion.
type Insert struct {
	base     *BaseIterator
	tid      *transaction.TransactionID
	child    DbIterator
	tableID  primitives.TableID
	pool     *buffer.BufferPool
	resultTD *tuple.TupleDescription
	done     bool
}

func NewInsert(tid *transaction.TransactionID, child DbIterator, tableID primitives.TableID, pool *buffer.BufferPool, targetDesc *tuple.TupleDescription) (*Insert, error) {
	if !child.GetTupleDesc().Equals(targetDesc) {
		return nil, dberr.New(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"insert child schema does not match target table schema")
	}

	resultTD, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"count"})
	if err != nil {
		return nil, err
	}

	ins := &Insert{
		tid:      tid,
		child:    child,
		tableID:  tableID,
		pool:     pool,
		resultTD: resultTD,
	}
	ins.base = NewBaseIterator(ins.readNext)
	return ins, nil
}

func (ins *Insert) Open() error {
	if err := ins.child.Open(); err != nil {
		return err
	}
	ins.done = false
	ins.base.MarkOpened()
	return nil
}

func (ins *Insert) readNext() (*tuple.Tuple, error) {
	if ins.done {
		return nil, nil
	}
	ins.done = true

	count := 0
	for {
		hasNext, err := ins.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}

		t, err := ins.child.Next()
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}

		if err := ins.pool.InsertTuple(ins.tid, ins.tableID, t); err != nil {
			return nil, err
		}
		count++
	}

	result := tuple.NewTuple(ins.resultTD)
	if err := result.SetField(0, types.NewIntField(int32(count))); err != nil {
		return nil, err
	}
	return result, nil
}

func (ins *Insert) GetTupleDesc() *tuple.TupleDescription {
	return ins.resultTD
}

func (ins *Insert) Close() error {
	if ins.child != nil {
		ins.child.Close()
	}
	return ins.base.Close()
}

func (ins *Insert) HasNext() (bool, error)      { return ins.base.HasNext() }
func (ins *Insert) Next() (*tuple.Tuple, error) { return ins.base.Next() }

func (ins *Insert) Rewind() error {
	ins.done = false
	ins.base.ClearCache()
	return ins.child.Rewind()
}
