package execution

import (
	"fmt"
	"storemy/pkg/buffer"
	"storemy/pkg/catalog"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
)

// SequentialScan reads every tuple of a table in page order, acquiring a
// shared lock on each page through the buffer pool as it goes. It never
// touches the underlying file directly, so it always sees this
// transaction's own uncommitted writes to the table.
type SequentialScan struct {
	base        *BaseIterator
	tid         *transaction.TransactionID
	tableID     primitives.TableID
	currentPage primitives.PageNumber
	numPages    int
	tupleDesc   *tuple.TupleDescription
	catalog     catalog.Catalog
	pool        *buffer.BufferPool
	pageTuples  *tuple.Iterator
}

// NewSeqScan opens a page-order scan of tableID. When alias is
// non-empty, every field name in the emitted TupleDesc is prefixed with
// "alias.", so a query referencing the same table twice (a self-join)
// can tell the two scans' columns apart downstream.
func NewSeqScan(tid *transaction.TransactionID, tableID primitives.TableID, alias string, cat catalog.Catalog, pool *buffer.BufferPool) (*SequentialScan, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("buffer pool cannot be nil")
	}

	tupleDesc, err := cat.GetTupleDesc(tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tuple desc for table %d: %w", tableID, err)
	}

	ss := &SequentialScan{
		tid:         tid,
		tableID:     tableID,
		tupleDesc:   tupleDesc.WithAlias(alias),
		catalog:     cat,
		pool:        pool,
		currentPage: -1,
	}
	ss.base = NewBaseIterator(ss.readNext)
	return ss, nil
}

func (ss *SequentialScan) Open() error {
	dbFile, err := ss.catalog.GetDbFile(ss.tableID)
	if err != nil {
		return fmt.Errorf("failed to get db file for table %d: %w", ss.tableID, err)
	}
	numPages, err := dbFile.NumPages()
	if err != nil {
		return fmt.Errorf("failed to get page count: %w", err)
	}
	ss.numPages = numPages
	ss.currentPage = -1
	ss.pageTuples = nil
	ss.base.MarkOpened()
	return nil
}

func (ss *SequentialScan) readNext() (*tuple.Tuple, error) {
	if ss.pageTuples != nil {
		hasNext, err := ss.pageTuples.HasNext()
		if err != nil {
			return nil, err
		}
		if hasNext {
			return ss.pageTuples.Next()
		}
	}

	for {
		ss.currentPage++
		if int(ss.currentPage) >= ss.numPages {
			return nil, nil
		}

		pid := heap.NewHeapPageID(ss.tableID, ss.currentPage)
		p, err := ss.pool.GetPage(ss.tid, pid, transaction.ReadOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to get page %v: %w", pid, err)
		}

		heapPage, ok := p.(*heap.HeapPage)
		if !ok {
			return nil, fmt.Errorf("page %v is not a heap page", pid)
		}

		tuples := heapPage.GetTuples()
		if len(tuples) == 0 {
			continue
		}

		ss.pageTuples = tuple.NewIterator(tuples)
		if err := ss.pageTuples.Open(); err != nil {
			return nil, err
		}

		hasNext, err := ss.pageTuples.HasNext()
		if err != nil {
			return nil, err
		}
		if hasNext {
			return ss.pageTuples.Next()
		}
	}
}

func (ss *SequentialScan) GetTupleDesc() *tuple.TupleDescription {
	return ss.tupleDesc
}

func (ss *SequentialScan) Close() error {
	ss.pageTuples = nil
	return ss.base.Close()
}

func (ss *SequentialScan) HasNext() (bool, error) { return ss.base.HasNext() }

func (ss *SequentialScan) Next() (*tuple.Tuple, error) { return ss.base.Next() }

// Rewind restarts the scan from the first page. Tuples inserted by this
// transaction since the last Open are visible on the re-scan.
func (ss *SequentialScan) Rewind() error {
	return ss.Open()
}
