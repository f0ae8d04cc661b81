package heap

import (
	"fmt"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// HeapFileIterator scans every tuple in a HeapFile, page by page, in
// page and slot order. It holds no locks and reads pages straight from
// the file rather than through the buffer pool; SequentialScan does not
// use it.
type HeapFileIterator struct {
	file        *HeapFile
	tid         *transaction.TransactionID
	currentPage primitives.PageNumber
	pageIter    *HeapPageIterator
	isOpen      bool
}

func NewHeapFileIterator(file *HeapFile, tid *transaction.TransactionID) *HeapFileIterator {
	return &HeapFileIterator{
		file:        file,
		tid:         tid,
		currentPage: -1,
		isOpen:      false,
	}
}

func (it *HeapFileIterator) Open() error {
	it.currentPage = -1
	it.pageIter = nil
	it.isOpen = true
	return it.moveToNextPage()
}

func (it *HeapFileIterator) HasNext() (bool, error) {
	if !it.isOpen {
		return false, fmt.Errorf("iterator not opened")
	}

	if it.pageIter != nil {
		hasNext, err := it.pageIter.HasNext()
		if err != nil {
			return false, err
		}
		if hasNext {
			return true, nil
		}
	}

	numPages, err := it.file.NumPages()
	if err != nil {
		return false, err
	}

	return int(it.currentPage)+1 < numPages, nil
}

func (it *HeapFileIterator) Next() (*tuple.Tuple, error) {
	if !it.isOpen {
		return nil, fmt.Errorf("iterator not opened")
	}

	if it.pageIter != nil {
		hasNext, err := it.pageIter.HasNext()
		if err != nil {
			return nil, err
		}
		if hasNext {
			return it.pageIter.Next()
		}
	}

	if err := it.moveToNextPage(); err != nil {
		return nil, err
	}

	if it.pageIter == nil {
		return nil, fmt.Errorf("no more tuples")
	}

	return it.pageIter.Next()
}

func (it *HeapFileIterator) Rewind() error {
	return it.Open()
}

func (it *HeapFileIterator) Close() error {
	if it.pageIter != nil {
		_ = it.pageIter.Close()
		it.pageIter = nil
	}
	it.isOpen = false
	return nil
}

// moveToNextPage advances past any pages that fail to read, returning
// with pageIter set to the next page that actually has tuples.
func (it *HeapFileIterator) moveToNextPage() error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}

	for {
		it.currentPage++
		if int(it.currentPage) >= numPages {
			it.pageIter = nil
			return nil
		}

		pageID := NewHeapPageID(it.file.GetID(), it.currentPage)
		p, err := it.file.ReadPage(pageID)
		if err != nil {
			continue
		}

		heapPage, ok := p.(*HeapPage)
		if !ok {
			continue
		}

		it.pageIter = NewHeapPageIterator(heapPage)
		if err := it.pageIter.Open(); err != nil {
			continue
		}

		hasNext, err := it.pageIter.HasNext()
		if err != nil {
			continue
		}
		if hasNext {
			return nil
		}
	}
}
