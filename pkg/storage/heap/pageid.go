package heap

import (
	"fmt"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
	"sync"
)

// HeapPageID identifies a page within a heap file by table and page
// number. Two HeapPageIDs are equal iff both fields match.
type HeapPageID struct {
	tableID primitives.TableID
	pageNum primitives.PageNumber
}

// heapPageIDs interns HeapPageIDs: the buffer pool cache, the lock
// manager and the transaction contexts key their maps by tuple.PageID
// values, so equal ids must also be the same pointer to match there.
var heapPageIDs sync.Map

func NewHeapPageID(tableID primitives.TableID, pageNum primitives.PageNumber) *HeapPageID {
	key := HeapPageID{tableID: tableID, pageNum: pageNum}
	if v, ok := heapPageIDs.Load(key); ok {
		return v.(*HeapPageID)
	}
	v, _ := heapPageIDs.LoadOrStore(key, &key)
	return v.(*HeapPageID)
}

func (hpid *HeapPageID) TableID() primitives.TableID {
	return hpid.tableID
}

func (hpid *HeapPageID) PageNo() primitives.PageNumber {
	return hpid.pageNum
}

func (hpid *HeapPageID) Equals(other tuple.PageID) bool {
	otherHeap, ok := other.(*HeapPageID)
	if !ok {
		return false
	}
	return hpid.tableID == otherHeap.tableID && hpid.pageNum == otherHeap.pageNum
}

func (hpid *HeapPageID) String() string {
	return fmt.Sprintf("HeapPageID(table=%d, page=%d)", hpid.tableID, hpid.pageNum)
}

// HashCode combines table and page number into a single int.
func (hpid *HeapPageID) HashCode() int {
	return int(hpid.tableID)*1_000_003 + int(hpid.pageNum)
}
