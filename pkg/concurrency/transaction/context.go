package transaction

import (
	"fmt"
	"storemy/pkg/tuple"
	"sync"
	"time"
)

// TransactionStatus is the current state of a transaction.
type TransactionStatus int

const (
	TxActive TransactionStatus = iota
	TxCommitting
	TxAborting
	TxCommitted
	TxAborted
)

// Permissions is the access level a transaction requested on a page.
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

func (ts TransactionStatus) String() string {
	switch ts {
	case TxActive:
		return "ACTIVE"
	case TxCommitting:
		return "COMMITTING"
	case TxAborting:
		return "ABORTING"
	case TxCommitted:
		return "COMMITTED"
	case TxAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

type TransactionStats struct {
	PagesRead     int
	PagesWritten  int
	TuplesRead    int
	TuplesWritten int
	TuplesDeleted int
	LockedPages   int
	DirtyPages    int
}

// TransactionContext is the single source of truth for everything a
// transaction has done: its lifecycle state, the pages it has locked and
// dirtied (for FORCE commit / abort-time rollback), and its statistics.
type TransactionContext struct {
	ID *TransactionID

	status    TransactionStatus
	startTime time.Time
	endTime   time.Time
	mutex     sync.RWMutex

	// lockedPages maps every page this transaction has touched to the
	// permission level it was granted.
	lockedPages map[tuple.PageID]Permissions
	// dirtyPages is the set of pages this transaction has modified;
	// commit flushes exactly these pages (FORCE), abort restores their
	// before-images.
	dirtyPages map[tuple.PageID]bool

	// waitingFor tracks pages this transaction is currently blocked on,
	// for deadlock diagnostics.
	waitingFor []tuple.PageID

	pagesRead     int
	pagesWritten  int
	tuplesRead    int
	tuplesWritten int
	tuplesDeleted int
}

func NewTransactionContext(tid *TransactionID) *TransactionContext {
	return &TransactionContext{
		ID:          tid,
		status:      TxActive,
		startTime:   time.Now(),
		lockedPages: make(map[tuple.PageID]Permissions),
		dirtyPages:  make(map[tuple.PageID]bool),
		waitingFor:  make([]tuple.PageID, 0),
	}
}

func (tc *TransactionContext) IsActive() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.status == TxActive
}

func (tc *TransactionContext) GetStatus() TransactionStatus {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.status
}

func (tc *TransactionContext) SetStatus(status TransactionStatus) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.status = status
	if status == TxCommitted || status == TxAborted {
		tc.endTime = time.Now()
	}
}

// RecordPageAccess records that this transaction holds perm on pid. An
// existing ReadWrite grant is never downgraded by a later ReadOnly one.
func (tc *TransactionContext) RecordPageAccess(pid tuple.PageID, perm Permissions) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if existing, exists := tc.lockedPages[pid]; exists && existing == ReadWrite {
		return
	}

	tc.lockedPages[pid] = perm
	if perm == ReadOnly {
		tc.pagesRead++
	}
}

func (tc *TransactionContext) MarkPageDirty(pid tuple.PageID) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.dirtyPages[pid] {
		tc.dirtyPages[pid] = true
		tc.pagesWritten++
	}
}

func (tc *TransactionContext) GetDirtyPages() []tuple.PageID {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	pages := make([]tuple.PageID, 0, len(tc.dirtyPages))
	for pid := range tc.dirtyPages {
		pages = append(pages, pid)
	}
	return pages
}

func (tc *TransactionContext) GetLockedPages() []tuple.PageID {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	pages := make([]tuple.PageID, 0, len(tc.lockedPages))
	for pid := range tc.lockedPages {
		pages = append(pages, pid)
	}
	return pages
}

func (tc *TransactionContext) AddWaitingFor(pid tuple.PageID) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.waitingFor = append(tc.waitingFor, pid)
}

func (tc *TransactionContext) RemoveWaitingFor(pid tuple.PageID) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	filtered := make([]tuple.PageID, 0, len(tc.waitingFor))
	for _, p := range tc.waitingFor {
		if !p.Equals(pid) {
			filtered = append(filtered, p)
		}
	}
	tc.waitingFor = filtered
}

func (tc *TransactionContext) GetWaitingFor() []tuple.PageID {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	waiting := make([]tuple.PageID, len(tc.waitingFor))
	copy(waiting, tc.waitingFor)
	return waiting
}

func (tc *TransactionContext) RecordTupleRead() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesRead++
}

func (tc *TransactionContext) RecordTupleWrite() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesWritten++
}

func (tc *TransactionContext) RecordTupleDelete() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesDeleted++
}

func (tc *TransactionContext) GetPagePermission(pid tuple.PageID) (perm Permissions, exists bool) {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	perm, exists = tc.lockedPages[pid]
	return
}

func (tc *TransactionContext) GetStatistics() TransactionStats {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	return TransactionStats{
		PagesRead:     tc.pagesRead,
		PagesWritten:  tc.pagesWritten,
		TuplesRead:    tc.tuplesRead,
		TuplesWritten: tc.tuplesWritten,
		TuplesDeleted: tc.tuplesDeleted,
		LockedPages:   len(tc.lockedPages),
		DirtyPages:    len(tc.dirtyPages),
	}
}

func (tc *TransactionContext) Duration() time.Duration {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	endTime := tc.endTime
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(tc.startTime)
}

func (tc *TransactionContext) String() string {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	return fmt.Sprintf("Transaction %s [Status=%s, Duration=%v, Dirty=%d, Locked=%d]",
		tc.ID.String(), tc.status.String(), tc.Duration(),
		len(tc.dirtyPages), len(tc.lockedPages))
}
