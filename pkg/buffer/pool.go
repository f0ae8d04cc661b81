package buffer

import (
	"fmt"
	"storemy/pkg/catalog"
	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/logging"
	"storemy/pkg/primitives"
	"storemy/pkg/storage"
	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
)

// DefaultMaxPages is the number of pages cached in memory when a
// BufferPool is created without an explicit buffer_pages option.
const DefaultMaxPages = 50

// BufferPool is the sole path through which every page reaches the
// execution layer. It enforces strict two-phase locking on every access,
// caches pages under a NO-STEAL eviction policy (a dirty or locked page
// is never evicted), and commits/aborts transactions under FORCE (dirty
// pages are written to disk, or their before-image restored, before
// locks are released). There is no write-ahead log: a crash mid-commit
// is out of scope, so FORCE alone is sufficient for durability and
// NO-STEAL alone is sufficient for correct abort.
type BufferPool struct {
	catalog     catalog.Catalog
	lockManager *lock.LockManager
	registry    *transaction.TransactionRegistry
	cache       PageCache
}

func NewBufferPool(cat catalog.Catalog, maxPages int) *BufferPool {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &BufferPool{
		catalog:     cat,
		lockManager: lock.NewLockManager(),
		registry:    transaction.NewTransactionRegistry(),
		cache:       NewLRUPageCache(maxPages),
	}
}

// BeginTransaction allocates a new transaction and registers its
// context so the buffer pool can track it.
func (bp *BufferPool) BeginTransaction() (*transaction.TransactionContext, error) {
	return bp.registry.Begin()
}

// GetPage is the only way to obtain a page: it acquires the appropriate
// shared/exclusive lock first, then serves from cache or reads through
// to the table's heap file.
func (bp *BufferPool) GetPage(tid *transaction.TransactionID, pid tuple.PageID, perm transaction.Permissions) (storage.Page, error) {
	if err := bp.lockManager.LockPage(tid, pid, perm == transaction.ReadWrite); err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	ctx := bp.registry.GetOrCreate(tid)
	ctx.RecordPageAccess(pid, perm)

	if p, exists := bp.cache.Get(pid); exists {
		return p, nil
	}

	if bp.cache.Size() >= bp.capacity() {
		if err := bp.evictPage(); err != nil {
			return nil, err
		}
	}

	heapPid, ok := pid.(*heap.HeapPageID)
	if !ok {
		return nil, fmt.Errorf("unsupported page id type")
	}

	dbFile, err := bp.catalog.GetDbFile(heapPid.TableID())
	if err != nil {
		return nil, fmt.Errorf("table %d not found: %w", heapPid.TableID(), err)
	}

	p, err := dbFile.ReadPage(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to read page from disk: %w", err)
	}

	if err := bp.cache.Put(pid, p); err != nil {
		return nil, fmt.Errorf("failed to cache page: %w", err)
	}
	return p, nil
}

func (bp *BufferPool) capacity() int {
	if lru, ok := bp.cache.(*LRUPageCache); ok {
		return lru.maxSize
	}
	return DefaultMaxPages
}

// evictPage implements NO-STEAL: a dirty page holds changes that have
// no WAL backing them, so evicting it would lose data an abort might
// need to undo. Only clean, unlocked pages are candidates.
func (bp *BufferPool) evictPage() error {
	for _, pid := range bp.cache.GetAll() {
		p, exists := bp.cache.Get(pid)
		if !exists {
			continue
		}
		if p.IsDirty() != nil {
			continue
		}
		if bp.lockManager.IsPageLocked(pid) {
			continue
		}
		bp.cache.Remove(pid)
		return nil
	}
	return fmt.Errorf("all pages are dirty or locked, cannot evict (NO-STEAL policy)")
}

// InsertTuple finds a page with a free slot (scanning the table's
// existing pages, allocating a new one if none has room), inserts t,
// and marks the page dirty for tid.
func (bp *BufferPool) InsertTuple(tid *transaction.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	dbFile, err := bp.catalog.GetDbFile(tableID)
	if err != nil {
		return fmt.Errorf("table %d not found: %w", tableID, err)
	}

	p, err := bp.findPageWithSpace(tid, dbFile)
	if err != nil {
		return err
	}

	if err := p.AddTuple(t); err != nil {
		return fmt.Errorf("failed to add tuple: %w", err)
	}

	bp.markDirty(tid, p)
	logging.WithTx(tid.ID()).Debug("inserted tuple", "table_id", tableID)
	return nil
}

func (bp *BufferPool) findPageWithSpace(tid *transaction.TransactionID, dbFile storage.DbFile) (*heap.HeapPage, error) {
	numPages, err := dbFile.NumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	for i := 0; i < numPages; i++ {
		pid := heap.NewHeapPageID(dbFile.GetID(), primitives.PageNumber(i))
		p, err := bp.GetPage(tid, pid, transaction.ReadWrite)
		if err != nil {
			continue
		}
		heapPage, ok := p.(*heap.HeapPage)
		if !ok {
			continue
		}
		if heapPage.GetNumEmptySlots() > 0 {
			return heapPage, nil
		}
	}

	return bp.growFile(tid, dbFile)
}

// growFile appends a new page to dbFile and hands it back locked for
// tid. The append itself (stat-then-write) happens under the file's own
// mutex in HeapFile.AllocatePage, so two transactions racing to grow the
// same table past its current page count are serialized there and
// always land on distinct page numbers — only after the page genuinely
// exists on disk does this function acquire its lock through the buffer
// manager. Acquiring the lock first and appending after (the order this
// used to run in) lets a second grower recompute the same "next page
// number" while the first grower's append is still in flight, so its
// later append silently overwrites the first grower's committed page.
func (bp *BufferPool) growFile(tid *transaction.TransactionID, dbFile storage.DbFile) (*heap.HeapPage, error) {
	heapFile, ok := dbFile.(*heap.HeapFile)
	if !ok {
		return nil, fmt.Errorf("unsupported db file type for growth")
	}

	newPid, newPage, err := heapFile.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate new page: %w", err)
	}

	if err := bp.lockManager.LockPage(tid, newPid, true); err != nil {
		return nil, fmt.Errorf("failed to acquire lock on new page: %w", err)
	}
	ctx := bp.registry.GetOrCreate(tid)
	ctx.RecordPageAccess(newPid, transaction.ReadWrite)

	heapPage, ok := newPage.(*heap.HeapPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type from AllocatePage")
	}
	if err := bp.cache.Put(newPid, heapPage); err != nil {
		return nil, fmt.Errorf("failed to cache new page: %w", err)
	}
	return heapPage, nil
}

// DeleteTuple removes t from the page it claims to live on.
func (bp *BufferPool) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return fmt.Errorf("tuple has no record ID")
	}

	p, err := bp.GetPage(tid, t.RecordID.PageID, transaction.ReadWrite)
	if err != nil {
		return fmt.Errorf("failed to get page for delete: %w", err)
	}

	heapPage, ok := p.(*heap.HeapPage)
	if !ok {
		return fmt.Errorf("unsupported page type for delete")
	}

	if err := heapPage.DeleteTuple(t); err != nil {
		return fmt.Errorf("failed to delete tuple: %w", err)
	}

	bp.markDirty(tid, heapPage)
	return nil
}

func (bp *BufferPool) markDirty(tid *transaction.TransactionID, p storage.Page) {
	p.MarkDirty(true, tid)
	_ = bp.cache.Put(p.GetID(), p)

	ctx := bp.registry.GetOrCreate(tid)
	ctx.MarkPageDirty(p.GetID())
}

// CommitTransaction flushes every page tid dirtied (FORCE), captures a
// fresh before-image for each so a later transaction's abort does not
// unwind past this commit, then releases all of tid's locks.
func (bp *BufferPool) CommitTransaction(tid *transaction.TransactionID) error {
	ctx, err := bp.registry.Get(tid)
	if err != nil {
		bp.lockManager.UnlockAllPages(tid)
		return nil
	}

	for _, pid := range ctx.GetDirtyPages() {
		p, exists := bp.cache.Get(pid)
		if !exists {
			continue
		}
		p.SetBeforeImage()
		if err := bp.flushPage(pid); err != nil {
			return fmt.Errorf("commit failed flushing page %v: %w", pid, err)
		}
	}

	ctx.SetStatus(transaction.TxCommitted)
	bp.registry.Remove(tid)
	bp.lockManager.UnlockAllPages(tid)
	return nil
}

// AbortTransaction restores every page tid dirtied to its before-image
// and releases all of tid's locks. NO-STEAL guarantees the dirty pages
// are still in cache (never written to disk), so restoring the
// in-memory before-image is sufficient.
func (bp *BufferPool) AbortTransaction(tid *transaction.TransactionID) error {
	ctx, err := bp.registry.Get(tid)
	if err != nil {
		bp.lockManager.UnlockAllPages(tid)
		return nil
	}

	for _, pid := range ctx.GetDirtyPages() {
		p, exists := bp.cache.Get(pid)
		if !exists {
			continue
		}
		before := p.GetBeforeImage()
		_ = bp.cache.Put(pid, before)
	}

	ctx.SetStatus(transaction.TxAborted)
	bp.registry.Remove(tid)
	bp.lockManager.UnlockAllPages(tid)
	return nil
}

// CachedPageSnapshot describes one resident page for a caller (the
// debug inspector) that only needs to observe occupancy, not mutate it.
type CachedPageSnapshot struct {
	PageID tuple.PageID
	Dirty  *transaction.TransactionID
}

// CacheSnapshot lists every page currently resident in the buffer pool.
func (bp *BufferPool) CacheSnapshot() []CachedPageSnapshot {
	ids := bp.cache.GetAll()
	out := make([]CachedPageSnapshot, 0, len(ids))
	for _, pid := range ids {
		p, ok := bp.cache.Get(pid)
		if !ok {
			continue
		}
		out = append(out, CachedPageSnapshot{PageID: pid, Dirty: p.IsDirty()})
	}
	return out
}

// CacheCapacity is the number of pages the buffer pool will hold before
// evicting.
func (bp *BufferPool) CacheCapacity() int {
	return bp.capacity()
}

// LockSnapshot exposes the lock manager's current state.
func (bp *BufferPool) LockSnapshot() []lock.PageLockSnapshot {
	return bp.lockManager.Snapshot()
}

// FlushAllPages forces every dirty cached page to disk, regardless of
// transaction. Used at clean shutdown.
func (bp *BufferPool) FlushAllPages() error {
	for _, pid := range bp.cache.GetAll() {
		if err := bp.flushPage(pid); err != nil {
			return err
		}
	}
	return nil
}

func (bp *BufferPool) flushPage(pid tuple.PageID) error {
	p, exists := bp.cache.Get(pid)
	if !exists {
		return nil
	}
	if p.IsDirty() == nil {
		return nil
	}

	heapPid, ok := pid.(*heap.HeapPageID)
	if !ok {
		return fmt.Errorf("unsupported page id type")
	}

	dbFile, err := bp.catalog.GetDbFile(heapPid.TableID())
	if err != nil {
		return fmt.Errorf("table for page %v not found: %w", pid, err)
	}

	if err := dbFile.WritePage(p); err != nil {
		return fmt.Errorf("failed to write page to disk: %w", err)
	}
	p.MarkDirty(false, nil)
	return bp.cache.Put(pid, p)
}
