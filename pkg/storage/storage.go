// Package storage defines the interfaces a storage manager (heap files,
// pages) implements and that the buffer pool and execution layer depend on.
package storage

import (
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// PageSize is the fixed size in bytes of every page in every file opened
// by this process. It defaults to 4096 and can be overridden once, before
// any file is opened, via SetPageSize.
var PageSize = 4096

// SetPageSize overrides the page size used by files opened after the
// call. Changing it once files are open corrupts existing page offset
// math, so it must only be called during database startup.
func SetPageSize(bytes int) {
	PageSize = bytes
}

// Page is a single page of a DbFile held in the buffer pool. A page
// tracks which transaction last dirtied it and can produce a before-image
// snapshot for abort-time rollback.
type Page interface {
	GetID() tuple.PageID
	IsDirty() *transaction.TransactionID
	MarkDirty(dirty bool, tid *transaction.TransactionID)
	GetPageData() []byte
	GetBeforeImage() Page
	SetBeforeImage()
}

// DbFile is an on-disk file storing one table's pages. HeapFile is the
// only implementation.
type DbFile interface {
	GetID() primitives.TableID
	ReadPage(pid tuple.PageID) (Page, error)
	WritePage(p Page) error
	GetTupleDesc() *tuple.TupleDescription
	NumPages() (int, error)
}
