package heap

import (
	"fmt"
	"io"
	"os"
	"storemy/pkg/primitives"
	"storemy/pkg/storage"
	"storemy/pkg/tuple"
	"sync"
)

// HeapFile is a table's on-disk storage: a sequence of fixed-size pages
// in a single OS file, each page numbered sequentially from 0.
type HeapFile struct {
	path      primitives.Filepath
	tableID   primitives.TableID
	tupleDesc *tuple.TupleDescription
	file      *os.File
	mutex     sync.Mutex
}

// NewHeapFile opens (creating if necessary) the heap file at path. The
// table's identity is derived deterministically from the path so it
// survives a process restart.
func NewHeapFile(path primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	if path == "" {
		return nil, fmt.Errorf("heap file path cannot be empty")
	}

	if err := path.MkdirAll(0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}

	f, err := os.OpenFile(string(path), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open heap file %s: %w", path, err)
	}

	return &HeapFile{
		path:      path,
		tableID:   path.HashAsTableID(),
		tupleDesc: td,
		file:      f,
	}, nil
}

func (hf *HeapFile) GetID() primitives.TableID {
	return hf.tableID
}

func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// NumPages reports how many full pages currently exist in the file.
func (hf *HeapFile) NumPages() (int, error) {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	info, err := hf.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat heap file: %w", err)
	}
	return int(info.Size()) / storage.PageSize, nil
}

// ReadPage loads the page identified by pid. Reading a page at or past
// the current end of file returns a freshly-initialized empty page rather
// than an error; the file itself grows only through AllocatePage.
func (hf *HeapFile) ReadPage(pid tuple.PageID) (storage.Page, error) {
	heapPageID, ok := pid.(*HeapPageID)
	if !ok {
		return nil, fmt.Errorf("invalid page ID type for HeapFile")
	}
	if heapPageID.TableID() != hf.tableID {
		return nil, fmt.Errorf("page ID table mismatch: got %d, want %d", heapPageID.TableID(), hf.tableID)
	}

	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	offset := int64(heapPageID.PageNo()) * int64(storage.PageSize)
	buf := make([]byte, storage.PageSize)

	n, err := hf.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read page %d: %w", heapPageID.PageNo(), err)
	}
	if n < storage.PageSize {
		return NewEmptyHeapPage(heapPageID, hf.tupleDesc)
	}

	return NewHeapPage(heapPageID, buf, hf.tupleDesc)
}

// AllocatePage appends a new empty page to the file and returns it
// along with its page id. The size check and the append happen under
// the same mutex acquisition, so two callers racing to grow the same
// file can never be handed the same page number: whichever acquires
// hf.mutex second sees the first one's page already reflected in the
// file's size.
func (hf *HeapFile) AllocatePage() (*HeapPageID, storage.Page, error) {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	info, err := hf.file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat heap file: %w", err)
	}
	pageNum := primitives.PageNumber(int(info.Size()) / storage.PageSize)
	pid := NewHeapPageID(hf.tableID, pageNum)

	page, err := NewEmptyHeapPage(pid, hf.tupleDesc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to allocate new page: %w", err)
	}

	offset := int64(pageNum) * int64(storage.PageSize)
	if _, err := hf.file.WriteAt(page.GetPageData(), offset); err != nil {
		return nil, nil, fmt.Errorf("failed to write new page %d: %w", pageNum, err)
	}
	if err := hf.file.Sync(); err != nil {
		return nil, nil, fmt.Errorf("failed to sync new page %d: %w", pageNum, err)
	}

	return pid, page, nil
}

// WritePage flushes p to its designated offset and syncs the file.
func (hf *HeapFile) WritePage(p storage.Page) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}

	heapPageID, ok := p.GetID().(*HeapPageID)
	if !ok {
		return fmt.Errorf("invalid page ID type for HeapFile")
	}

	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	offset := int64(heapPageID.PageNo()) * int64(storage.PageSize)
	if _, err := hf.file.WriteAt(p.GetPageData(), offset); err != nil {
		return fmt.Errorf("failed to write page %d: %w", heapPageID.PageNo(), err)
	}
	return hf.file.Sync()
}

// Close releases the underlying OS file handle.
func (hf *HeapFile) Close() error {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()
	return hf.file.Close()
}
