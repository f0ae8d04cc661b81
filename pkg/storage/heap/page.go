package heap

import (
	"bytes"
	"fmt"
	"io"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
	"sync"
)

// HeapPage is a single fixed-size page of a heap file: a bit-per-slot
// occupancy bitmap followed by a fixed-size slot array. Every slot is the
// same width (the schema's GetSize()), so slot i's tuple always lives at
// a fixed byte offset -- unlike a slot-pointer-array layout, there is no
// indirection and no compaction needed after a delete.
//
// Layout:
//
//	[bitmap: ceil(numSlots/8) bytes][slot 0][slot 1]...[slot N-1]
//
// Bitmap bits are packed MSB-first within each byte: slot i's bit lives
// at byte i/8, bit position 7-(i%8).
type HeapPage struct {
	pageID    *HeapPageID
	tupleDesc *tuple.TupleDescription
	tuples    []*tuple.Tuple // in-memory tuple cache, indexed by slot
	occupied  []bool         // mirrors the on-disk bitmap
	numSlots  int
	dirtier   *transaction.TransactionID
	oldData   []byte // before-image captured at the start of a transaction
	mutex     sync.RWMutex
}

// NewEmptyHeapPage creates a brand new, all-zero page: every bit in the
// occupancy bitmap clear, no tuples.
func NewEmptyHeapPage(pid *HeapPageID, td *tuple.TupleDescription) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, storage.PageSize), td)
}

// NewHeapPage deserializes raw page bytes into a HeapPage.
func NewHeapPage(pid *HeapPageID, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	if len(data) != storage.PageSize {
		return nil, fmt.Errorf("invalid page data size: expected %d, got %d", storage.PageSize, len(data))
	}

	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		oldData:   make([]byte, storage.PageSize),
	}

	hp.numSlots = numSlotsFor(td)
	hp.tuples = make([]*tuple.Tuple, hp.numSlots)
	hp.occupied = make([]bool, hp.numSlots)

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}

	copy(hp.oldData, data)
	return hp, nil
}

// bitmapSize returns the number of bytes needed for one bit per slot.
func bitmapSize(numSlots int) int {
	return (numSlots + 7) / 8
}

// slotSize is the fixed on-disk footprint of one slot: exactly the
// schema's serialized tuple size.
func slotSize(td *tuple.TupleDescription) int {
	return int(td.GetSize())
}

// numSlotsFor computes how many fixed-size slots fit on a page once the
// occupancy bitmap overhead is accounted for.
//
// Each slot costs slotSize bytes plus 1/8th of a byte for its bitmap bit,
// so: numSlots = floor(8*PageSize / (8*slotSize + 1)).
func numSlotsFor(td *tuple.TupleDescription) int {
	ts := slotSize(td)
	if ts <= 0 {
		return 0
	}
	return (8 * storage.PageSize) / (8*ts + 1)
}

func (hp *HeapPage) GetNumEmptySlots() int {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.getNumEmptySlots()
}

func (hp *HeapPage) GetID() tuple.PageID {
	return hp.pageID
}

// IsDirty returns the transaction that last modified this page, or nil
// if the page is clean.
func (hp *HeapPage) IsDirty() *transaction.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

func (hp *HeapPage) MarkDirty(dirty bool, tid *transaction.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// GetPageData serializes the page to its on-disk byte-exact form: the
// occupancy bitmap followed by every slot, occupied or not (unoccupied
// slots are left as zero bytes).
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.buildPageData()
}

// buildPageData serializes the page. Callers must hold at least a read
// lock.
func (hp *HeapPage) buildPageData() []byte {
	pageData := make([]byte, storage.PageSize)
	bmSize := bitmapSize(hp.numSlots)
	ss := slotSize(hp.tupleDesc)

	for i := 0; i < hp.numSlots; i++ {
		if hp.occupied[i] {
			pageData[i/8] |= 1 << uint(7-i%8)
		}
	}

	for i := 0; i < hp.numSlots; i++ {
		if !hp.occupied[i] || hp.tuples[i] == nil {
			continue
		}

		off := bmSize + i*ss
		buf := bytes.NewBuffer(pageData[off:off])
		for j := 0; j < hp.tupleDesc.NumFields(); j++ {
			field, err := hp.tuples[i].GetField(j)
			if err != nil || field == nil {
				continue
			}
			_ = field.Serialize(buf)
		}
	}

	return pageData
}

func (hp *HeapPage) GetBeforeImage() storage.Page {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	beforePage, _ := NewHeapPage(hp.pageID, hp.oldData, hp.tupleDesc)
	return beforePage
}

func (hp *HeapPage) SetBeforeImage() {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()
	hp.oldData = hp.buildPageData()
}

// AddTuple inserts t into the first empty slot, thread-safe under the
// page's write lock.
func (hp *HeapPage) AddTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if !t.TupleDesc.Equals(hp.tupleDesc) {
		return fmt.Errorf("tuple schema does not match page schema")
	}

	slot, err := hp.findFirstEmptySlot()
	if err != nil {
		return err
	}

	hp.occupied[slot] = true
	hp.tuples[slot] = t
	t.RecordID = tuple.NewRecordID(hp.pageID, slot)
	return nil
}

// DeleteTuple clears t's slot. Because slots are fixed-width, deletion
// never needs compaction: the slot becomes immediately reusable.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	recordID := t.RecordID
	if recordID == nil {
		return fmt.Errorf("tuple has no record ID")
	}

	if !recordID.PageID.Equals(hp.pageID) {
		return fmt.Errorf("tuple is not on this page")
	}

	slot := recordID.TupleNum
	if slot < 0 || slot >= hp.numSlots || !hp.occupied[slot] {
		return fmt.Errorf("tuple slot %d is already empty", slot)
	}

	hp.occupied[slot] = false
	hp.tuples[slot] = nil
	t.RecordID = nil
	return nil
}

func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	tuples := make([]*tuple.Tuple, 0, hp.numSlots-hp.getNumEmptySlots())
	for _, t := range hp.tuples {
		if t != nil {
			tuples = append(tuples, t)
		}
	}
	return tuples
}

func (hp *HeapPage) GetTupleAt(slot int) (*tuple.Tuple, error) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	if slot < 0 || slot >= hp.numSlots {
		return nil, fmt.Errorf("slot index %d out of bounds", slot)
	}
	return hp.tuples[slot], nil
}

func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.tupleDesc
}

// parsePageData reconstructs the occupancy bitmap and tuple slots from
// raw disk bytes.
func (hp *HeapPage) parsePageData(data []byte) error {
	bmSize := bitmapSize(hp.numSlots)
	ss := slotSize(hp.tupleDesc)

	if bmSize+hp.numSlots*ss > len(data) {
		return fmt.Errorf("invalid page data: layout exceeds page size")
	}

	for i := 0; i < hp.numSlots; i++ {
		hp.occupied[i] = data[i/8]&(1<<uint(7-i%8)) != 0
	}

	for i := 0; i < hp.numSlots; i++ {
		if !hp.occupied[i] {
			continue
		}

		off := bmSize + i*ss
		reader := bytes.NewReader(data[off : off+ss])

		t, err := readTuple(reader, hp.tupleDesc)
		if err != nil {
			return fmt.Errorf("failed to read tuple at slot %d: %w", i, err)
		}

		t.RecordID = tuple.NewRecordID(hp.pageID, i)
		hp.tuples[i] = t
	}

	return nil
}

func (hp *HeapPage) getNumEmptySlots() int {
	empty := 0
	for i := 0; i < hp.numSlots; i++ {
		if !hp.occupied[i] {
			empty++
		}
	}
	return empty
}

func (hp *HeapPage) findFirstEmptySlot() (int, error) {
	for i := 0; i < hp.numSlots; i++ {
		if !hp.occupied[i] {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no empty slot available")
}

func readTuple(reader io.Reader, td *tuple.TupleDescription) (*tuple.Tuple, error) {
	t := tuple.NewTuple(td)

	for j := 0; j < td.NumFields(); j++ {
		fieldType, err := td.TypeAtIndex(j)
		if err != nil {
			return nil, err
		}

		var field types.Field
		if fieldType == types.StringType {
			capacity, capErr := td.StringCapacity(j)
			if capErr != nil {
				return nil, capErr
			}
			field, err = types.ParseStringField(reader, capacity)
		} else {
			field, err = types.ParseIntField(reader)
		}
		if err != nil {
			return nil, err
		}

		if err := t.SetField(j, field); err != nil {
			return nil, err
		}
	}
	return t, nil
}
