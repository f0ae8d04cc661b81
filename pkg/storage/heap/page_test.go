package heap

import (
	"fmt"
	"storemy/pkg/types"
	"testing"

	"storemy/pkg/tuple"
)

func newPageTestDesc(t *testing.T) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"id"})
	if err != nil {
		t.Fatalf("NewTupleDesc: %v", err)
	}
	return td
}

// TestHeapPage_SerializeDeserialize_RoundTrip inserts tuples into a
// sparse set of slots (leaving gaps, not just a prefix) and checks that
// deserializing the serialized bytes reconstructs exactly the same
// occupied slots and values. A wrong bitmap bit-ordering convention
// would still round-trip an all-prefix occupancy pattern correctly, so
// this deliberately occupies non-contiguous slots to catch that class
// of bug.
func TestHeapPage_SerializeDeserialize_RoundTrip(t *testing.T) {
	td := newPageTestDesc(t)
	pid := NewHeapPageID(1, 0)

	page, err := NewEmptyHeapPage(pid, td)
	if err != nil {
		t.Fatalf("NewEmptyHeapPage: %v", err)
	}

	occupiedSlots := []int{0, 3, 9, 10, 17}
	for _, slot := range occupiedSlots {
		for page.numSlots <= slot {
			t.Fatalf("test assumes at least %d slots on a page, got %d", slot+1, page.numSlots)
		}
	}

	values := map[int]int32{}
	for i, slot := range occupiedSlots {
		val := int32(100 + i)
		values[slot] = val

		tup := tuple.NewTuple(td)
		if err := tup.SetField(0, types.NewIntField(val)); err != nil {
			t.Fatalf("SetField: %v", err)
		}
		if err := page.insertAtSlot(slot, tup); err != nil {
			t.Fatalf("insertAtSlot(%d): %v", slot, err)
		}
	}

	data := page.GetPageData()
	roundTripped, err := NewHeapPage(pid, data, td)
	if err != nil {
		t.Fatalf("NewHeapPage (deserialize): %v", err)
	}

	for slot := 0; slot < page.numSlots; slot++ {
		wantVal, wantOccupied := values[slot]

		tup, err := roundTripped.GetTupleAt(slot)
		if err != nil {
			t.Fatalf("GetTupleAt(%d): %v", slot, err)
		}

		if !wantOccupied {
			if tup != nil {
				t.Errorf("slot %d: expected empty after round trip, got tuple", slot)
			}
			continue
		}

		if tup == nil {
			t.Fatalf("slot %d: expected occupied tuple after round trip, got nil", slot)
		}
		field, err := tup.GetField(0)
		if err != nil {
			t.Fatalf("GetField: %v", err)
		}
		intField, ok := field.(*types.IntField)
		if !ok {
			t.Fatalf("slot %d: expected IntField, got %T", slot, field)
		}
		if intField.Value != wantVal {
			t.Errorf("slot %d: value = %d, want %d", slot, intField.Value, wantVal)
		}
	}
}

// TestHeapPage_BitmapPacking_IsMSBFirst pins the on-disk bitmap
// convention directly: slot 0's occupancy bit is the high bit of the
// first bitmap byte, not the low bit.
func TestHeapPage_BitmapPacking_IsMSBFirst(t *testing.T) {
	td := newPageTestDesc(t)
	pid := NewHeapPageID(1, 0)

	page, err := NewEmptyHeapPage(pid, td)
	if err != nil {
		t.Fatalf("NewEmptyHeapPage: %v", err)
	}

	tup := tuple.NewTuple(td)
	if err := tup.SetField(0, types.NewIntField(42)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := page.AddTuple(tup); err != nil {
		t.Fatalf("AddTuple: %v", err)
	}

	data := page.GetPageData()
	if data[0]&0x80 == 0 {
		t.Fatalf("expected slot 0's occupancy bit at the high bit of byte 0, got byte 0 = %08b", data[0])
	}
}

// insertAtSlot places t directly into slot without going through
// findFirstEmptySlot, so tests can construct a sparse occupancy pattern.
func (hp *HeapPage) insertAtSlot(slot int, t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if slot < 0 || slot >= hp.numSlots {
		return fmt.Errorf("slot index %d out of bounds", slot)
	}
	hp.occupied[slot] = true
	hp.tuples[slot] = t
	t.RecordID = tuple.NewRecordID(hp.pageID, slot)
	return nil
}
