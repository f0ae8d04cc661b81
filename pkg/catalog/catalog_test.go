package catalog

import (
	"path/filepath"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
	"testing"
)

func newTestHeapFile(t *testing.T, name string) *heap.HeapFile {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"id"})
	if err != nil {
		t.Fatalf("NewTupleDesc: %v", err)
	}
	path := primitives.Filepath(filepath.Join(t.TempDir(), name+".dat"))
	hf, err := heap.NewHeapFile(path, td)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	return hf
}

func TestAddTableAndLookup(t *testing.T) {
	c := NewInMemoryCatalog()
	hf := newTestHeapFile(t, "people")

	if err := c.AddTable(hf, "people"); err != nil {
		t.Fatalf("AddTable: %v", err)
	}

	id, err := c.GetTableID("people")
	if err != nil {
		t.Fatalf("GetTableID: %v", err)
	}
	if id != hf.GetID() {
		t.Fatalf("GetTableID = %d, want %d", id, hf.GetID())
	}

	name, err := c.GetTableName(id)
	if err != nil {
		t.Fatalf("GetTableName: %v", err)
	}
	if name != "people" {
		t.Fatalf("GetTableName = %q, want %q", name, "people")
	}

	if _, err := c.GetDbFile(id); err != nil {
		t.Fatalf("GetDbFile: %v", err)
	}
	if _, err := c.GetTupleDesc(id); err != nil {
		t.Fatalf("GetTupleDesc: %v", err)
	}
}

func TestAddTable_RejectsNilOrEmptyName(t *testing.T) {
	c := NewInMemoryCatalog()
	if err := c.AddTable(nil, "x"); err == nil {
		t.Error("expected error for nil file")
	}

	hf := newTestHeapFile(t, "x")
	if err := c.AddTable(hf, ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestGetTableID_UnknownName(t *testing.T) {
	c := NewInMemoryCatalog()
	if _, err := c.GetTableID("ghost"); err == nil {
		t.Error("expected error for unregistered table name")
	}
}

func TestTableNames_SortedAndComplete(t *testing.T) {
	c := NewInMemoryCatalog()
	for _, name := range []string{"zebra", "apple", "mango"} {
		hf := newTestHeapFile(t, name)
		if err := c.AddTable(hf, name); err != nil {
			t.Fatalf("AddTable(%s): %v", name, err)
		}
	}

	names := c.TableNames()
	want := []string{"apple", "mango", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("TableNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("TableNames = %v, want %v", names, want)
		}
	}
}

func TestAddTable_ReplacesExistingNameAndID(t *testing.T) {
	c := NewInMemoryCatalog()
	hf1 := newTestHeapFile(t, "same-name-table")
	if err := c.AddTable(hf1, "users"); err != nil {
		t.Fatalf("AddTable first: %v", err)
	}

	hf2 := newTestHeapFile(t, "same-name-table-2")
	if err := c.AddTable(hf2, "users"); err != nil {
		t.Fatalf("AddTable replacement: %v", err)
	}

	id, err := c.GetTableID("users")
	if err != nil {
		t.Fatalf("GetTableID: %v", err)
	}
	if id != hf2.GetID() {
		t.Fatal("expected \"users\" to now resolve to the replacement file's id")
	}

	if len(c.TableNames()) != 1 {
		t.Fatalf("expected exactly one registered table after replacement, got %v", c.TableNames())
	}
}
