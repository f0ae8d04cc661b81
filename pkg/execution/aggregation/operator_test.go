package aggregation

import (
	"storemy/pkg/tuple"
	"storemy/pkg/types"
	"testing"
)

// fakeSource adapts a fixed slice of tuples to execution.DbIterator, so
// the aggregate operator can be exercised without a real storage layer.
type fakeSource struct {
	desc *tuple.TupleDescription
	it   *tuple.Iterator
}

func newFakeSource(desc *tuple.TupleDescription, rows []*tuple.Tuple) *fakeSource {
	return &fakeSource{desc: desc, it: tuple.NewIterator(rows)}
}

func (s *fakeSource) Open() error                            { return s.it.Open() }
func (s *fakeSource) Close() error                           { return s.it.Close() }
func (s *fakeSource) HasNext() (bool, error)                 { return s.it.HasNext() }
func (s *fakeSource) Next() (*tuple.Tuple, error)             { return s.it.Next() }
func (s *fakeSource) Rewind() error                          { return s.it.Rewind() }
func (s *fakeSource) GetTupleDesc() *tuple.TupleDescription  { return s.desc }

func mustRow(t *testing.T, desc *tuple.TupleDescription, group string, value int32) *tuple.Tuple {
	t.Helper()
	row := tuple.NewTuple(desc)
	if err := row.SetField(0, types.NewStringField(group, 16)); err != nil {
		t.Fatalf("SetField(group): %v", err)
	}
	if err := row.SetField(1, types.NewIntField(value)); err != nil {
		t.Fatalf("SetField(value): %v", err)
	}
	return row
}

func TestAggregateOperator_SumGroupedByString(t *testing.T) {
	desc, err := tuple.NewTupleDescWithCapacities(
		[]types.Type{types.StringType, types.IntType},
		[]string{"dept", "salary"},
		[]uint32{4 + 16, 4},
	)
	if err != nil {
		t.Fatalf("NewTupleDescWithCapacities: %v", err)
	}

	rows := []*tuple.Tuple{
		mustRow(t, desc, "eng", 100),
		mustRow(t, desc, "eng", 50),
		mustRow(t, desc, "sales", 20),
	}
	source := newFakeSource(desc, rows)

	op, err := NewAggregateOperator(source, 1, 0, Sum)
	if err != nil {
		t.Fatalf("NewAggregateOperator: %v", err)
	}
	if err := op.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer op.Close()

	got := map[string]int32{}
	for {
		hasNext, err := op.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !hasNext {
			break
		}
		row, err := op.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		groupField, err := row.GetField(0)
		if err != nil {
			t.Fatalf("GetField(0): %v", err)
		}
		sumField, err := row.GetField(1)
		if err != nil {
			t.Fatalf("GetField(1): %v", err)
		}
		sf, ok := sumField.(*types.IntField)
		if !ok {
			t.Fatalf("expected sum field to stay an IntField, got %T", sumField)
		}
		got[groupField.String()] = sf.Value
	}

	want := map[string]int32{"eng": 150, "sales": 20}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("sum[%q] = %d, want %d", k, got[k], v)
		}
	}
}

func TestAggregateOperator_CountNoGrouping(t *testing.T) {
	desc, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"value"})
	if err != nil {
		t.Fatalf("NewTupleDesc: %v", err)
	}

	rows := make([]*tuple.Tuple, 0, 5)
	for i := int32(0); i < 5; i++ {
		row := tuple.NewTuple(desc)
		if err := row.SetField(0, types.NewIntField(i)); err != nil {
			t.Fatalf("SetField: %v", err)
		}
		rows = append(rows, row)
	}
	source := newFakeSource(desc, rows)

	op, err := NewAggregateOperator(source, 0, NoGrouping, Count)
	if err != nil {
		t.Fatalf("NewAggregateOperator: %v", err)
	}
	if err := op.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer op.Close()

	hasNext, err := op.HasNext()
	if err != nil || !hasNext {
		t.Fatalf("expected one result row, HasNext=%v err=%v", hasNext, err)
	}
	row, err := op.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	countField, err := row.GetField(0)
	if err != nil {
		t.Fatalf("GetField(0): %v", err)
	}
	cf, ok := countField.(*types.IntField)
	if !ok {
		t.Fatalf("expected IntField, got %T", countField)
	}
	if cf.Value != 5 {
		t.Errorf("Count = %d, want 5", cf.Value)
	}
}

func TestNewAggregateOperator_RejectsInvalidFieldIndex(t *testing.T) {
	desc, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"value"})
	if err != nil {
		t.Fatalf("NewTupleDesc: %v", err)
	}
	source := newFakeSource(desc, nil)

	if _, err := NewAggregateOperator(source, 5, NoGrouping, Count); err == nil {
		t.Error("expected error for out-of-range aggregate field index")
	}
}
