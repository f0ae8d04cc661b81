package statistics

import (
	"math"
	"storemy/pkg/primitives"
	"testing"
)

func withinTolerance(got, want, tolerance float64) bool {
	return math.Abs(got-want) <= tolerance
}

func TestIntHistogram_IdentityDistribution(t *testing.T) {
	h := NewIntHistogram(10, 0, 99)
	for v := int32(0); v < 100; v++ {
		h.AddValue(v)
	}

	if got := h.Estimate(primitives.LessThan, 50); !withinTolerance(got, 0.5, 0.05) {
		t.Errorf("Estimate(<, 50) = %v, want ~0.5 +/- 0.05", got)
	}

	if got := h.Estimate(primitives.Equals, 50); got <= 0 || got >= 0.02 {
		t.Errorf("Estimate(=, 50) = %v, want in (0, 0.02)", got)
	}
}

func TestIntHistogram_OutOfRangeBounds(t *testing.T) {
	h := NewIntHistogram(10, 0, 99)
	for v := int32(0); v < 100; v++ {
		h.AddValue(v)
	}

	if got := h.Estimate(primitives.LessThan, -5); got != 0.0 {
		t.Errorf("Estimate(<, -5) = %v, want 0", got)
	}
	if got := h.Estimate(primitives.GreaterThan, 200); got != 0.0 {
		t.Errorf("Estimate(>, 200) = %v, want 0", got)
	}
	if got := h.Estimate(primitives.LessThanOrEqual, 200); got != 1.0 {
		t.Errorf("Estimate(<=, 200) = %v, want 1", got)
	}
}

func TestIntHistogram_EmptyHistogram(t *testing.T) {
	h := NewIntHistogram(10, 0, 99)
	if got := h.Estimate(primitives.LessThan, 50); got != 0.0 {
		t.Errorf("empty histogram Estimate(<, 50) = %v, want 0", got)
	}
}

func TestIntHistogram_NotEqualComplementsEquals(t *testing.T) {
	h := NewIntHistogram(10, 0, 99)
	for v := int32(0); v < 100; v++ {
		h.AddValue(v)
	}

	eq := h.Estimate(primitives.Equals, 42)
	neq := h.Estimate(primitives.NotEqual, 42)
	if !withinTolerance(eq+neq, 1.0, 1e-9) {
		t.Errorf("Estimate(=)+Estimate(!=) = %v, want 1.0", eq+neq)
	}
}

func TestStringHistogram_OrderPreservingEstimates(t *testing.T) {
	h := NewStringHistogram(10)
	values := []string{"apple", "banana", "cherry", "date", "egg", "fig", "grape"}
	for _, v := range values {
		h.AddValue(v)
	}

	// "cherry" sorts after two of the seven sample values, so some but
	// not all of the sample compares less than it: the estimate must lie
	// strictly between 0 and 1.
	lt := h.Estimate(primitives.LessThan, "cherry")
	if lt <= 0 || lt >= 1 {
		t.Errorf("Estimate(<, cherry) = %v, want strictly between 0 and 1", lt)
	}

	if got := h.Estimate(primitives.LessThan, ""); got != 0.0 {
		t.Errorf("Estimate(<, \"\") = %v, want 0 (empty string is the minimum key)", got)
	}
}
