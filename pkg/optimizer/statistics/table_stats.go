package statistics

import (
	"fmt"
	"math"
	"storemy/pkg/buffer"
	"storemy/pkg/catalog"
	"storemy/pkg/execution"
	"storemy/pkg/primitives"
	"storemy/pkg/types"
)

// DefaultNumBuckets is the bucket count used for every column histogram
// unless a caller overrides it.
const DefaultNumBuckets = 100

type columnHistogram struct {
	intHist *IntHistogram
	strHist *StringHistogram
}

func (h columnHistogram) estimate(op primitives.Predicate, field types.Field) float64 {
	switch v := field.(type) {
	case *types.IntField:
		if h.intHist == nil {
			return 0.1
		}
		return h.intHist.Estimate(op, v.Value)
	case *types.StringField:
		if h.strHist == nil {
			return 0.1
		}
		return h.strHist.Estimate(op, v.Value)
	default:
		return 0.1
	}
}

// TableStats holds the cost/cardinality estimates for one table: its
// page and tuple counts, and a per-column histogram built from a
// two-pass scan (first pass finds integer min/max, second populates
// the histograms).
type TableStats struct {
	tableID       primitives.TableID
	ioCostPerPage float64
	numPages      int
	numTuples     int64
	histograms    []columnHistogram
}

// NewTableStats runs the two-pass scan over tableID through pool: the
// first pass finds each integer column's min/max (string columns need
// no bound, their coding is fixed-range), the second populates every
// column's histogram. Each pass runs under its own short-lived
// transaction, committed once that pass has read the whole table.
func NewTableStats(cat catalog.Catalog, pool *buffer.BufferPool, tableID primitives.TableID, ioCostPerPage float64) (*TableStats, error) {
	desc, err := cat.GetTupleDesc(tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema for table %d: %w", tableID, err)
	}
	file, err := cat.GetDbFile(tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file for table %d: %w", tableID, err)
	}
	numPages, err := file.NumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to read page count for table %d: %w", tableID, err)
	}

	mins := make([]int32, desc.NumFields())
	maxs := make([]int32, desc.NumFields())
	for i := range mins {
		mins[i] = math.MaxInt32
		maxs[i] = math.MinInt32
	}

	var numTuples int64
	scanErr := withTableScan(cat, pool, tableID, func(fields []types.Field) error {
		numTuples++
		for i, f := range fields {
			if intField, ok := f.(*types.IntField); ok {
				if intField.Value < mins[i] {
					mins[i] = intField.Value
				}
				if intField.Value > maxs[i] {
					maxs[i] = intField.Value
				}
			}
		}
		return nil
	})
	if scanErr != nil {
		return nil, scanErr
	}

	histograms := make([]columnHistogram, desc.NumFields())
	for i, ft := range desc.Types {
		switch ft {
		case types.IntType:
			lo, hi := mins[i], maxs[i]
			if lo > hi {
				lo, hi = 0, 0
			}
			histograms[i] = columnHistogram{intHist: NewIntHistogram(DefaultNumBuckets, lo, hi)}
		case types.StringType:
			histograms[i] = columnHistogram{strHist: NewStringHistogram(DefaultNumBuckets)}
		}
	}

	numTuples = 0
	scanErr = withTableScan(cat, pool, tableID, func(fields []types.Field) error {
		numTuples++
		for i, f := range fields {
			switch v := f.(type) {
			case *types.IntField:
				histograms[i].intHist.AddValue(v.Value)
			case *types.StringField:
				histograms[i].strHist.AddValue(v.Value)
			}
		}
		return nil
	})
	if scanErr != nil {
		return nil, scanErr
	}

	return &TableStats{
		tableID:       tableID,
		ioCostPerPage: ioCostPerPage,
		numPages:      numPages,
		numTuples:     numTuples,
		histograms:    histograms,
	}, nil
}

// withTableScan drives a single read-only SequentialScan over tableID
// under a fresh, short-lived transaction, invoking visit once per row.
func withTableScan(cat catalog.Catalog, pool *buffer.BufferPool, tableID primitives.TableID, visit func([]types.Field) error) error {
	ctx, err := pool.BeginTransaction()
	if err != nil {
		return fmt.Errorf("failed to start stats scan transaction: %w", err)
	}
	tid := ctx.ID

	scan, err := execution.NewSeqScan(tid, tableID, "", cat, pool)
	if err != nil {
		return err
	}
	if err := scan.Open(); err != nil {
		return err
	}
	defer scan.Close()

	for {
		hasNext, err := scan.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			break
		}
		t, err := scan.Next()
		if err != nil {
			return err
		}

		desc := scan.GetTupleDesc()
		fields := make([]types.Field, desc.NumFields())
		for i := range fields {
			fields[i], err = t.GetField(i)
			if err != nil {
				return err
			}
		}
		if err := visit(fields); err != nil {
			return err
		}
	}

	return pool.CommitTransaction(tid)
}

// ScanCost is the estimated I/O cost of a full sequential scan.
func (ts *TableStats) ScanCost() float64 {
	return float64(ts.numPages) * ts.ioCostPerPage
}

// Cardinality estimates the number of rows matching a predicate of the
// given selectivity.
func (ts *TableStats) Cardinality(selectivity float64) int64 {
	return int64(math.Round(float64(ts.numTuples) * selectivity))
}

// NumTuples returns the tuple count observed during the scan.
func (ts *TableStats) NumTuples() int64 {
	return ts.numTuples
}

// Estimate delegates to the histogram for fieldIndex.
func (ts *TableStats) Estimate(fieldIndex int, op primitives.Predicate, constant types.Field) (float64, error) {
	if fieldIndex < 0 || fieldIndex >= len(ts.histograms) {
		return 0, fmt.Errorf("field index %d out of range", fieldIndex)
	}
	return ts.histograms[fieldIndex].estimate(op, constant), nil
}
