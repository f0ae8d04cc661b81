// Package database wires the catalog, buffer pool, and lock manager
// into a single entry point a caller opens once per process. It does
// not parse or plan SQL: callers build their own operator pipeline out
// of pkg/execution and drive it against the buffer pool this type owns.
package database

import (
	"fmt"
	"storemy/pkg/buffer"
	"storemy/pkg/catalog"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/optimizer/statistics"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
	"sync"
)

// DefaultIOCostPerPage is the assumed cost of one page read, used by
// statistics.NewTableStats when a caller does not override it.
const DefaultIOCostPerPage = 1000.0

// Database is the top-level handle a process opens once: it owns the
// catalog and the buffer pool every operator reads and writes through.
type Database struct {
	dataDir string
	catalog *catalog.InMemoryCatalog
	pool    *buffer.BufferPool

	counters counters
}

// counters tracks lightweight operational counters behind their own
// mutex, separate from the catalog/pool fields above.
type counters struct {
	sync.Mutex
	transactionsStarted   int64
	transactionsCommitted int64
	transactionsAborted   int64
}

// Config controls how a Database is constructed.
type Config struct {
	// DataDir is where table heap files are created.
	DataDir string
	// BufferPages is the buffer pool's page capacity; zero uses
	// buffer.DefaultMaxPages.
	BufferPages int
}

func NewDatabase(cfg Config) (*Database, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	cat := catalog.NewInMemoryCatalog()
	pool := buffer.NewBufferPool(cat, cfg.BufferPages)

	return &Database{
		dataDir: cfg.DataDir,
		catalog: cat,
		pool:    pool,
	}, nil
}

// CreateTable opens (or creates) a heap file for name under the
// database's data directory and registers it in the catalog.
func (db *Database) CreateTable(name string, desc *tuple.TupleDescription) (primitives.TableID, error) {
	path := primitives.Filepath(db.dataDir).Join(name + ".dat")

	file, err := heap.NewHeapFile(path, desc)
	if err != nil {
		return 0, fmt.Errorf("failed to create heap file for table %q: %w", name, err)
	}

	if err := db.catalog.AddTable(file, name); err != nil {
		return 0, fmt.Errorf("failed to register table %q: %w", name, err)
	}

	return file.GetID(), nil
}

// Catalog exposes the table registry to callers building a scan.
func (db *Database) Catalog() catalog.Catalog {
	return db.catalog
}

// BufferPool exposes the shared buffer pool every operator reads and
// writes pages through.
func (db *Database) BufferPool() *buffer.BufferPool {
	return db.pool
}

// BeginTransaction starts a new transaction and returns its context.
func (db *Database) BeginTransaction() (*transaction.TransactionContext, error) {
	ctx, err := db.pool.BeginTransaction()
	if err != nil {
		return nil, err
	}
	db.counters.Lock()
	db.counters.transactionsStarted++
	db.counters.Unlock()
	return ctx, nil
}

// CommitTransaction flushes tid's dirty pages (FORCE) and releases its locks.
func (db *Database) CommitTransaction(tid *transaction.TransactionID) error {
	if err := db.pool.CommitTransaction(tid); err != nil {
		return err
	}
	db.counters.Lock()
	db.counters.transactionsCommitted++
	db.counters.Unlock()
	return nil
}

// AbortTransaction restores tid's dirty pages from their before-images
// (NO-STEAL) and releases its locks.
func (db *Database) AbortTransaction(tid *transaction.TransactionID) error {
	if err := db.pool.AbortTransaction(tid); err != nil {
		return err
	}
	db.counters.Lock()
	db.counters.transactionsAborted++
	db.counters.Unlock()
	return nil
}

// Stats reports how many transactions this database has started,
// committed, and aborted since it was opened.
type Stats struct {
	TransactionsStarted   int64
	TransactionsCommitted int64
	TransactionsAborted   int64
}

func (db *Database) Stats() Stats {
	db.counters.Lock()
	defer db.counters.Unlock()
	return Stats{
		TransactionsStarted:   db.counters.transactionsStarted,
		TransactionsCommitted: db.counters.transactionsCommitted,
		TransactionsAborted:   db.counters.transactionsAborted,
	}
}

// TableStatistics builds fresh cost/cardinality statistics for tableID
// by scanning it under its own transaction.
func (db *Database) TableStatistics(tableID primitives.TableID, ioCostPerPage float64) (*statistics.TableStats, error) {
	if ioCostPerPage <= 0 {
		ioCostPerPage = DefaultIOCostPerPage
	}
	return statistics.NewTableStats(db.catalog, db.pool, tableID, ioCostPerPage)
}

// Close flushes every dirty page still held by the buffer pool. There
// is no write-ahead log to close: FORCE commit means every committed
// page is already durable.
func (db *Database) Close() error {
	return db.pool.FlushAllPages()
}
