// Package catalog maps table names to the on-disk files and schemas that
// back them. It is intentionally in-memory only: the catalog itself is
// not durable across restarts, only the heap files it points at are.
package catalog

import (
	"fmt"
	"sort"
	"storemy/pkg/primitives"
	"storemy/pkg/storage"
	"storemy/pkg/tuple"
	"strings"
	"sync"
)

// tableEntry bundles a table's file handle with its schema.
type tableEntry struct {
	name string
	file storage.DbFile
	desc *tuple.TupleDescription
}

// Catalog is the name <-> id <-> file/schema registry every operator
// consults to resolve a table reference into something it can scan.
type Catalog interface {
	AddTable(file storage.DbFile, name string) error
	GetTableID(name string) (primitives.TableID, error)
	GetTableName(id primitives.TableID) (string, error)
	GetDbFile(id primitives.TableID) (storage.DbFile, error)
	GetTupleDesc(id primitives.TableID) (*tuple.TupleDescription, error)
	TableNames() []string
}

// InMemoryCatalog is the only Catalog implementation: a pair of maps
// protected by a single RWMutex.
type InMemoryCatalog struct {
	byName map[string]*tableEntry
	byID   map[primitives.TableID]*tableEntry
	mutex  sync.RWMutex
}

func NewInMemoryCatalog() *InMemoryCatalog {
	return &InMemoryCatalog{
		byName: make(map[string]*tableEntry),
		byID:   make(map[primitives.TableID]*tableEntry),
	}
}

// AddTable registers file under name, keyed by the table id the file
// already carries (derived from its path hash).
func (c *InMemoryCatalog) AddTable(file storage.DbFile, name string) error {
	if file == nil {
		return fmt.Errorf("file cannot be nil")
	}
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry := &tableEntry{name: name, file: file, desc: file.GetTupleDesc()}
	id := file.GetID()

	if existing, ok := c.byName[name]; ok {
		delete(c.byID, existing.file.GetID())
	}
	if existing, ok := c.byID[id]; ok {
		delete(c.byName, existing.name)
	}

	c.byName[name] = entry
	c.byID[id] = entry
	return nil
}

func (c *InMemoryCatalog) GetTableID(name string) (primitives.TableID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.byName[name]
	if !ok {
		return primitives.InvalidTableID, fmt.Errorf("table %q not found", name)
	}
	return entry.file.GetID(), nil
}

func (c *InMemoryCatalog) GetTableName(id primitives.TableID) (string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.byID[id]
	if !ok {
		return "", fmt.Errorf("table with id %d not found", id)
	}
	return entry.name, nil
}

func (c *InMemoryCatalog) GetDbFile(id primitives.TableID) (storage.DbFile, error) {
	entry, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return entry.file, nil
}

func (c *InMemoryCatalog) GetTupleDesc(id primitives.TableID) (*tuple.TupleDescription, error) {
	entry, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return entry.desc, nil
}

func (c *InMemoryCatalog) lookup(id primitives.TableID) (*tableEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("table with id %d not found", id)
	}
	return entry, nil
}

// TableNames returns every registered table name, sorted alphabetically.
func (c *InMemoryCatalog) TableNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String lists every registered table, sorted by name.
func (c *InMemoryCatalog) String() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Catalog(tables=%d):\n", len(names))
	for _, name := range names {
		entry := c.byName[name]
		fmt.Fprintf(&b, "  %s (id=%d) %s\n", name, entry.file.GetID(), entry.desc.String())
	}
	return b.String()
}
