// Package primitives collects the small value types shared by every layer
// of the engine (storage, locking, execution) so none of them have to
// import each other just to talk about a page number or a hash.
package primitives

// HashCode is a 32-bit hash value used for deterministic table identifiers
// and field hashing.
type HashCode uint32

// TableID uniquely identifies a heap file within the database. It is
// derived deterministically from the file's path (see Filepath.Hash), so
// the same table gets the same ID across process restarts.
type TableID uint32

// SlotID indexes a slot within a heap page's fixed-size slot array.
type SlotID uint16

// PageNumber is the zero-based offset of a page within its heap file.
type PageNumber int

// ColumnID identifies a column within a tuple schema.
type ColumnID int

// InvalidTableID is the zero value. No real path hash is expected to
// collide with it in practice, but it is reserved as a sentinel.
const InvalidTableID TableID = 0

// InvalidPageNumber marks the absence of a page reference.
const InvalidPageNumber PageNumber = -1

// InvalidColumnID marks "no grouping field" and similar absent-column cases.
const InvalidColumnID ColumnID = -1
