package primitives

import (
	"hash/fnv"
	"os"
	"path/filepath"
)

// Filepath is a type-safe wrapper around file paths used throughout the
// storage layer. It exists so that heap-file paths can carry their own
// hashing and existence-checking behavior instead of every caller reaching
// for os/path/filepath directly.
//
// Example usage:
//
//	dataDir := primitives.Filepath("/data")
//	tablePath := dataDir.Join("users.dat")
//	tableID := tablePath.HashAsTableID()
type Filepath string

// Hash derives a HashCode from the file path using FNV-1a. The same path
// always yields the same hash, which is what lets a heap file's identity
// survive a process restart without a separate ID-allocation table.
func (f Filepath) Hash() HashCode {
	h := fnv.New32a()
	_, _ = h.Write([]byte(f))
	return HashCode(h.Sum32())
}

// HashAsTableID hashes the path directly into a TableID.
func (f Filepath) HashAsTableID() TableID {
	return TableID(f.Hash())
}

// Dir returns the directory portion of the path.
func (f Filepath) Dir() string {
	return filepath.Dir(string(f))
}

// String implements fmt.Stringer.
func (f Filepath) String() string {
	return string(f)
}

// Join appends path elements, returning a new Filepath.
func (f Filepath) Join(elem ...string) Filepath {
	parts := append([]string{string(f)}, elem...)
	return Filepath(filepath.Join(parts...))
}

// Exists reports whether the file exists on disk.
func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

// MkdirAll creates the path's parent directory, including any parents.
func (f Filepath) MkdirAll(perm os.FileMode) error {
	return os.MkdirAll(f.Dir(), perm)
}
