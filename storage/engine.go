// Package storage defines the embedded key/value engine contract TinyBase
// is built on: a set of named, independently iterable sub-trees, each
// offering atomic single-key operations. It ships one implementation,
// backed by Badger, but callers only ever depend on the Engine/Tree
// interfaces below.
package storage

// Engine is an embedded key/value store exposing independently named
// sub-trees. Implementations must make per-key operations on a Tree
// atomic; no multi-key transaction support is required.
type Engine interface {
	// OpenTree returns the named sub-tree, creating it if it does not
	// already exist. Calling OpenTree twice with the same name returns
	// handles to the same underlying data.
	OpenTree(name string) (Tree, error)

	// TreeNames reports every sub-tree that has ever been opened on this
	// engine, including across restarts of a persistent engine.
	TreeNames() ([]string, error)

	// Close releases all resources held by the engine. In-memory engines
	// discard their data; persistent engines flush and close their files.
	Close() error
}

// KV is a single key/value pair produced by Tree.Iter.
type KV struct {
	Key   []byte
	Value []byte
}

// Tree is one named namespace inside an Engine, offering atomic
// single-key reads and writes plus full iteration.
type Tree interface {
	// Name returns the sub-tree's name.
	Name() string

	// Get returns the value stored at k, or ok == false if absent.
	Get(k []byte) (v []byte, ok bool, err error)

	// Insert writes k -> v, replacing any existing value.
	Insert(k, v []byte) error

	// Remove deletes k. Removing an absent key is not an error.
	Remove(k []byte) error

	// Clear removes every key in the sub-tree.
	Clear() error

	// Iter calls fn once per key/value pair currently in the sub-tree, in
	// key order. Iteration stops early if fn returns an error, which Iter
	// then returns to the caller.
	Iter(fn func(KV) error) error
}
