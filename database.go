// Package tinybase is an embedded, typed, single-process key/value
// database with secondary indexes and a composable query language. A
// caller opens a named Table of one value type, optionally defines
// secondary Indexes over it, and issues QueryBuilder queries that combine
// per-index lookups through And/Or conjunction and disjunction.
package tinybase

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tinybase/tinybase/codec"
	"github.com/tinybase/tinybase/config"
	"github.com/tinybase/tinybase/storage"
)

// Database is the single-process handle owning the storage engine and a
// registry of open tables by name.
type Database struct {
	engine storage.Engine
	log    *zap.Logger

	mu     sync.Mutex
	tables map[string]any
}

// New opens a Database over the storage engine described by opts. Pass
// config.InMemoryOptions() for a non-persistent database.
func New(opts config.Options) (*Database, error) {
	return NewWithLogger(opts, nil)
}

// NewWithLogger is like New but lets the caller supply a structured
// logger; a nil logger is replaced with a no-op logger so the library is
// silent by default.
func NewWithLogger(opts config.Options, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	engine, err := storage.Open(opts.Engine())
	if err != nil {
		return nil, errStorage("open engine", err)
	}
	return &Database{
		engine: engine,
		log:    log,
		tables: make(map[string]any),
	}, nil
}

// Close drops every open table and index and closes the storage engine.
// In-memory databases discard their data.
func (db *Database) Close() error {
	db.mu.Lock()
	db.tables = make(map[string]any)
	db.mu.Unlock()
	return errStorage("close engine", db.engine.Close())
}

// OpenTable returns the named table, opening it over its storage sub-tree
// if it has not already been opened in this process. OpenTable is a
// package-level function, not a Database method, because Go does not
// allow a method to introduce a type parameter beyond those of its
// receiver.
func OpenTable[T any](db *Database, name string) (*Table[T], error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if existing, ok := db.tables[name]; ok {
		table, ok := existing.(*Table[T])
		if !ok {
			return nil, errDuplicate("table", name)
		}
		return table, nil
	}

	tree, err := db.engine.OpenTree(name)
	if err != nil {
		return nil, errStorage("open table tree", err)
	}

	table := newTable[T](name, tree, db.engine, codec.New(), db.log.Named(fmt.Sprintf("table.%s", name)))
	db.tables[name] = table
	return table, nil
}
