package storage

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// metaTreeName is a reserved sub-tree name used to persist the set of
// sub-trees that have ever been opened on an engine, so TreeNames survives
// a process restart against the same on-disk path. Not returned from
// TreeNames itself.
const metaTreeName = "\x00tinybase:trees\x00"

// sep separates a sub-tree name from the user key inside a single Badger
// keyspace. Badger has no native concept of named sub-trees (unlike the
// sled::Tree this engine's contract is modeled on), so BadgerEngine
// emulates them with a namespacing prefix, the same trick
// encodeBadgerKey uses to keep a DynamoDB table's primary rows and its
// GSI rows apart inside one Badger instance.
const sep = 0x00

// BadgerEngine is an Engine backed by a single github.com/dgraph-io/badger/v4
// database. Sub-trees are emulated via key-prefixing within the one
// underlying keyspace.
type BadgerEngine struct {
	db *badger.DB

	mu    sync.Mutex
	trees map[string]struct{}
}

// Open opens (or creates) a Badger-backed engine using the given options.
// Pass badger.DefaultOptions("").WithInMemory(true) for a non-persistent
// engine.
func Open(opts badger.Options) (*BadgerEngine, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger engine: %w", err)
	}

	e := &BadgerEngine{db: db, trees: make(map[string]struct{})}
	if err := e.loadTreeNames(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

func (e *BadgerEngine) loadTreeNames() error {
	prefix := treeKey(metaTreeName, nil)
	return e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			name := bytes.TrimPrefix(it.Item().KeyCopy(nil), prefix)
			e.trees[string(name)] = struct{}{}
		}
		return nil
	})
}

func treeKey(name string, k []byte) []byte {
	buf := make([]byte, 0, len(name)+1+len(k))
	buf = append(buf, name...)
	buf = append(buf, sep)
	buf = append(buf, k...)
	return buf
}

// OpenTree returns a handle to the named sub-tree, creating it (and
// recording its existence in the meta tree) if this is the first time it
// has been opened on this engine.
func (e *BadgerEngine) OpenTree(name string) (Tree, error) {
	if name == metaTreeName {
		return nil, fmt.Errorf("storage: %q is a reserved sub-tree name", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.trees[name]; !ok {
		err := e.db.Update(func(txn *badger.Txn) error {
			return txn.Set(treeKey(metaTreeName, []byte(name)), []byte{})
		})
		if err != nil {
			return nil, fmt.Errorf("storage: register sub-tree %q: %w", name, err)
		}
		e.trees[name] = struct{}{}
	}

	return &badgerTree{engine: e, name: name}, nil
}

// TreeNames reports every sub-tree ever opened on this engine.
func (e *BadgerEngine) TreeNames() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.trees))
	for name := range e.trees {
		names = append(names, name)
	}
	return names, nil
}

// Close closes the underlying Badger database.
func (e *BadgerEngine) Close() error {
	return e.db.Close()
}

type badgerTree struct {
	engine *BadgerEngine
	name   string
}

func (t *badgerTree) Name() string { return t.name }

func (t *badgerTree) key(k []byte) []byte { return treeKey(t.name, k) }

func (t *badgerTree) Get(k []byte) ([]byte, bool, error) {
	var v []byte
	found := false
	err := t.engine.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(t.key(k))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			v = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("storage: get from %q: %w", t.name, err)
	}
	return v, found, nil
}

func (t *badgerTree) Insert(k, v []byte) error {
	err := t.engine.db.Update(func(txn *badger.Txn) error {
		return txn.Set(t.key(k), v)
	})
	if err != nil {
		return fmt.Errorf("storage: insert into %q: %w", t.name, err)
	}
	return nil
}

func (t *badgerTree) Remove(k []byte) error {
	err := t.engine.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(t.key(k))
	})
	if err != nil {
		return fmt.Errorf("storage: remove from %q: %w", t.name, err)
	}
	return nil
}

func (t *badgerTree) Clear() error {
	prefix := t.key(nil)
	for {
		var keys [][]byte
		err := t.engine.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
				if len(keys) >= 1000 {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("storage: clear %q: %w", t.name, err)
		}
		if len(keys) == 0 {
			return nil
		}
		err = t.engine.db.Update(func(txn *badger.Txn) error {
			for _, k := range keys {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("storage: clear %q: %w", t.name, err)
		}
	}
}

func (t *badgerTree) Iter(fn func(KV) error) error {
	prefix := t.key(nil)
	return t.engine.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := bytes.TrimPrefix(item.KeyCopy(nil), prefix)
			var kv KV
			kv.Key = k
			if err := item.Value(func(val []byte) error {
				kv.Value = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			if err := fn(kv); err != nil {
				return err
			}
		}
		return nil
	})
}
