package tinybase

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tinybase/tinybase/codec"
	"github.com/tinybase/tinybase/indexkey"
	"github.com/tinybase/tinybase/storage"
)

// Table is a named collection of Records of one value type T, persisted
// as encode(id) -> encode(data) in one storage sub-tree. A Table mints
// ids, fans change-log events out to every index it owns, and holds
// type-erased handles to those indexes for the query layer.
type Table[T any] struct {
	name    string
	primary storage.Tree
	codec   codec.Codec
	engine  storage.Engine
	log     *zap.Logger

	// mu serializes writes so that the read-modify-write on the primary
	// tree and the event fan-out to every subscriber happen as one step
	// relative to other writers, giving every index's change log the same
	// relative event order (spec.md §5's ordering guarantee).
	mu          sync.Mutex
	indexNames  map[string]struct{}
	subscribers []*subscriber[T]
	indexes     []AnyIndex[T]
}

func newTable[T any](name string, primary storage.Tree, engine storage.Engine, c codec.Codec, log *zap.Logger) *Table[T] {
	return &Table[T]{
		name:       name,
		primary:    primary,
		codec:      c,
		engine:     engine,
		log:        log,
		indexNames: make(map[string]struct{}),
	}
}

// Name returns the table's name.
func (t *Table[T]) Name() string { return t.name }

// Insert mints a fresh id, writes the record, and publishes an Insert
// event to every index's change log before returning.
func (t *Table[T]) Insert(data T) (Record[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.New()
	if err := t.writeRow(id, data); err != nil {
		return Record[T]{}, err
	}
	t.publish(event[T]{kind: eventInsert, id: id, data: data})
	return Record[T]{ID: id, Data: data}, nil
}

// Update replaces the data for each id that is present in the table,
// publishing an Update event per replaced row, and returns the updated
// records. Ids not present in the table are silently skipped.
func (t *Table[T]) Update(ids []uuid.UUID, newData T) ([]Record[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var updated []Record[T]
	for _, id := range ids {
		old, ok, err := t.readRow(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := t.writeRow(id, newData); err != nil {
			return nil, err
		}
		t.publish(event[T]{kind: eventUpdate, id: id, data: newData, old: old})
		updated = append(updated, Record[T]{ID: id, Data: newData})
	}
	return updated, nil
}

// Delete removes id from the table if present, publishing a Remove event,
// and returns the removed record.
func (t *Table[T]) Delete(id uuid.UUID) (*Record[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, ok, err := t.readRow(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if err := t.primary.Remove(codec.EncodeID(id)); err != nil {
		return nil, errStorage("delete", err)
	}
	t.publish(event[T]{kind: eventRemove, id: id, data: data})
	return &Record[T]{ID: id, Data: data}, nil
}

// Get reads a single record by id, with no change-log interaction.
func (t *Table[T]) Get(id uuid.UUID) (*Record[T], error) {
	data, ok, err := t.readRow(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Record[T]{ID: id, Data: data}, nil
}

// Iter calls fn once per record currently in the table. Iteration stops
// early if fn returns false.
func (t *Table[T]) Iter(fn func(Record[T]) bool) error {
	stop := false
	err := t.primary.Iter(func(kv storage.KV) error {
		if stop {
			return nil
		}
		id, err := codec.DecodeID(kv.Key)
		if err != nil {
			return errCodec("decode id", err)
		}
		var data T
		if err := t.codec.Decode(kv.Value, &data); err != nil {
			return errCodec("decode value", err)
		}
		if !fn(Record[T]{ID: id, Data: data}) {
			stop = true
		}
		return nil
	})
	return err
}

func (t *Table[T]) readRow(id uuid.UUID) (T, bool, error) {
	var zero T
	raw, ok, err := t.primary.Get(codec.EncodeID(id))
	if err != nil {
		return zero, false, errStorage("get", err)
	}
	if !ok {
		return zero, false, nil
	}
	var data T
	if err := t.codec.Decode(raw, &data); err != nil {
		return zero, false, errCodec("decode value", err)
	}
	return data, true, nil
}

func (t *Table[T]) writeRow(id uuid.UUID, data T) error {
	raw, err := t.codec.Encode(data)
	if err != nil {
		return errCodec("encode value", err)
	}
	if err := t.primary.Insert(codec.EncodeID(id), raw); err != nil {
		return errStorage("insert", err)
	}
	return nil
}

// publish delivers ev to every subscribing index's change log, in
// registration order. Must be called with mu held.
func (t *Table[T]) publish(ev event[T]) {
	for _, sub := range t.subscribers {
		sub.publish(ev)
	}
}

// CreateIndex registers a new index on table, named name, keyed by
// extractor. If the storage engine has no sub-tree with that name yet,
// the index performs an initial full sync over every record currently in
// the table; otherwise it trusts the persisted index state and begins
// consuming future change-log events.
//
// CreateIndex is a package-level function, not a method, because Go does
// not allow a method to introduce a type parameter (I) beyond those of
// its receiver (T).
func CreateIndex[T any, I indexkey.Key](t *Table[T], name string, extractor func(T) I) (*Index[T, I], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.indexNames[name]; dup {
		return nil, errDuplicate("index", name)
	}

	existingNames, err := t.engine.TreeNames()
	if err != nil {
		return nil, errStorage("list trees", err)
	}
	needSync := true
	for _, n := range existingNames {
		if n == name {
			needSync = false
			break
		}
	}

	tree, err := t.engine.OpenTree(name)
	if err != nil {
		return nil, errStorage("open index tree", err)
	}

	sub := newSubscriber[T]()
	idx := newIndex(name, t.primary, tree, extractor, sub, t.log.Named(fmt.Sprintf("index.%s", name)))

	if needSync {
		if err := idx.Sync(); err != nil {
			return nil, err
		}
	}

	t.indexNames[name] = struct{}{}
	t.subscribers = append(t.subscribers, sub)
	t.indexes = append(t.indexes, idx)

	return idx, nil
}

// Indexes returns the type-erased handles of every index registered on
// this table, in creation order.
func (t *Table[T]) Indexes() []AnyIndex[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]AnyIndex[T], len(t.indexes))
	copy(out, t.indexes)
	return out
}
