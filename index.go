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

// AnyIndex is the type-erased view of an Index[T, I] the query layer
// consumes: it exposes everything a QueryCondition needs without
// mentioning the index's key type I.
type AnyIndex[T any] interface {
	// Search looks up value, which must be the concrete key type this
	// index was created with. A mismatched type is a programmer error and
	// panics; ConditionBuilder's typed By guarantees the pairing by
	// construction so this should never happen from library use.
	Search(value any) ([]Record[T], error)

	// Exists reports whether record's extracted key has a non-empty
	// bucket in this index.
	Exists(record Record[T]) (bool, error)

	// Name returns the index's name.
	Name() string
}

// Index maintains a derived-key -> id-list sub-tree alongside a Table's
// primary data, kept eventually consistent with the table via a lazy,
// per-index change log: table writes publish events, and an Index drains
// its log on the next read rather than synchronously on every write.
type Index[T any, I indexkey.Key] struct {
	name      string
	primary   storage.Tree // the table's primary sub-tree; read-through only, never written
	buckets   storage.Tree // this index's own sub-tree: key bytes -> encoded id list
	extractor func(T) I
	sub       *subscriber[T]
	log       *zap.Logger

	// commitMu serializes commitLog+read as one step, so two concurrent
	// readers can't each observe a partially-drained log.
	commitMu sync.Mutex

	warnOnce  sync.Once // missing id on delete-within-bucket
	staleOnce sync.Once // bucket id with no row left in the primary table
}

func newIndex[T any, I indexkey.Key](name string, primary, buckets storage.Tree, extractor func(T) I, sub *subscriber[T], log *zap.Logger) *Index[T, I] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index[T, I]{
		name:      name,
		primary:   primary,
		buckets:   buckets,
		extractor: extractor,
		sub:       sub,
		log:       log,
	}
}

// Name returns the index's name, read from the underlying sub-tree so it
// can never drift from the storage layer's own notion of the name.
func (idx *Index[T, I]) Name() string { return idx.buckets.Name() }

// Select drains the change log, then returns every record whose
// extracted key equals key, hydrated from the primary table. Ids whose
// row has since vanished from the table are silently dropped.
func (idx *Index[T, I]) Select(key I) ([]Record[T], error) {
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()

	if err := idx.commitLog(); err != nil {
		return nil, err
	}
	return idx.lookup(key)
}

// lookup reads the bucket for key and hydrates its ids, without draining
// the change log. Callers must already hold commitMu.
func (idx *Index[T, I]) lookup(key I) ([]Record[T], error) {
	raw, ok, err := idx.buckets.Get(key.Bytes())
	if err != nil {
		return nil, errStorage("get bucket", err)
	}
	if !ok {
		return nil, nil
	}
	ids, err := codec.DecodeIDList(raw)
	if err != nil {
		return nil, errCodec("decode id list", err)
	}

	results := make([]Record[T], 0, len(ids))
	for _, id := range ids {
		raw, ok, err := idx.primary.Get(codec.EncodeID(id))
		if err != nil {
			return nil, errStorage("get row", err)
		}
		if !ok {
			// Race/corruption tolerance: the bucket named an id the table
			// no longer has. Drop it silently per spec.
			idx.staleOnce.Do(func() {
				idx.log.Warn("index bucket referenced a row no longer in the table",
					zap.String("index", idx.name), zap.String("id", id.String()))
			})
			continue
		}
		var data T
		if err := defaultCodec.Decode(raw, &data); err != nil {
			return nil, errCodec("decode row", err)
		}
		results = append(results, Record[T]{ID: id, Data: data})
	}
	return results, nil
}

// Exists reports whether record's extracted key currently has at least
// one matching record in this index.
func (idx *Index[T, I]) Exists(record Record[T]) (bool, error) {
	key := idx.extractor(record.Data)
	results, err := idx.Select(key)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}

// Search implements AnyIndex: it downcasts value to I and delegates to
// Select.
func (idx *Index[T, I]) Search(value any) ([]Record[T], error) {
	key, ok := value.(I)
	if !ok {
		panic(fmt.Sprintf("tinybase: index %q: query value has type %T, want %T", idx.name, value, key))
	}
	return idx.Select(key)
}

// Sync clears this index's sub-tree and rebuilds it from scratch by
// iterating the primary table.
func (idx *Index[T, I]) Sync() error {
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()

	if err := idx.buckets.Clear(); err != nil {
		return errStorage("clear index", err)
	}

	// Drop any events queued before the sync; the full rebuild below
	// already reflects their effect.
	idx.sub.drain()

	var rebuildErr error
	err := idx.primary.Iter(func(kv storage.KV) error {
		id, err := codec.DecodeID(kv.Key)
		if err != nil {
			return errCodec("decode id", err)
		}
		var data T
		if err := defaultCodec.Decode(kv.Value, &data); err != nil {
			return errCodec("decode row", err)
		}
		if rebuildErr = idx.insert(id, data); rebuildErr != nil {
			return rebuildErr
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// commitLog applies every event queued since the last drain, in publish
// order. Callers must hold commitMu.
func (idx *Index[T, I]) commitLog() error {
	for _, ev := range idx.sub.drain() {
		var err error
		switch ev.kind {
		case eventInsert:
			err = idx.insert(ev.id, ev.data)
		case eventRemove:
			err = idx.remove(ev.id, ev.data)
		case eventUpdate:
			// Applied as remove-then-insert, even when the extracted key
			// is unchanged, matching the original commit_log semantics:
			// the net effect is then an identity operation, not a skip.
			if err = idx.remove(ev.id, ev.old); err != nil {
				break
			}
			err = idx.insert(ev.id, ev.data)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index[T, I]) insert(id uuid.UUID, data T) error {
	key := idx.extractor(data).Bytes()

	raw, ok, err := idx.buckets.Get(key)
	if err != nil {
		return errStorage("get bucket", err)
	}
	var ids []uuid.UUID
	if ok {
		ids, err = codec.DecodeIDList(raw)
		if err != nil {
			return errCodec("decode id list", err)
		}
	}
	ids = append(ids, id)
	newRaw, err := codec.EncodeIDList(ids)
	if err != nil {
		return errCodec("encode id list", err)
	}
	if err := idx.buckets.Insert(key, newRaw); err != nil {
		return errStorage("insert bucket", err)
	}
	return nil
}

func (idx *Index[T, I]) remove(id uuid.UUID, data T) error {
	key := idx.extractor(data).Bytes()

	raw, ok, err := idx.buckets.Get(key)
	if err != nil {
		return errStorage("get bucket", err)
	}
	if !ok {
		idx.warnOnce.Do(func() {
			idx.log.Warn("delete of an id from an index bucket that did not contain it",
				zap.String("index", idx.name), zap.String("id", id.String()))
		})
		return nil
	}
	ids, err := codec.DecodeIDList(raw)
	if err != nil {
		return errCodec("decode id list", err)
	}

	pos := -1
	for i, existing := range ids {
		if existing == id {
			pos = i
			break
		}
	}
	if pos == -1 {
		idx.warnOnce.Do(func() {
			idx.log.Warn("delete of an id from an index bucket that did not contain it",
				zap.String("index", idx.name), zap.String("id", id.String()))
		})
		return nil
	}

	if len(ids) == 1 {
		if err := idx.buckets.Remove(key); err != nil {
			return errStorage("remove bucket", err)
		}
		return nil
	}

	ids = append(ids[:pos], ids[pos+1:]...)
	newRaw, err := codec.EncodeIDList(ids)
	if err != nil {
		return errCodec("encode id list", err)
	}
	return errStorage("insert bucket", idx.buckets.Insert(key, newRaw))
}

// defaultCodec decodes primary-table rows hydrated during index reads.
// Indexes don't hold a Codec of their own (spec.md's design notes keep
// indexes free of a strong reference back to the table, holding only the
// primary sub-tree and a subscriber endpoint); the codec used for table
// rows is fixed module-wide.
var defaultCodec = codec.New()
