package tinybase

import (
	"sync"

	"github.com/google/uuid"
)

// eventKind tags the three change-log event variants.
type eventKind int

const (
	eventInsert eventKind = iota
	eventRemove
	eventUpdate
)

// event is one table mutation queued from a Table to an Index.
type event[T any] struct {
	kind eventKind
	id   uuid.UUID
	data T // Insert: the inserted value. Remove: the removed value. Update: the new value.
	old  T // Update only: the value being replaced.
}

// subscriber is one index's receiving end of a table's change log: an
// unbounded, mutex-guarded FIFO queue. It plays the role of the MPSC
// channel in spec.md's concurrency model — many table writers publish,
// one index reader drains — but is built on a plain slice rather than a
// fixed-capacity Go channel so a publish from Table.Insert/Update/Delete
// never blocks on a slow or absent index reader.
type subscriber[T any] struct {
	mu    sync.Mutex
	queue []event[T]
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{}
}

// publish appends an event, to be observed by the next drain.
func (s *subscriber[T]) publish(e event[T]) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
}

// drain removes and returns every event queued so far, in publish order.
func (s *subscriber[T]) drain() []event[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	out := s.queue
	s.queue = nil
	return out
}
