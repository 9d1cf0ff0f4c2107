package tinybase

import (
	"github.com/google/uuid"

	"github.com/tinybase/tinybase/indexkey"
)

// conditionKind tags the three QueryCondition variants. Go has no sum
// types, so QueryCondition is a closed struct carrying a kind tag instead
// of the algebraic enum the original Rust source uses.
type conditionKind int

const (
	byKind conditionKind = iota
	andKind
	orKind
)

// QueryCondition is a node in a composable By/And/Or condition tree.
// Build one with By, And, Or, or the ConditionBuilder methods, never by
// constructing this struct directly.
type QueryCondition[T any] struct {
	kind  conditionKind
	index AnyIndex[T]
	value any
	left  *QueryCondition[T]
	right *QueryCondition[T]
}

// ConditionBuilder accumulates a QueryCondition tree.
type ConditionBuilder[T any] struct {
	cond *QueryCondition[T]
}

// Build returns the accumulated QueryCondition tree.
func (b *ConditionBuilder[T]) Build() *QueryCondition[T] { return b.cond }

// By builds a leaf condition: a single index equality lookup. By is a
// package-level generic function, not a ConditionBuilder method, because
// it introduces the index's key type parameter I, which a method cannot
// add beyond the receiver's own T.
//
// By pairs the typed index with a value of the same typed key, so the
// type-erased AnyIndex.Search call it eventually drives can never receive
// a value of the wrong type.
func By[T any, I indexkey.Key](index *Index[T, I], value I) *ConditionBuilder[T] {
	return &ConditionBuilder[T]{cond: &QueryCondition[T]{kind: byKind, index: index, value: value}}
}

// And builds a set-intersection condition over left and right.
func And[T any](left, right *ConditionBuilder[T]) *ConditionBuilder[T] {
	return &ConditionBuilder[T]{cond: &QueryCondition[T]{kind: andKind, left: left.cond, right: right.cond}}
}

// Or builds a set-union condition over left and right.
func Or[T any](left, right *ConditionBuilder[T]) *ConditionBuilder[T] {
	return &ConditionBuilder[T]{cond: &QueryCondition[T]{kind: orKind, left: left.cond, right: right.cond}}
}

// QueryBuilder composes a QueryCondition against a Table and evaluates it
// as a select, an update, or a delete.
type QueryBuilder[T any] struct {
	table     *Table[T]
	condition *QueryCondition[T]
}

// NewQueryBuilder starts a query against table.
func NewQueryBuilder[T any](table *Table[T]) *QueryBuilder[T] {
	return &QueryBuilder[T]{table: table}
}

// WithCondition attaches the condition to evaluate.
func (q *QueryBuilder[T]) WithCondition(cond *ConditionBuilder[T]) *QueryBuilder[T] {
	q.condition = cond.Build()
	return q
}

func (q *QueryBuilder[T]) checkValid() error {
	if q.condition == nil {
		return errQueryBuilder("No search condition provided")
	}
	return nil
}

// Select evaluates the condition and returns the matching records.
func (q *QueryBuilder[T]) Select() ([]Record[T], error) {
	if err := q.checkValid(); err != nil {
		return nil, err
	}
	return selectRecursive(q.condition)
}

// Update evaluates the condition, then replaces the data of every
// matching record with newData, returning the records as updated.
func (q *QueryBuilder[T]) Update(newData T) ([]Record[T], error) {
	if err := q.checkValid(); err != nil {
		return nil, err
	}
	matched, err := selectRecursive(q.condition)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(matched))
	for i, r := range matched {
		ids[i] = r.ID
	}
	return q.table.Update(ids, newData)
}

// Delete evaluates the condition, then deletes every matching record,
// returning the records actually removed. A record that disappears
// between evaluation and deletion is silently skipped.
func (q *QueryBuilder[T]) Delete() ([]Record[T], error) {
	if err := q.checkValid(); err != nil {
		return nil, err
	}
	matched, err := selectRecursive(q.condition)
	if err != nil {
		return nil, err
	}

	var removed []Record[T]
	for _, r := range matched {
		deleted, err := q.table.Delete(r.ID)
		if err != nil {
			return nil, err
		}
		if deleted != nil {
			removed = append(removed, *deleted)
		}
	}
	return removed, nil
}

// selectRecursive is the post-order condition-tree evaluator: By
// delegates to the index, And intersects by id preserving left-side
// order, Or concatenates and dedupes preserving first-seen order.
func selectRecursive[T any](cond *QueryCondition[T]) ([]Record[T], error) {
	switch cond.kind {
	case byKind:
		return cond.index.Search(cond.value)

	case andKind:
		left, err := selectRecursive(cond.left)
		if err != nil {
			return nil, err
		}
		right, err := selectRecursive(cond.right)
		if err != nil {
			return nil, err
		}
		inRight := make(map[uuid.UUID]struct{}, len(right))
		for _, r := range right {
			inRight[r.ID] = struct{}{}
		}
		intersection := make([]Record[T], 0, len(left))
		for _, r := range left {
			if _, ok := inRight[r.ID]; ok {
				intersection = append(intersection, r)
			}
		}
		return intersection, nil

	case orKind:
		left, err := selectRecursive(cond.left)
		if err != nil {
			return nil, err
		}
		right, err := selectRecursive(cond.right)
		if err != nil {
			return nil, err
		}
		seen := make(map[uuid.UUID]struct{}, len(left)+len(right))
		union := make([]Record[T], 0, len(left)+len(right))
		for _, r := range append(append([]Record[T]{}, left...), right...) {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			union = append(union, r)
		}
		return union, nil

	default:
		return nil, errQueryBuilder("malformed condition tree")
	}
}
