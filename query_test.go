package tinybase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinybase/tinybase"
	"github.com/tinybase/tinybase/config"
	"github.com/tinybase/tinybase/indexkey"
)

func newStringTable(t *testing.T) *tinybase.Table[string] {
	t.Helper()
	db, err := tinybase.New(config.InMemoryOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	table, err := tinybase.OpenTable[string](db, "test_table")
	require.NoError(t, err)
	return table
}

func nameKey(v string) indexkey.StringKey { return indexkey.StringKey(v) }
func lengthKey(v string) indexkey.NumberKey[int] {
	return indexkey.Number(len(v))
}

// TestQueryBuilderSelectAnd mirrors query_builder_select_and from
// original_source/tinybase/src/query_builder.rs.
func TestQueryBuilderSelectAnd(t *testing.T) {
	table := newStringTable(t)

	name, err := tinybase.CreateIndex(table, "name", nameKey)
	require.NoError(t, err)
	length, err := tinybase.CreateIndex(table, "length", lengthKey)
	require.NoError(t, err)

	value1, err := table.Insert("value1")
	require.NoError(t, err)
	_, err = table.Insert("value2")
	require.NoError(t, err)

	disjoint, err := tinybase.NewQueryBuilder(table).
		WithCondition(tinybase.And(
			tinybase.By(name, nameKey("value1")),
			tinybase.By(name, nameKey("value2")),
		)).
		Select()
	require.NoError(t, err)
	require.Empty(t, disjoint)

	matched, err := tinybase.NewQueryBuilder(table).
		WithCondition(tinybase.And(
			tinybase.By(name, nameKey("value1")),
			tinybase.By(length, lengthKey("value1")),
		)).
		Select()
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, value1.ID, matched[0].ID)
}

// TestQueryBuilderSelectOr mirrors query_builder_select_or.
func TestQueryBuilderSelectOr(t *testing.T) {
	table := newStringTable(t)
	name, err := tinybase.CreateIndex(table, "name", nameKey)
	require.NoError(t, err)

	_, err = table.Insert("value1")
	require.NoError(t, err)
	_, err = table.Insert("value2")
	require.NoError(t, err)

	matched, err := tinybase.NewQueryBuilder(table).
		WithCondition(tinybase.Or(
			tinybase.By(name, nameKey("value1")),
			tinybase.By(name, nameKey("value2")),
		)).
		Select()
	require.NoError(t, err)
	require.Len(t, matched, 2)
}

// TestQueryBuilderOrOfSameConditionDeduplicates covers spec.md §8's
// "Or(A, A) returns the same records as A, no duplicates" boundary case.
func TestQueryBuilderOrOfSameConditionDeduplicates(t *testing.T) {
	table := newStringTable(t)
	name, err := tinybase.CreateIndex(table, "name", nameKey)
	require.NoError(t, err)
	_, err = table.Insert("value1")
	require.NoError(t, err)

	matched, err := tinybase.NewQueryBuilder(table).
		WithCondition(tinybase.Or(
			tinybase.By(name, nameKey("value1")),
			tinybase.By(name, nameKey("value1")),
		)).
		Select()
	require.NoError(t, err)
	require.Len(t, matched, 1)
}

// TestQueryBuilderSelectCombined mirrors query_builder_select_combined.
func TestQueryBuilderSelectCombined(t *testing.T) {
	table := newStringTable(t)
	name, err := tinybase.CreateIndex(table, "name", nameKey)
	require.NoError(t, err)
	length, err := tinybase.CreateIndex(table, "length", lengthKey)
	require.NoError(t, err)

	_, err = table.Insert("value1")
	require.NoError(t, err)
	_, err = table.Insert("value2")
	require.NoError(t, err)

	matched, err := tinybase.NewQueryBuilder(table).
		WithCondition(tinybase.And(
			tinybase.Or(
				tinybase.By(name, nameKey("value1")),
				tinybase.By(name, nameKey("value2")),
			),
			tinybase.By(length, lengthKey("value1")),
		)).
		Select()
	require.NoError(t, err)
	require.Len(t, matched, 2)
}

// TestQueryBuilderUpdate mirrors query_builder_update.
func TestQueryBuilderUpdate(t *testing.T) {
	table := newStringTable(t)
	name, err := tinybase.CreateIndex(table, "name", nameKey)
	require.NoError(t, err)
	length, err := tinybase.CreateIndex(table, "length", lengthKey)
	require.NoError(t, err)

	_, err = table.Insert("value1")
	require.NoError(t, err)
	_, err = table.Insert("value2")
	require.NoError(t, err)

	updated, err := tinybase.NewQueryBuilder(table).
		WithCondition(tinybase.And(
			tinybase.By(name, nameKey("value1")),
			tinybase.By(length, lengthKey("value1")),
		)).
		Update("updated_value")
	require.NoError(t, err)
	require.Len(t, updated, 1)
	require.Equal(t, "updated_value", updated[0].Data)

	stale, err := name.Select(nameKey("value1"))
	require.NoError(t, err)
	require.Empty(t, stale)

	fresh, err := name.Select(nameKey("updated_value"))
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.Equal(t, updated[0].ID, fresh[0].ID)
}

// TestQueryBuilderDelete mirrors query_builder_delete.
func TestQueryBuilderDelete(t *testing.T) {
	table := newStringTable(t)
	_, err := table.Insert("value1")
	require.NoError(t, err)
	_, err = table.Insert("value2")
	require.NoError(t, err)

	name, err := tinybase.CreateIndex(table, "name", nameKey)
	require.NoError(t, err)

	deleted, err := tinybase.NewQueryBuilder(table).
		WithCondition(tinybase.By(name, nameKey("value1"))).
		Delete()
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	remaining, err := name.Select(nameKey("value1"))
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestQueryBuilderWithoutConditionErrors(t *testing.T) {
	table := newStringTable(t)

	_, err := tinybase.NewQueryBuilder(table).Select()
	require.Error(t, err)
	var qbErr *tinybase.QueryBuilderError
	require.ErrorAs(t, err, &qbErr)

	_, err = tinybase.NewQueryBuilder(table).Update("x")
	require.Error(t, err)

	_, err = tinybase.NewQueryBuilder(table).Delete()
	require.Error(t, err)
}

func TestQueryBuilderDeleteOnAlreadyRemovedRecordReturnsEmpty(t *testing.T) {
	table := newStringTable(t)
	name, err := tinybase.CreateIndex(table, "name", nameKey)
	require.NoError(t, err)

	rec, err := table.Insert("value1")
	require.NoError(t, err)

	_, err = table.Delete(rec.ID)
	require.NoError(t, err)

	deleted, err := tinybase.NewQueryBuilder(table).
		WithCondition(tinybase.By(name, nameKey("value1"))).
		Delete()
	require.NoError(t, err)
	require.Empty(t, deleted)
}
