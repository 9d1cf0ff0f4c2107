package tinybase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinybase/tinybase"
	"github.com/tinybase/tinybase/config"
)

// TestColdOpenIndexBackfillsFromPersistedTable mirrors spec.md §8
// scenario 6: insert records, close, re-open the database, create an
// index with the same name for the first time, and observe it reflect
// every pre-existing record.
func TestColdOpenIndexBackfillsFromPersistedTable(t *testing.T) {
	dir := t.TempDir()
	opts := config.Options{Path: dir}

	db, err := tinybase.New(opts)
	require.NoError(t, err)

	table, err := tinybase.OpenTable[string](db, "words")
	require.NoError(t, err)

	rec, err := table.Insert("value1")
	require.NoError(t, err)
	_, err = table.Insert("value2")
	require.NoError(t, err)

	require.NoError(t, db.Close())

	db2, err := tinybase.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db2.Close() })

	table2, err := tinybase.OpenTable[string](db2, "words")
	require.NoError(t, err)

	name, err := tinybase.CreateIndex(table2, "name", nameKey)
	require.NoError(t, err)

	results, err := name.Select(nameKey("value1"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, rec.ID, results[0].ID)
}

func TestOpenTableReturnsSameHandleForSameName(t *testing.T) {
	db, err := tinybase.New(config.InMemoryOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	t1, err := tinybase.OpenTable[string](db, "shared")
	require.NoError(t, err)
	t2, err := tinybase.OpenTable[string](db, "shared")
	require.NoError(t, err)

	rec, err := t1.Insert("x")
	require.NoError(t, err)

	got, err := t2.Get(rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "x", got.Data)
}

func TestOpenTableWithDifferentTypeErrors(t *testing.T) {
	db, err := tinybase.New(config.InMemoryOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = tinybase.OpenTable[string](db, "typed")
	require.NoError(t, err)

	_, err = tinybase.OpenTable[int](db, "typed")
	require.Error(t, err)
}
