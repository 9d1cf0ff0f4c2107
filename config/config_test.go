package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinybase/tinybase/config"
)

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinybase.yaml")
	contents := "path: ./data\ninMemory: false\nsyncWrites: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	opts, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "./data", opts.Path)
	require.False(t, opts.InMemory)
	require.True(t, opts.SyncWrites)
}

func TestEngineDefaultsToInMemoryWhenPathEmpty(t *testing.T) {
	opts := config.Options{}
	badgerOpts := opts.Engine()
	require.True(t, badgerOpts.InMemory)
}

func TestInMemoryOptions(t *testing.T) {
	opts := config.InMemoryOptions()
	require.True(t, opts.InMemory)
	require.True(t, opts.Engine().InMemory)
}
