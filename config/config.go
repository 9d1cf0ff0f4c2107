// Package config loads TinyBase database options from YAML, following the
// pure-data, dual-tagged struct style Acksell-bezos uses for its DynamoDB
// schema files.
package config

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"gopkg.in/yaml.v3"
)

// Options configures how a Database opens its storage engine.
type Options struct {
	// Path is the on-disk directory for the database. Ignored when
	// InMemory is true.
	Path string `yaml:"path" json:"path"`

	// InMemory opens a non-persistent engine; storage lives only for the
	// process lifetime. Engine also opens in memory when Path is empty.
	InMemory bool `yaml:"inMemory" json:"inMemory"`

	// ValueLogFileSize caps the size, in bytes, of each Badger value log
	// file. Zero uses Badger's default.
	ValueLogFileSize int64 `yaml:"valueLogFileSize,omitempty" json:"valueLogFileSize,omitempty"`

	// SyncWrites forces every write to fsync before returning, trading
	// throughput for durability.
	SyncWrites bool `yaml:"syncWrites,omitempty" json:"syncWrites,omitempty"`
}

// Load reads and parses a YAML options file.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return &opts, nil
}

// InMemoryOptions returns Options for a non-persistent database.
func InMemoryOptions() Options {
	return Options{InMemory: true}
}

// Engine builds the badger.Options this configuration describes.
func (o Options) Engine() badger.Options {
	path := o.Path
	inMemory := o.InMemory || path == ""
	if inMemory {
		path = ""
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	if inMemory {
		opts = opts.WithInMemory(true)
	}
	if o.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(o.ValueLogFileSize)
	}
	opts = opts.WithSyncWrites(o.SyncWrites)
	return opts
}
