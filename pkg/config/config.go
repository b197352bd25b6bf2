// Package config loads the engine's YAML configuration: where the catalog
// file lives, how big its hash table is, the free-list bucket-size table,
// and the allocator's split-slack threshold.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultBucketSizes is the monotone free-list bucket-size table. Per
// spec.md §9 Open Questions, the exact table an on-disk file was written
// with must be preserved rather than guessed at; this table is only the
// default for freshly initialized catalogs and is itself persisted once
// chosen (see pkg/catalog.Catalog.BucketSizes).
var defaultBucketSizes = []int{
	32, 64, 128, 256, 0x200, 0x400, 0x800, 0x1000,
	0x2000, 0x4000, 0x8000, 0x10000, 0x20000, 0x40000,
	0x80000, 0x100000, 0x200000, 0x400000, 0x7fffffff,
}

// Engine holds the catalog and allocator's tunable parameters.
type Engine struct {
	// DataDir is the directory holding one ".ns" mapping file per
	// database (or per collection, when DirectoryPerDB is set).
	DataDir string `yaml:"data_dir"`

	// DirectoryPerDB mirrors the original --directoryperdb flag: when
	// true, Catalog.Init creates a subdirectory per database before
	// creating its mapping file.
	DirectoryPerDB bool `yaml:"directory_per_db"`

	// Capacity is the fixed number of (key, record) slots the catalog's
	// open-addressed hash table reserves when the mapping file is first
	// created.
	Capacity int `yaml:"capacity"`

	// BucketSizes is the monotone free-list bucket-size table; must have
	// exactly 19 entries (catalog.Buckets) and be nondecreasing.
	BucketSizes []int `yaml:"bucket_sizes"`

	// MinSplitSlack is the minimum number of bytes a selected free
	// record must exceed the requested length by before the allocator
	// splits it and returns the remainder to its bucket.
	MinSplitSlack int `yaml:"min_split_slack"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	OutputPath string `yaml:"output_path"`
	Format     string `yaml:"format"`
}

// Default returns the engine configuration used when no file is supplied.
func Default() *Engine {
	bs := make([]int, len(defaultBucketSizes))
	copy(bs, defaultBucketSizes)
	return &Engine{
		DataDir:        ".",
		DirectoryPerDB: false,
		Capacity:       16384,
		BucketSizes:    bs,
		MinSplitSlack:  32,
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "console",
		},
	}
}

// Load reads an Engine configuration from a YAML file at path, filling in
// defaults for any field the file omits.
func Load(path string) (*Engine, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the bucket-size table is well formed: exactly 19 entries,
// monotone nondecreasing, per spec.md §3 (Buckets = 19, MaxBucket = 18),
// and that the capacity is positive.
func (e *Engine) Validate() error {
	const buckets = 19
	if len(e.BucketSizes) != buckets {
		return fmt.Errorf("config: bucket_sizes must have %d entries, got %d", buckets, len(e.BucketSizes))
	}
	for i := 1; i < len(e.BucketSizes); i++ {
		if e.BucketSizes[i] < e.BucketSizes[i-1] {
			return fmt.Errorf("config: bucket_sizes must be monotone nondecreasing, bucket %d (%d) < bucket %d (%d)",
				i, e.BucketSizes[i], i-1, e.BucketSizes[i-1])
		}
	}
	if e.Capacity <= 0 {
		return fmt.Errorf("config: capacity must be positive, got %d", e.Capacity)
	}
	return nil
}
