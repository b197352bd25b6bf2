package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Len(t, cfg.BucketSizes, 19)
}

func TestValidateRejectsWrongBucketCount(t *testing.T) {
	cfg := Default()
	cfg.BucketSizes = cfg.BucketSizes[:18]
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonMonotoneBuckets(t *testing.T) {
	cfg := Default()
	cfg.BucketSizes[5] = cfg.BucketSizes[4] - 1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveCapacity(t *testing.T) {
	cfg := Default()
	cfg.Capacity = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadFillsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capacity: 4096\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.Capacity)
	assert.Len(t, cfg.BucketSizes, 19)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
