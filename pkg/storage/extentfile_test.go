package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nscat/pkg/alloc"
	"nscat/pkg/diskloc"
)

func openTestFile(t *testing.T) *File {
	t.Helper()
	f, err := OpenFile(filepath.Join(t.TempDir(), "data.0"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestAllocExtentNeverReturnsNullLoc(t *testing.T) {
	f := openTestFile(t)
	loc, err := f.AllocExtent(64)
	require.NoError(t, err)
	assert.True(t, loc.IsValid(), "first allocated extent must not be diskloc.Null")
}

func TestAllocExtentChainsXNextXPrev(t *testing.T) {
	f := openTestFile(t)
	first, err := f.AllocExtent(64)
	require.NoError(t, err)
	second, err := f.AllocExtent(64)
	require.NoError(t, err)

	firstExt, err := f.Extent(first)
	require.NoError(t, err)
	secondExt, err := f.Extent(second)
	require.NoError(t, err)

	assert.Equal(t, second, firstExt.XNext)
	assert.Equal(t, first, secondExt.XPrev)
	assert.False(t, secondExt.XNext.IsValid())
}

func TestExtentCapacityAtLeastSizeHint(t *testing.T) {
	f := openTestFile(t)
	loc, err := f.AllocExtent(128)
	require.NoError(t, err)
	ext, err := f.Extent(loc)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ext.Capacity, int64(128))
}

func TestDeletedRecordRoundTrip(t *testing.T) {
	f := openTestFile(t)
	loc, err := f.AllocExtent(64)
	require.NoError(t, err)

	dr := alloc.DeletedRecord{Next: diskloc.Null, ExtentLoc: loc, Length: 48}
	require.NoError(t, f.WriteDeleted(loc, dr))

	got, err := f.ReadDeleted(loc)
	require.NoError(t, err)
	assert.Equal(t, dr, got)
}

func TestExtentsReturnsSelf(t *testing.T) {
	f := openTestFile(t)
	assert.Same(t, f, f.Extents())
}

func TestReopenPreservesSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.0")

	f1, err := OpenFile(path)
	require.NoError(t, err)
	loc, err := f1.AllocExtent(256)
	require.NoError(t, err)
	require.NoError(t, f1.Sync())
	require.NoError(t, f1.Close())

	f2, err := OpenFile(path)
	require.NoError(t, err)
	defer f2.Close()

	ext, err := f2.Extent(loc)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ext.Capacity, int64(256))
}
