package catalog

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nscat/pkg/config"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cfg := config.Default()
	cfg.Capacity = 64
	path := filepath.Join(t.TempDir(), "test.ns")
	cat, err := Init(cfg, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func TestInitIsIdempotent(t *testing.T) {
	cfg := config.Default()
	cfg.Capacity = 32
	path := filepath.Join(t.TempDir(), "idempotent.ns")

	first, err := Init(cfg, path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Init(cfg, path)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, int32(32), second.Capacity())
}

func TestAddGetRoundTrip(t *testing.T) {
	cat := openTestCatalog(t)
	rec := NewRecord(false, 0)
	rec.NIndexes = 1
	d, err := NewIndexDescriptor("_id_", []string{"_id"}, true, false, true)
	require.NoError(t, err)
	rec.Indexes[0] = d

	_, err = cat.Add("acme.orders", mustMarshal(rec))
	require.NoError(t, err)

	got, idx, err := cat.Get("acme.orders")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.GreaterOrEqual(t, idx, int32(0))
	assert.Equal(t, int32(1), got.NIndexes)
	assert.Equal(t, "_id_", got.Indexes[0].Name())
}

func TestAddRejectsDuplicateNamespace(t *testing.T) {
	cat := openTestCatalog(t)
	rec := NewRecord(false, 0)
	_, err := cat.Add("acme.orders", mustMarshal(rec))
	require.NoError(t, err)

	_, err = cat.Add("acme.orders", mustMarshal(rec))
	assert.Error(t, err)
}

func TestGetMissingNamespaceReturnsNilNoError(t *testing.T) {
	cat := openTestCatalog(t)
	rec, _, err := cat.Get("acme.nothere")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestKillRemovesNamespaceAndItsOverflowSlots(t *testing.T) {
	cat := openTestCatalog(t)
	rec := NewRecord(false, 0)
	_, err := cat.Add("acme.orders", mustMarshal(rec))
	require.NoError(t, err)

	require.NoError(t, cat.Kill("acme.orders"))

	got, _, err := cat.Get("acme.orders")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKillUnknownNamespaceErrors(t *testing.T) {
	cat := openTestCatalog(t)
	assert.Error(t, cat.Kill("acme.nothere"))
}

func TestKillAllowsReuseOfFreedSlot(t *testing.T) {
	cat := openTestCatalog(t)
	rec := NewRecord(false, 0)
	_, err := cat.Add("acme.orders", mustMarshal(rec))
	require.NoError(t, err)
	require.NoError(t, cat.Kill("acme.orders"))

	_, err = cat.Add("acme.orders", mustMarshal(rec))
	assert.NoError(t, err)
}

func TestListNamesExcludesOverflowAndDollarCollections(t *testing.T) {
	cat := openTestCatalog(t)
	rec := NewRecord(false, 0)
	_, err := cat.Add("acme.orders", mustMarshal(rec))
	require.NoError(t, err)
	_, err = cat.Add("acme.orders$extra0", mustMarshal(NewOverflowRecord()))
	require.NoError(t, err)

	all := cat.ListNames(false)
	assert.Contains(t, all, "acme.orders")
	assert.Contains(t, all, "acme.orders$extra0")

	onlyColls := cat.ListNames(true)
	assert.Contains(t, onlyColls, "acme.orders")
	assert.NotContains(t, onlyColls, "acme.orders$extra0")
}

func TestNewOverflowAndIndexIteratorSpanBaseAndOverflow(t *testing.T) {
	cat := openTestCatalog(t)
	rec := NewRecord(false, 0)

	overflow := NewOverflowRecord()
	d, err := NewIndexDescriptor("overflow_idx", []string{"x"}, false, false, false)
	require.NoError(t, err)
	overflow.Indexes[0] = d

	extraIdx, err := cat.NewOverflow("acme.wide", 0, overflow)
	require.NoError(t, err)
	rec.ExtraOffset = int64(extraIdx)
	rec.NIndexes = NIndexesBase + 1

	_, err = cat.Add("acme.wide", mustMarshal(rec))
	require.NoError(t, err)

	got, _, err := cat.Get("acme.wide")
	require.NoError(t, err)

	it := NewIndexIterator(cat, got)
	assert.Equal(t, NIndexesBase+1, it.Len())
	assert.Equal(t, "overflow_idx", it.At(NIndexesBase).Name())
	assert.Equal(t, NIndexesBase, it.FindByName("overflow_idx"))
}

func TestIndexIteratorFindByKeyPatternAndIDIndex(t *testing.T) {
	cat := openTestCatalog(t)
	rec := NewRecord(false, 0)
	rec.NIndexes = 2
	idDesc, err := NewIndexDescriptor("_id_", []string{"_id"}, true, false, true)
	require.NoError(t, err)
	rec.Indexes[0] = idDesc
	byEmail, err := NewIndexDescriptor("by_email", []string{"email"}, true, false, false)
	require.NoError(t, err)
	rec.Indexes[1] = byEmail

	_, err = cat.Add("acme.users", mustMarshal(rec))
	require.NoError(t, err)
	got, _, err := cat.Get("acme.users")
	require.NoError(t, err)

	it := NewIndexIterator(cat, got)
	assert.Equal(t, 0, it.FindIDIndex())
	assert.Equal(t, 1, it.FindByKeyPattern([]string{"email"}))
	assert.Equal(t, -1, it.FindByKeyPattern([]string{"nope"}))
}

func TestRenameCarriesOverflowRecordsAlong(t *testing.T) {
	cat := openTestCatalog(t)
	rec := NewRecord(false, 0)
	overflow := NewOverflowRecord()
	d, err := NewIndexDescriptor("overflow_idx", []string{"x"}, false, false, false)
	require.NoError(t, err)
	overflow.Indexes[0] = d
	extraIdx, err := cat.NewOverflow("acme.old", 0, overflow)
	require.NoError(t, err)
	rec.ExtraOffset = int64(extraIdx)
	rec.NIndexes = NIndexesBase + 1
	_, err = cat.Add("acme.old", mustMarshal(rec))
	require.NoError(t, err)

	require.NoError(t, cat.Rename("acme.old", "acme.new"))

	oldRec, _, err := cat.Get("acme.old")
	require.NoError(t, err)
	assert.Nil(t, oldRec)

	newRec, _, err := cat.Get("acme.new")
	require.NoError(t, err)
	require.NotNil(t, newRec)

	it := NewIndexIterator(cat, newRec)
	assert.Equal(t, "overflow_idx", it.At(NIndexesBase).Name())
}

// marshalLegacyOverflow encodes a legacyOverflowRecord by hand, since
// nothing else in this module still writes the pre-upgrade layout.
func marshalLegacyOverflow(t *testing.T, legacy *legacyOverflowRecord) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, legacy.reserved1))
	for _, idx := range legacy.indexes {
		idx.marshal(&buf)
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, legacy.reserved2))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, legacy.reserved3))
	return buf.Bytes()
}

// Get holds its write lock across the whole call, including the legacy
// migration it may trigger; this exercises that path end to end and would
// hang forever (rather than merely fail an assertion) if checkMigrateLocked
// or anything it calls ever re-acquired c.mu.
func TestGetMigratesLegacyOverflowWithoutDeadlock(t *testing.T) {
	cat := openTestCatalog(t)

	legacy := &legacyOverflowRecord{}
	d, err := NewIndexDescriptor("legacy_idx", []string{"x"}, false, false, false)
	require.NoError(t, err)
	legacy.indexes[0] = d

	extraIdx, err := cat.Add("acme.legacy$extra0", marshalLegacyOverflow(t, legacy))
	require.NoError(t, err)

	rec := NewRecord(false, 0)
	rec.DataFileVersion = legacyDataFileVersion
	rec.ExtraOffset = int64(extraIdx)
	rec.NIndexes = NIndexesBase + 1
	_, err = cat.Add("acme.legacy", mustMarshal(rec))
	require.NoError(t, err)

	got, _, err := cat.Get("acme.legacy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, currentDataFileVersion, got.DataFileVersion)

	it := NewIndexIterator(cat, got)
	assert.Equal(t, "legacy_idx", it.At(NIndexesBase).Name())

	// Migration is idempotent: a second Get must not re-trigger it or
	// choke on the now-current-layout overflow record.
	again, _, err := cat.Get("acme.legacy")
	require.NoError(t, err)
	assert.Equal(t, currentDataFileVersion, again.DataFileVersion)
}

func TestIsClientWritable(t *testing.T) {
	assert.True(t, IsClientWritable("acme.orders"))
	assert.True(t, IsClientWritable("acme.system.indexes"))
	assert.False(t, IsClientWritable("acme.system.profile"))
}
