package catalog

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nscat/pkg/config"
	"nscat/pkg/dberror"
	"nscat/pkg/internal/mmap"
	"nscat/pkg/logging"
	"nscat/pkg/nsname"
)

// CodeCatalogFull is the dberror.Resource code raised when Add cannot find
// a reusable or never-used slot before its probe wraps the whole table
// (spec.md §4.1 Failure semantics).
const CodeCatalogFull = 17001

const headerMagic uint32 = 0x6e736361 // "nsca"
const headerVersion uint16 = 1

// header is the fixed preamble written at offset 0 of the mapping file: the
// bucket-size table a catalog was created with, persisted rather than
// re-derived, per DESIGN.md's Open Question decision that an existing
// file's table must be honored even if pkg/config's default changes later.
type header struct {
	Magic       uint32
	Version     uint16
	Capacity    int32
	BucketSizes [Buckets]int64
}

func (h *header) marshal() ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range []any{h.Magic, h.Version, h.Capacity, h.BucketSizes} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (h *header) unmarshal(data []byte) error {
	r := bytes.NewReader(data)
	for _, v := range []any{&h.Magic, &h.Version, &h.Capacity, &h.BucketSizes} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

var headerSizeOnce = sync.OnceValue(func() int {
	b, err := (&header{}).marshal()
	if err != nil {
		panic(err)
	}
	return len(b)
})

func headerSize() int { return headerSizeOnce() }

// slotValueSizeOnce is the padded width shared by Record, OverflowRecord,
// and the legacy overflow layout so all three fit the catalog's uniform
// hash-table slot, mirroring NamespaceDetails::Extra's binary compatibility
// with NamespaceDetails in the original layout. The legacy layout must stay
// in the running even though nothing in this module still writes it,
// because checkMigrateLocked has to be able to read one left behind by an
// older version of the on-disk file.
var slotValueSizeOnce = sync.OnceValue(func() int {
	max := RecordSize()
	if os := OverflowRecordSize(); os > max {
		max = os
	}
	if ls := legacyOverflowRecordSize(); ls > max {
		max = ls
	}
	return max
})

// SlotValueSize returns the fixed number of value bytes every catalog slot
// reserves, large enough for either a Record or an OverflowRecord.
func SlotValueSize() int { return slotValueSizeOnce() }

func slotSize() int { return KeySize + SlotValueSize() }

// Catalog is the namespace catalog: a chained open-addressing hash table
// embedded in a memory-mapped file (spec.md §4.1). One Catalog maps to one
// database's ".ns" file.
type Catalog struct {
	mu       sync.RWMutex
	path     string
	mapping  *mmap.Mapping
	capacity int32
	buckets  [Buckets]int64
}

// Exists reports whether the catalog's backing file is present, without
// mapping it.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Init is idempotent: it creates the mapping file sized to cfg.Capacity
// slots on first call, creating the parent directory first when
// cfg.DirectoryPerDB is set, and otherwise opens the existing file.
func Init(cfg *config.Engine, path string) (*Catalog, error) {
	if Exists(path) {
		return Open(path)
	}

	if cfg.DirectoryPerDB {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, dberror.Wrap(err, "Init", "catalog")
		}
	}

	var bs [Buckets]int64
	for i, v := range cfg.BucketSizes {
		bs[i] = int64(v)
	}
	h := &header{Magic: headerMagic, Version: headerVersion, Capacity: int32(cfg.Capacity), BucketSizes: bs}
	hb, err := h.marshal()
	if err != nil {
		return nil, dberror.Wrap(err, "Init", "catalog")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return Open(path)
		}
		return nil, dberror.Wrap(err, "Init", "catalog")
	}

	total := int64(len(hb)) + int64(cfg.Capacity)*int64(slotSize())
	if err := f.Truncate(total); err != nil {
		f.Close()
		return nil, dberror.Wrap(err, "Init", "catalog")
	}
	if _, err := f.WriteAt(hb, 0); err != nil {
		f.Close()
		return nil, dberror.Wrap(err, "Init", "catalog")
	}
	if err := f.Close(); err != nil {
		return nil, dberror.Wrap(err, "Init", "catalog")
	}

	logging.WithComponent("catalog").Infow("catalog initialized",
		"path", path, "capacity", cfg.Capacity)
	return Open(path)
}

// Open maps an existing catalog file and reads its header.
func Open(path string) (*Catalog, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, dberror.Wrap(err, "Open", "catalog")
	}

	h := &header{}
	if err := h.unmarshal(m.Bytes()[:headerSize()]); err != nil {
		m.Close()
		return nil, dberror.Wrap(err, "Open", "catalog")
	}
	if h.Magic != headerMagic {
		m.Close()
		return nil, dberror.New(dberror.Fatal, 0, "catalog: bad header magic, file is not a namespace catalog")
	}

	return &Catalog{path: path, mapping: m, capacity: h.Capacity, buckets: h.BucketSizes}, nil
}

// Close unmaps the catalog's backing file.
func (c *Catalog) Close() error { return c.mapping.Close() }

// Sync flushes the mapping's dirty pages to disk.
func (c *Catalog) Sync() error { return c.mapping.Sync() }

// Capacity returns the fixed number of slots this catalog reserves.
func (c *Catalog) Capacity() int32 { return c.capacity }

// BucketSizes returns the free-list bucket-size table this catalog was
// created with.
func (c *Catalog) BucketSizes() []int64 { return c.buckets[:] }

func (c *Catalog) slotOffset(i int32) int64 {
	return int64(headerSize()) + int64(i)*int64(slotSize())
}

func (c *Catalog) readSlotKey(i int32) Key {
	off := c.slotOffset(i)
	var k Key
	copy(k[:], c.mapping.Bytes()[off:off+KeySize])
	return k
}

func (c *Catalog) readValue(i int32) []byte {
	off := c.slotOffset(i) + KeySize
	out := make([]byte, SlotValueSize())
	copy(out, c.mapping.Bytes()[off:off+int64(SlotValueSize())])
	return out
}

func (c *Catalog) writeSlot(i int32, k Key, value []byte) error {
	if len(value) > SlotValueSize() {
		return dberror.New(dberror.Invariant, 0, "catalog: encoded value exceeds slot width")
	}
	off := c.slotOffset(i)
	b := c.mapping.Bytes()
	copy(b[off:off+KeySize], k[:])
	valOff := off + KeySize
	region := b[valOff : valOff+int64(SlotValueSize())]
	for j := range region {
		region[j] = 0
	}
	copy(region, value)
	return nil
}

func (c *Catalog) writeKey(i int32, k Key) {
	off := c.slotOffset(i)
	copy(c.mapping.Bytes()[off:off+KeySize], k[:])
}

// probe walks the open-addressed chain for key starting at its hash bucket.
// It reports a live match if found. Otherwise it reports the first
// reusable slot along the chain — the earliest killed slot seen, or the
// first never-used slot if no killed slot was seen first — for Add to
// write into. full is true when the entire table was scanned without
// finding either a never-used or a killed slot, meaning there is no room
// left at all.
func (c *Catalog) probe(key Key) (matchIdx int32, matched bool, insertIdx int32, haveInsert bool, full bool) {
	capacity := c.capacity
	start := int32(key.Hash() % uint32(capacity))
	for step := int32(0); step < capacity; step++ {
		idx := (start + step) % capacity
		slotKey := c.readSlotKey(idx)

		switch {
		case slotKey == (Key{}):
			if !haveInsert {
				insertIdx, haveInsert = idx, true
			}
			return 0, false, insertIdx, haveInsert, false
		case slotKey.IsKilled():
			if !haveInsert {
				insertIdx, haveInsert = idx, true
			}
		case slotKey == key:
			return idx, true, 0, false, false
		}
	}
	return 0, false, insertIdx, haveInsert, !haveInsert
}

// Add inserts a new (ns, value) entry. value must already be encoded to
// Catalog's slot width or smaller (Record.MarshalBinary / OverflowRecord.
// MarshalBinary output). Returns the slot index written.
func (c *Catalog) Add(ns string, value []byte) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := NewKey(ns)
	if err != nil {
		return 0, err
	}

	matchIdx, matched, insertIdx, haveInsert, full := c.probe(key)
	if matched {
		return matchIdx, dberror.Userf("catalog", "namespace already exists: %s", ns)
	}
	if !haveInsert || full {
		return 0, dberror.New(dberror.Resource, CodeCatalogFull, "catalog: table is full, cannot add "+ns)
	}
	if err := c.writeSlot(insertIdx, key, value); err != nil {
		return 0, err
	}
	return insertIdx, nil
}

// Get looks up ns and, on a hit, decodes and returns its Record along with
// the slot index it lives at. checkMigrateLocked runs on every successful
// lookup so any legacy-layout overflow record it chains to is upgraded
// lazily and idempotently (spec.md §4.1).
func (c *Catalog) Get(ns string) (*Record, int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := NewKey(ns)
	if err != nil {
		return nil, 0, err
	}

	idx, matched, _, _, _ := c.probe(key)
	if !matched {
		return nil, 0, nil
	}

	rec := &Record{}
	if err := rec.UnmarshalBinary(c.readValue(idx)); err != nil {
		return nil, 0, dberror.Wrap(err, "Get", "catalog")
	}
	if err := c.checkMigrateLocked(ns, rec); err != nil {
		return nil, 0, err
	}
	if err := c.writeSlot(idx, key, mustMarshal(rec)); err != nil {
		return nil, 0, err
	}
	return rec, idx, nil
}

// GetAt decodes the value at a known slot index as a Record, bypassing the
// probe. Used by index iteration once a slot has already been resolved.
func (c *Catalog) GetAt(idx int32) (*Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec := &Record{}
	if err := rec.UnmarshalBinary(c.readValue(idx)); err != nil {
		return nil, dberror.Wrap(err, "GetAt", "catalog")
	}
	return rec, nil
}

// PutAt overwrites the value at a known slot index, preserving its key.
// Used to persist in-place mutations made to a Record or OverflowRecord
// obtained via Get/GetAt/overflowAt.
func (c *Catalog) PutAt(idx int32, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.putAtLocked(idx, value)
}

// putAtLocked is PutAt's body, for callers that already hold c.mu (the
// write lock, per util/concurrency/locks.h's alreadyHaveLock convention).
func (c *Catalog) putAtLocked(idx int32, value []byte) error {
	key := c.readSlotKey(idx)
	return c.writeSlot(idx, key, value)
}

// Kill marks ns's primary slot and its two reserved overflow slots
// (<ns>$extra0, <ns>$extra1) as deleted, per spec.md §4.1. Missing overflow
// slots are not an error; ns itself not existing is.
func (c *Catalog) Kill(ns string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.killOne(ns, true); err != nil {
		return err
	}
	for n := 0; n < 2; n++ {
		extra, err := ExtraName(ns, n)
		if err != nil {
			return err
		}
		if err := c.killOne(extra, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) killOne(name string, required bool) error {
	key, err := NewKey(name)
	if err != nil {
		return err
	}
	idx, matched, _, _, _ := c.probe(key)
	if !matched {
		if required {
			return dberror.Userf("catalog", "namespace not found: %s", name)
		}
		return nil
	}
	killed := key
	killed.Kill()
	c.writeKey(idx, killed)
	return nil
}

// NewOverflow allocates one overflow record by inserting a synthetic
// namespace <ns>$extra<n> for n in {0, 1} and returns the slot index it
// was written at.
func (c *Catalog) NewOverflow(ns string, n int, rec *OverflowRecord) (int32, error) {
	name, err := ExtraName(ns, n)
	if err != nil {
		return 0, err
	}
	b, err := rec.MarshalBinary()
	if err != nil {
		return 0, dberror.Wrap(err, "NewOverflow", "catalog")
	}
	return c.Add(name, b)
}

// overflowAt decodes the value at idx as an OverflowRecord.
func (c *Catalog) overflowAt(idx int32) (*OverflowRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overflowAtLocked(idx)
}

// overflowAtLocked is overflowAt's body, for callers that already hold
// c.mu, per util/concurrency/locks.h's alreadyHaveLock convention for its
// rwlock scope guard.
func (c *Catalog) overflowAtLocked(idx int32) (*OverflowRecord, error) {
	o := &OverflowRecord{}
	if err := o.UnmarshalBinary(c.readValue(idx)); err != nil {
		return nil, dberror.Wrap(err, "overflowAt", "catalog")
	}
	return o, nil
}

// ListNames enumerates live namespace names. When onlyCollections is true,
// names whose collection portion is the catalog's own overflow bookkeeping
// ($extra0/$extra1) or otherwise contains "$" are excluded, per spec.md
// §4.1.
func (c *Catalog) ListNames(onlyCollections bool) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for i := int32(0); i < c.capacity; i++ {
		key := c.readSlotKey(i)
		if key == (Key{}) || key.IsKilled() {
			continue
		}
		name := key.String()
		if onlyCollections {
			if nsname.IsReservedOverflowName(name) {
				continue
			}
			if coll := nsname.Parse(name).Coll; strings.Contains(coll, "$") {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}

// checkMigrateLocked performs a one-shot in-place upgrade of any legacy
// overflow chain rooted at rec, following namespace.h's NamespaceDetails
// migration pattern, keyed on the record's data-file version. Idempotent: a
// record already at currentDataFileVersion is left untouched. Callers must
// already hold c.mu for writing (only Get, which holds it for its whole
// body, calls this); it and everything it calls use the lock-free
// "Locked" helpers to avoid re-entering the non-reentrant c.mu, per
// util/concurrency/locks.h's alreadyHaveLock convention.
func (c *Catalog) checkMigrateLocked(ns string, rec *Record) error {
	if rec.DataFileVersion != legacyDataFileVersion {
		return nil
	}
	if rec.ExtraOffset >= 0 {
		if err := c.migrateOverflowLocked(int32(rec.ExtraOffset)); err != nil {
			return err
		}
	}
	rec.DataFileVersion = currentDataFileVersion
	logging.WithNamespace(ns).Infow("catalog: migrated legacy data file version",
		"from", legacyDataFileVersion, "to", currentDataFileVersion)
	return nil
}

// migrateOverflowLocked re-decodes the raw bytes at idx using the legacy
// overflow layout and rewrites them in the current OverflowRecord layout.
// Callers must already hold c.mu for writing.
func (c *Catalog) migrateOverflowLocked(idx int32) error {
	raw := c.readValue(idx)

	legacy := &legacyOverflowRecord{}
	if err := legacy.unmarshal(raw); err != nil {
		return dberror.Wrap(err, "migrateOverflow", "catalog")
	}
	upgraded := legacy.upgrade()
	b, err := upgraded.MarshalBinary()
	if err != nil {
		return dberror.Wrap(err, "migrateOverflow", "catalog")
	}
	return c.putAtLocked(idx, b)
}

func mustMarshal(rec encoding.BinaryMarshaler) []byte {
	b, err := rec.MarshalBinary()
	if err != nil {
		dberror.Assert(false, "catalog", "Record.MarshalBinary failed for a record that previously decoded cleanly")
	}
	return b
}
