package catalog

import (
	"bytes"
	"encoding/binary"
	"sync"
)

// OverflowRecord holds the index descriptor slots beyond a Record's inline
// NIndexesBase capacity (spec.md §3 Overflow record). Overflow records form
// a singly linked list rooted at the namespace record via Record.ExtraOffset
// and OverflowRecord.Next; up to two are addressable, yielding
// 10 + 30 + 30 = 70 physical slots with a logical cap of NIndexesMax (64).
type OverflowRecord struct {
	Indexes [NIndexesExtra]IndexDescriptor

	// Next is the catalog slot index of the second overflow record, or
	// -1 if none. Re-expressed as a slot index into the catalog's slot
	// table rather than raw pointer arithmetic; see Record.ExtraOffset.
	Next int64
}

// NewOverflowRecord returns a zero-valued overflow record with no chained
// second overflow record.
func NewOverflowRecord() *OverflowRecord { return &OverflowRecord{Next: -1} }

// MarshalBinary encodes the overflow record in the same fixed-width style
// as Record.
func (o *OverflowRecord) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	for _, d := range o.Indexes {
		d.marshal(&buf)
	}
	binary.Write(&buf, binary.LittleEndian, o.Next)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a previously marshaled overflow record.
func (o *OverflowRecord) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	for i := range o.Indexes {
		d, err := unmarshalIndexDescriptor(rd)
		if err != nil {
			return err
		}
		o.Indexes[i] = d
	}
	return binary.Read(rd, binary.LittleEndian, &o.Next)
}

// overflowRecordSizeOnce computes the fixed number of bytes
// OverflowRecord.MarshalBinary produces, memoized for the same reason as
// recordSizeOnce: no package-level init() ordering to depend on once
// catalog.go needs both sizes to pick the catalog's slot width.
var overflowRecordSizeOnce = sync.OnceValue(func() int {
	o := &OverflowRecord{}
	b, err := o.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return len(b)
})

// OverflowRecordSize returns the fixed encoded size of an OverflowRecord.
func OverflowRecordSize() int { return overflowRecordSizeOnce() }

// legacyOverflowRecordSizeOnce computes the fixed number of bytes
// legacyOverflowRecord.unmarshal expects, so the catalog's slot width stays
// wide enough to hold a not-yet-migrated overflow record even though its
// leading reserved uint64 makes it 8 bytes wider than the current
// OverflowRecord layout (its two trailing reserved uint32 fields take the
// same 8 bytes that Next takes in the current layout).
var legacyOverflowRecordSizeOnce = sync.OnceValue(func() int {
	var buf bytes.Buffer
	var legacy legacyOverflowRecord
	binary.Write(&buf, binary.LittleEndian, legacy.reserved1)
	for _, d := range legacy.indexes {
		d.marshal(&buf)
	}
	binary.Write(&buf, binary.LittleEndian, legacy.reserved2)
	binary.Write(&buf, binary.LittleEndian, legacy.reserved3)
	return buf.Len()
})

// legacyOverflowRecordSize returns the fixed encoded size of a
// legacyOverflowRecord.
func legacyOverflowRecordSize() int { return legacyOverflowRecordSizeOnce() }

// legacyOverflowRecord models the pre-migration on-disk layout
// (original_source/db/namespace.h's ExtraOld): 30 descriptors with no Next
// chain pointer, preceded by a reserved uint64 and followed by two reserved
// uint32 fields. checkMigrateLocked upgrades the overflow record of any
// Record still tagged with legacyDataFileVersion to the current
// OverflowRecord layout by dropping the reserved fields and setting Next
// to -1 (no second overflow record).
type legacyOverflowRecord struct {
	reserved1 uint64
	indexes   [NIndexesExtra]IndexDescriptor
	reserved2 uint32
	reserved3 uint32
}

func (o *legacyOverflowRecord) unmarshal(data []byte) error {
	rd := bytes.NewReader(data)
	if err := binary.Read(rd, binary.LittleEndian, &o.reserved1); err != nil {
		return err
	}
	for i := range o.indexes {
		d, err := unmarshalIndexDescriptor(rd)
		if err != nil {
			return err
		}
		o.indexes[i] = d
	}
	if err := binary.Read(rd, binary.LittleEndian, &o.reserved2); err != nil {
		return err
	}
	return binary.Read(rd, binary.LittleEndian, &o.reserved3)
}

func (o *legacyOverflowRecord) upgrade() *OverflowRecord {
	up := &OverflowRecord{Next: -1}
	up.Indexes = o.indexes
	return up
}

// legacyDataFileVersion marks a Record as still using the pre-upgrade
// overflow layout; checkMigrateLocked bumps this to currentDataFileVersion
// once the upgrade has run. We preserve whichever table/layout an existing
// file was written with and upgrade lazily rather than rebuilding eagerly.
const (
	legacyDataFileVersion  uint16 = 4
	currentDataFileVersion uint16 = 5
)
