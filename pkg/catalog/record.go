// Package catalog implements the namespace catalog: the on-disk directory
// of collections and their fixed-size metadata records (spec.md §3, §4.1,
// §4.3), grounded on original_source/db/namespace.h's NamespaceDetails /
// NamespaceIndex and on the teacher's pkg/catalog package layout (one file
// per concern: catalog.go orchestrates, index.go/record.go/overflow.go hold
// the record shapes).
package catalog

import (
	"bytes"
	"encoding/binary"
	"sync"

	"nscat/pkg/dberror"
	"nscat/pkg/diskloc"
)

// Buckets is the number of deleted-record free-list heads a namespace
// record carries (spec.md §3).
const Buckets = 19

// MaxBucket is the last valid bucket index.
const MaxBucket = Buckets - 1

// NIndexesBase is the number of index descriptor slots inline in a
// NamespaceRecord.
const NIndexesBase = 10

// NIndexesExtra is the number of additional slots one OverflowRecord
// carries.
const NIndexesExtra = 30

// NIndexesMax is the logical cap on indexes per namespace, regardless of
// how many overflow records are addressable.
const NIndexesMax = 64

// Flag bits for NamespaceRecord.Flags.
const (
	FlagHaveIDIndex          uint32 = 1 << 0
	FlagCappedDisallowDelete uint32 = 1 << 1
)

// maxIndexNameLen and maxKeyFields/maxFieldNameLen bound the fixed-width
// encoding of one IndexDescriptor; an index with a longer name or a
// compound key wider than these bounds is rejected by NewIndexDescriptor
// with a User error rather than silently truncated.
const (
	maxIndexNameLen  = 48
	maxKeyFields     = 8
	maxFieldNameLen  = 24
)

// IndexDescriptor is one inline index slot within a NamespaceRecord or
// OverflowRecord: a key pattern (ordered field names) plus the flags the
// allocator and planner need. The descriptor deliberately does not carry
// the full index specification (storage engine, collation, partial-index
// filter) — that lives in the compiled index-spec cache (pkg/transient),
// which is the out-of-scope "index spec" collaborator spec.md §3 names.
type IndexDescriptor struct {
	name       [maxIndexNameLen]byte
	numFields  int8
	fields     [maxKeyFields][maxFieldNameLen]byte
	unique     bool
	sparse     bool
	background bool
	isID       bool
}

// NewIndexDescriptor builds a descriptor for an index named name over the
// ordered key fields. Returns a User error if name or any field name does
// not fit the fixed-width encoding.
func NewIndexDescriptor(name string, keyFields []string, unique, sparse, isID bool) (IndexDescriptor, error) {
	var d IndexDescriptor
	if len(name) >= maxIndexNameLen {
		return d, dberror.Userf("catalog", "index name too long (max %d): %q", maxIndexNameLen-1, name)
	}
	if len(keyFields) == 0 || len(keyFields) > maxKeyFields {
		return d, dberror.Userf("catalog", "index key pattern must have 1..%d fields, got %d", maxKeyFields, len(keyFields))
	}
	copy(d.name[:], name)
	d.numFields = int8(len(keyFields))
	for i, f := range keyFields {
		if len(f) >= maxFieldNameLen {
			return d, dberror.Userf("catalog", "index field name too long (max %d): %q", maxFieldNameLen-1, f)
		}
		copy(d.fields[i][:], f)
	}
	d.unique = unique
	d.sparse = sparse
	d.isID = isID
	return d, nil
}

// Name returns the index's name.
func (d IndexDescriptor) Name() string { return cstr(d.name[:]) }

// KeyPattern returns the ordered key field names.
func (d IndexDescriptor) KeyPattern() []string {
	out := make([]string, d.numFields)
	for i := range out {
		out[i] = cstr(d.fields[i][:])
	}
	return out
}

// Unique reports whether the index enforces uniqueness.
func (d IndexDescriptor) Unique() bool { return d.unique }

// Sparse reports whether the index omits documents missing the key field.
func (d IndexDescriptor) Sparse() bool { return d.sparse }

// Background reports whether the index was built without blocking writers.
func (d IndexDescriptor) Background() bool { return d.background }

// IsIDIndex reports whether this is the identity index.
func (d IndexDescriptor) IsIDIndex() bool { return d.isID }

// IsZero reports whether the descriptor slot is unused.
func (d IndexDescriptor) IsZero() bool { return d.numFields == 0 }

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func (d IndexDescriptor) marshal(w *bytes.Buffer) {
	w.Write(d.name[:])
	w.WriteByte(byte(d.numFields))
	for _, f := range d.fields {
		w.Write(f[:])
	}
	w.WriteByte(boolByte(d.unique))
	w.WriteByte(boolByte(d.sparse))
	w.WriteByte(boolByte(d.background))
	w.WriteByte(boolByte(d.isID))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func unmarshalIndexDescriptor(r *bytes.Reader) (IndexDescriptor, error) {
	var d IndexDescriptor
	if _, err := r.Read(d.name[:]); err != nil {
		return d, err
	}
	nb, err := r.ReadByte()
	if err != nil {
		return d, err
	}
	d.numFields = int8(nb)
	for i := range d.fields {
		if _, err := r.Read(d.fields[i][:]); err != nil {
			return d, err
		}
	}
	flags := make([]byte, 4)
	if _, err := r.Read(flags); err != nil {
		return d, err
	}
	d.unique = flags[0] != 0
	d.sparse = flags[1] != 0
	d.background = flags[2] != 0
	d.isID = flags[3] != 0
	return d, nil
}

// Record is the persistent metadata for one collection: spec.md §3's
// NamespaceRecord. Conceptually fixed-size (the original layout pinned
// this at 496 bytes); this Go encoding targets the same fields and
// semantics rather than bit-for-bit parity with the C++ struct packing, so
// RecordSize below is whatever the fixed-width encoding below actually
// produces, not literally 496.
type Record struct {
	FirstExtent diskloc.Loc
	LastExtent  diskloc.Loc

	// DeletedList holds one free-list head per bucket (general
	// collections) or is reinterpreted per spec.md §3 for capped
	// collections: index 0 chains all deleted records, index 1 points
	// at the last record of the extent preceding the wraparound extent.
	DeletedList [Buckets]diskloc.Loc

	DataSize       int64
	NRecords       int64
	LastExtentSize int32
	NIndexes       int32

	Indexes [NIndexesBase]IndexDescriptor

	Capped        bool
	Max           int64
	PaddingFactor float64
	Flags         uint32

	CapExtent         diskloc.Loc
	CapFirstNewRecord diskloc.Loc

	// CapExtentUsed is the write cursor: the offset from the start of
	// CapExtent where the next capped record (or wrap-padding entry) will
	// be written. Reset to 0 whenever CapExtent advances to the next
	// extent in the ring.
	CapExtentUsed int64

	// CapLiveBytes is the total footprint (header plus data, including any
	// wrap-padding entries) of every record currently live in CapExtent.
	// ext.Capacity - CapLiveBytes is the extent's true free space, which
	// deleteOldest grows and advanceCapExtent resets to 0.
	CapLiveBytes int64

	// CapOldest and CapNewest are the head and tail of CapExtent's FIFO of
	// live record headers, linked via each header's Next field. deleteOldest
	// reclaims from CapOldest; new allocations link in at CapNewest. Both
	// are reset to an invalid Loc whenever CapExtent advances.
	CapOldest diskloc.Loc
	CapNewest diskloc.Loc

	DataFileVersion  uint16
	IndexFileVersion uint16

	MultiKeyIndexBits uint64

	BackgroundIndexBuildInProgress bool

	// ExtraOffset is the catalog slot index of the first OverflowRecord,
	// or -1 if none. It is re-expressed as an index into the catalog's
	// slot table rather than raw pointer arithmetic, per the DESIGN
	// NOTES; unlike the original's 0-is-null convention, slot 0 is a
	// valid index here, so absence uses -1.
	ExtraOffset int64
}

// NewRecord builds a zero-value record with PaddingFactor initialized to
// 1.0 (no padding) and, for capped collections, Max set from maxObjects (0
// = unlimited).
func NewRecord(capped bool, maxObjects int64) *Record {
	return &Record{
		Capped:          capped,
		Max:             maxObjects,
		PaddingFactor:   1.0,
		ExtraOffset:     -1,
		DataFileVersion: currentDataFileVersion,
	}
}

// NIndexesBeingBuilt returns NIndexes plus one if a background index build
// is in progress, matching nIndexesBeingBuilt() in the original.
func (r *Record) NIndexesBeingBuilt() int32 {
	if r.BackgroundIndexBuildInProgress {
		return r.NIndexes + 1
	}
	return r.NIndexes
}

// HasIDIndex reports the Flag_HaveIdIndex bit.
func (r *Record) HasIDIndex() bool { return r.Flags&FlagHaveIDIndex != 0 }

// CappedDisallowDelete reports the Flag_CappedDisallowDelete bit.
func (r *Record) CappedDisallowDelete() bool { return r.Flags&FlagCappedDisallowDelete != 0 }

// SetCappedDisallowDelete sets the Flag_CappedDisallowDelete bit.
func (r *Record) SetCappedDisallowDelete() { r.Flags |= FlagCappedDisallowDelete }

// AboutToDeleteAnIndex clears Flag_HaveIdIndex, matching the original's
// conservative invalidation on any index drop.
func (r *Record) AboutToDeleteAnIndex() { r.Flags &^= FlagHaveIDIndex }

// IsMultikey reports whether index slot i has been observed to produce
// more than one key per document.
func (r *Record) IsMultikey(i int) bool {
	dberror.Assert(i < NIndexesMax, "catalog", "isMultikey: index out of range")
	return r.MultiKeyIndexBits&(1<<uint(i)) != 0
}

// SetIndexIsMultikey marks index slot i as multi-key. Bits are only ever
// set, never cleared, while the index exists (spec.md §3 invariant);
// clearing happens only via ClearIndexIsMultikey, called from index drop.
func (r *Record) SetIndexIsMultikey(i int) {
	dberror.Assert(i < NIndexesMax, "catalog", "setIndexIsMultikey: index out of range")
	r.MultiKeyIndexBits |= 1 << uint(i)
}

// ClearIndexIsMultikey clears the multi-key bit for index slot i. Callers
// must only invoke this from the index-drop path.
func (r *Record) ClearIndexIsMultikey(i int) {
	dberror.Assert(i < NIndexesMax, "catalog", "clearIndexIsMultikey: index out of range")
	r.MultiKeyIndexBits &^= 1 << uint(i)
}

// CapLooped reports whether a capped collection's ring has wrapped at
// least once (CapFirstNewRecord has been computed).
func (r *Record) CapLooped() bool {
	return r.Capped && r.CapFirstNewRecord.IsValid()
}

// PaddingFits decreases the padding factor by 0.01, floored at 1.0, called
// when an allocation fit its bucket without requiring a split or growth.
func (r *Record) PaddingFits() {
	x := r.PaddingFactor - 0.01
	if x < 1.0 {
		x = 1.0
	}
	r.PaddingFactor = x
}

// PaddingTooSmall increases the padding factor by 0.6, ceilinged at 2.0,
// called when an allocation required growing an extent or splitting an
// oversized free record.
func (r *Record) PaddingTooSmall() {
	x := r.PaddingFactor + 0.6
	if x > 2.0 {
		x = 2.0
	}
	r.PaddingFactor = x
}

// Bucket returns the free-list bucket index for an allocation of n bytes,
// given the catalog-wide monotone bucketSizes table: the smallest i with
// bucketSizes[i] > n, saturating at MaxBucket.
func Bucket(n int64, bucketSizes []int64) int {
	for i, sz := range bucketSizes {
		if sz > n {
			return i
		}
	}
	return MaxBucket
}

// recordSizeOnce computes the fixed number of bytes Record.MarshalBinary
// produces, memoized so the catalog's hash-table slot size is fixed
// regardless of IndexDescriptor packing changes.
var recordSizeOnce = sync.OnceValue(func() int {
	r := &Record{}
	b, err := r.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return len(b)
})

// RecordSize returns the fixed encoded size of a Record.
func RecordSize() int { return recordSizeOnce() }

// MarshalBinary encodes the record in a fixed-width little-endian layout.
func (r *Record) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	writeLoc(&buf, r.FirstExtent)
	writeLoc(&buf, r.LastExtent)
	for _, d := range r.DeletedList {
		writeLoc(&buf, d)
	}
	binary.Write(&buf, binary.LittleEndian, r.DataSize)
	binary.Write(&buf, binary.LittleEndian, r.NRecords)
	binary.Write(&buf, binary.LittleEndian, r.LastExtentSize)
	binary.Write(&buf, binary.LittleEndian, r.NIndexes)
	for _, d := range r.Indexes {
		d.marshal(&buf)
	}
	buf.WriteByte(boolByte(r.Capped))
	binary.Write(&buf, binary.LittleEndian, r.Max)
	binary.Write(&buf, binary.LittleEndian, r.PaddingFactor)
	binary.Write(&buf, binary.LittleEndian, r.Flags)
	writeLoc(&buf, r.CapExtent)
	writeLoc(&buf, r.CapFirstNewRecord)
	binary.Write(&buf, binary.LittleEndian, r.CapExtentUsed)
	binary.Write(&buf, binary.LittleEndian, r.CapLiveBytes)
	writeLoc(&buf, r.CapOldest)
	writeLoc(&buf, r.CapNewest)
	binary.Write(&buf, binary.LittleEndian, r.DataFileVersion)
	binary.Write(&buf, binary.LittleEndian, r.IndexFileVersion)
	binary.Write(&buf, binary.LittleEndian, r.MultiKeyIndexBits)
	buf.WriteByte(boolByte(r.BackgroundIndexBuildInProgress))
	binary.Write(&buf, binary.LittleEndian, r.ExtraOffset)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a record previously produced by MarshalBinary.
func (r *Record) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	var err error
	if r.FirstExtent, err = readLoc(rd); err != nil {
		return err
	}
	if r.LastExtent, err = readLoc(rd); err != nil {
		return err
	}
	for i := range r.DeletedList {
		if r.DeletedList[i], err = readLoc(rd); err != nil {
			return err
		}
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.DataSize); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.NRecords); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.LastExtentSize); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.NIndexes); err != nil {
		return err
	}
	for i := range r.Indexes {
		d, err := unmarshalIndexDescriptor(rd)
		if err != nil {
			return err
		}
		r.Indexes[i] = d
	}
	cappedByte, err := rd.ReadByte()
	if err != nil {
		return err
	}
	r.Capped = cappedByte != 0
	if err = binary.Read(rd, binary.LittleEndian, &r.Max); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.PaddingFactor); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.Flags); err != nil {
		return err
	}
	if r.CapExtent, err = readLoc(rd); err != nil {
		return err
	}
	if r.CapFirstNewRecord, err = readLoc(rd); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.CapExtentUsed); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.CapLiveBytes); err != nil {
		return err
	}
	if r.CapOldest, err = readLoc(rd); err != nil {
		return err
	}
	if r.CapNewest, err = readLoc(rd); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.DataFileVersion); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.IndexFileVersion); err != nil {
		return err
	}
	if err = binary.Read(rd, binary.LittleEndian, &r.MultiKeyIndexBits); err != nil {
		return err
	}
	bgByte, err := rd.ReadByte()
	if err != nil {
		return err
	}
	r.BackgroundIndexBuildInProgress = bgByte != 0
	if err = binary.Read(rd, binary.LittleEndian, &r.ExtraOffset); err != nil {
		return err
	}
	return nil
}

func writeLoc(buf *bytes.Buffer, l diskloc.Loc) {
	binary.Write(buf, binary.LittleEndian, l.FileID)
	binary.Write(buf, binary.LittleEndian, l.Offset)
}

func readLoc(r *bytes.Reader) (diskloc.Loc, error) {
	var l diskloc.Loc
	if err := binary.Read(r, binary.LittleEndian, &l.FileID); err != nil {
		return l, err
	}
	if err := binary.Read(r, binary.LittleEndian, &l.Offset); err != nil {
		return l, err
	}
	return l, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	cp := *r
	return &cp
}
