// Package alloc implements the record allocator: bucketed free-list
// allocation for ordinary collections and ring allocation for capped
// collections, grounded on NamespaceDetails's __stdAlloc/__capAlloc/alloc
// declared in original_source/db/namespace.h, and on the teacher's
// pkg/storage/heap page allocator for the Go doc-comment register
// (Parameters/Returns) this package follows.
package alloc

import (
	"nscat/pkg/catalog"
	"nscat/pkg/dberror"
	"nscat/pkg/diskloc"
	"nscat/pkg/logging"
)

// CodeCappedFull is raised when a capped collection cannot make room for a
// new record because Flag_CappedDisallowDelete forbids deleting the
// oldest record to free space.
const CodeCappedFull = 17002

// CodeExtentAllocationFailed is raised when the extent manager cannot
// satisfy a request for a new extent.
const CodeExtentAllocationFailed = 17003

// DeletedRecord is one entry in a namespace's per-bucket free list: a
// length-tagged, singly linked run of free space within some extent.
type DeletedRecord struct {
	Next      diskloc.Loc
	ExtentLoc diskloc.Loc
	Length    int32
}

// Store is the record-level storage collaborator the allocator needs
// beyond diskloc.ExtentManager: reading and writing the DeletedRecord
// headers chained from a namespace Record's free-list bucket heads.
type Store interface {
	Extents() diskloc.ExtentManager
	ReadDeleted(loc diskloc.Loc) (DeletedRecord, error)
	WriteDeleted(loc diskloc.Loc, dr DeletedRecord) error
}

// Allocator allocates and frees fixed-location records for one database,
// sharing the bucket-size table its catalog was created with.
type Allocator struct {
	store         Store
	bucketSizes   []int64
	minSplitSlack int64
}

// New returns an Allocator backed by store, using bucketSizes (must have
// catalog.Buckets entries) to classify free-list buckets and minSplitSlack
// as the minimum excess before a selected free record is split.
func New(store Store, bucketSizes []int64, minSplitSlack int64) *Allocator {
	return &Allocator{store: store, bucketSizes: bucketSizes, minSplitSlack: minSplitSlack}
}

// Alloc reserves space for a record of lenRequested bytes within ns's
// Record, returning the location to write the record at and the extent it
// belongs to. Behavior forks on rec.Capped per spec.md §4.2.
func (a *Allocator) Alloc(ns string, rec *catalog.Record, lenRequested int64) (diskloc.Loc, diskloc.Loc, error) {
	if rec.Capped {
		return a.capAlloc(ns, rec, lenRequested)
	}
	return a.stdAlloc(ns, rec, lenRequested)
}

// stdAlloc implements __stdAlloc: pad the request, walk the free-list
// buckets from bucket(size) upward for the first fit, splitting an
// oversized fit or else growing a new extent, and adjust the padding
// factor based on how well the fit went.
func (a *Allocator) stdAlloc(ns string, rec *catalog.Record, lenRequested int64) (diskloc.Loc, diskloc.Loc, error) {
	size := paddedSize(lenRequested, rec.PaddingFactor)
	bucket := catalog.Bucket(size, a.bucketSizes)

	for b := bucket; b < catalog.Buckets; b++ {
		head := rec.DeletedList[b]
		var prev diskloc.Loc
		havePrev := false
		cur := head
		for cur.IsValid() {
			dr, err := a.store.ReadDeleted(cur)
			if err != nil {
				return diskloc.Null, diskloc.Null, dberror.Wrap(err, "stdAlloc", "alloc")
			}
			if int64(dr.Length) >= size {
				if !havePrev {
					rec.DeletedList[b] = dr.Next
				} else {
					prevDR, err := a.store.ReadDeleted(prev)
					if err != nil {
						return diskloc.Null, diskloc.Null, dberror.Wrap(err, "stdAlloc", "alloc")
					}
					prevDR.Next = dr.Next
					if err := a.store.WriteDeleted(prev, prevDR); err != nil {
						return diskloc.Null, diskloc.Null, dberror.Wrap(err, "stdAlloc", "alloc")
					}
				}

				if int64(dr.Length) > size+a.minSplitSlack {
					remainderLoc := diskloc.Loc{FileID: cur.FileID, Offset: cur.Offset + int32(size)}
					remainder := DeletedRecord{
						Next:      rec.DeletedList[catalog.Bucket(int64(dr.Length)-size, a.bucketSizes)],
						ExtentLoc: dr.ExtentLoc,
						Length:    dr.Length - int32(size),
					}
					if err := a.store.WriteDeleted(remainderLoc, remainder); err != nil {
						return diskloc.Null, diskloc.Null, dberror.Wrap(err, "stdAlloc", "alloc")
					}
					rb := catalog.Bucket(int64(remainder.Length), a.bucketSizes)
					rec.DeletedList[rb] = remainderLoc
					rec.PaddingTooSmall()
				} else {
					rec.PaddingFits()
				}

				rec.NRecords++
				rec.DataSize += lenRequested
				logging.WithBucket(ns, b).Debugw("alloc: reused deleted record", "size", size)
				return cur, dr.ExtentLoc, nil
			}
			next := dr.Next
			prev = cur
			havePrev = true
			cur = next
		}
	}

	extentLoc, err := a.store.Extents().AllocExtent(size)
	if err != nil {
		return diskloc.Null, diskloc.Null, dberror.New(dberror.Resource, CodeExtentAllocationFailed, "alloc: extent allocation failed: "+err.Error())
	}
	ext, err := a.store.Extents().Extent(extentLoc)
	if err != nil {
		return diskloc.Null, diskloc.Null, dberror.Wrap(err, "stdAlloc", "alloc")
	}
	rec.FirstExtent = extentLoc
	rec.LastExtent = extentLoc

	seedBucket := catalog.Bucket(ext.Capacity, a.bucketSizes)
	seed := DeletedRecord{Next: rec.DeletedList[seedBucket], ExtentLoc: extentLoc, Length: int32(ext.Capacity)}
	if err := a.store.WriteDeleted(ext.FirstRecord, seed); err != nil {
		return diskloc.Null, diskloc.Null, dberror.Wrap(err, "stdAlloc", "alloc")
	}
	rec.DeletedList[seedBucket] = ext.FirstRecord
	rec.PaddingTooSmall()

	logging.WithNamespace(ns).Infow("alloc: grew extent", "size_hint", size)
	return a.stdAlloc(ns, rec, lenRequested)
}

// capRecordHeaderSize is the fixed footprint of the bookkeeping header
// capAlloc writes immediately before every capped record's data (and
// before every wrap-padding entry), encoded via Store.WriteDeleted using
// DeletedRecord's Next+ExtentLoc+Length fields (8+8+4 bytes). A negative
// Length marks a padding entry rather than a real record.
const capRecordHeaderSize = 20

// capAlloc implements __capAlloc: the ring allocation policy for capped
// collections (spec.md §4.2). CapExtent's free space is tracked precisely
// as a true circular buffer: CapExtentUsed is the write cursor, and every
// live record (or wrap-padding entry) is linked into a FIFO running from
// rec.CapOldest to rec.CapNewest via its header's Next pointer. Deleting
// the oldest entry reclaims exactly its bytes, so per-record ring advance
// works within a single extent; CapExtent only advances to the next
// extent once CapOldest is invalid, meaning nothing more can be freed here.
func (a *Allocator) capAlloc(ns string, rec *catalog.Record, lenRequested int64) (diskloc.Loc, diskloc.Loc, error) {
	dataSize := paddedSize(lenRequested, rec.PaddingFactor)
	size := capRecordHeaderSize + dataSize

	if rec.Max > 0 && rec.NRecords >= rec.Max {
		if err := a.deleteOldest(ns, rec); err != nil {
			return diskloc.Null, diskloc.Null, err
		}
	}

	maxAttempts := int(rec.NRecords) + 8
	for attempts := 0; attempts < maxAttempts; attempts++ {
		ext, err := a.store.Extents().Extent(rec.CapExtent)
		if err != nil {
			return diskloc.Null, diskloc.Null, dberror.Wrap(err, "capAlloc", "alloc")
		}

		if rec.CapExtentUsed+size > ext.Capacity {
			if sliver := ext.Capacity - rec.CapExtentUsed; sliver >= capRecordHeaderSize {
				padLoc := diskloc.Loc{FileID: ext.FirstRecord.FileID, Offset: ext.FirstRecord.Offset + int32(rec.CapExtentUsed)}
				if err := a.appendCapEntry(rec, padLoc, sliver, false); err != nil {
					return diskloc.Null, diskloc.Null, err
				}
			}
			rec.CapExtentUsed = 0
		}

		if free := ext.Capacity - rec.CapLiveBytes; free < size {
			if rec.CappedDisallowDelete() {
				return diskloc.Null, diskloc.Null, dberror.New(dberror.User, CodeCappedFull,
					"alloc: capped collection full and deletes are disallowed: "+ns)
			}
			if !rec.CapOldest.IsValid() {
				if err := a.advanceCapExtent(rec, ext); err != nil {
					return diskloc.Null, diskloc.Null, err
				}
				continue
			}
			if err := a.deleteOldest(ns, rec); err != nil {
				return diskloc.Null, diskloc.Null, err
			}
			continue
		}

		headerLoc := diskloc.Loc{FileID: ext.FirstRecord.FileID, Offset: ext.FirstRecord.Offset + int32(rec.CapExtentUsed)}
		if err := a.appendCapEntry(rec, headerLoc, size, true); err != nil {
			return diskloc.Null, diskloc.Null, err
		}
		dataLoc := diskloc.Loc{FileID: headerLoc.FileID, Offset: headerLoc.Offset + capRecordHeaderSize}
		rec.CapExtentUsed += size
		rec.NRecords++
		rec.DataSize += lenRequested
		logging.WithNamespace(ns).Debugw("alloc: capped ring advanced", "used", rec.CapExtentUsed, "cap_extent", rec.CapExtent)
		return dataLoc, rec.CapExtent, nil
	}

	return diskloc.Null, diskloc.Null, dberror.New(dberror.Resource, CodeCappedFull,
		"alloc: capped collection could not free enough contiguous space: "+ns)
}

// appendCapEntry writes a header of the given footprint at loc and links it
// onto the tail of rec's current-extent FIFO, growing rec.CapLiveBytes.
// real is false for wrap-padding entries, which deleteOldest reclaims like
// any other entry but without touching NRecords or DataSize.
func (a *Allocator) appendCapEntry(rec *catalog.Record, loc diskloc.Loc, footprint int64, real bool) error {
	length := int32(footprint)
	if !real {
		length = -length
	}
	header := DeletedRecord{Next: diskloc.Null, Length: length}
	if err := a.store.WriteDeleted(loc, header); err != nil {
		return dberror.Wrap(err, "appendCapEntry", "alloc")
	}

	if rec.CapNewest.IsValid() {
		prev, err := a.store.ReadDeleted(rec.CapNewest)
		if err != nil {
			return dberror.Wrap(err, "appendCapEntry", "alloc")
		}
		prev.Next = loc
		if err := a.store.WriteDeleted(rec.CapNewest, prev); err != nil {
			return dberror.Wrap(err, "appendCapEntry", "alloc")
		}
	} else {
		rec.CapOldest = loc
	}
	rec.CapNewest = loc
	rec.CapLiveBytes += footprint
	return nil
}

// deleteOldest reclaims the oldest live entry in rec's current extent,
// advancing rec.CapOldest to the entry chained after it. A no-op if the
// current extent holds nothing live.
func (a *Allocator) deleteOldest(ns string, rec *catalog.Record) error {
	if !rec.CapOldest.IsValid() {
		return nil
	}
	header, err := a.store.ReadDeleted(rec.CapOldest)
	if err != nil {
		return dberror.Wrap(err, "deleteOldest", "alloc")
	}

	footprint := int64(header.Length)
	real := footprint >= 0
	if !real {
		footprint = -footprint
	}
	rec.CapLiveBytes -= footprint
	if real {
		if rec.NRecords > 0 {
			rec.NRecords--
		}
		if dataSize := footprint - capRecordHeaderSize; dataSize > 0 {
			rec.DataSize -= dataSize
		}
	}

	rec.CapOldest = header.Next
	if !rec.CapOldest.IsValid() {
		rec.CapNewest = diskloc.Null
	}
	logging.WithNamespace(ns).Debugw("alloc: deleted oldest capped record", "bytes_freed", footprint, "was_padding", !real)
	return nil
}

// advanceCapExtent moves CapExtent to the next extent in the ring (wrapping
// to FirstExtent), resets the current-extent cursor and FIFO, and
// recomputes CapFirstNewRecord to the new extent's first record so it
// always reflects where the ring most recently started writing, per the
// conservative recompute-on-every-advance rule.
func (a *Allocator) advanceCapExtent(rec *catalog.Record, ext diskloc.Extent) error {
	if ext.XNext.IsValid() {
		rec.CapExtent = ext.XNext
	} else {
		rec.CapExtent = rec.FirstExtent
	}
	next, err := a.store.Extents().Extent(rec.CapExtent)
	if err != nil {
		return dberror.Wrap(err, "advanceCapExtent", "alloc")
	}
	rec.CapFirstNewRecord = next.FirstRecord
	rec.CapExtentUsed = 0
	rec.CapLiveBytes = 0
	rec.CapOldest = diskloc.Null
	rec.CapNewest = diskloc.Null
	return nil
}

// CappedEntry is one live record reported by DumpCapped, ordered oldest to
// newest.
type CappedEntry struct {
	Loc    diskloc.Loc // the record's data location, as returned by Alloc
	Length int32       // the record's padded data length, excluding its header
}

// DumpCapped walks rec's current-extent FIFO from CapOldest to CapNewest,
// skipping the internal wrap-padding entries capAlloc writes when the ring
// wraps past the end of an extent. Diagnostic only.
func (a *Allocator) DumpCapped(rec *catalog.Record) ([]CappedEntry, error) {
	var out []CappedEntry
	cur := rec.CapOldest
	for cur.IsValid() {
		h, err := a.store.ReadDeleted(cur)
		if err != nil {
			return nil, dberror.Wrap(err, "DumpCapped", "alloc")
		}
		if h.Length >= 0 {
			out = append(out, CappedEntry{
				Loc:    diskloc.Loc{FileID: cur.FileID, Offset: cur.Offset + capRecordHeaderSize},
				Length: h.Length - capRecordHeaderSize,
			})
		}
		cur = h.Next
	}
	return out, nil
}

// paddedSize computes the requested allocation size with the namespace's
// current padding factor applied, per spec.md §4.2 step 1.
func paddedSize(lenRequested int64, paddingFactor float64) int64 {
	return int64(float64(lenRequested) * paddingFactor)
}

// DeletedEntry is one free-list entry reported by DumpDeleted, tagged with
// the bucket it lives in.
type DeletedEntry struct {
	Bucket int
	Loc    diskloc.Loc
	Record DeletedRecord
}

// DumpDeleted returns every free-list entry across all 19 buckets for rec,
// walking each bucket's chain from its head. Diagnostic only; callers must
// not mutate the returned entries' backing storage through any other path
// while iterating.
func (a *Allocator) DumpDeleted(rec *catalog.Record) ([]DeletedEntry, error) {
	var out []DeletedEntry
	for b, head := range rec.DeletedList {
		cur := head
		for cur.IsValid() {
			dr, err := a.store.ReadDeleted(cur)
			if err != nil {
				return nil, dberror.Wrap(err, "DumpDeleted", "alloc")
			}
			out = append(out, DeletedEntry{Bucket: b, Loc: cur, Record: dr})
			cur = dr.Next
		}
	}
	return out, nil
}
