// Package storage provides a minimal concrete implementation of the
// diskloc.ExtentManager and alloc.Store collaborator contracts pkg/alloc
// and pkg/catalog consume but do not implement (spec.md §6): a single
// growable data file holding a sequence of fixed extents, each itself
// holding a singly linked free-list of DeletedRecord headers once its
// space has been handed to the allocator. Grounded on the extent
// growth-by-append/chaining behavior implied by original_source/db/
// namespace.h's NamespaceDetails::alloc/addDeletedRec (extents appended
// and linked via xnext/xprev, never relocated) and on the teacher's
// pkg/storage/heap page file's read/write-at-offset style, generalized
// from fixed 4 KB pages to variable-size extents.
package storage

import (
	"encoding/binary"
	"os"
	"sync"

	"nscat/pkg/alloc"
	"nscat/pkg/dberror"
	"nscat/pkg/diskloc"
)

// extentHeaderSize is the fixed encoding of one extent header: Loc (8) +
// FirstRecord (8) + LastRecord (8) + Capacity (8) + XNext (8) + XPrev (8).
const extentHeaderSize = 48

// growIncrement is the minimum number of bytes each AllocExtent call adds
// to the backing file. Every call grows the file; the new extent's usable
// capacity is exactly the requested size, and any remainder of the
// increment stays unused, since the next extent starts at the file's
// current end.
const growIncrement = 1 << 20 // 1 MiB

// File is a single growable data file: one diskloc.FileID's worth of
// extents and the DeletedRecord headers the allocator writes into them.
// Every location it hands out uses FileID 0; multi-file growth (the
// original's "there's always a new file, numbered .0, .1, ...") is out of
// scope here — a single growable file serves the same role for this
// module's purposes, per DESIGN.md's extent-manager Open Question decision.
type File struct {
	mu   sync.Mutex
	f    *os.File
	size int64
	last diskloc.Loc // the last extent allocated, for XPrev linkage
}

// OpenFile opens (creating if absent) a growable data file at path.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberror.Wrap(err, "OpenFile", "storage")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberror.Wrap(err, "OpenFile", "storage")
	}
	size := fi.Size()
	if size == 0 {
		// Reserve the first extentHeaderSize bytes as dead space: offset 0
		// at FileID 0 is diskloc.Null, so no real extent may start there.
		if err := f.Truncate(extentHeaderSize); err != nil {
			f.Close()
			return nil, dberror.Wrap(err, "OpenFile", "storage")
		}
		size = extentHeaderSize
	}
	return &File{f: f, size: size}, nil
}

// Close releases the underlying file handle.
func (d *File) Close() error { return d.f.Close() }

// AllocExtent reserves a new extent with sizeHint bytes of usable
// (post-header) capacity at the end of the file, growing the file by at
// least growIncrement, and links it into the chain after the previously
// allocated extent.
func (d *File) AllocExtent(sizeHint int64) (diskloc.Loc, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	need := extentHeaderSize + sizeHint
	offset := d.size
	grow := need
	if grow < growIncrement {
		grow = growIncrement
	}
	if err := d.f.Truncate(offset + grow); err != nil {
		return diskloc.Null, dberror.Wrap(err, "AllocExtent", "storage")
	}
	d.size = offset + grow

	loc := diskloc.Loc{FileID: 0, Offset: int32(offset)}
	ext := diskloc.Extent{
		Loc:         loc,
		FirstRecord: diskloc.Loc{FileID: 0, Offset: int32(offset + extentHeaderSize)},
		LastRecord:  diskloc.Loc{FileID: 0, Offset: int32(offset + extentHeaderSize)},
		Capacity:    need - extentHeaderSize,
		XPrev:       d.last,
	}
	if err := d.writeExtentHeader(loc, ext); err != nil {
		return diskloc.Null, err
	}
	if d.last.IsValid() {
		prev, err := d.readExtentHeader(d.last)
		if err != nil {
			return diskloc.Null, err
		}
		prev.XNext = loc
		if err := d.writeExtentHeader(d.last, prev); err != nil {
			return diskloc.Null, err
		}
	}
	d.last = loc
	return loc, nil
}

// Extent resolves a previously allocated extent's physical bounds.
func (d *File) Extent(loc diskloc.Loc) (diskloc.Extent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readExtentHeader(loc)
}

func (d *File) writeExtentHeader(loc diskloc.Loc, ext diskloc.Extent) error {
	buf := make([]byte, extentHeaderSize)
	putLoc(buf[0:8], ext.Loc)
	putLoc(buf[8:16], ext.FirstRecord)
	putLoc(buf[16:24], ext.LastRecord)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(ext.Capacity))
	putLoc(buf[32:40], ext.XNext)
	putLoc(buf[40:48], ext.XPrev)
	if _, err := d.f.WriteAt(buf, int64(loc.Offset)); err != nil {
		return dberror.Wrap(err, "writeExtentHeader", "storage")
	}
	return nil
}

func (d *File) readExtentHeader(loc diskloc.Loc) (diskloc.Extent, error) {
	buf := make([]byte, extentHeaderSize)
	if _, err := d.f.ReadAt(buf, int64(loc.Offset)); err != nil {
		return diskloc.Extent{}, dberror.Wrap(err, "readExtentHeader", "storage")
	}
	return diskloc.Extent{
		Loc:         getLoc(buf[0:8]),
		FirstRecord: getLoc(buf[8:16]),
		LastRecord:  getLoc(buf[16:24]),
		Capacity:    int64(binary.LittleEndian.Uint64(buf[24:32])),
		XNext:       getLoc(buf[32:40]),
		XPrev:       getLoc(buf[40:48]),
	}, nil
}

func putLoc(b []byte, l diskloc.Loc) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(l.FileID))
	binary.LittleEndian.PutUint32(b[4:8], uint32(l.Offset))
}

func getLoc(b []byte) diskloc.Loc {
	return diskloc.Loc{FileID: int32(binary.LittleEndian.Uint32(b[0:4])), Offset: int32(binary.LittleEndian.Uint32(b[4:8]))}
}

// deletedRecordSize is DeletedRecord's fixed encoding: Next (8) +
// ExtentLoc (8) + Length (4).
const deletedRecordSize = 20

// Extents implements alloc.Store, returning the File itself as its own
// diskloc.ExtentManager.
func (d *File) Extents() diskloc.ExtentManager { return d }

// ReadDeleted decodes the DeletedRecord header at loc.
func (d *File) ReadDeleted(loc diskloc.Loc) (alloc.DeletedRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, deletedRecordSize)
	if _, err := d.f.ReadAt(buf, int64(loc.Offset)); err != nil {
		return alloc.DeletedRecord{}, dberror.Wrap(err, "ReadDeleted", "storage")
	}
	return alloc.DeletedRecord{
		Next:      getLoc(buf[0:8]),
		ExtentLoc: getLoc(buf[8:16]),
		Length:    int32(binary.LittleEndian.Uint32(buf[16:20])),
	}, nil
}

// WriteDeleted encodes and writes a DeletedRecord header at loc.
func (d *File) WriteDeleted(loc diskloc.Loc, dr alloc.DeletedRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, deletedRecordSize)
	putLoc(buf[0:8], dr.Next)
	putLoc(buf[8:16], dr.ExtentLoc)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(dr.Length))
	if _, err := d.f.WriteAt(buf, int64(loc.Offset)); err != nil {
		return dberror.Wrap(err, "WriteDeleted", "storage")
	}
	return nil
}

// Sync flushes the data file to stable storage.
func (d *File) Sync() error { return d.f.Sync() }
