package catalog

import (
	"nscat/pkg/dberror"
)

// IndexIterator walks the index descriptor slots of one namespace's Record,
// resolving across the base record and its (at most two) chained overflow
// records transparently, per spec.md §4.3.
type IndexIterator struct {
	cat *Catalog
	rec *Record

	overflow0 *OverflowRecord
	overflow1 *OverflowRecord
}

// NewIndexIterator builds an iterator over rec's index slots. The overflow
// records it chains to, if any, are resolved lazily on first use rather
// than eagerly here.
func NewIndexIterator(cat *Catalog, rec *Record) *IndexIterator {
	return &IndexIterator{cat: cat, rec: rec}
}

// Len returns the number of index slots currently in use.
func (it *IndexIterator) Len() int { return int(it.rec.NIndexes) }

// At resolves slot i to its IndexDescriptor, per spec.md §4.3's slot
// resolution rule:
//   - i < 10: inline in the namespace record.
//   - i-10 < 30: slot i-10 of the first overflow record.
//   - otherwise: slot i-40 of the second overflow record.
//
// A required overflow record that does not exist is a hard assertion
// failure: the caller asked for a slot NIndexes claims is populated.
func (it *IndexIterator) At(i int) IndexDescriptor {
	dberror.Assert(i >= 0 && i < NIndexesMax, "catalog", "index slot out of range")

	switch {
	case i < NIndexesBase:
		return it.rec.Indexes[i]
	case i-NIndexesBase < NIndexesExtra:
		o := it.firstOverflow()
		return o.Indexes[i-NIndexesBase]
	default:
		o := it.secondOverflow()
		return o.Indexes[i-NIndexesBase-NIndexesExtra]
	}
}

func (it *IndexIterator) firstOverflow() *OverflowRecord {
	if it.overflow0 != nil {
		return it.overflow0
	}
	dberror.Assert(it.rec.ExtraOffset >= 0, "catalog", "index slot requires a first overflow record that does not exist")
	o, err := it.cat.overflowAt(int32(it.rec.ExtraOffset))
	dberror.Assert(err == nil, "catalog", "first overflow record could not be read")
	it.overflow0 = o
	return o
}

func (it *IndexIterator) secondOverflow() *OverflowRecord {
	if it.overflow1 != nil {
		return it.overflow1
	}
	first := it.firstOverflow()
	dberror.Assert(first.Next >= 0, "catalog", "index slot requires a second overflow record that does not exist")
	o, err := it.cat.overflowAt(int32(first.Next))
	dberror.Assert(err == nil, "catalog", "second overflow record could not be read")
	it.overflow1 = o
	return o
}

// FindByName performs a linear scan for an index descriptor named n,
// returning its slot index or -1 if absent (spec.md §4.3).
func (it *IndexIterator) FindByName(n string) int {
	for i := 0; i < it.Len(); i++ {
		if it.At(i).Name() == n {
			return i
		}
	}
	return -1
}

// FindByKeyPattern performs a linear scan for an index whose ordered key
// field list exactly matches k, returning its slot index or -1 if absent.
func (it *IndexIterator) FindByKeyPattern(k []string) int {
	for i := 0; i < it.Len(); i++ {
		if stringsEqual(it.At(i).KeyPattern(), k) {
			return i
		}
	}
	return -1
}

// FindIDIndex returns the slot index of the first descriptor flagged as the
// identity index, or -1 if none.
func (it *IndexIterator) FindIDIndex() int {
	for i := 0; i < it.Len(); i++ {
		if it.At(i).IsIDIndex() {
			return i
		}
	}
	return -1
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
