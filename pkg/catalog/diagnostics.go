package catalog

import (
	"nscat/pkg/dberror"
	"nscat/pkg/diskloc"
	"nscat/pkg/nsname"
)

// IsClientWritable reports whether ns may be written to directly by an
// ordinary client, generalizing the original's legalClientSystemNS: any
// non-system.* collection is writable, and among system collections only
// the ones internal writers legitimately maintain (system.indexes,
// system.users) are, via writableSystemCollections.
func IsClientWritable(ns string) bool {
	parsed := nsname.Parse(ns)
	if !parsed.IsSystem() {
		return true
	}
	_, ok := writableSystemCollections[parsed.Coll]
	return ok
}

var writableSystemCollections = map[string]bool{
	"system.indexes": true,
	"system.users":   true,
}

// StorageSize reports the live data size and the total allocated extent
// capacity for a namespace, walking the extent chain via em. Diagnostic
// only, per SUPPLEMENTED FEATURES item 3.
func (c *Catalog) StorageSize(rec *Record, em diskloc.ExtentManager) (dataSize, allocated int64, err error) {
	dataSize = rec.DataSize
	loc := rec.FirstExtent
	for loc.IsValid() {
		ext, err := em.Extent(loc)
		if err != nil {
			return 0, 0, dberror.Wrap(err, "StorageSize", "catalog")
		}
		allocated += ext.Capacity
		loc = ext.XNext
	}
	return dataSize, allocated, nil
}

// FirstRecord returns the location of the first record in rec's first
// extent, or diskloc.Null if the namespace has no extents.
func (c *Catalog) FirstRecord(rec *Record, em diskloc.ExtentManager) (diskloc.Loc, error) {
	if !rec.FirstExtent.IsValid() {
		return diskloc.Null, nil
	}
	ext, err := em.Extent(rec.FirstExtent)
	if err != nil {
		return diskloc.Null, dberror.Wrap(err, "FirstRecord", "catalog")
	}
	return ext.FirstRecord, nil
}

// LastRecord returns the location of the last record in rec's last
// extent, or diskloc.Null if the namespace has no extents.
func (c *Catalog) LastRecord(rec *Record, em diskloc.ExtentManager) (diskloc.Loc, error) {
	if !rec.LastExtent.IsValid() {
		return diskloc.Null, nil
	}
	ext, err := em.Extent(rec.LastExtent)
	if err != nil {
		return diskloc.Null, dberror.Wrap(err, "LastRecord", "catalog")
	}
	return ext.LastRecord, nil
}

// InCapExtent reports whether loc falls within rec's current capped
// insertion extent.
func (c *Catalog) InCapExtent(rec *Record, loc diskloc.Loc, em diskloc.ExtentManager) (bool, error) {
	if !rec.Capped || !rec.CapExtent.IsValid() {
		return false, nil
	}
	ext, err := em.Extent(rec.CapExtent)
	if err != nil {
		return false, dberror.Wrap(err, "InCapExtent", "catalog")
	}
	return loc.FileID == ext.Loc.FileID &&
		loc.Offset >= ext.FirstRecord.Offset &&
		loc.Offset <= ext.LastRecord.Offset, nil
}

// Rename moves a namespace's record (and any overflow records it owns)
// from the slot named from to a new slot named to, per SUPPLEMENTED
// FEATURES item 4: the original's renameNamespace plus copyingFrom's
// extraOffset recomputation, since overflow records are addressed by
// catalog slot index rather than a pointer that would survive the move
// unmodified.
func (c *Catalog) Rename(from, to string) error {
	rec, _, err := c.Get(from)
	if err != nil {
		return err
	}
	if rec == nil {
		return dberror.Userf("catalog", "namespace not found: %s", from)
	}

	var overflows []*OverflowRecord
	cur := rec.ExtraOffset
	for cur >= 0 {
		o, err := c.overflowAt(int32(cur))
		if err != nil {
			return err
		}
		overflows = append(overflows, o)
		cur = o.Next
	}

	newRec := rec.Clone()
	newRec.ExtraOffset = -1
	if _, err := c.Add(to, mustMarshal(newRec)); err != nil {
		return err
	}

	prevOffset := int64(-1)
	for i := len(overflows) - 1; i >= 0; i-- {
		overflows[i].Next = prevOffset
		idx, err := c.NewOverflow(to, i, overflows[i])
		if err != nil {
			return err
		}
		prevOffset = int64(idx)
	}
	if prevOffset >= 0 {
		newRec.ExtraOffset = prevOffset
		if err := c.putByName(to, newRec); err != nil {
			return err
		}
	}

	return c.Kill(from)
}

func (c *Catalog) putByName(ns string, rec *Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, err := NewKey(ns)
	if err != nil {
		return err
	}
	idx, matched, _, _, _ := c.probe(key)
	if !matched {
		return dberror.Userf("catalog", "namespace not found: %s", ns)
	}
	return c.writeSlot(idx, key, mustMarshal(rec))
}
