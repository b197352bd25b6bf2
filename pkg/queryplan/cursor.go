package queryplan

import "nscat/pkg/diskloc"

// Cursor is the forward/reverse iterator contract pkg/queryplan consumes
// but does not implement (spec.md §6): a real cursor walks either an
// index's key order or a collection's natural order, and knows how to
// re-anchor itself if the record it was positioned on moves or is deleted.
type Cursor interface {
	// OK reports whether Current refers to a live record.
	OK() bool

	// Advance moves to the next record, returning false once exhausted.
	Advance() bool

	// Current returns the location of the record the cursor is on.
	Current() diskloc.Loc

	// CurrKey returns the index key the cursor is positioned at, or nil
	// for a collection-scan cursor.
	CurrKey() any

	// CurrLoc is an alias for Current kept distinct from it so a cursor
	// type can special-case "key without yet having resolved a location"
	// for an exact-key-match plan.
	CurrLoc() diskloc.Loc

	// NoteLocation records the cursor's current position so a concurrent
	// delete or move of that record can be detected and compensated for
	// before the next Advance (spec.md §4.7).
	NoteLocation()

	// CheckLocation re-validates the position NoteLocation last recorded,
	// re-seeking the cursor if the underlying record moved.
	CheckLocation()
}

// Matcher tests a candidate document against one clause's conditions. Not
// every plan's index coverage is exact, so a cursor's results may still
// need re-testing against the clause that produced it.
type Matcher interface {
	Matches(doc any) bool
}

// ClauseCursor pairs a cursor with the matcher for the clause it was
// built from.
type ClauseCursor struct {
	Cursor  Cursor
	Matcher Matcher
}

// MultiCursor presents a sequence of per-clause cursors (the winners a
// MultiPlanScanner raced, one per $or clause) as a single forward
// iterator, switching to the next clause's cursor as each is exhausted
// (spec.md §4.7). It does not filter repeated locations itself; GetSetDup
// lets a caller detect a location it has already been handed.
type MultiCursor struct {
	clauses []ClauseCursor
	idx     int
	seen    map[diskloc.Loc]struct{}
}

// NewMultiCursor returns a MultiCursor over clauses in order.
func NewMultiCursor(clauses []ClauseCursor) *MultiCursor {
	return &MultiCursor{clauses: clauses, seen: make(map[diskloc.Loc]struct{})}
}

// advanceClause skips over exhausted clause cursors, leaving idx on the
// first one still live, or past the end if none remain.
func (m *MultiCursor) advanceClause() bool {
	for m.idx < len(m.clauses) {
		if m.clauses[m.idx].Cursor.OK() {
			return true
		}
		m.idx++
	}
	return false
}

// OK reports whether the cursor has a current record.
func (m *MultiCursor) OK() bool { return m.advanceClause() }

// Advance moves to the next record, switching clauses as needed.
func (m *MultiCursor) Advance() bool {
	if !m.advanceClause() {
		return false
	}
	if m.clauses[m.idx].Cursor.Advance() {
		return true
	}
	return m.advanceClause()
}

// Current returns the active clause cursor's current location.
func (m *MultiCursor) Current() diskloc.Loc {
	if !m.advanceClause() {
		return diskloc.Null
	}
	return m.clauses[m.idx].Cursor.Current()
}

// CurrKey returns the active clause cursor's current key.
func (m *MultiCursor) CurrKey() any {
	if !m.advanceClause() {
		return nil
	}
	return m.clauses[m.idx].Cursor.CurrKey()
}

// CurrLoc returns the active clause cursor's current location.
func (m *MultiCursor) CurrLoc() diskloc.Loc {
	if !m.advanceClause() {
		return diskloc.Null
	}
	return m.clauses[m.idx].Cursor.CurrLoc()
}

// NoteLocation delegates to the active clause cursor.
func (m *MultiCursor) NoteLocation() {
	if m.advanceClause() {
		m.clauses[m.idx].Cursor.NoteLocation()
	}
}

// CheckLocation delegates to the active clause cursor.
func (m *MultiCursor) CheckLocation() {
	if m.advanceClause() {
		m.clauses[m.idx].Cursor.CheckLocation()
	}
}

// CurrentMatcher returns the matcher belonging to the clause currently
// being iterated, or nil once exhausted.
func (m *MultiCursor) CurrentMatcher() Matcher {
	if !m.advanceClause() {
		return nil
	}
	return m.clauses[m.idx].Matcher
}

// GetSetDup reports whether loc has already been passed to GetSetDup on
// this MultiCursor, from any clause, recording it if this is the first
// time — the duplicate suppression the original calls getsetdup.
// Because MultiPlanScanner's per-clause queries are already mutually
// exclusive by construction, a repeat is expected only when a single
// clause's own cursor revisits a location, e.g. after a capped collection
// wrap.
func (m *MultiCursor) GetSetDup(loc diskloc.Loc) bool {
	if _, dup := m.seen[loc]; dup {
		return true
	}
	m.seen[loc] = struct{}{}
	return false
}
