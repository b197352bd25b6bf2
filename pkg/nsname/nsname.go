// Package nsname parses and validates the qualified database.collection
// namespace names used throughout the catalog.
package nsname

import (
	"strings"

	"nscat/pkg/dberror"
)

// MaxDatabaseLen is the maximum length of the database portion of a
// namespace name, including the terminator the on-disk format reserves for
// it.
const MaxDatabaseLen = 256

// MaxNsLen is the maximum length of a full namespace name; names must be
// strictly shorter than this (the on-disk key buffer is MaxNsLen bytes and
// must hold a NUL terminator).
const MaxNsLen = 128

// String is a parsed database.collection namespace name. The collection
// portion may itself contain '.' characters (e.g. "system.indexes"); only
// the first '.' separates database from collection.
type String struct {
	DB   string
	Coll string
}

// Parse splits a qualified namespace name into its database and collection
// portions. If ns contains no '.', DB is the whole string and Coll is
// empty, matching the original nsToDatabase behavior for a bare name.
func Parse(ns string) String {
	i := strings.IndexByte(ns, '.')
	if i < 0 {
		return String{DB: ns}
	}
	return String{DB: ns[:i], Coll: ns[i+1:]}
}

// NS reconstructs the full qualified name.
func (n String) NS() string {
	if n.Coll == "" {
		return n.DB
	}
	return n.DB + "." + n.Coll
}

// IsSystem reports whether the collection portion is a reserved
// system.* collection (system.indexes, system.namespaces, ...).
func (n String) IsSystem() bool {
	return strings.HasPrefix(n.Coll, "system.")
}

// Sister returns the namespace for a different collection in the same
// database, e.g. Parse("acme.orders").Sister("renamed") == "acme.renamed".
// local must not itself begin with '.'.
func (n String) Sister(local string) (string, error) {
	if local == "" || local[0] == '.' {
		return "", dberror.Userf("nsname", "sister collection name must not be empty or start with '.': %q", local)
	}
	return n.DB + "." + local, nil
}

// Database extracts just the database portion of a qualified name, without
// allocating a String.
func Database(ns string) string {
	i := strings.IndexByte(ns, '.')
	if i < 0 {
		return ns
	}
	return ns[:i]
}

// Validate checks the length invariants from spec.md §3: the database
// portion must be at most 255 characters and the full name must be
// strictly shorter than 128 characters.
func Validate(ns string) error {
	if len(ns) >= MaxNsLen {
		return dberror.Userf("nsname", "ns name too long, max size is %d: %q", MaxNsLen, ns)
	}
	db := Database(ns)
	if len(db) > MaxDatabaseLen-1 {
		dberror.Fatalf("nsname", "nsToDatabase: ns too long, terminating, buf overrun condition")
		return dberror.New(dberror.Fatal, 0, "nsToDatabase: ns too long, terminating, buf overrun condition")
	}
	return nil
}

// IsReservedOverflowName reports whether ns names a slot reserved for
// overflow-record storage (ns$extra0, ns$extra1, ...) and therefore may not
// be created directly by a client.
func IsReservedOverflowName(ns string) bool {
	for i := 0; i < 2; i++ {
		if strings.HasSuffix(ns, extraSuffix(i)) {
			return true
		}
	}
	return false
}

func extraSuffix(i int) string {
	b := []byte("$extra0")
	b[len(b)-1] = byte('0' + i)
	return string(b)
}
