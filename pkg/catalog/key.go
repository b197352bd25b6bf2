package catalog

import "nscat/pkg/dberror"

// KeySize is the fixed width of the on-disk namespace key buffer.
const KeySize = 128

// killedMarker is written as the key's first byte to mark a slot deleted,
// matching Namespace::kill()'s use of 0x7F.
const killedMarker = 0x7f

// Key is the fixed 128-byte zero-terminated on-disk hash key for one
// catalog slot (spec.md §3 Namespace key).
type Key [KeySize]byte

// NewKey builds a Key from a namespace name. Returns a User error if ns
// does not fit the fixed-width buffer (name must be strictly shorter than
// KeySize so a NUL terminator fits).
func NewKey(ns string) (Key, error) {
	var k Key
	if len(ns) >= KeySize {
		return k, dberror.Userf("catalog", "ns name too long, max size is %d: %q", KeySize, ns)
	}
	copy(k[:], ns)
	return k, nil
}

// String returns the namespace name the key encodes.
func (k Key) String() string {
	return cstr(k[:])
}

// Kill marks the slot as deleted in place.
func (k *Key) Kill() { k[0] = killedMarker }

// IsKilled reports whether the slot has been marked deleted.
func (k Key) IsKilled() bool { return k[0] == killedMarker }

// Hash computes the catalog's hash-table bucket for this key: a Horner
// polynomial h = h*131 + byte over the bytes up to the NUL terminator,
// masked to 31 bits and then OR'd with a high bit so the result is never
// zero (spec.md §3).
func (k Key) Hash() uint32 {
	var h uint32
	for _, b := range k[:] {
		if b == 0 {
			break
		}
		h = h*131 + uint32(b)
	}
	return (h & 0x7fffffff) | 0x8000000
}

// ExtraName returns the reserved overflow-slot name <ns>$extra<n> for
// n in {0, 1}.
func ExtraName(ns string, n int) (string, error) {
	if n < 0 || n > 1 {
		return "", dberror.New(dberror.Invariant, 0, "ExtraName: n must be 0 or 1")
	}
	suffix := "$extra0"
	if n == 1 {
		suffix = "$extra1"
	}
	s := ns + suffix
	if len(s) >= KeySize {
		return "", dberror.New(dberror.Invariant, 0, "$extra: ns name too long")
	}
	return s, nil
}
