package snmp

import (
	"fmt"
	"strconv"
	"strings"
)

// OID represents an SNMP Object Identifier: an ordered sequence of
// unsigned 32-bit sub-identifiers. OIDs are immutable once constructed;
// mutating operations return new values.
type OID []uint32

// String returns the dotted-decimal string representation.
func (o OID) String() string {
	if len(o) == 0 {
		return ""
	}
	parts := make([]string, len(o))
	for i, n := range o {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return strings.Join(parts, ".")
}

// ParseOID parses an OID in dotted-decimal form. A symbolic form of the
// shape "name" or "name.idx1.idx2..." is resolved against the default MIB
// registry.
func ParseOID(s string) (OID, error) {
	return ParseOIDWith(s, DefaultMIB())
}

// ParseOIDWith parses an OID, resolving symbolic names against the given
// registry. A nil registry disables symbolic resolution.
func ParseOIDWith(s string, mib *MIB) (OID, error) {
	if s == "" {
		return nil, ErrInvalidOID
	}

	s = strings.TrimPrefix(s, ".")

	// Symbolic form: leading component is not a number.
	if first, _, _ := strings.Cut(s, "."); first != "" {
		if _, err := strconv.ParseUint(first, 10, 32); err != nil && mib != nil {
			return mib.resolveSymbolic(s)
		}
	}

	parts := strings.Split(s, ".")
	oid := make(OID, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: component %q", ErrInvalidOID, p)
		}
		oid[i] = uint32(n)
	}

	if err := oid.Validate(); err != nil {
		return nil, err
	}
	return oid, nil
}

// MustParseOID parses an OID string and panics on error.
func MustParseOID(s string) OID {
	oid, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// Validate checks structural validity: non-empty, and when a second arc
// exists the first must be 0, 1, or 2, with the second below 40 for
// first arcs 0 and 1.
func (o OID) Validate() error {
	if len(o) == 0 {
		return ErrInvalidOID
	}
	if len(o) >= 2 {
		if o[0] > 2 {
			return fmt.Errorf("%w: first arc %d out of range", ErrInvalidOID, o[0])
		}
		if o[0] < 2 && o[1] > 39 {
			return fmt.Errorf("%w: second arc %d out of range for first arc %d", ErrInvalidOID, o[1], o[0])
		}
	}
	return nil
}

// Equal checks if two OIDs are equal.
func (o OID) Equal(other OID) bool {
	if len(o) != len(other) {
		return false
	}
	for i, n := range o {
		if n != other[i] {
			return false
		}
	}
	return true
}

// Compare orders OIDs lexicographically: -1 when o < other, 0 when equal,
// 1 when o > other. A proper prefix sorts before its extensions.
func (o OID) Compare(other OID) int {
	n := len(o)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		switch {
		case o[i] < other[i]:
			return -1
		case o[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	}
	return 0
}

// HasPrefix checks if the OID starts with the given prefix.
func (o OID) HasPrefix(prefix OID) bool {
	if len(prefix) > len(o) {
		return false
	}
	for i, n := range prefix {
		if n != o[i] {
			return false
		}
	}
	return true
}

// Append returns a new OID with the given sub-identifiers appended.
func (o OID) Append(subs ...uint32) OID {
	out := make(OID, 0, len(o)+len(subs))
	out = append(out, o...)
	out = append(out, subs...)
	return out
}

// Parent returns the OID with the last sub-identifier removed, or nil for
// single-arc OIDs.
func (o OID) Parent() OID {
	if len(o) <= 1 {
		return nil
	}
	return o[:len(o)-1].Copy()
}

// Child returns the OID extended by a single index.
func (o OID) Child(index uint32) OID {
	return o.Append(index)
}

// Suffix returns the sub-identifiers remaining after the given prefix, or
// nil when prefix does not apply.
func (o OID) Suffix(prefix OID) OID {
	if !o.HasPrefix(prefix) {
		return nil
	}
	return o[len(prefix):].Copy()
}

// Copy returns a copy of the OID.
func (o OID) Copy() OID {
	c := make(OID, len(o))
	copy(c, o)
	return c
}
