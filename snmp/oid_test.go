package snmp

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.3.6.1.2.1.1.1.0", "1.3.6.1.2.1.1.1.0"},
		{".1.3.6.1.2.1", "1.3.6.1.2.1"},
		{"0.0", "0.0"},
		{"2.999.4294967295", "2.999.4294967295"},
	}

	for _, tt := range tests {
		oid, err := ParseOID(tt.in)
		require.NoError(t, err, "parsing %q", tt.in)
		assert.Equal(t, tt.want, oid.String())
	}
}

func TestParseOIDInvalid(t *testing.T) {
	tests := []string{
		"",
		"1.3.abc.1",
		"1.-3.6",
		"1.3.4294967296",  // sub-id overflow
		"3.1.6",           // first arc > 2
		"1.40.1",          // second arc out of range for first arc 1
		"noSuchSymbol.1",  // unknown name
	}

	for _, in := range tests {
		_, err := ParseOID(in)
		require.ErrorIs(t, err, ErrInvalidOID, "parsing %q", in)
	}
}

func TestParseOIDSymbolic(t *testing.T) {
	oid, err := ParseOID("sysDescr.0")
	require.NoError(t, err)
	assert.Equal(t, "1.3.6.1.2.1.1.1.0", oid.String())

	oid, err = ParseOID("ifTable")
	require.NoError(t, err)
	assert.Equal(t, "1.3.6.1.2.1.2.2", oid.String())

	oid, err = ParseOID("ifDescr.3")
	require.NoError(t, err)
	assert.Equal(t, "1.3.6.1.2.1.2.2.1.2.3", oid.String())
}

func TestOIDCompareTotalOrder(t *testing.T) {
	oids := []OID{
		MustParseOID("1.3"),
		MustParseOID("1.3.6"),
		MustParseOID("1.3.6.1"),
		MustParseOID("1.3.6.2"),
		MustParseOID("1.3.7"),
		MustParseOID("2.1"),
	}

	// Already sorted; sorting must be a no-op and comparisons coherent.
	sorted := make([]OID, len(oids))
	copy(sorted, oids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })

	for i := range oids {
		assert.True(t, oids[i].Equal(sorted[i]), "index %d", i)
	}

	for i, a := range oids {
		for j, b := range oids {
			c := a.Compare(b)
			switch {
			case i < j:
				assert.Equal(t, -1, c, "%s vs %s", a, b)
			case i > j:
				assert.Equal(t, 1, c, "%s vs %s", a, b)
			default:
				assert.Equal(t, 0, c, "%s vs %s", a, b)
			}
			// Antisymmetry.
			assert.Equal(t, -c, b.Compare(a))
		}
	}
}

func TestOIDPrefixImpliesOrder(t *testing.T) {
	a := MustParseOID("1.3.6.1.2.1")
	bs := []OID{
		MustParseOID("1.3.6.1.2.1"),
		MustParseOID("1.3.6.1.2.1.1"),
		MustParseOID("1.3.6.1.2.1.1.1.0"),
	}

	for _, b := range bs {
		assert.True(t, b.HasPrefix(a))
		assert.LessOrEqual(t, a.Compare(b), 0, "prefix must sort at or before %s", b)
	}

	assert.False(t, MustParseOID("1.3.6.1.2").HasPrefix(a))
	assert.False(t, MustParseOID("1.3.6.1.3.1").HasPrefix(a))
}

func TestOIDManipulation(t *testing.T) {
	base := MustParseOID("1.3.6.1")

	child := base.Child(2)
	assert.Equal(t, "1.3.6.1.2", child.String())
	// The receiver is unchanged.
	assert.Equal(t, "1.3.6.1", base.String())

	appended := base.Append(2, 1, 1)
	assert.Equal(t, "1.3.6.1.2.1.1", appended.String())

	parent := appended.Parent()
	assert.Equal(t, "1.3.6.1.2.1", parent.String())

	suffix := appended.Suffix(base)
	assert.Equal(t, "2.1.1", OID(suffix).String())
	assert.Nil(t, base.Suffix(appended))

	var single OID = []uint32{1}
	assert.Nil(t, single.Parent())
}

func TestOIDCopyIsolation(t *testing.T) {
	orig := MustParseOID("1.3.6.1")
	cp := orig.Copy()
	cp[3] = 99
	assert.Equal(t, "1.3.6.1", orig.String())
}

func TestOIDValidate(t *testing.T) {
	assert.Error(t, OID{}.Validate())
	assert.NoError(t, OID{1}.Validate())
	assert.NoError(t, OID{1, 3, 6}.Validate())
	assert.NoError(t, OID{2, 100}.Validate())
	assert.Error(t, OID{3, 1}.Validate())
	assert.Error(t, OID{0, 40}.Validate())
}
