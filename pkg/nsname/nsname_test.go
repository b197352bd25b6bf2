package nsname

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndNSRoundTrip(t *testing.T) {
	cases := []string{"acme.orders", "acme.system.indexes", "acme"}
	for _, ns := range cases {
		parsed := Parse(ns)
		assert.Equal(t, ns, parsed.NS(), "round trip for %q", ns)
	}
}

func TestParseSplitsOnFirstDotOnly(t *testing.T) {
	parsed := Parse("acme.system.indexes")
	assert.Equal(t, "acme", parsed.DB)
	assert.Equal(t, "system.indexes", parsed.Coll)
}

func TestParseBareNameHasEmptyCollection(t *testing.T) {
	parsed := Parse("acme")
	assert.Equal(t, "acme", parsed.DB)
	assert.Equal(t, "", parsed.Coll)
}

func TestIsSystem(t *testing.T) {
	assert.True(t, Parse("acme.system.indexes").IsSystem())
	assert.False(t, Parse("acme.orders").IsSystem())
}

func TestSister(t *testing.T) {
	ns, err := Parse("acme.orders").Sister("archived")
	require.NoError(t, err)
	assert.Equal(t, "acme.archived", ns)
}

func TestSisterRejectsEmptyOrDotPrefixed(t *testing.T) {
	_, err := Parse("acme.orders").Sister("")
	assert.Error(t, err)

	_, err = Parse("acme.orders").Sister(".hidden")
	assert.Error(t, err)
}

func TestDatabase(t *testing.T) {
	assert.Equal(t, "acme", Database("acme.orders"))
	assert.Equal(t, "acme", Database("acme"))
}

func TestValidateRejectsNameAtOrOverMaxNsLen(t *testing.T) {
	long := "acme." + strings.Repeat("x", MaxNsLen)
	err := Validate(long)
	assert.Error(t, err)
}

func TestValidateAcceptsNameUnderMaxNsLen(t *testing.T) {
	err := Validate("acme.orders")
	assert.NoError(t, err)
}

func TestValidateRejectsOverlongDatabase(t *testing.T) {
	db := strings.Repeat("d", MaxDatabaseLen)
	err := Validate(db + ".c")
	assert.Error(t, err)
}

func TestIsReservedOverflowName(t *testing.T) {
	assert.True(t, IsReservedOverflowName("acme.orders$extra0"))
	assert.True(t, IsReservedOverflowName("acme.orders$extra1"))
	assert.False(t, IsReservedOverflowName("acme.orders"))
}
