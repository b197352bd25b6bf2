package diskloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullIsInvalid(t *testing.T) {
	assert.False(t, Null.IsValid())
	assert.False(t, Loc{}.IsValid())
}

func TestNonZeroLocIsValid(t *testing.T) {
	assert.True(t, Loc{FileID: 0, Offset: 1}.IsValid())
	assert.True(t, Loc{FileID: 1, Offset: 0}.IsValid())
}

func TestStringFormatsNullDistinctly(t *testing.T) {
	assert.Equal(t, "diskloc(null)", Null.String())
	assert.Equal(t, "diskloc(2:40)", Loc{FileID: 2, Offset: 40}.String())
}
