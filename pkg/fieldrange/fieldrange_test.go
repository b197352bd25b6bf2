package fieldrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlapsTrueWhenAnyKeyFieldIsRanged(t *testing.T) {
	s := &Set{NS: "acme.orders", Ranges: map[string]FieldRange{
		"status": {Field: "status", Intervals: []Interval{{Min: "open", Max: "open", MinInclusive: true, MaxInclusive: true}}},
	}}
	assert.True(t, s.Overlaps([]string{"customer", "status"}))
	assert.False(t, s.Overlaps([]string{"customer", "region"}))
}

func TestOverlapsNilSet(t *testing.T) {
	var s *Set
	assert.False(t, s.Overlaps([]string{"status"}))
}

func TestExactKeyMatchRequiresEverySingletonField(t *testing.T) {
	s := &Set{Ranges: map[string]FieldRange{
		"a": {Field: "a", Intervals: []Interval{{Min: 1, Max: 1}}},
		"b": {Field: "b", Intervals: []Interval{{Min: 2, Max: 2}}},
	}}
	assert.True(t, s.ExactKeyMatch([]string{"a", "b"}))
	assert.False(t, s.ExactKeyMatch([]string{"a", "c"}))
}

func TestExactKeyMatchFalseWhenFieldHasRange(t *testing.T) {
	s := &Set{Ranges: map[string]FieldRange{
		"a": {Field: "a", Intervals: []Interval{{Min: 1, Max: 10}}},
	}}
	assert.False(t, s.ExactKeyMatch([]string{"a"}))
}

func TestExactKeyMatchFalseWhenFieldMissingOrMultipleIntervals(t *testing.T) {
	s := &Set{Ranges: map[string]FieldRange{
		"a": {Field: "a", Intervals: []Interval{{Min: 1, Max: 1}, {Min: 5, Max: 5}}},
	}}
	assert.False(t, s.ExactKeyMatch([]string{"a"}))
	assert.False(t, s.ExactKeyMatch([]string{"missing"}))
}

func TestExactKeyMatchEmptyKeyFieldsIsFalse(t *testing.T) {
	s := &Set{Ranges: map[string]FieldRange{}}
	assert.False(t, s.ExactKeyMatch(nil))
}
