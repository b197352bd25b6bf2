package queryplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nscat/pkg/fieldrange"
	"nscat/pkg/transient"
)

func testIndexes() []IndexInfo {
	return []IndexInfo{
		{No: 0, Name: "_id_", KeyPattern: []string{"_id"}},
		{No: 1, Name: "by_status", KeyPattern: []string{"status"}},
	}
}

func TestBuildPlanSetHintShortCircuits(t *testing.T) {
	ps, err := BuildPlanSet(BuildParams{NS: "acme.orders", Hint: "by_status", Indexes: testIndexes()})
	require.NoError(t, err)
	require.Len(t, ps.Plans, 1)
	assert.Equal(t, 1, ps.Plans[0].IndexNo)
}

func TestBuildPlanSetUnknownHintErrors(t *testing.T) {
	_, err := BuildPlanSet(BuildParams{NS: "acme.orders", Hint: "nope", Indexes: testIndexes()})
	assert.Error(t, err)
}

func TestBuildPlanSetMinMaxForcesSingleOptimalPlan(t *testing.T) {
	ps, err := BuildPlanSet(BuildParams{NS: "acme.orders", Min: 1, Max: 10, Indexes: testIndexes()})
	require.NoError(t, err)
	require.Len(t, ps.Plans, 1)
	assert.True(t, ps.Plans[0].Optimal())
	assert.Equal(t, 1, ps.Plans[0].StartKey)
	assert.Equal(t, 10, ps.Plans[0].EndKey)
}

func TestBuildPlanSetUsesPrerecordedPlanAlongsideCollectionScan(t *testing.T) {
	cache := transient.NewRegistry().Get("acme.orders")
	pattern := fieldrange.Pattern("status=eq")
	cached := NewIndexPlan("acme.orders", 1, []string{"status"}, Forward)
	cache.RegisterPlan(pattern, cached, 5)

	ps, err := BuildPlanSet(BuildParams{
		NS: "acme.orders", Pattern: pattern, Cache: cache,
		Ranges: &fieldrange.Set{NS: "acme.orders", Ranges: map[string]fieldrange.FieldRange{}},
		Indexes: testIndexes(),
	})
	require.NoError(t, err)
	assert.True(t, ps.UsingPrerecordedPlan)
	require.Len(t, ps.Plans, 2)
	assert.Same(t, cached, ps.Plans[0])
	assert.True(t, ps.Plans[1].IsCollectionScan())
}

func TestBuildPlanSetGeneratesOverlappingIndexesPlusCollectionScan(t *testing.T) {
	ranges := &fieldrange.Set{NS: "acme.orders", Ranges: map[string]fieldrange.FieldRange{
		"status": {Field: "status", Intervals: []fieldrange.Interval{{Min: "open", Max: "open"}}},
	}}
	ps, err := BuildPlanSet(BuildParams{NS: "acme.orders", Ranges: ranges, Indexes: testIndexes()})
	require.NoError(t, err)

	require.Len(t, ps.Plans, 2)
	assert.Equal(t, 1, ps.Plans[0].IndexNo)
	assert.True(t, ps.Plans[1].IsCollectionScan())
}

func TestBuildPlanSetFallsBackToCollectionScanOnlyWhenNoIndexOverlaps(t *testing.T) {
	ranges := &fieldrange.Set{NS: "acme.orders", Ranges: map[string]fieldrange.FieldRange{
		"unrelated": {Field: "unrelated"},
	}}
	ps, err := BuildPlanSet(BuildParams{NS: "acme.orders", Ranges: ranges, Indexes: testIndexes()})
	require.NoError(t, err)
	require.Len(t, ps.Plans, 1)
	assert.True(t, ps.Plans[0].IsCollectionScan())
}

func TestRegisterWinnerNilCacheIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterWinner(nil, fieldrange.Pattern("x"), NewCollectionScanPlan("acme.orders", Forward), 0)
	})
}

func TestRegisterWinnerStoresPlanUnderPattern(t *testing.T) {
	cache := transient.NewRegistry().Get("acme.orders")
	pattern := fieldrange.Pattern("status=eq")
	plan := NewIndexPlan("acme.orders", 1, []string{"status"}, Forward)
	RegisterWinner(cache, pattern, plan, 3)

	entry, ok := cache.LookupPlan(pattern)
	require.True(t, ok)
	assert.Same(t, plan, entry.Plan)
	assert.Equal(t, 3, entry.NScanned)
}
