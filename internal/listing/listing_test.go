package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCanonicalRegion(t *testing.T) {
	tests := []struct {
		in   string
		want Region
	}{
		{"india", "INDIA"},
		{" India ", "INDIA"},
		{"north america", "NORTH_AMERICA"},
		{"North-America", "NORTH_AMERICA"},
		{"", RegionGlobal},
		{"global", RegionGlobal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalRegion(tt.in))
		})
	}
}

func TestCanonicalSkills_DedupesAndDropsEmpty(t *testing.T) {
	got := CanonicalSkills([]string{"Frontend", "BACKEND", "frontend", "", "  ", "design"})
	assert.Equal(t, []Skill{"FRONTEND", "BACKEND", "DESIGN"}, got)
}

func TestCanonicalType(t *testing.T) {
	typ, ok := CanonicalType("Bounty")
	assert.True(t, ok)
	assert.Equal(t, TypeBounty, typ)

	typ, ok = CanonicalType("project")
	assert.True(t, ok)
	assert.Equal(t, TypeProject, typ)

	_, ok = CanonicalType("hackathon")
	assert.False(t, ok, "hackathons are never notifiable")
}

func TestCanonicalCompensation(t *testing.T) {
	assert.Equal(t, CompensationRange, CanonicalCompensation("range"))
	assert.Equal(t, CompensationVariable, CanonicalCompensation("Variable"))
	assert.Equal(t, CompensationFixed, CanonicalCompensation("fixed"))
	assert.Equal(t, CompensationFixed, CanonicalCompensation(""))
}

func TestEffectivePayout(t *testing.T) {
	tests := []struct {
		name   string
		l      Listing
		want   float64
		wantOK bool
	}{
		{"fixed", Listing{CompensationType: CompensationFixed, Payout: ptr(500.0)}, 500, true},
		{"fixed without payout", Listing{CompensationType: CompensationFixed}, 0, false},
		{"range uses lower bound", Listing{CompensationType: CompensationRange, MinRewardAsk: ptr(100.0), MaxRewardAsk: ptr(900.0)}, 100, true},
		{"variable uses lower bound", Listing{CompensationType: CompensationVariable, MinRewardAsk: ptr(40.0)}, 40, true},
		{"variable without bounds", Listing{CompensationType: CompensationVariable}, 0, false},
		{"range ignores payout", Listing{CompensationType: CompensationRange, Payout: ptr(1000.0)}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.l.EffectivePayout()
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestSameDeadline(t *testing.T) {
	a := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	b := a.In(time.FixedZone("X", 3600))
	c := a.Add(time.Nanosecond)

	assert.True(t, SameDeadline(nil, nil))
	assert.True(t, SameDeadline(&a, &b), "same instant in different zones")
	assert.False(t, SameDeadline(&a, &c), "full precision comparison")
	assert.False(t, SameDeadline(&a, nil))
	assert.False(t, SameDeadline(nil, &a))
}

func TestRegionCatalog(t *testing.T) {
	regions := Regions()
	require.NotEmpty(t, regions)
	assert.Equal(t, RegionGlobal, regions[0].Code)

	assert.True(t, IsKnownRegion("INDIA"))
	assert.False(t, IsKnownRegion("ATLANTIS"))

	info := Describe("VIETNAM")
	assert.Equal(t, "Vietnam", info.Name)
	assert.Equal(t, "🇻🇳", info.Flag)

	unknown := Describe("NORTH_AMERICA")
	assert.Equal(t, "North america", unknown.Name)
	assert.Equal(t, "🌍", unknown.Flag)
}

func TestParseRegions_RejectsMissingName(t *testing.T) {
	_, err := parseRegions([]byte("- code: moon\n"))
	assert.Error(t, err)
}
