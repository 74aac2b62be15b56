package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinVaccinationsWithLookup(t *testing.T) {
	d1, d2 := day(t, "2021-04-01"), day(t, "2021-04-02")
	vacc := []VaccinationRecord{
		{RegionName: testTX, Date: d1, Vaccinations: 100},
		{RegionName: testTX, Date: d2, Vaccinations: 150},
		{RegionName: testCA, Date: d2, Vaccinations: 300},
		{RegionName: testCA, Date: d1, Vaccinations: 250},
		{RegionName: "New York State", Date: d1, Vaccinations: 999},
	}
	lookup := []RegionLookup{
		{RegionName: testCA, Abbreviation: "CA"},
		{RegionName: testNY, Abbreviation: "NY"},
		{RegionName: testTX, Abbreviation: "TX"},
	}

	t.Run("sum policy", func(t *testing.T) {
		rows, err := JoinVaccinationsWithLookup(vacc, lookup, AggregateSum)
		require.NoError(t, err)
		assert.Equal(t, []RegionVaccination{
			{RegionName: testCA, Abbreviation: "CA", Vaccinations: 550},
			{RegionName: testTX, Abbreviation: "TX", Vaccinations: 250},
		}, rows)
	})

	t.Run("latest policy", func(t *testing.T) {
		rows, err := JoinVaccinationsWithLookup(vacc, lookup, AggregateLatest)
		require.NoError(t, err)
		assert.Equal(t, []RegionVaccination{
			{RegionName: testCA, Abbreviation: "CA", Vaccinations: 300},
			{RegionName: testTX, Abbreviation: "TX", Vaccinations: 150},
		}, rows)
	})

	t.Run("unmatched region dropped without error", func(t *testing.T) {
		rows, err := JoinVaccinationsWithLookup(vacc[4:], lookup, AggregateSum)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("unknown policy", func(t *testing.T) {
		_, err := JoinVaccinationsWithLookup(vacc, lookup, AggregationPolicy("median"))
		require.ErrorIs(t, err, ErrInvalidSelection)
	})

	t.Run("duplicate lookup keeps first", func(t *testing.T) {
		dup := append([]RegionLookup{{RegionName: testTX, Abbreviation: "TEX"}}, lookup...)
		rows, err := JoinVaccinationsWithLookup(vacc[:2], dup, AggregateLatest)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "TEX", rows[0].Abbreviation)
	})
}
