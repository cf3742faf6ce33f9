package signal

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var morning = time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return morning.Add(time.Duration(minutes) * time.Minute)
}

func mustAppend(t *testing.T, d *IntersectionData, approach string, start time.Time, count int) {
	t.Helper()
	require.NoError(t, d.Append(ApproachVolume{
		IntersectionID: d.ID(),
		Approach:       approach,
		IntervalStart:  start,
		Count:          count,
	}))
}

func TestIntersectionDataAppendRejectsInvalidRecords(t *testing.T) {
	d := NewIntersectionData("X1", Metadata{})
	mustAppend(t, d, "N", at(0), 100)

	tests := []struct {
		name   string
		record ApproachVolume
		cause  error
	}{
		{
			name:   "duplicate approach and interval",
			record: ApproachVolume{IntersectionID: "X1", Approach: "N", IntervalStart: at(0), Count: 5},
			cause:  ErrDuplicateRecord,
		},
		{
			name:   "same instant in another zone is a duplicate",
			record: ApproachVolume{IntersectionID: "X1", Approach: "N", IntervalStart: at(0).In(time.FixedZone("EST", -5*3600)), Count: 5},
			cause:  ErrDuplicateRecord,
		},
		{
			name:   "other intersection",
			record: ApproachVolume{IntersectionID: "X2", Approach: "N", IntervalStart: at(15), Count: 5},
			cause:  ErrInvalidRecord,
		},
		{
			name:   "negative count",
			record: ApproachVolume{IntersectionID: "X1", Approach: "S", IntervalStart: at(15), Count: -1},
			cause:  ErrNegativeVolume,
		},
		{
			name:   "blank approach",
			record: ApproachVolume{IntersectionID: "X1", Approach: "", IntervalStart: at(15), Count: 1},
			cause:  ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Append(tt.record)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.cause)
			assert.True(t, IsDataSufficiency(err))
			assert.Contains(t, err.Error(), "X1")
		})
	}

	assert.Equal(t, 1, d.Len(), "rejected records must not be stored")
}

func TestIntersectionDataViewsHandleGaps(t *testing.T) {
	d := NewIntersectionData("X1", Metadata{Location: "Main St & 1st Ave"})
	mustAppend(t, d, "S", at(0), 50)
	mustAppend(t, d, "N", at(0), 100)
	mustAppend(t, d, "N", at(15), 80)
	// 08:30 to 09:15 missing
	mustAppend(t, d, "S", at(90), 30)

	assert.Equal(t, []string{"N", "S"}, d.Approaches())
	assert.Equal(t, []time.Time{at(0), at(15), at(90)}, d.Intervals())
	assert.Equal(t, 260, d.TotalVolume())
	assert.Equal(t, map[string]int{"N": 180, "S": 80}, d.TotalByApproach())

	totals := d.TotalByInterval()
	require.Len(t, totals, 3)
	assert.Equal(t, IntervalTotal{Start: at(0), Volume: 150, Approaches: 2}, totals[0])
	assert.Equal(t, IntervalTotal{Start: at(15), Volume: 80, Approaches: 1}, totals[1])
	assert.Equal(t, IntervalTotal{Start: at(90), Volume: 30, Approaches: 1}, totals[2])

	records := d.Records()
	require.Len(t, records, 4)
	assert.Equal(t, "N", records[0].Approach, "records are ordered by interval then approach")
	assert.Equal(t, "S", records[1].Approach)

	v, ok := d.Volume("N", at(15))
	assert.True(t, ok)
	assert.Equal(t, 80, v)
	_, ok = d.Volume("S", at(15))
	assert.False(t, ok)
}

func TestIntersectionDataRecordsIsACopy(t *testing.T) {
	d := NewIntersectionData("X1", Metadata{})
	mustAppend(t, d, "N", at(0), 10)

	records := d.Records()
	records[0].Count = 999

	v, _ := d.Volume("N", at(0))
	assert.Equal(t, 10, v)
}

func TestIntersectionDataPeaks(t *testing.T) {
	d := NewIntersectionData("X1", Metadata{})
	for i, count := range []int{10, 20, 30, 40, 50} {
		mustAppend(t, d, "N", at(15*i), count)
	}
	mustAppend(t, d, "N", at(180), 5)

	peak, ok := d.PeakInterval()
	require.True(t, ok)
	assert.Equal(t, at(60), peak.Start)
	assert.Equal(t, 50, peak.Volume)

	start, volume, ok := d.PeakHour()
	require.True(t, ok)
	assert.Equal(t, at(15), start)
	assert.Equal(t, 140, volume)

	empty := NewIntersectionData("X2", Metadata{})
	_, ok = empty.PeakInterval()
	assert.False(t, ok)
	_, _, ok = empty.PeakHour()
	assert.False(t, ok)
}

func TestIntersectionDataHourlyTotalsAndDays(t *testing.T) {
	d := NewIntersectionData("X1", Metadata{})
	mustAppend(t, d, "N", at(0), 10)
	mustAppend(t, d, "N", at(15), 20)
	mustAppend(t, d, "N", at(24*60), 7)
	mustAppend(t, d, "S", at(24*60+60), 3)

	hourly := d.HourlyTotals()
	assert.Equal(t, 37, hourly[8])
	assert.Equal(t, 3, hourly[9])
	assert.Equal(t, 0, hourly[0])

	days := d.ByDay()
	require.Len(t, days, 2)
	assert.Equal(t, 30, days["2024-06-15"].TotalVolume())
	assert.Equal(t, 10, days["2024-06-16"].TotalVolume())
	assert.Equal(t, []string{"N", "S"}, days["2024-06-16"].Approaches())
}

func TestIntersectionDataString(t *testing.T) {
	d := NewIntersectionData("INT001", Metadata{Location: "Main St"})
	mustAppend(t, d, "N", at(0), 100)
	mustAppend(t, d, "N", at(15), 150)
	assert.Equal(t, "Intersection INT001: Location=Main St, Avg Volume=125.0, Total Readings=2", d.String())

	empty := NewIntersectionData("INT002", Metadata{})
	assert.Equal(t, "Intersection INT002: Location=Unknown, Avg Volume=0.0, Total Readings=0", empty.String())
}

func TestCollectIntersections(t *testing.T) {
	records := []ApproachVolume{
		{IntersectionID: "B", Approach: "N", IntervalStart: at(0), Count: 1},
		{IntersectionID: "A", Approach: "E", IntervalStart: at(0), Count: 2},
		{IntersectionID: "B", Approach: "S", IntervalStart: at(0), Count: 3},
	}
	meta := map[string]Metadata{"A": {Location: "Elm & Oak", Lat: 40.1, Lon: -74.2}}

	got, err := CollectIntersections(slices.Values(records), meta)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].ID())
	assert.Equal(t, "Elm & Oak", got[0].Metadata().Location)
	assert.True(t, got[0].Metadata().HasCoordinates())
	assert.Equal(t, "B", got[1].ID())
	assert.Equal(t, 4, got[1].TotalVolume())

	records = append(records, ApproachVolume{IntersectionID: "B", Approach: "N", IntervalStart: at(0), Count: 9})
	got, err = CollectIntersections(slices.Values(records), nil)
	assert.ErrorIs(t, err, ErrDuplicateRecord)
	assert.Nil(t, got)
}

func TestCollectIntersectionsFuncSkipsRejectedRecords(t *testing.T) {
	records := []ApproachVolume{
		{IntersectionID: "B", Approach: "N", IntervalStart: at(0), Count: 1},
		{IntersectionID: "B", Approach: "N", IntervalStart: at(0), Count: 9},
		{IntersectionID: "B", Approach: "S", IntervalStart: at(0), Count: 3},
	}

	var skipped []ApproachVolume
	got, err := CollectIntersectionsFunc(slices.Values(records), nil, func(v ApproachVolume, err error) error {
		assert.ErrorIs(t, err, ErrDuplicateRecord)
		skipped = append(skipped, v)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].TotalVolume(), "first occurrence wins")
	require.Len(t, skipped, 1)
	assert.Equal(t, 9, skipped[0].Count)
}

func TestNormalizeApproach(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"North", "N"},
		{" northbound ", "N"},
		{"SB", "S"},
		{"eastbound", "E"},
		{"West", "W"},
		{"NorthEast", "NE"},
		{"nwb", "NW"},
		{"Left Turn", "Left Turn"},
		{"  custom  ", "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeApproach(tt.input))
		})
	}
}
