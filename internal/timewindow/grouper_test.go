package timewindow

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wearsync/internal/models"
)

func point(v float64, at time.Time) models.DataPoint[float64] {
	return models.DataPoint[float64]{Value: v, Start: at}
}

func TestGroupByDuration_SinglePoint(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*3600)
	at := time.Date(2020, 10, 1, 9, 1, 0, 0, time.UTC)
	start, end, err := RoundToBatchBoundary(at, at.Add(time.Minute), 30*time.Minute, zone)
	require.NoError(t, err)

	batches, err := GroupByDuration(start, end, []models.DataPoint[float64]{point(10, at)}, 30*time.Minute)
	require.NoError(t, err)

	nonEmpty := NonEmpty(batches)
	require.Len(t, nonEmpty, 1)
	assert.True(t, nonEmpty[0].WindowStart.Equal(time.Date(2020, 10, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, nonEmpty[0].WindowEnd.Equal(time.Date(2020, 10, 1, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, 10.0, models.SumValues(nonEmpty[0].Points))
}

func TestGroupByDuration_KeepsEmptyBatches(t *testing.T) {
	start := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	batches, err := GroupByDuration[float64](start, start.Add(2*time.Hour), nil, 30*time.Minute)
	require.NoError(t, err)
	assert.Len(t, batches, 4)
	for _, b := range batches {
		assert.True(t, b.IsEmpty())
		assert.Equal(t, 30*time.Minute, b.WindowEnd.Sub(b.WindowStart))
	}
}

func TestGroupByDuration_FinalWindowOvershoots(t *testing.T) {
	start := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(70 * time.Minute)
	batches, err := GroupByDuration[float64](start, end, nil, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.True(t, batches[2].WindowEnd.Equal(start.Add(90*time.Minute)))
}

func TestGroupByDuration_BoundaryIsLeftInclusive(t *testing.T) {
	start := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	points := []models.DataPoint[float64]{
		point(1, start.Add(30*time.Minute)),
		point(2, start.Add(30*time.Minute-time.Nanosecond)),
	}
	batches, err := GroupByDuration(start, start.Add(time.Hour), points, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, 2.0, batches[0].Points[0].Value)
	assert.Equal(t, 1.0, batches[1].Points[0].Value)
}

func TestGroupByDuration_PreservesOrderInBatch(t *testing.T) {
	start := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	points := []models.DataPoint[float64]{
		point(3, start.Add(20*time.Minute)),
		point(1, start.Add(5*time.Minute)),
		point(2, start.Add(10*time.Minute)),
	}
	batches, err := GroupByDuration(start, start.Add(30*time.Minute), points, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	got := []float64{}
	for _, p := range batches[0].Points {
		got = append(got, p.Value)
	}
	assert.Equal(t, []float64{3, 1, 2}, got)
}

func TestGroupByDuration_PartitionsPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(26 * time.Hour)

	for round := 0; round < 20; round++ {
		var points []models.DataPoint[float64]
		inside := 0
		for i := 0; i < 200; i++ {
			offset := time.Duration(rng.Int63n(int64(30*time.Hour))) - 2*time.Hour
			at := start.Add(offset)
			if !at.Before(start) && at.Before(end) {
				inside++
			}
			points = append(points, point(float64(i), at))
		}

		batches, err := GroupByDuration(start, end, points, 30*time.Minute)
		require.NoError(t, err)

		seen := map[float64]int{}
		for _, b := range batches {
			for _, p := range b.Points {
				assert.False(t, p.Start.Before(b.WindowStart))
				assert.True(t, p.Start.Before(b.WindowEnd))
				seen[p.Value]++
			}
		}
		assert.Len(t, seen, inside)
		for _, n := range seen {
			assert.Equal(t, 1, n)
		}
	}
}

func TestGroupByDuration_InvalidDuration(t *testing.T) {
	start := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	_, err := GroupByDuration[float64](start, start.Add(time.Hour), nil, 0)
	assert.True(t, errors.Is(err, models.ErrInvalidBatchDuration))
}

func TestGroupByDuration_EmptyRange(t *testing.T) {
	start := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	batches, err := GroupByDuration[float64](start, start, nil, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func berlinZone(t *testing.T) *time.Location {
	t.Helper()
	zone, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return zone
}

func startsOn(batches []models.DataPointsBatch[float64], date civil.Date, zone *time.Location) []string {
	var out []string
	for _, b := range batches {
		if civil.DateOf(b.WindowStart.In(zone)) == date {
			out = append(out, b.WindowStart.In(zone).Format("15:04 -07:00"))
		}
	}
	return out
}

func TestGroupInZone_SameDayWindowsRegardlessOfRangeStart(t *testing.T) {
	zone := berlinZone(t)
	mar30 := civil.Date{Year: 2024, Month: 3, Day: 30}
	apr1 := civil.Date{Year: 2024, Month: 4, Day: 1}

	across, err := GroupInZone[float64](StartOfDay(mar30, zone), EndOfDay(apr1, zone), nil, 6*time.Hour, zone)
	require.NoError(t, err)
	within, err := GroupInZone[float64](StartOfDay(apr1, zone), EndOfDay(apr1, zone), nil, 6*time.Hour, zone)
	require.NoError(t, err)

	want := []string{"00:00 +02:00", "06:00 +02:00", "12:00 +02:00", "18:00 +02:00"}
	assert.Equal(t, want, startsOn(across, apr1, zone))
	assert.Equal(t, want, startsOn(within, apr1, zone))
	assert.Len(t, across, 12)
}

func TestGroupInZone_ShortDayKeepsWallClockEdges(t *testing.T) {
	zone := berlinZone(t)
	mar31 := civil.Date{Year: 2024, Month: 3, Day: 31}
	// 05:30 CEST falls into the first batch, which loses the skipped hour.
	p := point(7, time.Date(2024, 3, 31, 3, 30, 0, 0, time.UTC))

	batches, err := GroupInZone(StartOfDay(mar31, zone), EndOfDay(mar31, zone), []models.DataPoint[float64]{p}, 6*time.Hour, zone)
	require.NoError(t, err)
	require.Len(t, batches, 4)

	assert.Equal(t, []string{"00:00 +01:00", "06:00 +02:00", "12:00 +02:00", "18:00 +02:00"}, startsOn(batches, mar31, zone))
	assert.Equal(t, 5*time.Hour, batches[0].WindowEnd.Sub(batches[0].WindowStart))
	assert.Equal(t, 7.0, models.SumValues(batches[0].Points))
	assert.True(t, batches[3].WindowEnd.Equal(EndOfDay(mar31, zone)))
}

func TestGroupInZone_HalfHourBatchesOverDSTChanges(t *testing.T) {
	zone := berlinZone(t)
	cases := []struct {
		date    civil.Date
		batches int
	}{
		{civil.Date{Year: 2024, Month: 3, Day: 31}, 46},
		{civil.Date{Year: 2024, Month: 10, Day: 27}, 48},
		{civil.Date{Year: 2024, Month: 6, Day: 1}, 48},
	}
	for _, tc := range cases {
		t.Run(tc.date.String(), func(t *testing.T) {
			start, end := StartOfDay(tc.date, zone), EndOfDay(tc.date, zone)
			batches, err := GroupInZone[float64](start, end, nil, 30*time.Minute, zone)
			require.NoError(t, err)
			require.Len(t, batches, tc.batches)
			assert.True(t, batches[0].WindowStart.Equal(start))
			assert.True(t, batches[len(batches)-1].WindowEnd.Equal(end))
			for i := 1; i < len(batches); i++ {
				assert.True(t, batches[i].WindowStart.Equal(batches[i-1].WindowEnd))
				assert.True(t, batches[i].WindowEnd.After(batches[i].WindowStart))
			}
		})
	}
}

func TestGroupInZone_MatchesFixedStepsWithoutDST(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*3600)
	at := time.Date(2020, 10, 1, 9, 1, 0, 0, time.UTC)
	start, end, err := RoundToBatchBoundary(at, at.Add(3*time.Hour), 30*time.Minute, zone)
	require.NoError(t, err)
	points := []models.DataPoint[float64]{point(1, at), point(2, at.Add(2*time.Hour))}

	local, err := GroupInZone(start, end, points, 30*time.Minute, zone)
	require.NoError(t, err)
	fixed, err := GroupByDuration(start, end, points, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, local, len(fixed))
	for i := range fixed {
		assert.True(t, local[i].WindowStart.Equal(fixed[i].WindowStart))
		assert.True(t, local[i].WindowEnd.Equal(fixed[i].WindowEnd))
		assert.Equal(t, fixed[i].Points, local[i].Points)
	}
}

func TestGroupInZone_InvalidDuration(t *testing.T) {
	start := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	_, err := GroupInZone[float64](start, start.Add(time.Hour), nil, 7*time.Hour, time.UTC)
	assert.True(t, errors.Is(err, models.ErrInvalidBatchDuration))
}
