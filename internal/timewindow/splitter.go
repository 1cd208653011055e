package timewindow

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"wearsync/internal/models"
)

const day = 24 * time.Hour

// SplitRange cuts [start, end] into contiguous windows no longer than
// maxWindow, in ascending order. A zero-length range yields one degenerate
// window.
func SplitRange(start, end time.Time, maxWindow time.Duration) ([]models.Window, error) {
	if maxWindow <= 0 {
		return nil, fmt.Errorf("split range: window must be positive, got %s", maxWindow)
	}
	if end.Before(start) {
		return nil, &models.RangeError{Reason: fmt.Sprintf("end %s before start %s", end, start)}
	}
	if start.Equal(end) {
		return []models.Window{{Start: start, End: end}}, nil
	}

	windows := make([]models.Window, 0, int(end.Sub(start)/maxWindow)+1)
	for cur := start; cur.Before(end); {
		next := cur.Add(maxWindow)
		if next.After(end) {
			next = end
		}
		windows = append(windows, models.Window{Start: cur, End: next})
		cur = next
	}
	return windows, nil
}

// StartOfDay returns local midnight of date in zone.
func StartOfDay(date models.LocalDate, zone *time.Location) time.Time {
	return date.In(zone)
}

// EndOfDay returns the next local midnight after date, the exclusive end of
// that calendar day.
func EndOfDay(date models.LocalDate, zone *time.Location) time.Time {
	return date.AddDays(1).In(zone)
}

// OldestSyncableDate is the provider retention floor: one month back plus a day.
func OldestSyncableDate(now time.Time, zone *time.Location) models.LocalDate {
	return civil.DateOf(now.In(zone).AddDate(0, -1, 1))
}

// ResolveRequestRange turns a local calendar range into instants. The end is
// clamped to now when localEnd is today.
func ResolveRequestRange(localStart, localEnd models.LocalDate, zone *time.Location, now time.Time) (time.Time, time.Time, error) {
	if zone == nil {
		zone = time.UTC
	}
	if !localStart.IsValid() || !localEnd.IsValid() {
		return time.Time{}, time.Time{}, &models.RangeError{Reason: "dates must be valid calendar dates"}
	}
	if localStart.After(localEnd) {
		return time.Time{}, time.Time{}, &models.RangeError{
			Reason: fmt.Sprintf("start %s after end %s", localStart, localEnd),
		}
	}

	today := civil.DateOf(now.In(zone))
	if localEnd.After(today) {
		return time.Time{}, time.Time{}, &models.RangeError{
			Reason: fmt.Sprintf("end %s is in the future (today is %s)", localEnd, today),
		}
	}
	oldest := OldestSyncableDate(now, zone)
	if localStart.Before(oldest) {
		return time.Time{}, time.Time{}, &models.RangeError{
			Reason: fmt.Sprintf("start %s older than retention limit %s", localStart, oldest),
		}
	}

	start := StartOfDay(localStart, zone)
	end := EndOfDay(localEnd, zone)
	if localEnd == today {
		end = now
	}
	return start, end, nil
}

// ValidateBatchDuration checks that d evenly divides a day.
func ValidateBatchDuration(d time.Duration) error {
	if d <= 0 || day%d != 0 {
		return fmt.Errorf("%w: %s does not evenly divide 24h", models.ErrInvalidBatchDuration, d)
	}
	return nil
}

// RoundToBatchBoundary widens [start, end) so both edges sit on multiples of
// batchDuration counted from local midnight in zone.
func RoundToBatchBoundary(start, end time.Time, batchDuration time.Duration, zone *time.Location) (time.Time, time.Time, error) {
	if err := ValidateBatchDuration(batchDuration); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if zone == nil {
		zone = time.UTC
	}
	return floorToBatch(start, batchDuration, zone), ceilToBatch(end, batchDuration, zone), nil
}

func floorToBatch(t time.Time, d time.Duration, zone *time.Location) time.Time {
	edges := dayEdges(civil.DateOf(t.In(zone)), d, zone)
	floor := edges[0]
	for _, e := range edges[1:] {
		if e.After(t) {
			break
		}
		floor = e
	}
	return floor
}

func ceilToBatch(t time.Time, d time.Duration, zone *time.Location) time.Time {
	date := civil.DateOf(t.In(zone))
	for _, e := range dayEdges(date, d, zone) {
		if !e.Before(t) {
			return e
		}
	}
	return EndOfDay(date, zone)
}

// dayEdges lists the batch edges of one local day: wall-clock multiples of d
// from local midnight. Edges inside a DST gap collapse onto the next valid
// instant, so the result is strictly increasing and a short or long day keeps
// its edges on local wall time.
func dayEdges(date models.LocalDate, d time.Duration, zone *time.Location) []time.Time {
	edges := make([]time.Time, 0, int(day/d))
	for off := time.Duration(0); off < day; off += d {
		wall := civil.DateTime{Date: date, Time: civil.Time{
			Hour:       int(off / time.Hour),
			Minute:     int(off % time.Hour / time.Minute),
			Second:     int(off % time.Minute / time.Second),
			Nanosecond: int(off % time.Second),
		}}
		e := wall.In(zone)
		if n := len(edges); n > 0 && !e.After(edges[n-1]) {
			continue
		}
		edges = append(edges, e)
	}
	return edges
}

// BatchEdges returns the local-calendar batch edges covering [start, end):
// the first edge is start floored to a batch boundary, the last is the first
// edge at or after end. Consecutive edges bound one batch.
func BatchEdges(start, end time.Time, batchDuration time.Duration, zone *time.Location) ([]time.Time, error) {
	if err := ValidateBatchDuration(batchDuration); err != nil {
		return nil, err
	}
	if zone == nil {
		zone = time.UTC
	}
	if !end.After(start) {
		return nil, nil
	}

	first := floorToBatch(start, batchDuration, zone)
	var edges []time.Time
	for date := civil.DateOf(first.In(zone)); ; date = date.AddDays(1) {
		for _, e := range dayEdges(date, batchDuration, zone) {
			if e.Before(first) {
				continue
			}
			edges = append(edges, e)
			if !e.Before(end) {
				return edges, nil
			}
		}
	}
}

// DatesBetween lists every local calendar date touched by [start, end).
func DatesBetween(start, end time.Time, zone *time.Location) []models.LocalDate {
	if zone == nil {
		zone = time.UTC
	}
	first := civil.DateOf(start.In(zone))
	last := first
	if end.After(start) {
		last = civil.DateOf(end.Add(-time.Nanosecond).In(zone))
	}
	var dates []models.LocalDate
	for d := first; !d.After(last); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}
