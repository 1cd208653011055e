package timewindow

import (
	"fmt"
	"sort"
	"time"

	"wearsync/internal/models"
)

// GroupByDuration partitions points into consecutive batches of duration
// starting at start. The last batch may overshoot end. Each point lands in the
// batch whose [WindowStart, WindowEnd) holds its start; points outside
// [start, end) are dropped. Empty batches are kept and input order is
// preserved inside a batch.
func GroupByDuration[V any](start, end time.Time, points []models.DataPoint[V], duration time.Duration) ([]models.DataPointsBatch[V], error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidBatchDuration, duration)
	}
	if !end.After(start) {
		return nil, nil
	}

	n := int((end.Sub(start) + duration - 1) / duration)
	batches := make([]models.DataPointsBatch[V], n)
	for i := range batches {
		ws := start.Add(time.Duration(i) * duration)
		batches[i] = models.DataPointsBatch[V]{WindowStart: ws, WindowEnd: ws.Add(duration)}
	}
	assign(batches, points, start, end)
	return batches, nil
}

// GroupInZone is GroupByDuration with batch edges on local wall-clock
// multiples of duration, re-anchored at every local midnight. A batch spanning
// a DST change is shorter or longer than duration, but the same local day
// always yields the same windows regardless of where the range started.
func GroupInZone[V any](start, end time.Time, points []models.DataPoint[V], duration time.Duration, zone *time.Location) ([]models.DataPointsBatch[V], error) {
	edges, err := BatchEdges(start, end, duration, zone)
	if err != nil {
		return nil, err
	}
	if len(edges) < 2 {
		return nil, nil
	}

	batches := make([]models.DataPointsBatch[V], len(edges)-1)
	for i := range batches {
		batches[i] = models.DataPointsBatch[V]{WindowStart: edges[i], WindowEnd: edges[i+1]}
	}
	assign(batches, points, start, end)
	return batches, nil
}

// assign appends each point in [start, end) to the contiguous batch holding
// its start.
func assign[V any](batches []models.DataPointsBatch[V], points []models.DataPoint[V], start, end time.Time) {
	for _, p := range points {
		if p.Start.Before(start) || !p.Start.Before(end) {
			continue
		}
		idx := sort.Search(len(batches), func(i int) bool {
			return batches[i].WindowEnd.After(p.Start)
		})
		if idx < len(batches) && !p.Start.Before(batches[idx].WindowStart) {
			batches[idx].Points = append(batches[idx].Points, p)
		}
	}
}

// NonEmpty filters out batches without points.
func NonEmpty[V any](batches []models.DataPointsBatch[V]) []models.DataPointsBatch[V] {
	out := make([]models.DataPointsBatch[V], 0, len(batches))
	for _, b := range batches {
		if !b.IsEmpty() {
			out = append(out, b)
		}
	}
	return out
}
