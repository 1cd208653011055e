package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// LocalDate is a calendar date without a zone. It is interpreted in the
// connection's configured timezone.
type LocalDate = civil.Date

// DataPoint is one provider measurement. End is nil for instant measurements
// (heart rate, power, speed) and set for interval measurements (calories, steps).
type DataPoint[V any] struct {
	Value  V          `json:"value"`
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
	Source string     `json:"source,omitempty"`
}

// DataPointsBatch holds every point of one metric whose start falls inside
// [WindowStart, WindowEnd).
type DataPointsBatch[V any] struct {
	Points      []DataPoint[V] `json:"points"`
	WindowStart time.Time      `json:"windowStart"`
	WindowEnd   time.Time      `json:"windowEnd"`
}

func (b DataPointsBatch[V]) IsEmpty() bool {
	return len(b.Points) == 0
}

// Window is a half-open [Start, End) instant range.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w Window) String() string {
	return w.Start.UTC().Format(time.RFC3339) + "/" + w.End.UTC().Format(time.RFC3339)
}

// SumValues returns the sum of all point values of a numeric batch.
func SumValues(points []DataPoint[float64]) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum
}
