package models

import "time"

// SubSeries carries the detailed measurements recorded during a session.
type SubSeries struct {
	Calories         []DataPoint[float64] `json:"calories"`
	Steps            []DataPoint[float64] `json:"steps"`
	HeartRate        []DataPoint[float64] `json:"heartRate"`
	Power            []DataPoint[float64] `json:"power"`
	Speed            []DataPoint[float64] `json:"speed"`
	ActivitySegments []DataPoint[int]     `json:"activitySegments"`
}

// Set stores points for the given subseries type. Activity segment values
// are activity type codes and are truncated to int.
func (s *SubSeries) Set(t SubseriesType, points []DataPoint[float64]) {
	switch t {
	case SubseriesCalories:
		s.Calories = points
	case SubseriesSteps:
		s.Steps = points
	case SubseriesHeartRate:
		s.HeartRate = points
	case SubseriesPower:
		s.Power = points
	case SubseriesSpeed:
		s.Speed = points
	case SubseriesActivitySegments:
		segments := make([]DataPoint[int], len(points))
		for i, p := range points {
			segments[i] = DataPoint[int]{Value: int(p.Value), Start: p.Start, End: p.End, Source: p.Source}
		}
		s.ActivitySegments = segments
	}
}

func (s *SubSeries) Counts() map[SubseriesType]int {
	return map[SubseriesType]int{
		SubseriesCalories:         len(s.Calories),
		SubseriesSteps:            len(s.Steps),
		SubseriesHeartRate:        len(s.HeartRate),
		SubseriesPower:            len(s.Power),
		SubseriesSpeed:            len(s.Speed),
		SubseriesActivitySegments: len(s.ActivitySegments),
	}
}

// SessionBundle is a workout session. End == nil marks an ongoing session,
// which is never synced.
type SessionBundle struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	ApplicationID     string     `json:"applicationId"`
	Start             time.Time  `json:"start"`
	End               *time.Time `json:"end,omitempty"`
	ActivityTypeCode  int        `json:"activityTypeCode"`
	ActivityTypeLabel string     `json:"activityTypeLabel"`
	SubSeries         SubSeries  `json:"subSeries"`
}

func (s SessionBundle) IsOngoing() bool {
	return s.End == nil
}

// Duration returns zero for ongoing sessions.
func (s SessionBundle) Duration() time.Duration {
	if s.End == nil {
		return 0
	}
	return s.End.Sub(s.Start)
}
