package models

import (
	"fmt"
	"time"
)

type MetricType string

const (
	MetricCalories  MetricType = "calories"
	MetricSteps     MetricType = "steps"
	MetricHeartRate MetricType = "heart_rate"
)

// IntradayMetrics lists every metric syncIntraday understands, in payload order.
var IntradayMetrics = []MetricType{MetricCalories, MetricSteps, MetricHeartRate}

type ProfileField string

const (
	ProfileWeight ProfileField = "weight"
	ProfileHeight ProfileField = "height"
)

var ProfileFields = []ProfileField{ProfileWeight, ProfileHeight}

type SubseriesType string

const (
	SubseriesCalories         SubseriesType = "calories"
	SubseriesSteps            SubseriesType = "steps"
	SubseriesHeartRate        SubseriesType = "heart_rate"
	SubseriesPower            SubseriesType = "power"
	SubseriesSpeed            SubseriesType = "speed"
	SubseriesActivitySegments SubseriesType = "activity_segments"
)

var SubseriesTypes = []SubseriesType{
	SubseriesCalories,
	SubseriesSteps,
	SubseriesHeartRate,
	SubseriesPower,
	SubseriesSpeed,
	SubseriesActivitySegments,
}

// MetricPolicy describes how one intraday metric is fetched and batched.
// FetchWindow is the largest range the provider answers reliably, BatchDuration
// the unit of change detection and Tolerance the allowed aggregate drift.
type MetricPolicy struct {
	FetchWindow   time.Duration
	BatchDuration time.Duration
	Tolerance     float64
}

var metricPolicies = map[MetricType]MetricPolicy{
	MetricCalories: {
		FetchWindow:   24 * time.Hour,
		BatchDuration: 30 * time.Minute,
		Tolerance:     0.001,
	},
	MetricHeartRate: {
		FetchWindow:   24 * time.Hour,
		BatchDuration: 30 * time.Minute,
		Tolerance:     0.01,
	},
	MetricSteps: {
		FetchWindow:   7 * 24 * time.Hour,
		BatchDuration: 6 * time.Hour,
		Tolerance:     0,
	},
}

func PolicyFor(metric MetricType) (MetricPolicy, error) {
	p, ok := metricPolicies[metric]
	if !ok {
		return MetricPolicy{}, fmt.Errorf("unknown metric type %q", metric)
	}
	return p, nil
}

func ParseMetricType(s string) (MetricType, error) {
	m := MetricType(s)
	if _, ok := metricPolicies[m]; !ok {
		return "", fmt.Errorf("unknown metric type %q", s)
	}
	return m, nil
}

func ParseProfileField(s string) (ProfileField, error) {
	for _, f := range ProfileFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown profile field %q", s)
}
