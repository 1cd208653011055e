package models

import "time"

// FingerprintSchemaVersion is bumped whenever fingerprint semantics change.
// Stored fingerprints with another version are ignored, forcing a resync.
const FingerprintSchemaVersion = 1

// BatchFingerprint summarises one (metric, window) batch that the backend
// confirmed.
type BatchFingerprint struct {
	SchemaVersion int       `json:"schemaVersion"`
	EditedAt      time.Time `json:"editedAt"`
	Count         int       `json:"count"`
	Aggregate     float64   `json:"aggregate"`
	CalendarDate  LocalDate `json:"calendarDate"`
}

// SessionFingerprint holds the identity fields and subseries sizes of a
// confirmed session.
type SessionFingerprint struct {
	SchemaVersion     int                   `json:"schemaVersion"`
	EditedAt          time.Time             `json:"editedAt"`
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	ApplicationID     string                `json:"applicationId"`
	Start             time.Time             `json:"start"`
	End               *time.Time            `json:"end,omitempty"`
	ActivityTypeCode  int                   `json:"activityTypeCode"`
	ActivityTypeLabel string                `json:"activityTypeLabel"`
	Counts            map[SubseriesType]int `json:"counts"`
}

// SessionListFingerprint is the set of session ids seen on one calendar day.
type SessionListFingerprint struct {
	SchemaVersion int       `json:"schemaVersion"`
	CalendarDate  LocalDate `json:"calendarDate"`
	EditedAt      time.Time `json:"editedAt"`
	SessionIDs    []string  `json:"sessionIds"`
}

// ScalarFingerprint remembers the last confirmed value of a profile field.
type ScalarFingerprint struct {
	SchemaVersion int       `json:"schemaVersion"`
	EditedAt      time.Time `json:"editedAt"`
	Value         float64   `json:"value"`
	MeasuredAt    time.Time `json:"measuredAt"`
}
