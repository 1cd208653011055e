// Package metadata remembers what the backend has already confirmed, as
// compact fingerprints, so unchanged data is never uploaded twice.
package metadata

import (
	"fmt"
	"math"
	"slices"
	"time"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/storage"

	"cloud.google.com/go/civil"
	json "github.com/goccy/go-json"
)

// ScalarTolerance is the allowed drift of a profile value before it counts
// as changed.
const ScalarTolerance = 0.0001

const diffPrecision = 1e9

// Store reads and writes fingerprints for one user scope. Unreadable state
// is treated as absent so corrupted local data only ever costs a resync.
type Store struct {
	kv     storage.KeyValueStore
	scope  string
	zone   *time.Location
	now    func() time.Time
	logger providers.Logger
}

func NewStore(kv storage.KeyValueStore, scope string, zone *time.Location, logger providers.Logger, now func() time.Time) *Store {
	if zone == nil {
		zone = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, scope: scope, zone: zone, now: now, logger: logger}
}

func (s *Store) batchKey(metric models.MetricType, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%d:%d", s.scope, metric, start.Unix(), end.Unix())
}

func (s *Store) sessionKey(id string) string {
	return s.scope + ":session:" + id
}

func (s *Store) sessionListKey(date models.LocalDate) string {
	return s.scope + ":sessions:" + date.String()
}

func (s *Store) profileKey(field models.ProfileField) string {
	return s.scope + ":profile:" + string(field)
}

// dateOf returns the calendar date of t in the store's zone.
func (s *Store) dateOf(t time.Time) models.LocalDate {
	return civil.DateOf(t.In(s.zone))
}

// NeedsSync reports whether batch differs from the fingerprint committed for
// the same metric and window.
func (s *Store) NeedsSync(metric models.MetricType, batch models.DataPointsBatch[float64]) bool {
	var fp models.BatchFingerprint
	if !s.load(s.batchKey(metric, batch.WindowStart, batch.WindowEnd), &fp) {
		return true
	}

	if fp.Count != len(batch.Points) {
		return true
	}
	if fp.CalendarDate != s.dateOf(batch.WindowStart) {
		return true
	}

	tolerance := 0.0
	if policy, err := models.PolicyFor(metric); err == nil {
		tolerance = policy.Tolerance
	}
	return exceeds(fp.Aggregate, models.SumValues(batch.Points), tolerance)
}

// exceeds reports |a-b| > tolerance after snapping the difference to 1e-9, so
// a drift of exactly one tolerance is not flagged at any magnitude.
func exceeds(a, b, tolerance float64) bool {
	diff := math.Round(math.Abs(a-b)*diffPrecision) / diffPrecision
	return diff > tolerance
}

func (s *Store) Commit(metric models.MetricType, batch models.DataPointsBatch[float64]) error {
	fp := models.BatchFingerprint{
		SchemaVersion: models.FingerprintSchemaVersion,
		EditedAt:      s.now().UTC(),
		Count:         len(batch.Points),
		Aggregate:     models.SumValues(batch.Points),
		CalendarDate:  s.dateOf(batch.WindowStart),
	}
	return s.save(s.batchKey(metric, batch.WindowStart, batch.WindowEnd), fp)
}

// NeedsSyncSession reports whether the session is new or any identity field
// or subseries size changed since it was committed.
func (s *Store) NeedsSyncSession(bundle models.SessionBundle) bool {
	var fp models.SessionFingerprint
	if !s.load(s.sessionKey(bundle.ID), &fp) {
		return true
	}
	return !sameSession(fp, bundle)
}

func sameSession(fp models.SessionFingerprint, b models.SessionBundle) bool {
	if fp.ID != b.ID ||
		fp.Name != b.Name ||
		fp.ApplicationID != b.ApplicationID ||
		!fp.Start.Equal(b.Start) ||
		fp.ActivityTypeCode != b.ActivityTypeCode ||
		fp.ActivityTypeLabel != b.ActivityTypeLabel {
		return false
	}
	if (fp.End == nil) != (b.End == nil) {
		return false
	}
	if fp.End != nil && !fp.End.Equal(*b.End) {
		return false
	}

	counts := b.SubSeries.Counts()
	for _, t := range models.SubseriesTypes {
		if fp.Counts[t] != counts[t] {
			return false
		}
	}
	return true
}

// CommitSessions records the outcome of a session sync. seen is every
// completed session the provider returned for dates; its ids replace each
// date's session list and fingerprints of ids that vanished are deleted.
// changed are the uploaded sessions, which get fresh fingerprints.
func (s *Store) CommitSessions(dates []models.LocalDate, seen []models.SessionBundle, changed []models.SessionBundle) error {
	byDate := make(map[models.LocalDate][]string)
	present := make(map[string]struct{}, len(seen))
	for _, b := range seen {
		d := s.dateOf(b.Start)
		if _, dup := present[b.ID]; dup {
			continue
		}
		present[b.ID] = struct{}{}
		byDate[d] = append(byDate[d], b.ID)
	}

	// Only the requested dates are rewritten; a session starting on a day
	// outside them must not truncate that day's list. Without dates every
	// day a seen session starts on is rewritten.
	touched := make(map[models.LocalDate]struct{}, len(dates)+len(byDate))
	for _, d := range dates {
		touched[d] = struct{}{}
	}
	if len(dates) == 0 {
		for d := range byDate {
			touched[d] = struct{}{}
		}
	}

	now := s.now().UTC()
	for d := range touched {
		if err := s.replaceSessionList(d, byDate[d], present, now); err != nil {
			return err
		}
	}

	for _, b := range changed {
		fp := models.SessionFingerprint{
			SchemaVersion:     models.FingerprintSchemaVersion,
			EditedAt:          now,
			ID:                b.ID,
			Name:              b.Name,
			ApplicationID:     b.ApplicationID,
			Start:             b.Start,
			End:               b.End,
			ActivityTypeCode:  b.ActivityTypeCode,
			ActivityTypeLabel: b.ActivityTypeLabel,
			Counts:            b.SubSeries.Counts(),
		}
		if err := s.save(s.sessionKey(b.ID), fp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceSessionList(date models.LocalDate, ids []string, present map[string]struct{}, now time.Time) error {
	key := s.sessionListKey(date)

	var old models.SessionListFingerprint
	hadOld := s.load(key, &old)
	if !hadOld {
		old = models.SessionListFingerprint{}
	}

	for _, id := range old.SessionIDs {
		if _, ok := present[id]; ok {
			continue
		}
		s.logger.Debugf(providers.TypeSync, "Session %s vanished from %s, dropping fingerprint", id, date)
		if err := s.kv.Delete(s.sessionKey(id)); err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
	}

	if len(ids) == 0 {
		if hadOld {
			return s.kv.Delete(key)
		}
		return nil
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return s.save(key, models.SessionListFingerprint{
		SchemaVersion: models.FingerprintSchemaVersion,
		CalendarDate:  date,
		EditedAt:      now,
		SessionIDs:    sorted,
	})
}

// SessionIDs returns the committed session ids of date.
func (s *Store) SessionIDs(date models.LocalDate) []string {
	var fp models.SessionListFingerprint
	if !s.load(s.sessionListKey(date), &fp) {
		return nil
	}
	return fp.SessionIDs
}

// NeedsSyncScalar reports whether point is a new profile value. A nil point
// means the provider has nothing and never needs a sync.
func (s *Store) NeedsSyncScalar(field models.ProfileField, point *models.DataPoint[float64]) bool {
	if point == nil {
		return false
	}
	var fp models.ScalarFingerprint
	if !s.load(s.profileKey(field), &fp) {
		return true
	}
	if !fp.MeasuredAt.Equal(point.Start) {
		return true
	}
	return exceeds(fp.Value, point.Value, ScalarTolerance)
}

func (s *Store) CommitScalar(field models.ProfileField, point models.DataPoint[float64]) error {
	return s.save(s.profileKey(field), models.ScalarFingerprint{
		SchemaVersion: models.FingerprintSchemaVersion,
		EditedAt:      s.now().UTC(),
		Value:         point.Value,
		MeasuredAt:    point.Start,
	})
}

// load decodes key into dst and reports whether a usable fingerprint of the
// current schema version was found.
func (s *Store) load(key string, dst interface{}) bool {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		s.logger.Warnf(providers.TypeSync, "Failed to read fingerprint %s, treating as absent: %s", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warnf(providers.TypeSync, "Malformed fingerprint %s, treating as absent: %s", key, err)
		return false
	}
	if v := schemaVersionOf(dst); v != models.FingerprintSchemaVersion {
		s.logger.Debugf(providers.TypeSync, "Fingerprint %s has schema version %d, treating as absent", key, v)
		return false
	}
	return true
}

func schemaVersionOf(fp interface{}) int {
	switch v := fp.(type) {
	case *models.BatchFingerprint:
		return v.SchemaVersion
	case *models.SessionFingerprint:
		return v.SchemaVersion
	case *models.SessionListFingerprint:
		return v.SchemaVersion
	case *models.ScalarFingerprint:
		return v.SchemaVersion
	default:
		return -1
	}
}

func (s *Store) save(key string, fp interface{}) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("encode fingerprint %s: %w", key, err)
	}
	if err := s.kv.Set(key, string(data)); err != nil {
		return fmt.Errorf("write fingerprint %s: %w", key, err)
	}
	return nil
}
