package eventdb

import (
	"errors"
	"time"

	"github.com/tallycam/tallycam/pkg/dbh"
	"gorm.io/gorm"
)

var ErrAlertNotFound = errors.New("alert not found")

// AddCountLog stores a counter snapshot.
func (e *EventDB) AddCountLog(entries, exits, peopleInRoom int64, at time.Time) error {
	rec := &CountLog{
		Time:         dbh.MakeIntTime(at),
		Entries:      entries,
		Exits:        exits,
		PeopleInRoom: peopleInRoom,
	}
	return e.db.Create(rec).Error
}

// CountLogs returns snapshots in [since, now], newest first, at most limit.
func (e *EventDB) CountLogs(since time.Time, limit int) ([]CountLog, error) {
	if limit <= 0 {
		limit = 100
	}
	logs := []CountLog{}
	q := e.db.Order("time DESC").Limit(limit)
	if !since.IsZero() {
		q = q.Where("time >= ?", dbh.MakeIntTime(since))
	}
	err := q.Find(&logs).Error
	return logs, err
}

// AddAlert stores an alert and returns its id.
func (e *EventDB) AddAlert(alertType, message string, severity Severity, at time.Time) (int64, error) {
	if !severity.Valid() {
		severity = SeverityInfo
	}
	rec := &Alert{
		Time:     dbh.MakeIntTime(at),
		Type:     alertType,
		Message:  message,
		Severity: severity,
	}
	if err := e.db.Create(rec).Error; err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// AlertFilter narrows an Alerts query. Zero values mean "no constraint".
type AlertFilter struct {
	Since              time.Time
	Type               string
	Severity           Severity
	UnacknowledgedOnly bool
	Limit              int
}

// Alerts returns alerts newest first.
func (e *EventDB) Alerts(filter AlertFilter) ([]Alert, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	alerts := []Alert{}
	q := e.db.Order("time DESC").Limit(limit)
	if !filter.Since.IsZero() {
		q = q.Where("time >= ?", dbh.MakeIntTime(filter.Since))
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Severity != "" {
		q = q.Where("severity = ?", filter.Severity)
	}
	if filter.UnacknowledgedOnly {
		q = q.Where("acknowledged = 0")
	}
	err := q.Find(&alerts).Error
	return alerts, err
}

// AcknowledgeAlert marks an alert as acknowledged.
func (e *EventDB) AcknowledgeAlert(id int64) error {
	r := e.db.Model(&Alert{}).Where("id = ?", id).Update("acknowledged", true)
	if r.Error != nil {
		return r.Error
	}
	if r.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// AlertTypes returns the distinct alert types present in the DB, sorted.
// Dashboards use this to build their filter dropdown.
func (e *EventDB) AlertTypes() ([]string, error) {
	db, err := e.db.DB()
	if err != nil {
		return nil, err
	}
	return dbh.ScanArray[string](db.Query("SELECT DISTINCT type FROM alert ORDER BY type"))
}

// AddHealthSample stores a system health measurement.
func (e *EventDB) AddHealthSample(s HealthSample) error {
	if s.Time == 0 {
		s.Time = dbh.MakeIntTime(time.Now())
	}
	s.ID = 0
	return e.db.Create(&s).Error
}

// HealthSamples returns samples in [since, now], newest first, at most limit.
func (e *EventDB) HealthSamples(since time.Time, limit int) ([]HealthSample, error) {
	if limit <= 0 {
		limit = 100
	}
	samples := []HealthSample{}
	q := e.db.Order("time DESC").Limit(limit)
	if !since.IsZero() {
		q = q.Where("time >= ?", dbh.MakeIntTime(since))
	}
	err := q.Find(&samples).Error
	return samples, err
}

// LatestHealthSample returns the newest sample, or nil if there are none.
func (e *EventDB) LatestHealthSample() (*HealthSample, error) {
	s := HealthSample{}
	r := e.db.Order("time DESC").Limit(1).Find(&s)
	if r.Error != nil {
		return nil, r.Error
	}
	if r.RowsAffected == 0 {
		return nil, nil
	}
	return &s, nil
}

// PurgeOlderThan deletes history older than the cutoff, in all tables.
func (e *EventDB) PurgeOlderThan(cutoff time.Time) error {
	t := dbh.MakeIntTime(cutoff)
	if err := e.db.Where("time < ?", t).Delete(&CountLog{}).Error; err != nil {
		return err
	}
	if err := e.db.Where("time < ?", t).Delete(&Alert{}).Error; err != nil {
		return err
	}
	return e.db.Where("time < ?", t).Delete(&HealthSample{}).Error
}

// Underlying DB, for tests and maintenance tooling
func (e *EventDB) DB() *gorm.DB {
	return e.db
}
