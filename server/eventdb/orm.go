package eventdb

import (
	"github.com/tallycam/tallycam/pkg/dbh"
)

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// CountLog is a snapshot of the counter state
type CountLog struct {
	ID           int64       `gorm:"primaryKey" json:"id"`
	Time         dbh.IntTime `json:"time"`
	Entries      int64       `json:"entries"`
	Exits        int64       `json:"exits"`
	PeopleInRoom int64       `json:"peopleInRoom"`
}

func (CountLog) TableName() string {
	return "count_log"
}

// Alert is a notable condition that may need operator attention
type Alert struct {
	ID           int64       `gorm:"primaryKey" json:"id"`
	Time         dbh.IntTime `json:"time"`
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	Severity     Severity    `json:"severity"`
	Acknowledged bool        `json:"acknowledged"`
}

func (Alert) TableName() string {
	return "alert"
}

// HealthSample is a point-in-time measurement of system health
type HealthSample struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	Time        dbh.IntTime `json:"time"`
	CPU         float64     `json:"cpu"`
	Memory      float64     `json:"memory"`
	Disk        float64     `json:"disk"`
	Temperature float64     `json:"temperature"`
	FPS         float64     `json:"fps"`
}

func (HealthSample) TableName() string {
	return "health_sample"
}
