package models

import (
	"regexp"
	"time"
)

// DayOfWeek enumerates schedulable days.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// Valid reports whether the value is one of the seven days.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// timePattern matches zero-padded 24h wall-clock times. Fixed-width HH:MM
// strings sort lexicographically in time order, so periods never need a
// parsed time representation.
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidClockTime reports whether s is a well-formed HH:MM string.
func ValidClockTime(s string) bool {
	return timePattern.MatchString(s)
}

// Period is one scheduled teaching slot within an academic term. Every query
// touching periods is filtered by tenant id.
type Period struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	TermID    string    `db:"term_id" json:"term_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PeriodDetail extends Period with display names resolved via joins.
type PeriodDetail struct {
	Period
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	ClassName   string `db:"class_name" json:"class_name"`
}

// Overlaps reports whether two half-open intervals [StartTime, EndTime)
// intersect. Touching boundaries do not overlap. Day, term and tenant
// scoping happen in the queries that select candidates; this predicate only
// compares the time ranges.
func (p Period) Overlaps(other Period) bool {
	return p.StartTime < other.EndTime && p.EndTime > other.StartTime
}

// PeriodConflict describes an existing period that blocks a new booking.
type PeriodConflict struct {
	PeriodID    string    `json:"period_id"`
	TermID      string    `json:"term_id"`
	ClassID     string    `json:"class_id"`
	SubjectID   string    `json:"subject_id"`
	TeacherID   string    `json:"teacher_id"`
	DayOfWeek   DayOfWeek `json:"day_of_week"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Dimension   string    `json:"dimension"`
	SubjectName string    `json:"subject_name,omitempty"`
	TeacherName string    `json:"teacher_name,omitempty"`
}

// Conflict dimensions.
const (
	ConflictTeacher = "TEACHER"
	ConflictClass   = "CLASS"
)

// PeriodConflictError is returned when a period collides with an existing one.
type PeriodConflictError struct {
	Dimension string         `json:"dimension"`
	Message   string         `json:"message"`
	Conflict  PeriodConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *PeriodConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
