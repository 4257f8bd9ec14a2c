package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/skolara-api/internal/models"
)

// ErrDuplicateSlot is returned when the periods unique constraint rejects an
// insert. Two requests racing past the overlap checks resolve here: one
// commits, the other surfaces as a booking conflict.
var ErrDuplicateSlot = errors.New("duplicate period slot")

const periodColumns = "id, tenant_id, term_id, class_id, subject_id, teacher_id, day_of_week, start_time, end_time, created_at"

const periodDetailQuery = `SELECT p.id, p.tenant_id, p.term_id, p.class_id, p.subject_id, p.teacher_id, p.day_of_week, p.start_time, p.end_time, p.created_at,
	s.name AS subject_name, t.full_name AS teacher_name, c.name AS class_name
	FROM periods p
	JOIN subjects s ON s.id = p.subject_id
	JOIN teachers t ON t.id = p.teacher_id
	JOIN classes c ON c.id = p.class_id`

// dayOrderExpr sorts day names chronologically; a plain ORDER BY on the text
// column would put FRIDAY before MONDAY.
const dayOrderExpr = `CASE p.day_of_week
		WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3
		WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6
		WHEN 'SUNDAY' THEN 7 END`

// OverlapScope narrows an overlap search to one timetable lane. Exactly one
// of TeacherID or ClassID is set.
type OverlapScope struct {
	TenantID  string
	TermID    string
	DayOfWeek models.DayOfWeek
	StartTime string
	EndTime   string
	TeacherID string
	ClassID   string
}

// PeriodRepository provides tenant-scoped persistence for timetable periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository creates a new period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// WithTx runs fn inside a transaction, rolling back on error.
func (r *PeriodRepository) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin period tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit period tx: %w", err)
	}
	return nil
}

// FindFirstOverlap returns the first existing period whose half-open time
// range intersects the candidate within the scope's lane, or nil. The single
// inequality start < newEnd AND end > newStart is the collapsed form of the
// three-case overlap analysis; lexicographic comparison is valid because
// times are fixed-width HH:MM strings.
func (r *PeriodRepository) FindFirstOverlap(ctx context.Context, q sqlx.QueryerContext, scope OverlapScope) (*models.Period, error) {
	if q == nil {
		q = r.db
	}

	lane := "teacher_id"
	laneID := scope.TeacherID
	if scope.ClassID != "" {
		lane = "class_id"
		laneID = scope.ClassID
	}

	query := fmt.Sprintf(`SELECT %s FROM periods
		WHERE tenant_id = $1 AND term_id = $2 AND day_of_week = $3 AND %s = $4
		AND start_time < $5 AND end_time > $6
		ORDER BY start_time ASC LIMIT 1`, periodColumns, lane)

	var period models.Period
	err := sqlx.GetContext(ctx, q, &period, query, scope.TenantID, scope.TermID, scope.DayOfWeek, laneID, scope.EndTime, scope.StartTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping period: %w", err)
	}
	return &period, nil
}

// InsertTx stores a new period within the given transaction. A unique
// constraint violation on the slot key maps to ErrDuplicateSlot.
func (r *PeriodRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, period *models.Period) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	if period.CreatedAt.IsZero() {
		period.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO periods (id, tenant_id, term_id, class_id, subject_id, teacher_id, day_of_week, start_time, end_time, created_at)
		VALUES (:id, :tenant_id, :term_id, :class_id, :subject_id, :teacher_id, :day_of_week, :start_time, :end_time, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, period); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateSlot
		}
		return fmt.Errorf("insert period: %w", err)
	}
	return nil
}

// FindByID loads a period by id within a tenant.
func (r *PeriodRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Period, error) {
	query := fmt.Sprintf("SELECT %s FROM periods WHERE tenant_id = $1 AND id = $2", periodColumns)
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, tenantID, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindDetailByID loads a period with subject, teacher and class names resolved.
func (r *PeriodRepository) FindDetailByID(ctx context.Context, tenantID, id string) (*models.PeriodDetail, error) {
	query := periodDetailQuery + " WHERE p.tenant_id = $1 AND p.id = $2"
	var detail models.PeriodDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByClass returns a class timetable for a term ordered by day and start.
func (r *PeriodRepository) ListByClass(ctx context.Context, tenantID, classID, termID string) ([]models.PeriodDetail, error) {
	query := periodDetailQuery + ` WHERE p.tenant_id = $1 AND p.class_id = $2 AND p.term_id = $3
		ORDER BY ` + dayOrderExpr + `, p.start_time ASC`
	var periods []models.PeriodDetail
	if err := r.db.SelectContext(ctx, &periods, query, tenantID, classID, termID); err != nil {
		return nil, fmt.Errorf("list periods by class: %w", err)
	}
	return periods, nil
}

// ListByTeacher returns a teacher timetable for a term ordered by day and start.
func (r *PeriodRepository) ListByTeacher(ctx context.Context, tenantID, teacherID, termID string) ([]models.PeriodDetail, error) {
	query := periodDetailQuery + ` WHERE p.tenant_id = $1 AND p.teacher_id = $2 AND p.term_id = $3
		ORDER BY ` + dayOrderExpr + `, p.start_time ASC`
	var periods []models.PeriodDetail
	if err := r.db.SelectContext(ctx, &periods, query, tenantID, teacherID, termID); err != nil {
		return nil, fmt.Errorf("list periods by teacher: %w", err)
	}
	return periods, nil
}

// Delete removes a period by id within a tenant. Returns sql.ErrNoRows when
// nothing matched.
func (r *PeriodRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM periods WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete period rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
