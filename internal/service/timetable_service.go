package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/skolara-api/internal/models"
	"github.com/noah-isme/skolara-api/internal/repository"
	appErrors "github.com/noah-isme/skolara-api/pkg/errors"
)

type periodRepository interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	FindFirstOverlap(ctx context.Context, q sqlx.QueryerContext, scope repository.OverlapScope) (*models.Period, error)
	InsertTx(ctx context.Context, tx *sqlx.Tx, period *models.Period) error
	FindByID(ctx context.Context, tenantID, id string) (*models.Period, error)
	FindDetailByID(ctx context.Context, tenantID, id string) (*models.PeriodDetail, error)
	ListByClass(ctx context.Context, tenantID, classID, termID string) ([]models.PeriodDetail, error)
	ListByTeacher(ctx context.Context, tenantID, teacherID, termID string) ([]models.PeriodDetail, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type classLookup interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Class, error)
}

type subjectLookup interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Subject, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Teacher, error)
}

type termLookup interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Term, error)
}

// CreatePeriodRequest describes the payload for scheduling a period.
type CreatePeriodRequest struct {
	TermID    string `json:"term_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	DayOfWeek string `json:"day_of_week" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

// TimetableService schedules, reads and removes timetable periods. Every
// operation is scoped to the tenant resolved earlier in the request.
type TimetableService struct {
	periods   periodRepository
	classes   classLookup
	subjects  subjectLookup
	teachers  teacherLookup
	terms     termLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService instantiates TimetableService.
func NewTimetableService(
	periods periodRepository,
	classes classLookup,
	subjects subjectLookup,
	teachers teacherLookup,
	terms termLookup,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		periods:   periods,
		classes:   classes,
		subjects:  subjects,
		teachers:  teachers,
		terms:     terms,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Create schedules a new period. It validates the payload, verifies every
// referenced entity belongs to the tenant, then runs both overlap checks and
// the insert inside one transaction. The teacher lane is always checked
// before the class lane, so a doubly conflicting request reports the teacher
// conflict.
func (s *TimetableService) Create(ctx context.Context, tenantID string, req CreatePeriodRequest) (*models.PeriodDetail, error) {
	req.DayOfWeek = strings.ToUpper(req.DayOfWeek)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	// The datetime tag tolerates "8:00"; only zero-padded HH:MM compares
	// correctly as a string, so reject anything else up front.
	if !models.ValidClockTime(req.StartTime) || !models.ValidClockTime(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "times must be zero-padded 24h HH:MM")
	}
	if req.StartTime >= req.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	if err := s.checkReferences(ctx, tenantID, req); err != nil {
		return nil, err
	}

	period := models.Period{
		TenantID:  tenantID,
		TermID:    req.TermID,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		DayOfWeek: models.DayOfWeek(req.DayOfWeek),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	err := s.periods.WithTx(ctx, func(tx *sqlx.Tx) error {
		teacherScope := repository.OverlapScope{
			TenantID:  tenantID,
			TermID:    period.TermID,
			DayOfWeek: period.DayOfWeek,
			StartTime: period.StartTime,
			EndTime:   period.EndTime,
			TeacherID: period.TeacherID,
		}
		if existing, err := s.periods.FindFirstOverlap(ctx, tx, teacherScope); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher availability")
		} else if existing != nil {
			return s.wrapConflict(ctx, models.ConflictTeacher, "teacher is already booked in this window", *existing)
		}

		classScope := teacherScope
		classScope.TeacherID = ""
		classScope.ClassID = period.ClassID
		if existing, err := s.periods.FindFirstOverlap(ctx, tx, classScope); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class availability")
		} else if existing != nil {
			return s.wrapConflict(ctx, models.ConflictClass, "class is already scheduled in this window", *existing)
		}

		if err := s.periods.InsertTx(ctx, tx, &period); err != nil {
			if errors.Is(err, repository.ErrDuplicateSlot) {
				// Lost the race to a concurrent insert on the same slot key.
				return s.raceConflict(ctx, period)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create period")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTimetables(ctx, tenantID)

	detail, err := s.periods.FindDetailByID(ctx, tenantID, period.ID)
	if err != nil {
		s.logger.Warn("failed to resolve created period detail", zap.String("period_id", period.ID), zap.Error(err))
		return &models.PeriodDetail{Period: period}, nil
	}
	return detail, nil
}

// ClassTimetable returns all periods for a class and term ordered by start.
func (s *TimetableService) ClassTimetable(ctx context.Context, tenantID, classID, termID string) ([]models.PeriodDetail, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}

	key := timetableCacheKey(tenantID, "class", classID, termID)
	var cached []models.PeriodDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	if _, err := s.classes.FindByID(ctx, tenantID, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	periods, err := s.periods.ListByClass(ctx, tenantID, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class timetable")
	}

	s.cache.Set(ctx, key, periods)
	return periods, nil
}

// TeacherTimetable returns all periods for a teacher and term ordered by start.
func (s *TimetableService) TeacherTimetable(ctx context.Context, tenantID, teacherID, termID string) ([]models.PeriodDetail, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}

	key := timetableCacheKey(tenantID, "teacher", teacherID, termID)
	var cached []models.PeriodDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	if _, err := s.teachers.FindByID(ctx, tenantID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	periods, err := s.periods.ListByTeacher(ctx, tenantID, teacherID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher timetable")
	}

	s.cache.Set(ctx, key, periods)
	return periods, nil
}

// Delete removes a period. Changing a slot is delete and recreate; there is
// no update-in-place.
func (s *TimetableService) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := s.periods.FindByID(ctx, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}

	if err := s.periods.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete period")
	}

	s.invalidateTimetables(ctx, tenantID)
	return nil
}

// checkReferences verifies class, subject, teacher and term all exist under
// the tenant. The four lookups run concurrently; the first miss wins.
func (s *TimetableService) checkReferences(ctx context.Context, tenantID string, req CreatePeriodRequest) error {
	g, gctx := errgroup.WithContext(ctx)

	lookup := func(entity string, find func(context.Context) error) func() error {
		return func() error {
			if err := find(gctx); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
			}
			return nil
		}
	}

	g.Go(lookup("class", func(ctx context.Context) error {
		_, err := s.classes.FindByID(ctx, tenantID, req.ClassID)
		return err
	}))
	g.Go(lookup("subject", func(ctx context.Context) error {
		_, err := s.subjects.FindByID(ctx, tenantID, req.SubjectID)
		return err
	}))
	g.Go(lookup("teacher", func(ctx context.Context) error {
		_, err := s.teachers.FindByID(ctx, tenantID, req.TeacherID)
		return err
	}))
	g.Go(lookup("term", func(ctx context.Context) error {
		_, err := s.terms.FindByID(ctx, tenantID, req.TermID)
		return err
	}))

	return g.Wait()
}

func (s *TimetableService) wrapConflict(ctx context.Context, dimension, message string, existing models.Period) error {
	conflict := models.PeriodConflict{
		PeriodID:  existing.ID,
		TermID:    existing.TermID,
		ClassID:   existing.ClassID,
		SubjectID: existing.SubjectID,
		TeacherID: existing.TeacherID,
		DayOfWeek: existing.DayOfWeek,
		StartTime: existing.StartTime,
		EndTime:   existing.EndTime,
		Dimension: dimension,
	}
	if detail, err := s.periods.FindDetailByID(ctx, existing.TenantID, existing.ID); err == nil {
		conflict.SubjectName = detail.SubjectName
		conflict.TeacherName = detail.TeacherName
	}

	domainErr := &models.PeriodConflictError{Dimension: dimension, Message: message, Conflict: conflict}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("period conflict: %s", message))
}

// raceConflict reports the period that won a concurrent insert on the same
// slot key. The constraint covers the teacher lane, so the conflict is
// reported on that dimension.
func (s *TimetableService) raceConflict(ctx context.Context, period models.Period) error {
	scope := repository.OverlapScope{
		TenantID:  period.TenantID,
		TermID:    period.TermID,
		DayOfWeek: period.DayOfWeek,
		StartTime: period.StartTime,
		EndTime:   period.EndTime,
		TeacherID: period.TeacherID,
	}
	if existing, err := s.periods.FindFirstOverlap(ctx, nil, scope); err == nil && existing != nil {
		return s.wrapConflict(ctx, models.ConflictTeacher, "teacher is already booked in this window", *existing)
	}
	return appErrors.Clone(appErrors.ErrConflict, "period slot was just taken")
}

func (s *TimetableService) invalidateTimetables(ctx context.Context, tenantID string) {
	if err := s.cache.InvalidatePattern(ctx, timetableCachePattern(tenantID)); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func timetableCacheKey(tenantID, scope, scopeID, termID string) string {
	return fmt.Sprintf("timetable:%s:%s:%s:%s", tenantID, scope, scopeID, termID)
}

func timetableCachePattern(tenantID string) string {
	return fmt.Sprintf("timetable:%s:*", tenantID)
}
