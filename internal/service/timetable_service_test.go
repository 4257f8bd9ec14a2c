package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/skolara-api/internal/models"
	"github.com/noah-isme/skolara-api/internal/repository"
	appErrors "github.com/noah-isme/skolara-api/pkg/errors"
)

type fakePeriodRepo struct {
	periods      []models.Period
	insertErr    error
	deleted      []string
	detailByID   map[string]*models.PeriodDetail
	nextIDSuffix int
}

func (f *fakePeriodRepo) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakePeriodRepo) FindFirstOverlap(ctx context.Context, q sqlx.QueryerContext, scope repository.OverlapScope) (*models.Period, error) {
	candidate := models.Period{StartTime: scope.StartTime, EndTime: scope.EndTime}
	for _, p := range f.periods {
		if p.TenantID != scope.TenantID || p.TermID != scope.TermID || p.DayOfWeek != scope.DayOfWeek {
			continue
		}
		if scope.ClassID != "" {
			if p.ClassID != scope.ClassID {
				continue
			}
		} else if p.TeacherID != scope.TeacherID {
			continue
		}
		if p.Overlaps(candidate) {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePeriodRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, period *models.Period) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if period.ID == "" {
		f.nextIDSuffix++
		period.ID = "p" + string(rune('0'+f.nextIDSuffix))
	}
	f.periods = append(f.periods, *period)
	return nil
}

func (f *fakePeriodRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Period, error) {
	for _, p := range f.periods {
		if p.TenantID == tenantID && p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePeriodRepo) FindDetailByID(ctx context.Context, tenantID, id string) (*models.PeriodDetail, error) {
	if d, ok := f.detailByID[id]; ok {
		cp := *d
		return &cp, nil
	}
	p, err := f.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return &models.PeriodDetail{Period: *p}, nil
}

func (f *fakePeriodRepo) ListByClass(ctx context.Context, tenantID, classID, termID string) ([]models.PeriodDetail, error) {
	var out []models.PeriodDetail
	for _, p := range f.periods {
		if p.TenantID == tenantID && p.ClassID == classID && p.TermID == termID {
			out = append(out, models.PeriodDetail{Period: p})
		}
	}
	return out, nil
}

func (f *fakePeriodRepo) ListByTeacher(ctx context.Context, tenantID, teacherID, termID string) ([]models.PeriodDetail, error) {
	var out []models.PeriodDetail
	for _, p := range f.periods {
		if p.TenantID == tenantID && p.TeacherID == teacherID && p.TermID == termID {
			out = append(out, models.PeriodDetail{Period: p})
		}
	}
	return out, nil
}

func (f *fakePeriodRepo) Delete(ctx context.Context, tenantID, id string) error {
	for i, p := range f.periods {
		if p.TenantID == tenantID && p.ID == id {
			f.periods = append(f.periods[:i], f.periods[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

// fakeCatalog answers FindByID for every lookup interface from a single set
// of tenant-scoped ids.
type fakeCatalog struct {
	known map[string]string // id -> tenant
}

func (f *fakeCatalog) has(tenantID, id string) bool {
	owner, ok := f.known[id]
	return ok && owner == tenantID
}

type fakeClasses struct{ *fakeCatalog }

func (f fakeClasses) FindByID(ctx context.Context, tenantID, id string) (*models.Class, error) {
	if !f.has(tenantID, id) {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: id, TenantID: tenantID}, nil
}

type fakeSubjects struct{ *fakeCatalog }

func (f fakeSubjects) FindByID(ctx context.Context, tenantID, id string) (*models.Subject, error) {
	if !f.has(tenantID, id) {
		return nil, sql.ErrNoRows
	}
	return &models.Subject{ID: id, TenantID: tenantID}, nil
}

type fakeTeachers struct{ *fakeCatalog }

func (f fakeTeachers) FindByID(ctx context.Context, tenantID, id string) (*models.Teacher, error) {
	if !f.has(tenantID, id) {
		return nil, sql.ErrNoRows
	}
	return &models.Teacher{ID: id, TenantID: tenantID}, nil
}

type fakeTerms struct{ *fakeCatalog }

func (f fakeTerms) FindByID(ctx context.Context, tenantID, id string) (*models.Term, error) {
	if !f.has(tenantID, id) {
		return nil, sql.ErrNoRows
	}
	return &models.Term{ID: id, TenantID: tenantID}, nil
}

func newTimetableFixture() (*TimetableService, *fakePeriodRepo) {
	repo := &fakePeriodRepo{}
	catalog := &fakeCatalog{known: map[string]string{
		"term-1":    "tenant-a",
		"class-1":   "tenant-a",
		"class-2":   "tenant-a",
		"subject-1": "tenant-a",
		"teacher-1": "tenant-a",
		"teacher-2": "tenant-a",
		"term-b":    "tenant-b",
		"class-b":   "tenant-b",
		"subject-b": "tenant-b",
		"teacher-b": "tenant-b",
	}}
	svc := NewTimetableService(
		repo,
		fakeClasses{catalog},
		fakeSubjects{catalog},
		fakeTeachers{catalog},
		fakeTerms{catalog},
		nil,
		validator.New(),
		zap.NewNop(),
	)
	return svc, repo
}

func basePeriodRequest() CreatePeriodRequest {
	return CreatePeriodRequest{
		TermID:    "term-1",
		ClassID:   "class-1",
		SubjectID: "subject-1",
		TeacherID: "teacher-1",
		DayOfWeek: "MONDAY",
		StartTime: "08:00",
		EndTime:   "09:00",
	}
}

func TestTimetableCreate(t *testing.T) {
	svc, repo := newTimetableFixture()

	detail, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, detail.ID)
	assert.Equal(t, "tenant-a", detail.TenantID)
	assert.Equal(t, models.Monday, detail.DayOfWeek)
	assert.Len(t, repo.periods, 1)
}

func TestTimetableCreateLowercaseDayAccepted(t *testing.T) {
	svc, _ := newTimetableFixture()

	req := basePeriodRequest()
	req.DayOfWeek = "monday"
	detail, err := svc.Create(context.Background(), "tenant-a", req)
	require.NoError(t, err)
	assert.Equal(t, models.Monday, detail.DayOfWeek)
}

func TestTimetableCreateRejectsInvalidPayload(t *testing.T) {
	svc, repo := newTimetableFixture()

	cases := []struct {
		name   string
		mutate func(*CreatePeriodRequest)
	}{
		{"bad day", func(r *CreatePeriodRequest) { r.DayOfWeek = "FUNDAY" }},
		{"bad time format", func(r *CreatePeriodRequest) { r.StartTime = "8:00" }},
		{"hour out of range", func(r *CreatePeriodRequest) { r.EndTime = "24:00" }},
		{"missing teacher", func(r *CreatePeriodRequest) { r.TeacherID = "" }},
		{"inverted interval", func(r *CreatePeriodRequest) { r.StartTime, r.EndTime = "10:00", "09:00" }},
		{"zero length", func(r *CreatePeriodRequest) { r.EndTime = r.StartTime }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := basePeriodRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), "tenant-a", req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, repo.periods)
}

// Unpadded times like "8:45" sort after every padded hour, which would let a
// booking slip past both overlap checks. They must die at validation.
func TestTimetableCreateRejectsUnpaddedTimeBeforeOverlapCheck(t *testing.T) {
	svc, repo := newTimetableFixture()

	first := basePeriodRequest()
	first.StartTime, first.EndTime = "08:30", "09:30"
	_, err := svc.Create(context.Background(), "tenant-a", first)
	require.NoError(t, err)

	second := basePeriodRequest()
	second.StartTime, second.EndTime = "8:45", "9:15"
	_, err = svc.Create(context.Background(), "tenant-a", second)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.periods, 1)
}

func TestTimetableCreateUnknownReference(t *testing.T) {
	svc, _ := newTimetableFixture()

	req := basePeriodRequest()
	req.SubjectID = "subject-missing"
	_, err := svc.Create(context.Background(), "tenant-a", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Contains(t, err.Error(), "subject not found")
}

func TestTimetableCreateCrossTenantReferenceHidden(t *testing.T) {
	svc, _ := newTimetableFixture()

	// teacher-b exists, but under tenant-b. From tenant-a it must look absent.
	req := basePeriodRequest()
	req.TeacherID = "teacher-b"
	_, err := svc.Create(context.Background(), "tenant-a", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableCreateTeacherConflict(t *testing.T) {
	svc, repo := newTimetableFixture()

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	// Same teacher, different class, overlapping window.
	req := basePeriodRequest()
	req.ClassID = "class-2"
	req.StartTime, req.EndTime = "08:30", "09:30"
	_, err = svc.Create(context.Background(), "tenant-a", req)
	require.Error(t, err)

	var conflictErr *models.PeriodConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, models.ConflictTeacher, conflictErr.Dimension)
	assert.Equal(t, "08:00", conflictErr.Conflict.StartTime)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
	assert.Len(t, repo.periods, 1)
}

func TestTimetableCreateClassConflict(t *testing.T) {
	svc, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	// Same class, different teacher, nested window.
	req := basePeriodRequest()
	req.TeacherID = "teacher-2"
	req.StartTime, req.EndTime = "08:15", "08:45"
	_, err = svc.Create(context.Background(), "tenant-a", req)
	require.Error(t, err)

	var conflictErr *models.PeriodConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, models.ConflictClass, conflictErr.Dimension)
}

func TestTimetableCreateTeacherConflictReportedFirst(t *testing.T) {
	svc, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	// Identical slot conflicts on both lanes; the teacher lane wins.
	_, err = svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.Error(t, err)

	var conflictErr *models.PeriodConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, models.ConflictTeacher, conflictErr.Dimension)
}

func TestTimetableCreateTouchingSlotsAllowed(t *testing.T) {
	svc, repo := newTimetableFixture()

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	req := basePeriodRequest()
	req.StartTime, req.EndTime = "09:00", "10:00"
	_, err = svc.Create(context.Background(), "tenant-a", req)
	require.NoError(t, err)
	assert.Len(t, repo.periods, 2)
}

func TestTimetableCreateIndependentDimensions(t *testing.T) {
	svc, repo := newTimetableFixture()

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	// Same window on another day.
	req := basePeriodRequest()
	req.DayOfWeek = "TUESDAY"
	_, err = svc.Create(context.Background(), "tenant-a", req)
	require.NoError(t, err)

	// Same window, same day, different class and teacher.
	req = basePeriodRequest()
	req.ClassID = "class-2"
	req.TeacherID = "teacher-2"
	_, err = svc.Create(context.Background(), "tenant-a", req)
	require.NoError(t, err)

	assert.Len(t, repo.periods, 3)
}

func TestTimetableCreateTenantsDoNotCollide(t *testing.T) {
	svc, repo := newTimetableFixture()

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	// The identical slot under another tenant is not a conflict.
	req := CreatePeriodRequest{
		TermID:    "term-b",
		ClassID:   "class-b",
		SubjectID: "subject-b",
		TeacherID: "teacher-b",
		DayOfWeek: "MONDAY",
		StartTime: "08:00",
		EndTime:   "09:00",
	}
	_, err = svc.Create(context.Background(), "tenant-b", req)
	require.NoError(t, err)
	assert.Len(t, repo.periods, 2)
}

func TestTimetableCreateLostInsertRace(t *testing.T) {
	svc, repo := newTimetableFixture()
	repo.insertErr = repository.ErrDuplicateSlot

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestTimetableConflictCarriesDisplayNames(t *testing.T) {
	svc, repo := newTimetableFixture()

	created, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)
	repo.detailByID = map[string]*models.PeriodDetail{
		created.ID: {Period: created.Period, SubjectName: "Mathematics", TeacherName: "A. Turing"},
	}

	_, err = svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.Error(t, err)

	var conflictErr *models.PeriodConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "Mathematics", conflictErr.Conflict.SubjectName)
	assert.Equal(t, "A. Turing", conflictErr.Conflict.TeacherName)
}

func TestClassTimetable(t *testing.T) {
	svc, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	periods, err := svc.ClassTimetable(context.Background(), "tenant-a", "class-1", "term-1")
	require.NoError(t, err)
	assert.Len(t, periods, 1)

	// Another tenant sees nothing even with matching ids.
	_, err = svc.ClassTimetable(context.Background(), "tenant-b", "class-1", "term-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassTimetableRequiresTerm(t *testing.T) {
	svc, _ := newTimetableFixture()

	_, err := svc.ClassTimetable(context.Background(), "tenant-a", "class-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherTimetable(t *testing.T) {
	svc, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	periods, err := svc.TeacherTimetable(context.Background(), "tenant-a", "teacher-1", "term-1")
	require.NoError(t, err)
	assert.Len(t, periods, 1)

	_, err = svc.TeacherTimetable(context.Background(), "tenant-a", "teacher-missing", "term-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableDelete(t *testing.T) {
	svc, repo := newTimetableFixture()

	created, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "tenant-a", created.ID))
	assert.Equal(t, []string{created.ID}, repo.deleted)

	err = svc.Delete(context.Background(), "tenant-a", created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableDeleteOtherTenant(t *testing.T) {
	svc, repo := newTimetableFixture()

	created, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "tenant-b", created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.periods, 1)
}

func TestTimetableDeleteThenRebook(t *testing.T) {
	svc, _ := newTimetableFixture()

	created, err := svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), "tenant-a", created.ID))

	_, err = svc.Create(context.Background(), "tenant-a", basePeriodRequest())
	require.NoError(t, err)
}
