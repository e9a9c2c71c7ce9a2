package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/material"
	"github.com/trezcool/masomo-records/core/student"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrNoMaterial         = errors.New("course has no material")
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this course")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

const (
	warnSummaryFailed    = "Material saved, but its summary could not be generated: "
	warnOldFileKept      = "Previous material could not be removed."
	warnMaterialFileKept = "Course deleted, but its material file could not be removed."
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses orders by start date, most recent first.
		QueryCourses(ctx context.Context) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// DeleteCourse deletes the course and its enrollments.
		DeleteCourse(ctx context.Context, id string) error

		// CreateEnrollment returns ErrAlreadyEnrolled for a duplicate (student, course) pair.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, courseID, studentID string) error
		// QueryEnrollments filters on the non-empty fields of filter, oldest first.
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
	}

	EnrollmentFilter struct {
		CourseID  string
		StudentID string
	}

	// StudentFinder resolves students for enrollments.
	StudentFinder interface {
		Get(ctx context.Context, id string) (student.Student, error)
	}

	// MaterialSummarizer derives the summary of stored material.
	MaterialSummarizer interface {
		Summarize(ctx context.Context, storedName string) material.Outcome
	}

	Service struct {
		repo     Repository
		students StudentFinder
		store    *material.Store
		pipeline MaterialSummarizer
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	students StudentFinder,
	store *material.Store,
	pipeline MaterialSummarizer,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		students: students,
		store:    store,
		pipeline: pipeline,
		logger:   logger,
	}
}

// generateSummary applies the summary outcome of the course's current material to c.
// It returns false when the summary could not be generated.
func (svc *Service) generateSummary(ctx context.Context, c *Course) bool {
	out := svc.pipeline.Summarize(ctx, c.MaterialPath.String)
	c.MaterialSummary = out.Summary
	if !out.OK {
		svc.logger.Error("summary generation failed", "course", c.ID, "reason", out.Summary.String)
	}
	return out.OK
}

func (svc *Service) summarize(ctx context.Context, c *Course, res *SaveResult) {
	res.SummaryOK = svc.generateSummary(ctx, c)
	if !res.SummaryOK {
		res.warn(warnSummaryFailed + c.MaterialSummary.String)
	}
}

// Create adds a course, storing and summarizing upload when given. nc must have been validated.
// A rejected upload aborts the creation: nothing is stored or persisted.
func (svc *Service) Create(ctx context.Context, nc NewCourse, creatorID string, upload *Upload) (SaveResult, error) {
	startDate, err := parseDate(nc.StartDate)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "parsing start date")
	}

	now := time.Now().UTC()
	c := Course{
		ID:        uuid.NewString(),
		Title:     nc.Title,
		StartDate: startDate,
		UserID:    null.NewString(creatorID, creatorID != ""),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var res SaveResult
	res.SummaryOK = true
	if upload != nil {
		name, err := svc.store.Save(upload.Content, upload.Filename, c.ID)
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "storing material")
		}
		c.MaterialPath = null.StringFrom(name)
		svc.summarize(ctx, &c, &res)
	}

	if res.Course, err = svc.repo.CreateCourse(ctx, c); err != nil {
		if c.MaterialPath.Valid {
			if rmErr := svc.store.Delete(c.MaterialPath.String); rmErr != nil {
				svc.logger.Warn("removing orphaned material", "path", c.MaterialPath.String, "error", rmErr)
			}
		}
		return SaveResult{}, errors.Wrap(err, "creating course")
	}
	return res, nil
}

func (svc *Service) Query(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// Update modifies a course. A new upload replaces the current material and is summarized again.
// uc must have been validated. editorID becomes the creator of courses that have none.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse, editorID string, upload *Upload) (SaveResult, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}

	if uc.Title != "" {
		c.Title = uc.Title
	}
	if uc.StartDate != "" {
		if c.StartDate, err = parseDate(uc.StartDate); err != nil {
			return SaveResult{}, errors.Wrap(err, "parsing start date")
		}
	}
	if !c.UserID.Valid && editorID != "" {
		c.UserID = null.StringFrom(editorID)
	}

	var res SaveResult
	res.SummaryOK = true
	if upload != nil {
		rpl, err := svc.store.Replace(c.MaterialPath.String, upload.Content, upload.Filename, c.ID)
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "replacing material")
		}
		if rpl.RemoveErr != nil {
			res.warn(warnOldFileKept)
		}
		c.MaterialPath = null.StringFrom(rpl.Filename)
		svc.summarize(ctx, &c, &res)
	}

	c.UpdatedAt = time.Now().UTC()
	if res.Course, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return SaveResult{}, errors.Wrap(err, "updating course")
	}
	return res, nil
}

// RegenerateSummary summarizes the current material of a course again.
func (svc *Service) RegenerateSummary(ctx context.Context, id string) (SaveResult, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}
	if !c.MaterialPath.Valid || c.MaterialPath.String == "" {
		return SaveResult{}, core.NewValidationError(ErrNoMaterial, core.FieldError{Field: "material", Error: ErrNoMaterial.Error()})
	}

	var res SaveResult
	svc.summarize(ctx, &c, &res)
	c.UpdatedAt = time.Now().UTC()
	if res.Course, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return SaveResult{}, errors.Wrap(err, "updating course")
	}
	return res, nil
}

// Delete removes a course, its enrollments and, best-effort, its material file.
func (svc *Service) Delete(ctx context.Context, id string) (SaveResult, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}

	res := SaveResult{Course: c}
	if c.MaterialPath.Valid && c.MaterialPath.String != "" {
		if err := svc.store.Delete(c.MaterialPath.String); err != nil {
			svc.logger.Warn("removing material of deleted course", "course", c.ID, "path", c.MaterialPath.String, "error", err)
			res.warn(warnMaterialFileKept)
		}
	}

	if err := svc.repo.DeleteCourse(ctx, id); err != nil {
		return SaveResult{}, errors.Wrap(err, "deleting course")
	}
	return res, nil
}
