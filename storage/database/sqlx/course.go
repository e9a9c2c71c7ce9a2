package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/course"
)

const (
	courseColumns     = `id, title, start_date, material_path, material_summary, user_id, created_at, updated_at`
	enrollmentColumns = `id, student_id, course_id, enrolled_on`
)

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	_, err := sqlx.NamedExecContext(ctx, repo.db,
		`INSERT INTO course (`+courseColumns+`)
		VALUES (:id, :title, :start_date, :material_path, :material_summary, :user_id, :created_at, :updated_at)`,
		c)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	q := `SELECT ` + courseColumns + ` FROM course` + orderBy([]core.DBOrdering{
		{Field: "start_date"},
		{Field: "title", Ascending: true},
	})
	if err := repo.db.SelectContext(ctx, &courses, q); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var c course.Course
	if err := repo.db.GetContext(ctx, &c, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "finding course")
	}
	return c, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.db,
		`UPDATE course SET title = :title, start_date = :start_date, material_path = :material_path,
		material_summary = :material_summary, user_id = :user_id, updated_at = :updated_at
		WHERE id = :id`,
		c)
	if err = oneRow(res, err, course.ErrNotFound, "updating course"); err != nil {
		return course.Course{}, err
	}
	return c, nil
}

// DeleteCourse removes the course; enrollments go with it (ON DELETE CASCADE).
func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	return oneRow(res, err, course.ErrNotFound, "deleting course")
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	_, err := sqlx.NamedExecContext(ctx, repo.db,
		`INSERT INTO enrollment (`+enrollmentColumns+`) VALUES (:id, :student_id, :course_id, :enrolled_on)`,
		e)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo *courseRepository) DeleteEnrollment(ctx context.Context, courseID, studentID string) error {
	if !validID(courseID) || !validID(studentID) {
		return course.ErrEnrollmentNotFound
	}
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM enrollment WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	return oneRow(res, err, course.ErrEnrollmentNotFound, "deleting enrollment")
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	enrollments := make([]course.Enrollment, 0)
	var where []string
	var args []interface{}
	for _, cond := range [...]struct{ col, val string }{
		{"course_id", filter.CourseID},
		{"student_id", filter.StudentID},
	} {
		if cond.val == "" {
			continue
		}
		if !validID(cond.val) {
			return enrollments, nil
		}
		args = append(args, cond.val)
		where = append(where, cond.col+" = $"+strconv.Itoa(len(args)))
	}

	q := `SELECT ` + enrollmentColumns + ` FROM enrollment`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += orderBy([]core.DBOrdering{{Field: "enrolled_on", Ascending: true}, {Field: "id", Ascending: true}})
	if err := repo.db.SelectContext(ctx, &enrollments, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrollments, nil
}
