package sqlxrepos

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-records/core/course"
)

func Test_courseRepository_GetCourseByID(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "title", "start_date", "material_path", "material_summary", "user_id", "created_at", "updated_at"}
	start := now.Truncate(24 * time.Hour)
	mock.ExpectQuery(q(`FROM course WHERE id = $1`)).WithArgs(id1).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(id1, "Go", start, id1+"/notes.pdf", nil, nil, now, now))

	got, err := NewCourseRepository(db).GetCourseByID(context.Background(), id1)
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom(id1+"/notes.pdf"), got.MaterialPath)
	assert.False(t, got.MaterialSummary.Valid)
	assert.True(t, got.StartDate.Equal(start))
}

func Test_courseRepository_QueryCourses_ordering(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q(`FROM course ORDER BY start_date DESC, title ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := NewCourseRepository(db).QueryCourses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func Test_courseRepository_DeleteCourse(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q(`DELETE FROM course WHERE id = $1`)).WithArgs(id1).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Equal(t, course.ErrNotFound, NewCourseRepository(db).DeleteCourse(context.Background(), id1))
}

func Test_courseRepository_CreateEnrollment(t *testing.T) {
	e := course.Enrollment{ID: id1, StudentID: id2, CourseID: id1, EnrolledOn: now}

	t.Run("created", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q(`INSERT INTO enrollment (id, student_id, course_id, enrolled_on) VALUES ($1, $2, $3, $4)`)).
			WithArgs(id1, id2, id1, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := NewCourseRepository(db).CreateEnrollment(context.Background(), e)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	})

	t.Run("duplicate", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q(`INSERT INTO enrollment`)).
			WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "enrollment_student_id_course_id_key"})

		_, err := NewCourseRepository(db).CreateEnrollment(context.Background(), e)
		assert.Equal(t, course.ErrAlreadyEnrolled, err)
	})
}

func Test_courseRepository_DeleteEnrollment(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q(`DELETE FROM enrollment WHERE course_id = $1 AND student_id = $2`)).
		WithArgs(id1, id2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCourseRepository(db)
	assert.Equal(t, course.ErrEnrollmentNotFound, repo.DeleteEnrollment(context.Background(), id1, id2))
	assert.Equal(t, course.ErrEnrollmentNotFound, repo.DeleteEnrollment(context.Background(), "lol", id2))
}

func Test_courseRepository_QueryEnrollments(t *testing.T) {
	cols := []string{"id", "student_id", "course_id", "enrolled_on"}
	tests := []struct {
		name   string
		filter course.EnrollmentFilter
		query  string
		args   []driver.Value
	}{
		{
			name:   "by course",
			filter: course.EnrollmentFilter{CourseID: id1},
			query:  `FROM enrollment WHERE course_id = $1 ORDER BY enrolled_on ASC, id ASC`,
			args:   []driver.Value{id1},
		},
		{
			name:   "by student",
			filter: course.EnrollmentFilter{StudentID: id2},
			query:  `FROM enrollment WHERE student_id = $1 ORDER BY`,
			args:   []driver.Value{id2},
		},
		{
			name:   "both",
			filter: course.EnrollmentFilter{CourseID: id1, StudentID: id2},
			query:  `WHERE course_id = $1 AND student_id = $2`,
			args:   []driver.Value{id1, id2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(q(tt.query)).WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows(cols).AddRow(id2, id2, id1, now))

			got, err := NewCourseRepository(db).QueryEnrollments(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}

	t.Run("malformed id", func(t *testing.T) {
		db, _ := newMock(t)
		got, err := NewCourseRepository(db).QueryEnrollments(context.Background(), course.EnrollmentFilter{CourseID: "lol"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
