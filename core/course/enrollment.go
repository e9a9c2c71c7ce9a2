package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/student"
)

// Enroll adds a student to a course.
// Enrolling twice is a validation error wrapping ErrAlreadyEnrolled.
func (svc *Service) Enroll(ctx context.Context, courseID, studentID string) (Enrollment, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}
	if _, err := svc.students.Get(ctx, studentID); err != nil {
		return Enrollment{}, err
	}

	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledOn: time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return e, nil
}

// Unenroll removes a student from a course. It returns ErrEnrollmentNotFound when they were not enrolled.
func (svc *Service) Unenroll(ctx context.Context, courseID, studentID string) error {
	return svc.repo.DeleteEnrollment(ctx, courseID, studentID)
}

// Enrollments lists the enrollments of a course.
func (svc *Service) Enrollments(ctx context.Context, courseID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CourseID: courseID})
}

// StudentEnrollments lists the enrollments of a student.
func (svc *Service) StudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{StudentID: studentID})
}

// EnrolledStudents returns the students enrolled in a course, in enrollment order.
func (svc *Service) EnrolledStudents(ctx context.Context, courseID string) ([]student.Student, error) {
	enrollments, err := svc.Enrollments(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	students := make([]student.Student, 0, len(enrollments))
	for _, e := range enrollments {
		s, err := svc.students.Get(ctx, e.StudentID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting student %s", e.StudentID)
		}
		students = append(students, s)
	}
	return students, nil
}
