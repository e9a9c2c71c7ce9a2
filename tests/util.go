package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-records/core/course"
	"github.com/trezcool/masomo-records/core/student"
	"github.com/trezcool/masomo-records/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	isActive, isAdmin bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		IsAdmin:   isAdmin,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo student.Repository, first, last, email string) student.Student {
	t.Helper()
	now := time.Now().UTC()
	s, err := repo.CreateStudent(context.Background(), student.Student{
		ID:        uuid.NewString(),
		FirstName: first,
		LastName:  last,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// CreateCourse persists a course starting on startDate (YYYY-MM-DD), with an optional material path.
func CreateCourse(t *testing.T, repo course.Repository, title, startDate string, materialPath ...string) course.Course {
	t.Helper()
	start, err := time.ParseInLocation("2006-01-02", startDate, time.UTC)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	now := time.Now().UTC()
	c := course.Course{
		ID:        uuid.NewString(),
		Title:     title,
		StartDate: start,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(materialPath) > 0 {
		c.MaterialPath = null.StringFrom(materialPath[0])
	}
	if c, err = repo.CreateCourse(context.Background(), c); err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func Enroll(t *testing.T, repo course.Repository, c course.Course, s student.Student, enrolledOn ...time.Time) course.Enrollment {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(enrolledOn) > 0 {
		tstamp = enrolledOn[0].UTC()
	}
	e, err := repo.CreateEnrollment(context.Background(), course.Enrollment{
		ID:         uuid.NewString(),
		StudentID:  s.ID,
		CourseID:   c.ID,
		EnrolledOn: tstamp,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}
