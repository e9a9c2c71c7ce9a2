package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-records/core/course"
	"github.com/trezcool/masomo-records/core/student"
	"github.com/trezcool/masomo-records/core/user"
)

// DB is an in-memory store for development and tests.
// A single lock guards all tables so cascading deletes stay atomic.
type DB struct {
	mu          sync.RWMutex
	users       map[string]user.User
	students    map[string]student.Student
	courses     map[string]course.Course
	enrollments map[string]course.Enrollment
}

func Open() *DB {
	return &DB{
		users:       make(map[string]user.User),
		students:    make(map[string]student.Student),
		courses:     make(map[string]course.Course),
		enrollments: make(map[string]course.Enrollment),
	}
}
