package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-records/core"
)

type Student struct {
	ID        string    `json:"id" db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FirstName string `json:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email,max=120"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields keep their current value.
type UpdateStudent struct {
	FirstName string `json:"first_name" validate:"max=64"`
	LastName  string `json:"last_name" validate:"max=64"`
	Email     string `json:"email" validate:"omitempty,email,max=120"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if us.FirstName = core.CleanString(us.FirstName); us.FirstName == "" {
		us.FirstName = orig.FirstName
	}
	if us.LastName = core.CleanString(us.LastName); us.LastName == "" {
		us.LastName = orig.LastName
	}
	if us.Email = core.CleanString(us.Email, true /* lower */); us.Email == "" {
		us.Email = orig.Email
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	// Search does a case-insensitive match on the first or the last name.
	Search string `query:"q"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
