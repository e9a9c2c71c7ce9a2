package course

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-records/core"
)

type Course struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	// MaterialPath is the stored name of the material, relative to the upload root.
	MaterialPath null.String `json:"material_path" db:"material_path"`
	// MaterialSummary is the generated summary of PDF material, or an "Error: ..." message.
	MaterialSummary null.String `json:"material_summary" db:"material_summary"`
	// UserID is the creator.
	UserID    null.String `json:"user_id" db:"user_id"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

type Enrollment struct {
	ID         string    `json:"id" db:"id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	CourseID   string    `json:"course_id" db:"course_id"`
	EnrolledOn time.Time `json:"enrolled_on" db:"enrolled_on"` // UTC
}

// Upload is a material file sent along with a course.
type Upload struct {
	Filename string // as declared by the client
	Content  io.Reader
}

// SaveResult is a saved course plus what went wrong without failing the operation.
type SaveResult struct {
	Course    Course   `json:"course"`
	Warnings  []string `json:"warnings,omitempty"`
	SummaryOK bool     `json:"-"`
}

func (r *SaveResult) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title     string `json:"title" form:"title" validate:"required,max=128"`
	StartDate string `json:"start_date" form:"start_date" validate:"required,datetime=2006-01-02"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.StartDate = core.CleanString(nc.StartDate)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Empty fields keep their current value.
type UpdateCourse struct {
	Title     string `json:"title" form:"title" validate:"max=128"`
	StartDate string `json:"start_date" form:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.StartDate = core.CleanString(uc.StartDate)
	return validate.Struct(uc)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(core.DateLayout, s, time.UTC)
}
