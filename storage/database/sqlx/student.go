package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/student"
)

const studentColumns = `id, first_name, last_name, email, created_at, updated_at`

var studentOrdering = []core.DBOrdering{
	{Field: "last_name", Ascending: true},
	{Field: "first_name", Ascending: true},
}

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedID ...string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM student WHERE email = $1 AND id::text <> ALL($2))`,
		email, excludedIDs(excludedID))
	if err != nil {
		return errors.Wrap(err, "checking student email uniqueness")
	}
	if exists {
		return student.ErrEmailExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	_, err := sqlx.NamedExecContext(ctx, repo.db,
		`INSERT INTO student (`+studentColumns+`)
		VALUES (:id, :first_name, :last_name, :email, :created_at, :updated_at)`,
		s)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	students := make([]student.Student, 0)
	q := `SELECT ` + studentColumns + ` FROM student`
	var args []interface{}
	if filter.Search != "" {
		q += ` WHERE first_name ILIKE $1 OR last_name ILIKE $1`
		args = append(args, "%"+filter.Search+"%")
	}
	if err := repo.db.SelectContext(ctx, &students, q+orderBy(studentOrdering), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var s student.Student
	if err := repo.db.GetContext(ctx, &s, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRows(err, student.ErrNotFound, "finding student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudentsByID(ctx context.Context, ids ...string) ([]student.Student, error) {
	students := make([]student.Student, 0, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return students, nil
	}
	q, args, err := sqlx.In(`SELECT `+studentColumns+` FROM student WHERE id IN (?)`+orderBy(studentOrdering), valid)
	if err != nil {
		return nil, errors.Wrap(err, "building students query")
	}
	if err = repo.db.SelectContext(ctx, &students, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.db,
		`UPDATE student SET first_name = :first_name, last_name = :last_name, email = :email, updated_at = :updated_at
		WHERE id = :id`,
		s)
	if err != nil && isUniqueViolation(err) {
		return student.Student{}, student.ErrEmailExists
	}
	if err = oneRow(res, err, student.ErrNotFound, "updating student"); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

// DeleteStudent removes the student; enrollments go with it (ON DELETE CASCADE).
func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if !validID(id) {
		return student.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
	return oneRow(res, err, student.ErrNotFound, "deleting student")
}
