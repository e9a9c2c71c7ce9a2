package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-records/core"
)

// uniqueViolation is the postgres error code for unique constraint violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	_, ok := uniqueConstraint(err)
	return ok
}

// uniqueConstraint returns the name of the unique constraint err violates, if any.
func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// validID reports whether id can be compared with a UUID column without a driver error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// excludedIDs never returns nil: a NULL array would make "<> ALL" filter out every row.
func excludedIDs(ids []string) pq.StringArray {
	return append(pq.StringArray{}, ids...)
}

// oneRow checks that a write statement touched a row, returning notFound otherwise.
func oneRow(res sql.Result, err error, notFound error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// trapNoRows maps "no rows" to notFound.
func trapNoRows(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func orderBy(ordering []core.DBOrdering) string {
	fields := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		fields = append(fields, ord.String())
	}
	return " ORDER BY " + strings.Join(fields, ", ")
}
