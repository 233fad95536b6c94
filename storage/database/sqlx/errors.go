package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	fkViolation     = pq.ErrorCode("23503")
	uniqueViolation = pq.ErrorCode("23505")
)

// constraintErrs maps a violated constraint name to the domain error it stands for.
type constraintErrs map[string]error

// trapErr maps "no rows" to notFound and known constraint violations to their domain errors.
// Anything else is wrapped with msg.
func trapErr(err error, msg string, notFound error, constraints constraintErrs) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		if pqErr.Code == fkViolation || pqErr.Code == uniqueViolation {
			if dErr, ok := constraints[pqErr.Constraint]; ok {
				return dErr
			}
		}
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when an update matched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "getting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
