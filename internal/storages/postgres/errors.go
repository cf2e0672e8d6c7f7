package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/lib/pq"
)

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// mapError translates driver errors into the storages sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storages.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", storages.ErrDuplicate, pqErr.Constraint)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", storages.ErrInvalidReference, pqErr.Constraint)
		}
	}
	return err
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storages.ErrNotFound
	}
	return nil
}
