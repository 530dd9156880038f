package scheduling

import (
	"errors"
	"fmt"

	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error kinds returned by the scheduling service. Callers match them with
// errors.Is; the wrapped message says what went wrong.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

const exclusionViolation = "23P01"

func notFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// translateStoreError maps store failures onto the error kinds above. An
// exclusion constraint violation means a concurrent booking won the slot.
func translateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadRequest) || errors.Is(err, ErrConflict) || errors.Is(err, ErrForbidden) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("record not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		switch pgErr.ConstraintName {
		case model.ProfessionalNoOverlapConstraint:
			return conflict("professional already has an appointment in this window")
		case model.UserNoOverlapConstraint:
			return conflict("you already have an appointment in this window")
		default:
			return conflict("appointment window is no longer available")
		}
	}
	return err
}
