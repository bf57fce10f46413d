package repositories

import (
	"errors"
	"fmt"

	"ocha/internal/apperr"

	"gorm.io/gorm"
)

// translate maps GORM's translated errors onto the apperr taxonomy.
// Anything unrecognised is wrapped and surfaces as an internal error.
func translate(err error, notFound apperr.Code, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(notFound, "%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(apperr.CodeDuplicate, "%s already exists", what)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.Conflict(apperr.CodeInUse, "%s is still referenced", what)
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", what, err), "database error")
	}
}
