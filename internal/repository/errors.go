// Package repository implements the service repositories on gorm.
package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking-server/internal/apperr"
)

// forUpdate locks the selected rows until the transaction ends.
var forUpdate = clause.Locking{Strength: "UPDATE"}

// translate maps gorm errors onto the application taxonomy. Errors that
// already carry a Kind pass through.
func translate(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal("database error", err)
}
