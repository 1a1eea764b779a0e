package service

import (
	"errors"

	apperrors "campus-support/backend/pkg/errors"

	"gorm.io/gorm"
)

// toAppError passes AppErrors through, maps missing rows to NotFound and
// hides everything else behind Internal
func toAppError(err error, missing string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(missing)
	}
	return apperrors.Internal(err)
}
