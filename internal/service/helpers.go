package service

import (
	"database/sql"
	"errors"
	"strings"

	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
)

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

func errorCode(err error) string {
	if appErr := appErrors.FromError(err); appErr != nil {
		return appErr.Code
	}
	return ""
}

// storageError maps sql.ErrNoRows to NOT_FOUND with notFoundMsg and wraps anything else
// as an internal error described by msg.
func storageError(err error, notFoundMsg, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}

func validationError(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
}
