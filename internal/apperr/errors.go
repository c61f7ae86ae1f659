package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrProfileRequired = errors.New("profile required")
)
