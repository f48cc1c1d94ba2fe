package models

import "errors"

// Error classes surfaced by ledger operations. Callers test with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrEditNotAllowed = errors.New("edit not allowed")
)
