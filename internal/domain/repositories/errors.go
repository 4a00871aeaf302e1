package repositories

import "errors"

// Constraint violations reported by repository writes
var (
	ErrDuplicate  = errors.New("duplicate key")
	ErrReferenced = errors.New("row is still referenced")
)
