package entity

import "errors"

// ErrValidation is returned when an entity fails its invariants
var ErrValidation = errors.New("validation failed")
