package query

import "errors"

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrRepeatedField = errors.New("repeated field")
	ErrMissingField  = errors.New("missing field")
	ErrEmptyField    = errors.New("empty field")
	ErrInvalidCount  = errors.New("invalid count")
	ErrInvalidSort   = errors.New("invalid sort")
	ErrInvalidDay    = errors.New("invalid day")
)
