package api

import (
	"errors"

	"github.com/okian/statboard/pkg/errs"
)

// Sentinel kinds for API errors.
var (
	// ErrBadRequest is the validation kind as seen at the HTTP edge.
	ErrBadRequest = errs.ErrValidation

	ErrBodyNotObject = errors.New("request body must be a JSON object")
	ErrBodyInvalid   = errors.New("request body is not valid JSON")
	ErrBodyTooLarge  = errors.New("request body is too large")
)

// Client-facing reasons with fixed wording.
const (
	reasonAddFailed   = "Error adding stat to the database"
	reasonQueryFailed = "Failed to query"
)
