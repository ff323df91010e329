package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidLimit     = errors.New("invalid range limit")
	ErrMissingAttribute = errors.New("missing attribute")
	ErrAttributeType    = errors.New("wrong attribute type")
	ErrBadNumber        = errors.New("bad number attribute")
	ErrMissingKey       = errors.New("item lacks primary key")
	ErrUnknownIndex     = errors.New("unknown index")
)
