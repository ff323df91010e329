package scorecodec

import "errors"

// ErrInvalidToken is returned by Decode for malformed tokens.
var ErrInvalidToken = errors.New("invalid score token")
