// Package errs provides operation-scoped error wrapping with a small set of
// error kinds shared by every layer of the service.
//
// An *Error carries the operation that failed, the kind of failure and the
// underlying cause. errors.Is matches both the kind and the cause, so callers
// can branch on ErrValidation while logs still show the original error.
package errs

import (
	"errors"
	"strings"
)

// Error kinds. These form the service-wide error taxonomy.
var (
	// ErrValidation marks rejected client input: empty fields, non-finite
	// values, malformed days, unknown query fields, bad count or sort.
	ErrValidation = errors.New("validation error")

	// ErrParse marks a numeric attribute in a stored item that failed to parse.
	ErrParse = errors.New("parse error")

	// ErrStorage marks a transport or service-side failure of the store.
	ErrStorage = errors.New("storage error")

	// ErrDecode marks a stored item with a missing or wrongly typed attribute.
	ErrDecode = errors.New("decode error")
)

// Error is an operation-scoped error.
type Error struct {
	Op   string // operation, e.g. "app.record_stat"
	Kind error  // one of the kinds above, may be nil
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Kind != nil && e.Err != nil:
		b.WriteString(e.Kind.Error())
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString("unknown error")
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New returns an error of the given kind for op.
func New(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind wraps err with op and kind. A nil err yields New(op, kind).
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap wraps err with op. The kind of err, if any, stays visible through
// errors.Is. Returns nil when err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Validation is shorthand for a validation error with a plain message.
func Validation(op, msg string) error {
	return WrapKind(op, ErrValidation, errors.New(msg))
}

// KindOf reports the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrParse, ErrDecode, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Reason returns the innermost human-readable message of err: the cause of
// the outermost *Error that has one, stripped of op and kind prefixes.
func Reason(err error) string {
	var e *Error
	for errors.As(err, &e) {
		if e.Err == nil {
			if e.Kind == nil {
				return "unknown error"
			}
			return e.Kind.Error()
		}
		var inner *Error
		if !errors.As(e.Err, &inner) {
			return e.Err.Error()
		}
		err = e.Err
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
