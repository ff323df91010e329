package query

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/okian/statboard/internal/domain/clock"
	"github.com/okian/statboard/pkg/errs"
)

// Field names accepted by the parser.
const (
	FieldUser  = "user"
	FieldGame  = "game"
	FieldStat  = "stat"
	FieldDay   = "day"
	FieldCount = "count"
	FieldSort  = "sort"
)

var knownFields = map[string]struct{}{
	FieldUser: {}, FieldGame: {}, FieldStat: {}, FieldDay: {}, FieldCount: {}, FieldSort: {},
}

const opParse = "query.parse"

// Parser turns flat field maps into queries.
type Parser struct {
	maxCount int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxCount lowers the largest accepted count. Values outside
// [1, MaxCount] are ignored.
func WithMaxCount(n int) Option {
	return func(p *Parser) {
		if n >= 1 && n <= MaxCount {
			p.maxCount = n
		}
	}
}

// NewParser returns a Parser with the given options applied.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxCount: MaxCount}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxCount returns the largest count the parser accepts.
func (p *Parser) MaxCount() int { return p.maxCount }

// Parse uses a default Parser.
func Parse(fields map[string][]string) (Query, error) {
	return NewParser().Parse(fields)
}

// Parse selects the variant by the presence of user and day. Every error is
// a validation error.
func (p *Parser) Parse(fields map[string][]string) (Query, error) {
	f, err := flatten(fields)
	if err != nil {
		return nil, err
	}

	game, err := required(f, FieldGame)
	if err != nil {
		return nil, err
	}
	stat, err := required(f, FieldStat)
	if err != nil {
		return nil, err
	}
	opts, err := p.options(f)
	if err != nil {
		return nil, err
	}

	user, hasUser := f[FieldUser]
	if hasUser && user == "" {
		return nil, invalid(ErrEmptyField, FieldUser)
	}
	dayRaw, hasDay := f[FieldDay]
	var day uint64
	if hasDay {
		if day, err = parseDay(dayRaw); err != nil {
			return nil, err
		}
	}

	switch {
	case hasUser && hasDay:
		return UserDailyHighScore{User: user, Game: game, Stat: stat, Day: day, Options: opts}, nil
	case hasUser:
		return UserHighScore{User: user, Game: game, Stat: stat, Options: opts}, nil
	case hasDay:
		return DailyHighScore{Game: game, Stat: stat, Day: day, Options: opts}, nil
	default:
		return UniversalHighScore{Game: game, Stat: stat, Options: opts}, nil
	}
}

func flatten(fields map[string][]string) (map[string]string, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	// deterministic error for multiple offenders
	sort.Strings(names)

	out := make(map[string]string, len(fields))
	for _, name := range names {
		vals := fields[name]
		if _, ok := knownFields[name]; !ok {
			return nil, invalid(ErrUnknownField, name)
		}
		if len(vals) > 1 {
			return nil, invalid(ErrRepeatedField, name)
		}
		if len(vals) == 1 {
			out[name] = vals[0]
		} else {
			out[name] = ""
		}
	}
	return out, nil
}

func required(f map[string]string, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", invalid(ErrMissingField, name)
	}
	if v == "" {
		return "", invalid(ErrEmptyField, name)
	}
	return v, nil
}

func (p *Parser) options(f map[string]string) (Options, error) {
	opts := Options{Count: DefaultCount, Sort: Descending}
	if raw, ok := f[FieldCount]; ok {
		n, ok := parseDigits(raw, 16)
		if !ok || n < 1 || n > uint64(p.maxCount) {
			return Options{}, errs.WrapKind(opParse, errs.ErrValidation,
				fmt.Errorf("%w: %q must be an integer between 1 and %d", ErrInvalidCount, raw, p.maxCount))
		}
		opts.Count = int(n)
	}
	if raw, ok := f[FieldSort]; ok {
		d, ok := ParseDirection(raw)
		if !ok {
			return Options{}, errs.WrapKind(opParse, errs.ErrValidation,
				fmt.Errorf("%w: %q must be ascending or descending", ErrInvalidSort, raw))
		}
		opts.Sort = d
	}
	return opts, nil
}

func parseDay(raw string) (uint64, error) {
	d, ok := parseDigits(raw, 64)
	if !ok || !clock.IsDay(d) {
		return 0, errs.WrapKind(opParse, errs.ErrValidation,
			fmt.Errorf("%w: %q must be a non-negative multiple of %d", ErrInvalidDay, raw, clock.MillisPerDay))
	}
	return d, nil
}

// parseDigits accepts a plain decimal number: no sign and no leading zeros.
func parseDigits(raw string, bits int) (uint64, bool) {
	n, err := strconv.ParseUint(raw, 10, bits)
	if err != nil || strconv.FormatUint(n, 10) != raw {
		return 0, false
	}
	return n, true
}

func invalid(kind error, field string) error {
	return errs.WrapKind(opParse, errs.ErrValidation, fmt.Errorf("%w: %q", kind, field))
}
