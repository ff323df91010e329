// Package query defines the four high-score access patterns and routes each
// one to an index, a partition key and a sort-key prefix.
package query

import (
	"strconv"
	"strings"

	"github.com/okian/statboard/internal/domain/keys"
)

// Count bounds.
const (
	DefaultCount = 1
	MaxCount     = 1000
)

// Direction is the scan order of a range read.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "ascending"
	}
	return "descending"
}

// ParseDirection accepts "ascending" or "descending" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "ascending":
		return Ascending, true
	case "descending":
		return Descending, true
	}
	return Descending, false
}

// Variant identifies an access pattern.
type Variant string

const (
	VariantUserDailyHighScore Variant = "UserDailyHighScore"
	VariantUserHighScore      Variant = "UserHighScore"
	VariantDailyHighScore     Variant = "DailyHighScore"
	VariantUniversalHighScore Variant = "UniversalHighScore"
)

// Options are shared by every variant.
type Options struct {
	Count int
	Sort  Direction
}

func (o Options) limit() int {
	if o.Count <= 0 {
		return DefaultCount
	}
	return o.Count
}

// Query is implemented by the four variant structs.
type Query interface {
	Variant() Variant
	Plan() Plan
}

// UserDailyHighScore reads one user's scores for a game and stat on one day.
type UserDailyHighScore struct {
	User, Game, Stat string
	Day              uint64
	Options
}

// UserHighScore reads one user's scores for a game and stat across all days.
type UserHighScore struct {
	User, Game, Stat string
	Options
}

// DailyHighScore reads every user's scores for a game and stat on one day.
type DailyHighScore struct {
	Game, Stat string
	Day        uint64
	Options
}

// UniversalHighScore reads every user's scores for a game and stat.
type UniversalHighScore struct {
	Game, Stat string
	Options
}

func (UserDailyHighScore) Variant() Variant { return VariantUserDailyHighScore }
func (UserHighScore) Variant() Variant      { return VariantUserHighScore }
func (DailyHighScore) Variant() Variant     { return VariantDailyHighScore }
func (UniversalHighScore) Variant() Variant { return VariantUniversalHighScore }

func (q UserDailyHighScore) Plan() Plan {
	return newPlan(keys.Primary, keys.User(q.User), keys.UserDailyPrefix(q.Game, q.Day, q.Stat), q.Options)
}

func (q UserHighScore) Plan() Plan {
	return newPlan(keys.LSI, keys.User(q.User), keys.UserPrefix(q.Game, q.Stat), q.Options)
}

func (q DailyHighScore) Plan() Plan {
	return newPlan(keys.GSI1, keys.GameStat(q.Game, q.Stat), keys.DayPrefix(q.Day), q.Options)
}

func (q UniversalHighScore) Plan() Plan {
	return newPlan(keys.GSI2, keys.GameStat(q.Game, q.Stat), keys.ValuePrefix, q.Options)
}

// Plan is a fully resolved range read.
type Plan struct {
	Index        keys.Index
	PartitionKey string
	SortPrefix   string
	Direction    Direction
	Limit        int
}

func newPlan(ix keys.Index, pk, prefix string, o Options) Plan {
	return Plan{Index: ix, PartitionKey: pk, SortPrefix: prefix, Direction: o.Sort, Limit: o.limit()}
}

// ScanPrefix is SortPrefix terminated by the segment separator, so that a
// stat named "s" does not match the keys of a stat named "s2".
func (p Plan) ScanPrefix() string {
	if strings.HasSuffix(p.SortPrefix, keys.Separator) {
		return p.SortPrefix
	}
	return p.SortPrefix + keys.Separator
}

// Forward reports whether the read scans in ascending key order.
func (p Plan) Forward() bool { return p.Direction == Ascending }

// CacheKey identifies the plan for result caching.
func (p Plan) CacheKey() string {
	var b strings.Builder
	b.WriteString(p.Index.String())
	b.WriteByte('|')
	b.WriteString(p.PartitionKey)
	b.WriteByte('|')
	b.WriteString(p.SortPrefix)
	b.WriteByte('|')
	b.WriteString(p.Direction.String())
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(p.Limit))
	return b.String()
}
