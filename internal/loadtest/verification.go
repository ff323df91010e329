package loadtest

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/internal/domain/query"
)

// Check is one query and the values it must return, in order.
type Check struct {
	Name   string
	Params url.Values
	Want   []float64

	user string
	day  uint64
	game string
	stat string
}

// BuildChecks derives, for every game and stat, the universal and daily
// leaderboards in both directions and the personal queries of the first
// SampleUsers users.
func BuildChecks(ds Dataset, cfg Config) []Check {
	var checks []Check
	users := ds.Users[:min(cfg.SampleUsers, len(ds.Users))]

	for _, game := range ds.Games {
		for _, stat := range ds.Stats {
			scope := ds.filter(func(r Record) bool { return r.Game == game && r.Stat == stat })

			for _, sort := range []string{"descending", "ascending"} {
				checks = append(checks, newCheck(scope, cfg.TopN, sort, "", 0, game, stat))
				for _, day := range ds.Days {
					checks = append(checks, newCheck(scope, cfg.TopN, sort, "", day, game, stat))
				}
			}
			for _, user := range users {
				checks = append(checks, newCheck(scope, cfg.TopN, "descending", user, 0, game, stat))
				for _, day := range ds.Days {
					checks = append(checks, newCheck(scope, cfg.TopN, "descending", user, day, game, stat))
				}
			}
		}
	}
	return checks
}

func newCheck(scope []Record, n int, sort, user string, day uint64, game, stat string) Check {
	params := url.Values{
		query.FieldGame:  {game},
		query.FieldStat:  {stat},
		query.FieldCount: {strconv.Itoa(n)},
		query.FieldSort:  {sort},
	}
	name := "universal"
	if user != "" {
		params.Set(query.FieldUser, user)
		name = "user"
	}
	if day != 0 {
		params.Set(query.FieldDay, strconv.FormatUint(day, 10))
		name += "-daily"
	}

	var values []float64
	for _, r := range scope {
		if (user == "" || r.User == user) && (day == 0 || r.Day == day) {
			values = append(values, r.Value)
		}
	}
	slices.Sort(values)
	if sort == "descending" {
		slices.Reverse(values)
	}
	if len(values) > n {
		values = values[:n]
	}

	return Check{
		Name:   fmt.Sprintf("%s %s/%s %s", name, game, stat, sort),
		Params: params,
		Want:   values,
		user:   user,
		day:    day,
		game:   game,
		stat:   stat,
	}
}

// Verify compares a query result with the expectation.
func (c Check) Verify(got []model.StatView) error {
	if len(got) != len(c.Want) {
		return fmt.Errorf("%s: got %d stats, want %d", c.Name, len(got), len(c.Want))
	}
	for i, v := range got {
		switch {
		case v.Game != c.game || v.Stat != c.stat:
			return fmt.Errorf("%s: entry %d is %s/%s", c.Name, i, v.Game, v.Stat)
		case c.user != "" && v.User != c.user:
			return fmt.Errorf("%s: entry %d belongs to %s", c.Name, i, v.User)
		case c.day != 0 && v.Day != c.day:
			return fmt.Errorf("%s: entry %d is from day %d", c.Name, i, v.Day)
		case v.Value != c.Want[i]:
			return fmt.Errorf("%s: entry %d has value %v, want %v", c.Name, i, v.Value, c.Want[i])
		}
	}
	return nil
}

func (ds Dataset) filter(keep func(Record) bool) []Record {
	var out []Record
	for _, r := range ds.Records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
