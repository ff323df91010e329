package query_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/okian/statboard/internal/domain/keys"
	"github.com/okian/statboard/internal/domain/query"
	"github.com/okian/statboard/pkg/errs"
	. "github.com/smartystreets/goconvey/convey"
)

const day = "1699920000000"

func parse(raw string) (query.Query, error) {
	vals, err := url.ParseQuery(raw)
	if err != nil {
		panic(err)
	}
	return query.Parse(vals)
}

func TestParseDiscrimination(t *testing.T) {
	Convey("Given the four field combinations", t, func() {
		rows := []struct {
			raw     string
			variant query.Variant
			index   keys.Index
		}{
			{"user=alice&game=tetris&stat=lines&day=" + day, query.VariantUserDailyHighScore, keys.Primary},
			{"user=alice&game=tetris&stat=lines", query.VariantUserHighScore, keys.LSI},
			{"game=tetris&stat=lines&day=" + day, query.VariantDailyHighScore, keys.GSI1},
			{"game=tetris&stat=lines", query.VariantUniversalHighScore, keys.GSI2},
		}

		Convey("Each routes to exactly one variant and index", func() {
			for _, row := range rows {
				q, err := parse(row.raw)
				So(err, ShouldBeNil)
				So(q.Variant(), ShouldEqual, row.variant)
				So(q.Plan().Index, ShouldResemble, row.index)
			}
		})
	})
}

func TestPlans(t *testing.T) {
	Convey("Given a universal query with count 3", t, func() {
		q, err := parse("game=tetris&stat=lines&count=3")
		So(err, ShouldBeNil)
		p := q.Plan()

		Convey("It reads GSI2 from the top", func() {
			So(p.Index.Name, ShouldEqual, "GSI2")
			So(p.PartitionKey, ShouldEqual, "Game#tetris#Stat#lines")
			So(p.SortPrefix, ShouldEqual, "Value#")
			So(p.Direction, ShouldEqual, query.Descending)
			So(p.Forward(), ShouldBeFalse)
			So(p.Limit, ShouldEqual, 3)
		})
	})

	Convey("Given a user daily query sorted ascending", t, func() {
		q, err := parse("user=alice&game=tetris&stat=lines&day=" + day + "&count=5&sort=ascending")
		So(err, ShouldBeNil)
		p := q.Plan()

		Convey("It reads the primary index forward", func() {
			So(p.Index.IsPrimary(), ShouldBeTrue)
			So(p.PartitionKey, ShouldEqual, "User#alice")
			So(p.SortPrefix, ShouldEqual, "Game#tetris#Day#"+day+"#Stat#lines")
			So(p.Forward(), ShouldBeTrue)
			So(p.Limit, ShouldEqual, 5)
		})
	})

	Convey("Given the remaining variants", t, func() {
		q, _ := parse("user=bob&game=g&stat=s")
		So(q.Plan().PartitionKey, ShouldEqual, "User#bob")
		So(q.Plan().SortPrefix, ShouldEqual, "Game#g#Stat#s")
		So(q.Plan().Limit, ShouldEqual, 1)

		q, _ = parse("game=g&stat=s&day=" + day + "&sort=DESCENDING")
		So(q.Plan().PartitionKey, ShouldEqual, "Game#g#Stat#s")
		So(q.Plan().SortPrefix, ShouldEqual, "Day#"+day)
		So(q.Plan().Direction, ShouldEqual, query.Descending)
	})

	Convey("Hand-built queries default their count", t, func() {
		p := query.UniversalHighScore{Game: "g", Stat: "s"}.Plan()
		So(p.Limit, ShouldEqual, query.DefaultCount)
		So(p.CacheKey(), ShouldEqual, "GSI2|Game#g#Stat#s|Value#|descending|1")
	})

	Convey("Scan prefixes end on a segment boundary", t, func() {
		So(query.UniversalHighScore{Game: "g", Stat: "s"}.Plan().ScanPrefix(), ShouldEqual, "Value#")
		So(query.UserHighScore{User: "u", Game: "g", Stat: "s"}.Plan().ScanPrefix(), ShouldEqual, "Game#g#Stat#s#")
		So(query.DailyHighScore{Game: "g", Stat: "s", Day: 86_400_000}.Plan().ScanPrefix(), ShouldEqual, "Day#86400000#")
	})
}

func TestParseRejects(t *testing.T) {
	Convey("Given malformed field sets", t, func() {
		cases := []struct {
			raw  string
			kind error
		}{
			{"user=alice&foo=bar", query.ErrUnknownField},
			{"game=g&stat=s&game=h", query.ErrRepeatedField},
			{"user=alice&stat=s", query.ErrMissingField},
			{"game=g", query.ErrMissingField},
			{"game=&stat=s", query.ErrEmptyField},
			{"user=&game=g&stat=s", query.ErrEmptyField},
			{"game=g&stat=s&count=0", query.ErrInvalidCount},
			{"game=g&stat=s&count=1001", query.ErrInvalidCount},
			{"game=g&stat=s&count=ten", query.ErrInvalidCount},
			{"game=g&stat=s&count=-1", query.ErrInvalidCount},
			{"game=g&stat=s&count=%2B3", query.ErrInvalidCount},
			{"game=g&stat=s&count=03", query.ErrInvalidCount},
			{"game=g&stat=s&count=+3", query.ErrInvalidCount},
			{"game=g&stat=s&count=99999999999", query.ErrInvalidCount},
			{"game=g&stat=s&sort=up", query.ErrInvalidSort},
			{"game=g&stat=s&day=17", query.ErrInvalidDay},
			{"game=g&stat=s&day=abc", query.ErrInvalidDay},
			{"game=g&stat=s&day=%2B0", query.ErrInvalidDay},
			{"game=g&stat=s&day=086400000", query.ErrInvalidDay},
			{"game=g&stat=s&day=", query.ErrInvalidDay},
		}

		Convey("Each is a validation error of the right kind", func() {
			for _, c := range cases {
				_, err := parse(c.raw)
				So(err, ShouldNotBeNil)
				So(errors.Is(err, c.kind), ShouldBeTrue)
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			}
		})

		Convey("The reason names the offending field", func() {
			_, err := parse("user=alice&foo=bar")
			So(errs.Reason(err), ShouldEqual, `unknown field: "foo"`)
		})
	})

	Convey("Given the count bounds", t, func() {
		_, err := parse("game=g&stat=s&count=1000")
		So(err, ShouldBeNil)
		_, err = parse("game=g&stat=s&count=1")
		So(err, ShouldBeNil)
	})

	Convey("Given a parser with a lower ceiling", t, func() {
		p := query.NewParser(query.WithMaxCount(10))
		So(p.MaxCount(), ShouldEqual, 10)
		_, err := p.Parse(url.Values{"game": {"g"}, "stat": {"s"}, "count": {"11"}})
		So(errors.Is(err, query.ErrInvalidCount), ShouldBeTrue)

		Convey("Out-of-range ceilings are ignored", func() {
			So(query.NewParser(query.WithMaxCount(5000)).MaxCount(), ShouldEqual, query.MaxCount)
			So(query.NewParser(query.WithMaxCount(0)).MaxCount(), ShouldEqual, query.MaxCount)
		})
	})
}
