package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/statboard/internal/adapters/repository"
	service "github.com/okian/statboard/internal/app"
	"github.com/okian/statboard/internal/domain/clock"
	"github.com/okian/statboard/internal/domain/keys"
	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/internal/domain/query"
	"github.com/okian/statboard/pkg/errs"
	"github.com/okian/statboard/pkg/logger"
)

const (
	day0 = uint64(1_699_920_000_000)
	now0 = day0 + 12_345
)

// stubStore fails or returns canned items.
type stubStore struct {
	putErr   error
	queryErr error
	items    []repository.Item
	queries  int
}

func (s *stubStore) Put(context.Context, repository.Item) error { return s.putErr }
func (s *stubStore) Query(context.Context, repository.RangeQuery) ([]repository.Item, error) {
	s.queries++
	return s.items, s.queryErr
}
func (s *stubStore) Kind() string { return "stub" }

// countingDynamo accepts every PutItem and counts the calls.
type countingDynamo struct {
	repository.DynamoDBClient
	puts int
}

func (c *countingDynamo) PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.puts++
	return &dynamodb.PutItemOutput{}, nil
}

func f64(v float64) *float64 { return &v }
func u64(v uint64) *uint64   { return &v }

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Discard()),
		service.WithClock(clock.NewFixed(now0)),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func TestRecordStat(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("A stat without a day lands in today's bucket", func() {
			st, err := svc.RecordStat(ctx, model.StatInput{User: "alice", Game: "tetris", Stat: "lines", Value: f64(42)})
			So(err, ShouldBeNil)
			So(st.Day, ShouldEqual, day0)
			So(st.AddedTimestamp, ShouldEqual, now0)
			So(st.Day, ShouldBeLessThanOrEqualTo, st.AddedTimestamp)
			So(st.AddedTimestamp, ShouldBeLessThan, st.Day+clock.MillisPerDay)
		})

		Convey("An explicit whole day is kept", func() {
			st, err := svc.RecordStat(ctx, model.StatInput{User: "alice", Game: "tetris", Stat: "lines", Value: f64(42), Day: u64(day0 - clock.MillisPerDay)})
			So(err, ShouldBeNil)
			So(st.Day, ShouldEqual, day0-clock.MillisPerDay)
		})

		Convey("Identical submissions become distinct records", func() {
			in := model.StatInput{User: "alice", Game: "g", Stat: "s", Value: f64(1)}
			a, err := svc.RecordStat(ctx, in)
			So(err, ShouldBeNil)
			b, err := svc.RecordStat(ctx, in)
			So(err, ShouldBeNil)
			So(b.AddedTimestamp, ShouldBeGreaterThan, a.AddedTimestamp)

			got, err := svc.QueryStats(ctx, query.UserHighScore{User: "alice", Game: "g", Stat: "s", Options: query.Options{Count: 10}})
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
		})

		Convey("Invalid input is a validation error", func() {
			cases := []model.StatInput{
				{User: "", Game: "t", Stat: "s", Value: f64(1)},
				{User: "u", Game: "", Stat: "s", Value: f64(1)},
				{User: "u", Game: "t", Stat: "", Value: f64(1)},
				{User: "u", Game: "t", Stat: "s"},
				{User: "u", Game: "t", Stat: "s", Value: f64(math.NaN())},
				{User: "u", Game: "t", Stat: "s", Value: f64(math.Inf(1))},
				{User: "u", Game: "t", Stat: "s", Value: f64(1), Day: u64(day0 + 1)},
			}
			for _, in := range cases {
				_, err := svc.RecordStat(ctx, in)
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			}
			_, err := svc.RecordStat(ctx, model.StatInput{User: "", Game: "t", Stat: "s", Value: f64(1)})
			So(errs.Reason(err), ShouldEqual, "user must not be empty")
		})
	})

	Convey("Given a failing store", t, func() {
		store := &stubStore{putErr: errs.WrapKind("stub.put", errs.ErrStorage, errors.New("throttled"))}
		svc := newService(service.WithStore(store))
		defer svc.Stop()

		Convey("The write fails with a storage error", func() {
			_, err := svc.RecordStat(context.Background(), model.StatInput{User: "u", Game: "g", Stat: "s", Value: f64(1)})
			So(errors.Is(err, errs.ErrStorage), ShouldBeTrue)
			So(svc.GetStats()["failures"], ShouldEqual, uint64(1))
		})
	})

	Convey("Given a service backed by DynamoDB", t, func() {
		client := &countingDynamo{}
		svc := newService(service.WithStore(repository.NewDynamoStore(client, "StatsDB")))
		defer svc.Stop()
		ctx := context.Background()

		Convey("Values outside the storable number range are validation errors", func() {
			for _, v := range []float64{1e126, -1e130, math.MaxFloat64, 1e-131, -math.SmallestNonzeroFloat64} {
				_, err := svc.RecordStat(ctx, model.StatInput{User: "u", Game: "g", Stat: "s", Value: f64(v)})
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
				So(errs.Reason(err), ShouldEqual, "value magnitude must be between 1e-130 and 1e126")
			}
			So(client.puts, ShouldEqual, 0)
		})

		Convey("Zero and in-range extremes are written", func() {
			for _, v := range []float64{0, math.Copysign(0, -1), 9.99e125, -1e-130, 1e-130} {
				_, err := svc.RecordStat(ctx, model.StatInput{User: "u", Game: "g", Stat: "s", Value: f64(v)})
				So(err, ShouldBeNil)
			}
			So(client.puts, ShouldEqual, 5)
		})
	})

	Convey("Given the in-memory store", t, func() {
		svc := newService()
		defer svc.Stop()

		Convey("Any finite value is accepted", func() {
			_, err := svc.RecordStat(context.Background(), model.StatInput{User: "u", Game: "g", Stat: "s", Value: f64(math.MaxFloat64)})
			So(err, ShouldBeNil)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithLogger(logger.Discard()))
		_, err := svc.RecordStat(context.Background(), model.StatInput{User: "u", Game: "g", Stat: "s", Value: f64(1)})
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
	})
}

func TestQueryStats(t *testing.T) {
	Convey("Given stats from several users and days", t, func() {
		c := clock.NewFixed(now0)
		svc := newService(service.WithClock(c))
		defer svc.Stop()
		ctx := context.Background()

		record := func(user string, v float64, day uint64) {
			_, err := svc.RecordStat(ctx, model.StatInput{User: user, Game: "tetris", Stat: "lines", Value: f64(v), Day: u64(day)})
			So(err, ShouldBeNil)
		}
		record("alice", 10, day0)
		record("alice", 30, day0)
		record("alice", 50, day0-clock.MillisPerDay)
		record("bob", 20, day0)
		record("bob", -5, day0)

		values := func(q query.Query) []float64 {
			got, err := svc.QueryStats(ctx, q)
			So(err, ShouldBeNil)
			out := make([]float64, len(got))
			for i, st := range got {
				out[i] = st.Value
			}
			return out
		}

		Convey("Each access pattern returns its slice in score order", func() {
			So(values(query.UniversalHighScore{Game: "tetris", Stat: "lines", Options: query.Options{Count: 3}}), ShouldResemble, []float64{50, 30, 20})
			So(values(query.DailyHighScore{Game: "tetris", Stat: "lines", Day: day0, Options: query.Options{Count: 10}}), ShouldResemble, []float64{30, 20, 10, -5})
			So(values(query.UserHighScore{User: "alice", Game: "tetris", Stat: "lines", Options: query.Options{Count: 10, Sort: query.Ascending}}), ShouldResemble, []float64{10, 30, 50})
			So(values(query.UserDailyHighScore{User: "bob", Game: "tetris", Stat: "lines", Day: day0, Options: query.Options{Count: 5, Sort: query.Ascending}}), ShouldResemble, []float64{-5, 20})
			So(values(query.UniversalHighScore{Game: "chess", Stat: "lines"}), ShouldBeEmpty)
		})

		Convey("Decoded stats carry every field", func() {
			got, err := svc.QueryStats(ctx, query.UserDailyHighScore{User: "bob", Game: "tetris", Stat: "lines", Day: day0})
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].User, ShouldEqual, "bob")
			So(got[0].Game, ShouldEqual, "tetris")
			So(got[0].Stat, ShouldEqual, "lines")
			So(got[0].Value, ShouldEqual, 20)
			So(got[0].Day, ShouldEqual, day0)
		})

		Convey("Status counts reads and writes", func() {
			values(query.UniversalHighScore{Game: "tetris", Stat: "lines"})
			st := svc.GetStats()
			So(st["statsRecorded"], ShouldEqual, uint64(5))
			So(st["queriesServed"], ShouldEqual, uint64(1))
			So(st["store"], ShouldEqual, "memory")
			So(st["items"], ShouldEqual, 5)
		})
	})

	Convey("Given a store that returns a broken item", t, func() {
		item := repository.Item{keys.AttrUser: &types.AttributeValueMemberS{Value: "u"}}
		svc := newService(service.WithStore(&stubStore{items: []repository.Item{item}}))
		defer svc.Stop()

		Convey("The whole query fails with a decode error", func() {
			_, err := svc.QueryStats(context.Background(), query.UniversalHighScore{Game: "g", Stat: "s"})
			So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
		})
	})

	Convey("Given a store that fails", t, func() {
		svc := newService(service.WithStore(&stubStore{queryErr: errs.WrapKind("stub.query", errs.ErrStorage, errors.New("down"))}))
		defer svc.Stop()
		_, err := svc.QueryStats(context.Background(), query.UniversalHighScore{Game: "g", Stat: "s"})
		So(errors.Is(err, errs.ErrStorage), ShouldBeTrue)
	})
}

func TestQueryCache(t *testing.T) {
	Convey("Given a service with the query cache enabled", t, func() {
		store := &stubStore{}
		svc := newService(service.WithStore(store), service.WithQueryCache(16, time.Minute))
		defer svc.Stop()
		q := query.UniversalHighScore{Game: "g", Stat: "s", Options: query.Options{Count: 2}}

		Convey("A repeated query is served without touching storage", func() {
			_, err := svc.QueryStats(context.Background(), q)
			So(err, ShouldBeNil)
			_, err = svc.QueryStats(context.Background(), q)
			So(err, ShouldBeNil)
			So(store.queries, ShouldEqual, 1)
			So(svc.GetStats()["cacheEntries"], ShouldEqual, 1)
		})

		Convey("A different plan misses", func() {
			_, _ = svc.QueryStats(context.Background(), q)
			q.Sort = query.Ascending
			_, _ = svc.QueryStats(context.Background(), q)
			So(store.queries, ShouldEqual, 2)
		})
	})
}

func TestStorageTimeout(t *testing.T) {
	Convey("Given a store slower than the storage timeout", t, func() {
		svc := newService(service.WithStore(&slowStore{}), service.WithStorageTimeout(10*time.Millisecond))
		defer svc.Stop()

		_, err := svc.QueryStats(context.Background(), query.UniversalHighScore{Game: "g", Stat: "s"})
		So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
	})
}

type slowStore struct{ stubStore }

func (s *slowStore) Query(ctx context.Context, _ repository.RangeQuery) ([]repository.Item, error) {
	<-ctx.Done()
	return nil, errs.WrapKind("slow.query", errs.ErrStorage, ctx.Err())
}
