package repository

import (
	"errors"
	"math"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	. "github.com/smartystreets/goconvey/convey"
	"pgregory.net/rapid"

	"github.com/okian/statboard/internal/domain/keys"
	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/pkg/errs"
)

func TestEncodeStat(t *testing.T) {
	Convey("Given alice's tetris stat", t, func() {
		st := model.Stat{User: "alice", Game: "tetris", Stat: "lines", Value: 42, Day: testDay, AddedTimestamp: testDay + 5}
		item, err := EncodeStat(st)
		So(err, ShouldBeNil)

		Convey("It carries every key and data attribute", func() {
			So(item, ShouldHaveLength, 13)
			pk, _ := stringKey(item, keys.AttrPK)
			So(pk, ShouldEqual, "User#alice")
			sk, _ := stringKey(item, keys.AttrSK)
			So(sk, ShouldStartWith, "Game#tetris#Day#1699920000000#Stat#lines#Value#")
			gsi1, _ := stringKey(item, keys.AttrGSI1PK)
			So(gsi1, ShouldEqual, "Game#tetris#Stat#lines")
			So(item[keys.AttrValue], ShouldHaveSameTypeAs, &types.AttributeValueMemberN{})
			So(item[keys.AttrDay], ShouldResemble, &types.AttributeValueMemberN{Value: "1699920000000"})
		})

		Convey("Decoding gives the stat back", func() {
			got, err := DecodeStat(item)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, st)
		})
	})
}

func TestDecodeStatErrors(t *testing.T) {
	Convey("Given a valid item", t, func() {
		item, err := EncodeStat(model.Stat{User: "u", Game: "g", Stat: "s", Value: -1.5, Day: 0, AddedTimestamp: 1})
		So(err, ShouldBeNil)

		Convey("A missing attribute is a decode error", func() {
			delete(item, keys.AttrGame)
			_, err := DecodeStat(item)
			So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
			So(errors.Is(err, ErrMissingAttribute), ShouldBeTrue)
		})

		Convey("A wrongly typed attribute is a decode error", func() {
			item[keys.AttrValue] = &types.AttributeValueMemberS{Value: "1"}
			_, err := DecodeStat(item)
			So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
			So(errors.Is(err, ErrAttributeType), ShouldBeTrue)

			item[keys.AttrValue] = &types.AttributeValueMemberN{Value: "1"}
			item[keys.AttrUser] = &types.AttributeValueMemberN{Value: "7"}
			_, err = DecodeStat(item)
			So(errors.Is(err, ErrAttributeType), ShouldBeTrue)
		})

		Convey("A bad number is a parse error", func() {
			for _, attr := range []string{keys.AttrValue, keys.AttrDay, keys.AttrTimestamp} {
				broken := Item{}
				for k, v := range item {
					broken[k] = v
				}
				broken[attr] = &types.AttributeValueMemberN{Value: "twelve"}
				_, err := DecodeStat(broken)
				So(errors.Is(err, errs.ErrParse), ShouldBeTrue)
				So(errors.Is(err, ErrBadNumber), ShouldBeTrue)
			}
		})

		Convey("Negative day is a parse error", func() {
			item[keys.AttrDay] = &types.AttributeValueMemberN{Value: "-86400000"}
			_, err := DecodeStat(item)
			So(errors.Is(err, errs.ErrParse), ShouldBeTrue)
		})
	})
}

// TestProperty_EncodeDecodeRoundTrip checks a written stat decodes to itself.
func TestProperty_EncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		st := model.Stat{
			User:           rapid.StringN(1, 16, -1).Draw(t, "user"),
			Game:           rapid.StringN(1, 16, -1).Draw(t, "game"),
			Stat:           rapid.StringN(1, 16, -1).Draw(t, "stat"),
			Value:          rapid.Float64Range(-math.MaxFloat64, math.MaxFloat64).Draw(t, "value"),
			Day:            rapid.Uint64Range(0, 100_000).Draw(t, "days") * 86_400_000,
			AddedTimestamp: rapid.Uint64().Draw(t, "ts"),
		}
		item, err := EncodeStat(st)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeStat(item)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if math.Float64bits(got.Value) != math.Float64bits(st.Value) {
			t.Fatalf("value: got %v, want %v", got.Value, st.Value)
		}
		want := st
		got.Value, want.Value = 0, 0
		if got != want {
			t.Fatalf("round trip: got %+v, want %+v", got, want)
		}
	})
}
