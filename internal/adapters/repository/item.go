package repository

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/okian/statboard/internal/domain/keys"
	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/pkg/errs"
)

// statRecord is the marshalled shape of a stat item.
type statRecord struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	LSISK  string `dynamodbav:"LSI-SK"`
	GSI1PK string `dynamodbav:"GSI1-PK"`
	GSI1SK string `dynamodbav:"GSI1-SK"`
	GSI2PK string `dynamodbav:"GSI2-PK"`
	GSI2SK string `dynamodbav:"GSI2-SK"`

	User      string  `dynamodbav:"User"`
	Game      string  `dynamodbav:"Game"`
	Stat      string  `dynamodbav:"Stat"`
	Value     float64 `dynamodbav:"Value"`
	Day       uint64  `dynamodbav:"Day"`
	Timestamp uint64  `dynamodbav:"Timestamp"`
}

// EncodeStat builds the storage item for s, including every index key.
func EncodeStat(s model.Stat) (Item, error) {
	k := keys.For(s)
	item, err := attributevalue.MarshalMap(statRecord{
		PK: k.PK, SK: k.SK, LSISK: k.LSISK,
		GSI1PK: k.GSI1PK, GSI1SK: k.GSI1SK,
		GSI2PK: k.GSI2PK, GSI2SK: k.GSI2SK,
		User: s.User, Game: s.Game, Stat: s.Stat,
		Value: s.Value, Day: s.Day, Timestamp: s.AddedTimestamp,
	})
	if err != nil {
		return nil, errs.WrapKind("repository.encode_stat", errs.ErrStorage, err)
	}
	return item, nil
}

const opDecode = "repository.decode_stat"

// DecodeStat reads the data attributes of item. Key attributes are ignored.
// A missing or wrongly typed attribute is a decode error; a number that does
// not parse is a parse error.
func DecodeStat(item Item) (model.Stat, error) {
	var (
		s   model.Stat
		err error
	)
	if s.User, err = stringAttr(item, keys.AttrUser); err != nil {
		return model.Stat{}, err
	}
	if s.Game, err = stringAttr(item, keys.AttrGame); err != nil {
		return model.Stat{}, err
	}
	if s.Stat, err = stringAttr(item, keys.AttrStat); err != nil {
		return model.Stat{}, err
	}

	raw, err := numberAttr(item, keys.AttrValue)
	if err != nil {
		return model.Stat{}, err
	}
	if s.Value, err = strconv.ParseFloat(raw, 64); err != nil {
		return model.Stat{}, badNumber(keys.AttrValue, raw)
	}

	if raw, err = numberAttr(item, keys.AttrDay); err != nil {
		return model.Stat{}, err
	}
	if s.Day, err = strconv.ParseUint(raw, 10, 64); err != nil {
		return model.Stat{}, badNumber(keys.AttrDay, raw)
	}

	if raw, err = numberAttr(item, keys.AttrTimestamp); err != nil {
		return model.Stat{}, err
	}
	if s.AddedTimestamp, err = strconv.ParseUint(raw, 10, 64); err != nil {
		return model.Stat{}, badNumber(keys.AttrTimestamp, raw)
	}
	return s, nil
}

func stringAttr(item Item, name string) (string, error) {
	av, ok := item[name]
	if !ok {
		return "", errs.WrapKind(opDecode, errs.ErrDecode, fmt.Errorf("%w: %s", ErrMissingAttribute, name))
	}
	v, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", errs.WrapKind(opDecode, errs.ErrDecode, fmt.Errorf("%w: %s is %T, want S", ErrAttributeType, name, av))
	}
	return v.Value, nil
}

func numberAttr(item Item, name string) (string, error) {
	av, ok := item[name]
	if !ok {
		return "", errs.WrapKind(opDecode, errs.ErrDecode, fmt.Errorf("%w: %s", ErrMissingAttribute, name))
	}
	v, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return "", errs.WrapKind(opDecode, errs.ErrDecode, fmt.Errorf("%w: %s is %T, want N", ErrAttributeType, name, av))
	}
	return v.Value, nil
}

func badNumber(name, raw string) error {
	return errs.WrapKind(opDecode, errs.ErrParse, fmt.Errorf("%w: %s=%q", ErrBadNumber, name, raw))
}

// stringKey returns the S value of attribute name, or false when the item has
// no such string attribute.
func stringKey(item Item, name string) (string, bool) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return v.Value, true
}
