// Package repository stores stat items in a partitioned, range-sorted key
// space with one primary index and three secondary indexes.
package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/okian/statboard/internal/domain/keys"
	"github.com/okian/statboard/internal/domain/query"
)

// Item is one stored record: attribute name to typed value.
type Item = map[string]types.AttributeValue

// RangeQuery reads the items of one partition whose sort key starts with
// SortPrefix, in key order or reversed.
type RangeQuery struct {
	Index        keys.Index
	PartitionKey string
	SortPrefix   string
	Forward      bool
	Limit        int
}

// RangeFromPlan converts a query plan into a range read. The sort prefix is
// terminated at a segment boundary.
func RangeFromPlan(p query.Plan) RangeQuery {
	return RangeQuery{
		Index:        p.Index,
		PartitionKey: p.PartitionKey,
		SortPrefix:   p.ScanPrefix(),
		Forward:      p.Forward(),
		Limit:        p.Limit,
	}
}

// Store provides write and range-read access to stat items.
type Store interface {
	// Put writes item unconditionally. An item with the same primary key is
	// replaced.
	Put(ctx context.Context, item Item) error

	// Query returns at most q.Limit items in index order.
	Query(ctx context.Context, q RangeQuery) ([]Item, error)

	// Kind names the backend for logs and metrics.
	Kind() string
}

// ValueChecker is implemented by stores that cannot hold every finite
// float64. CheckValue returns a validation error for values the store would
// reject.
type ValueChecker interface {
	CheckValue(v float64) error
}
