package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/okian/statboard/pkg/errs"
	"github.com/okian/statboard/pkg/logger"
	"github.com/okian/statboard/pkg/metrics"
)

// DynamoDBClient is the subset of the DynamoDB API the store uses.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

var (
	_ DynamoDBClient = (*dynamodb.Client)(nil)
	_ ValueChecker   = (*DynamoStore)(nil)
)

const (
	storeDynamo          = "dynamodb"
	keyCondition         = "#pk = :pk AND begins_with(#sk, :sk_prefix)"
	defaultTableWait     = 2 * time.Minute
	tableWaitMinInterval = time.Second
	tableWaitMaxInterval = 15 * time.Second

	// DynamoDB numbers hold magnitudes in [1e-130, 1e126).
	minNumberMagnitude = 1e-130
	maxNumberMagnitude = 1e126
)

// DynamoStore keeps stat items in a single DynamoDB table.
type DynamoStore struct {
	client    DynamoDBClient
	table     string
	log       logger.Logger
	tableWait time.Duration
}

// NewDynamoStore wraps client. The client is shared by every request.
func NewDynamoStore(client DynamoDBClient, table string, opts ...DynamoOption) *DynamoStore {
	s := &DynamoStore{
		client:    client,
		table:     table,
		log:       logger.Discard(),
		tableWait: defaultTableWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind implements Store.
func (s *DynamoStore) Kind() string { return storeDynamo }

// Table returns the table name.
func (s *DynamoStore) Table() string { return s.table }

// CheckValue implements ValueChecker. Zero is always storable.
func (s *DynamoStore) CheckValue(v float64) error {
	if a := math.Abs(v); a != 0 && (a < minNumberMagnitude || a >= maxNumberMagnitude) {
		return errs.Validation("repository.dynamo.check_value",
			"value magnitude must be between 1e-130 and 1e126")
	}
	return nil
}

// Put implements Store with an unconditional PutItem.
func (s *DynamoStore) Put(ctx context.Context, item Item) error {
	start := time.Now()
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	metrics.RecordStorageLatency(storeDynamo, "put", float64(time.Since(start).Milliseconds()))
	if err != nil {
		code := errorCode(err)
		metrics.RecordStorageError(storeDynamo, "put", code)
		s.log.Error(ctx, "put item failed", logger.String("table", s.table), logger.String("code", code), logger.Error(err))
		return errs.WrapKind("repository.dynamo.put", errs.ErrStorage, err)
	}
	return nil
}

// Query implements Store. It follows LastEvaluatedKey until Limit items are
// gathered or the range is exhausted.
func (s *DynamoStore) Query(ctx context.Context, q RangeQuery) ([]Item, error) {
	if q.Limit < 1 {
		return nil, errs.WrapKind("repository.dynamo.query", errs.ErrValidation, ErrInvalidLimit)
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String(keyCondition),
		ExpressionAttributeNames: map[string]string{
			"#pk": q.Index.PartitionAttr,
			"#sk": q.Index.SortAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":        &types.AttributeValueMemberS{Value: q.PartitionKey},
			":sk_prefix": &types.AttributeValueMemberS{Value: q.SortPrefix},
		},
		ScanIndexForward: aws.Bool(q.Forward),
	}
	if !q.Index.IsPrimary() {
		in.IndexName = aws.String(q.Index.Name)
	}

	start := time.Now()
	defer func() {
		metrics.RecordStorageLatency(storeDynamo, "query", float64(time.Since(start).Milliseconds()))
	}()

	items := make([]Item, 0, q.Limit)
	for {
		in.Limit = aws.Int32(int32(q.Limit - len(items))) //nolint:gosec // limit is bounded by the query parser
		out, err := s.client.Query(ctx, in)
		if err != nil {
			code := errorCode(err)
			metrics.RecordStorageError(storeDynamo, "query", code)
			s.log.Error(ctx, "query failed",
				logger.String("table", s.table),
				logger.String("index", q.Index.String()),
				logger.String("code", code),
				logger.Error(err))
			return nil, errs.WrapKind("repository.dynamo.query", errs.ErrStorage, err)
		}
		items = append(items, out.Items...)
		if len(items) >= q.Limit || len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

// errorCode extracts the service error code for metric labels.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "DeadlineExceeded"
	}
	if errors.Is(err, context.Canceled) {
		return "Canceled"
	}
	return "Unknown"
}
