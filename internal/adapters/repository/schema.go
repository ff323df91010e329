package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/okian/statboard/internal/domain/keys"
	"github.com/okian/statboard/pkg/logger"
)

// TableInput describes the stats table: (PK, SK) with the LSI on (PK, LSI-SK)
// and GSI1/GSI2 on their own key pairs. Every key attribute is a string and
// every index projects all attributes.
func TableInput(table string) *dynamodb.CreateTableInput {
	all := &types.Projection{ProjectionType: types.ProjectionTypeAll}

	attrs := make([]types.AttributeDefinition, 0, 7)
	for _, name := range []string{
		keys.AttrPK, keys.AttrSK, keys.AttrLSISK,
		keys.AttrGSI1PK, keys.AttrGSI1SK, keys.AttrGSI2PK, keys.AttrGSI2SK,
	} {
		attrs = append(attrs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:            aws.String(table),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attrs,
		KeySchema:            keySchema(keys.Primary),
		LocalSecondaryIndexes: []types.LocalSecondaryIndex{{
			IndexName:  aws.String(keys.LSI.Name),
			KeySchema:  keySchema(keys.LSI),
			Projection: all,
		}},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{IndexName: aws.String(keys.GSI1.Name), KeySchema: keySchema(keys.GSI1), Projection: all},
			{IndexName: aws.String(keys.GSI2.Name), KeySchema: keySchema(keys.GSI2), Projection: all},
		},
	}
}

func keySchema(ix keys.Index) []types.KeySchemaElement {
	return []types.KeySchemaElement{
		{AttributeName: aws.String(ix.PartitionAttr), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String(ix.SortAttr), KeyType: types.KeyTypeRange},
	}
}

// EnsureTable creates the table when it does not exist and waits until it is
// active. It returns whether the table was created.
func (s *DynamoStore) EnsureTable(ctx context.Context) (bool, error) {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return false, nil
	}
	var rnfe *types.ResourceNotFoundException
	if !errors.As(err, &rnfe) {
		return false, fmt.Errorf("DescribeTable(%s): %w", s.table, err)
	}

	s.log.Info(ctx, "creating table", logger.String("table", s.table))
	if _, err = s.client.CreateTable(ctx, TableInput(s.table)); err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return false, fmt.Errorf("CreateTable(%s): %w", s.table, err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, s.tableWait,
		func(o *dynamodb.TableExistsWaiterOptions) {
			o.MinDelay = tableWaitMinInterval
			o.MaxDelay = tableWaitMaxInterval
		}); err != nil {
		return false, fmt.Errorf("wait for table %s to exist: %w", s.table, err)
	}
	return true, nil
}
