package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoService is the entity store: a thin adapter over DynamoDB exposing
// the composite-key convention (PK/SK plus GSIs) and the conditional and
// transactional writes the allocation logic is built on.
type DynamoService struct {
	Client DynamoDBAPI
	Table  string
}

// Key builds the composite primary key for an item.
func Key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// GetItem fetches one item. A missing item is returned as a nil map, not an
// error; absence is a normal outcome for first-sight flows.
func (ds *DynamoService) GetItem(ctx context.Context, pk, sk string) (map[string]types.AttributeValue, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &ds.Table,
		Key:       Key(pk, sk),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s/%s: %w", pk, sk, err)
	}
	if len(output.Item) == 0 {
		return nil, nil
	}
	return output.Item, nil
}

// GetItemAs fetches one item and unmarshals it into out. Returns false when
// the item does not exist.
func (ds *DynamoService) GetItemAs(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	item, err := ds.GetItem(ctx, pk, sk)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal item %s/%s: %w", pk, sk, err)
	}
	return true, nil
}

// PutItem marshals and writes an item unconditionally.
func (ds *DynamoService) PutItem(ctx context.Context, item interface{}) error {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &ds.Table,
		Item:      marshaled,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", ds.Table, err)
	}
	return nil
}

// UpdateItem runs an UpdateExpression against one item, optionally guarded
// by a condition, returning the new attribute state.
func (ds *DynamoService) UpdateItem(
	ctx context.Context,
	pk, sk string,
	updateExpression string,
	values map[string]types.AttributeValue,
	names map[string]string,
	condition string,
) (map[string]types.AttributeValue, error) {
	input := &dynamodb.UpdateItemInput{
		TableName:                 &ds.Table,
		Key:                       Key(pk, sk),
		UpdateExpression:          &updateExpression,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
	if condition != "" {
		input.ConditionExpression = &condition
	}

	output, err := ds.Client.UpdateItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to update item %s/%s: %w", pk, sk, err)
	}
	return output.Attributes, nil
}

// DeleteItem removes one item.
func (ds *DynamoService) DeleteItem(ctx context.Context, pk, sk string) error {
	_, err := ds.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &ds.Table,
		Key:       Key(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item %s/%s: %w", pk, sk, err)
	}
	return nil
}

// QueryPrefix returns all items under one partition key whose sort key
// starts with skPrefix.
func (ds *DynamoService) QueryPrefix(ctx context.Context, pk, skPrefix string) ([]map[string]types.AttributeValue, error) {
	keyCondition := "PK = :pk AND begins_with(SK, :skPrefix)"
	output, err := ds.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &ds.Table,
		KeyConditionExpression: &keyCondition,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s/%s*: %w", pk, skPrefix, err)
	}
	return output.Items, nil
}

// QueryIndex queries a GSI by its partition key.
func (ds *DynamoService) QueryIndex(ctx context.Context, indexName, pkAttr, pkValue string) ([]map[string]types.AttributeValue, error) {
	keyCondition := fmt.Sprintf("%s = :pk", pkAttr)
	output, err := ds.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &ds.Table,
		IndexName:              &indexName,
		KeyConditionExpression: &keyCondition,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pkValue},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", indexName, err)
	}
	return output.Items, nil
}

// TransactWrite executes up to 100 writes atomically. Multi-item creation
// and the upload-completion transition both go through here.
func (ds *DynamoService) TransactWrite(ctx context.Context, items ...types.TransactWriteItem) error {
	_, err := ds.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return fmt.Errorf("transactional write failed: %w", err)
	}
	return nil
}

// ConditionalPut builds a transact Put guarded by a condition expression.
func (ds *DynamoService) ConditionalPut(item interface{}, condition string) (types.TransactWriteItem, error) {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal item: %w", err)
	}
	put := &types.Put{
		TableName: &ds.Table,
		Item:      marshaled,
	}
	if condition != "" {
		put.ConditionExpression = &condition
	}
	return types.TransactWriteItem{Put: put}, nil
}

// TransactUpdate builds a transact Update against one item.
func (ds *DynamoService) TransactUpdate(
	pk, sk string,
	updateExpression string,
	values map[string]types.AttributeValue,
	names map[string]string,
	condition string,
) types.TransactWriteItem {
	update := &types.Update{
		TableName:                 &ds.Table,
		Key:                       Key(pk, sk),
		UpdateExpression:          aws.String(updateExpression),
		ExpressionAttributeValues: values,
	}
	if len(names) > 0 {
		update.ExpressionAttributeNames = names
	}
	if condition != "" {
		update.ConditionExpression = &condition
	}
	return types.TransactWriteItem{Update: update}
}

// TransactDelete builds a transact Delete against one item.
func (ds *DynamoService) TransactDelete(pk, sk string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName: &ds.Table,
		Key:       Key(pk, sk),
	}}
}

// unmarshalItem decodes a raw attribute map into a record struct.
func unmarshalItem(item map[string]types.AttributeValue, out interface{}) error {
	return attributevalue.UnmarshalMap(item, out)
}

// IsConditionalCheckFailed reports whether err is a failed condition, either
// on a single-item write or inside a cancelled transaction. This is the
// signal that lets first-sight creation degrade to the update path.
func IsConditionalCheckFailed(err error) bool {
	var condFailed *types.ConditionalCheckFailedException
	if errors.As(err, &condFailed) {
		return true
	}
	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for _, reason := range cancelled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
