package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/streamcart/order-pipeline/internal/aws"
)

// statusIndex is the GSI keyed by status with created_at as the range key,
// used for newest-first status listings.
const statusIndex = "status-created_at-index"

// scanPageSize bounds the unfiltered listing scan.
const scanPageSize = 500

// ErrNoMatch indicates a conditional update matched no record: the order is
// absent or no longer PENDING.
var ErrNoMatch = errors.New("no matching order in expected state")

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Ensure writes the order only if no record with its order_id exists yet.
// If the record already exists it is fetched and returned instead, so repeated
// delivery of the same creation never duplicates or overwrites state.
// The returned bool reports whether a new record was created.
func (s *Store) Ensure(ctx context.Context, order Order) (*Order, bool, error) {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.nowFunc().UTC()
	}

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return nil, false, fmt.Errorf("marshal order: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	}

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			existing, gerr := s.Get(ctx, order.OrderID)
			if gerr != nil {
				return nil, false, gerr
			}
			if existing == nil {
				// record vanished between the conditional failure and the read
				return nil, false, fmt.Errorf("order %s: %w", order.OrderID, ErrNoMatch)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("put item: %w", err)
	}

	return &order, true, nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// MarkProcessed transitions the order PENDING -> PROCESSED and stamps
// processed_at, returning the updated record. The PENDING guard makes the
// terminal transition monotonic; ErrNoMatch means the record is absent or
// already terminal.
func (s *Store) MarkProcessed(ctx context.Context, orderID string) (*Order, error) {
	now := s.nowFunc().UTC()
	ts, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("marshal timestamp: %w", err)
	}

	return s.terminalUpdate(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, processed_at = :ts"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":     &types.AttributeValueMemberS{Value: StatusProcessed},
			":ts":      ts,
			":pending": &types.AttributeValueMemberS{Value: StatusPending},
		},
		ConditionExpression: awsString("attribute_exists(order_id) AND #s = :pending"),
		ReturnValues:        types.ReturnValueAllNew,
	})
}

// MarkFailed transitions the order PENDING -> FAILED, stamping failed_at and
// recording the failure cause. Same guard semantics as MarkProcessed, so a
// FAILED write can never clobber a PROCESSED record.
func (s *Store) MarkFailed(ctx context.Context, orderID, cause string) (*Order, error) {
	now := s.nowFunc().UTC()
	ts, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("marshal timestamp: %w", err)
	}

	return s.terminalUpdate(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, failed_at = :ts, #e = :cause"),
		ExpressionAttributeNames: map[string]string{"#s": "status", "#e": "error"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":     &types.AttributeValueMemberS{Value: StatusFailed},
			":ts":      ts,
			":cause":   &types.AttributeValueMemberS{Value: cause},
			":pending": &types.AttributeValueMemberS{Value: StatusPending},
		},
		ConditionExpression: awsString("attribute_exists(order_id) AND #s = :pending"),
		ReturnValues:        types.ReturnValueAllNew,
	})
}

func (s *Store) terminalUpdate(ctx context.Context, input *dyn.UpdateItemInput) (*Order, error) {
	out, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	var o Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, fmt.Errorf("unmarshal updated order: %w", err)
	}
	return &o, nil
}

// List returns orders newest-first, capped at limit. With a status filter the
// status GSI serves the query in index order; without one a bounded scan is
// sorted in memory.
func (s *Store) List(ctx context.Context, status string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 1
	}

	if status != "" {
		out, err := s.client.Query(ctx, &dyn.QueryInput{
			TableName:                &s.tableName,
			IndexName:                awsString(statusIndex),
			KeyConditionExpression:   awsString("#s = :s"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":s": &types.AttributeValueMemberS{Value: status},
			},
			ScanIndexForward: awsBool(false), // created_at descending
			Limit:            awsInt32(int32(limit)),
		})
		if err != nil {
			return nil, fmt.Errorf("query by status: %w", err)
		}
		return unmarshalOrders(out.Items)
	}

	out, err := s.client.Scan(ctx, &dyn.ScanInput{
		TableName: &s.tableName,
		Limit:     awsInt32(scanPageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	list, err := unmarshalOrders(out.Items)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func unmarshalOrders(items []map[string]types.AttributeValue) ([]Order, error) {
	list := make([]Order, 0, len(items))
	for _, item := range items {
		var o Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		list = append(list, o)
	}
	return list, nil
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
func awsInt32(n int32) *int32    { return &n }
