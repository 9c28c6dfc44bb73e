package orders

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory stand-in for the orders table. It understands
// only the expressions the Store actually issues.
// NOTE: intentionally minimal, not production-grade.
type mockDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	putCalls    int
	getCalls    int
	updateCalls int

	// failNext, when set, makes the next call of that kind return an error.
	failNext map[string]error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		items:    map[string]map[string]types.AttributeValue{},
		failNext: map[string]error{},
	}
}

func (m *mockDynamo) takeFailure(op string) error {
	if err, ok := m.failNext[op]; ok {
		delete(m.failNext, op)
		return err
	}
	return nil
}

func pk(attrs map[string]types.AttributeValue) (string, error) {
	v, ok := attrs["order_id"]
	if !ok {
		return "", errors.New("missing order_id")
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("order_id is not a string")
	}
	return s.Value, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if err := m.takeFailure("put"); err != nil {
		return nil, err
	}
	k, err := pk(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, "attribute_not_exists(order_id)") {
		if _, exists := m.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if err := m.takeFailure("get"); err != nil {
		return nil, err
	}
	k, err := pk(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if err := m.takeFailure("update"); err != nil {
		return nil, err
	}
	k, err := pk(params.Key)
	if err != nil {
		return nil, err
	}
	item, exists := m.items[k]
	if params.ConditionExpression != nil {
		cond := *params.ConditionExpression
		if strings.Contains(cond, "attribute_exists(order_id)") && !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
		if strings.Contains(cond, "#s = :pending") {
			expected := params.ExpressionAttributeValues[":pending"].(*types.AttributeValueMemberS).Value
			current, ok := item["status"].(*types.AttributeValueMemberS)
			if !ok || current.Value != expected {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}
	if !exists {
		return nil, errors.New("item not found")
	}
	// apply the two update expressions the store issues
	expr := ""
	if params.UpdateExpression != nil {
		expr = *params.UpdateExpression
	}
	if v, ok := params.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":ts"]; ok {
		switch {
		case strings.Contains(expr, "processed_at"):
			item["processed_at"] = v
		case strings.Contains(expr, "failed_at"):
			item["failed_at"] = v
		}
	}
	if v, ok := params.ExpressionAttributeValues[":cause"]; ok {
		item["error"] = v
	}
	m.items[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("query"); err != nil {
		return nil, err
	}
	want := params.ExpressionAttributeValues[":s"].(*types.AttributeValueMemberS).Value
	var matched []map[string]types.AttributeValue
	for _, item := range m.items {
		if s, ok := item["status"].(*types.AttributeValueMemberS); ok && s.Value == want {
			matched = append(matched, item)
		}
	}
	// index order: created_at ascending; honor ScanIndexForward=false
	sort.Slice(matched, func(i, j int) bool {
		a := matched[i]["created_at"].(*types.AttributeValueMemberS).Value
		b := matched[j]["created_at"].(*types.AttributeValueMemberS).Value
		return a < b
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if params.Limit != nil && len(matched) > int(*params.Limit) {
		matched = matched[:int(*params.Limit)]
	}
	return &dyn.QueryOutput{Items: matched}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("scan"); err != nil {
		return nil, err
	}
	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		items = append(items, item)
	}
	return &dyn.ScanOutput{Items: items}, nil
}
