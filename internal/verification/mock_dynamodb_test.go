package verification

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory mock implementing exactly the expressions
// the verification Store issues. Not production-grade.
type mockDynamo struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue

	putCalls  int
	getCalls  int
	scanCalls int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++

	keyAttr, ok := params.Item["request_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing request_id in put item")
	}
	pk := keyAttr.Value

	if params.ConditionExpression != nil {
		switch *params.ConditionExpression {
		case "attribute_not_exists(request_id)":
			if _, exists := m.table[pk]; exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case "#s = :expected":
			existing, exists := m.table[pk]
			if !exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
			curr, ok := existing["status"].(*types.AttributeValueMemberS)
			if !ok {
				return nil, &types.ConditionalCheckFailedException{}
			}
			expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value
			if curr.Value != expected {
				return nil, &types.ConditionalCheckFailedException{}
			}
		default:
			return nil, errors.New("unsupported condition expression: " + *params.ConditionExpression)
		}
	}

	m.table[pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++

	keyAttr, ok := params.Key["request_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing request_id key")
	}
	item, ok := m.table[keyAttr.Value]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

// Query serves only the order_ref-index lookup.
func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if params.IndexName == nil || *params.IndexName != OrderRefIndex {
		return nil, errors.New("unsupported query index")
	}
	ref := params.ExpressionAttributeValues[":ref"].(*types.AttributeValueMemberS).Value

	out := &dyn.QueryOutput{}
	for _, item := range m.table {
		if v, ok := item["order_ref"].(*types.AttributeValueMemberS); ok && v.Value == ref {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

// Scan serves only the pending-status filter.
func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++

	want := params.ExpressionAttributeValues[":pending"].(*types.AttributeValueMemberS).Value

	out := &dyn.ScanOutput{}
	for _, item := range m.table {
		if v, ok := item["status"].(*types.AttributeValueMemberS); ok && v.Value == want {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("UpdateItem not used by the verification store")
}
