package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo supports the PutItem/GetItem/UpdateItem calls the orders store
// issues. Items keyed by order_no.
type mockDynamo struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{table: map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, ok := params.Item["order_no"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("no order_no in put item")
	}
	m.table[pk.Value] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, ok := params.Key["order_no"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("no order_no key")
	}
	item, ok := m.table[pk.Value]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := params.Key["order_no"].(*types.AttributeValueMemberS).Value
	item, exists := m.table[pk]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	// check "#s = :expected" before applying
	if params.ConditionExpression != nil && *params.ConditionExpression == "#s = :expected" {
		curr, ok := item["status"].(*types.AttributeValueMemberS)
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
		expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value
		if curr.Value != expected {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if v, ok := params.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = v
	}
	m.table[pk] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return nil, errors.New("Query not used by the orders store")
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	return nil, errors.New("Scan not used by the orders store")
}

func testOrder() Order {
	dispatch := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	return Order{
		OrderNo: "order-10",
		Items: []OrderItem{
			{SKU: "VIT-001", Name: "Multivitamin", QuantityOrdered: 2, QuantityDelivered: 2, UnitPrice: 1500},
		},
		AmountPaid:    3000,
		PaymentStatus: PaymentConfirmed,
		DispatchTime:  &dispatch,
		Status:        StatusPending,
	}
}

func TestPutGet_Roundtrip(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	ctx := context.Background()

	if err := store.Put(ctx, testOrder()); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, err := store.Get(ctx, "order-10")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected order, got nil")
	}
	if got.OrderNo != "order-10" || len(got.Items) != 1 || got.Items[0].SKU != "VIT-001" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if got.PaymentStatus != PaymentConfirmed {
		t.Fatalf("payment status mismatch: %s", got.PaymentStatus)
	}
	if got.DispatchTime == nil {
		t.Fatalf("dispatch time lost in roundtrip")
	}
}

func TestGet_Missing(t *testing.T) {
	store := NewStore(newMockDynamo(), "orders")
	got, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing order, got %+v", got)
	}
}

func TestUpdateStatus_Condition_SuccessAndFail(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	ctx := context.Background()

	if err := store.Put(ctx, testOrder()); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	// success: PENDING -> COMPLETE
	if err := store.UpdateStatus(ctx, "order-10", StatusPending, StatusComplete); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// failure: expecting PENDING but current is COMPLETE
	err := store.UpdateStatus(ctx, "order-10", StatusPending, StatusFlagged)
	if err == nil {
		t.Fatalf("expected ErrStatusMismatch, got nil")
	}
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}

	got, _ := store.Get(ctx, "order-10")
	if got.Status != StatusComplete {
		t.Fatalf("final status must stand, got %s", got.Status)
	}
}
