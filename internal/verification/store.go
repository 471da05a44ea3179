package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/dvonne2/vitalvida-delivery-core/internal/aws"
)

// OrderRefIndex is the GSI serving the one-live-request-per-order lookup.
const OrderRefIndex = "order_ref-index"

// ErrStatusMismatch indicates a conditional transition lost a race: the
// stored status no longer matches the snapshot the caller read.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Store encapsulates operations on the verification_requests table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new verification request Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create writes a brand-new request, failing with ErrStatusMismatch if a
// record with the same request_id already exists.
func (s *Store) Create(ctx context.Context, req VerificationRequest) error {
	req.UpdatedAt = s.nowFunc()
	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: dynString("attribute_not_exists(request_id)"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrStatusMismatch
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Transition replaces the stored record with the snapshot req, but only if
// the stored status still equals expected. Every state machine step goes
// through here so concurrent writers degrade to ErrStatusMismatch instead of
// silently clobbering each other.
func (s *Store) Transition(ctx context.Context, req VerificationRequest, expected Status) error {
	req.UpdatedAt = s.nowFunc()
	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                &s.tableName,
		Item:                     item,
		ConditionExpression:      dynString("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberS{Value: string(expected)},
		},
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches a request by request_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, requestID string) (*VerificationRequest, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"request_id": &types.AttributeValueMemberS{Value: requestID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var req VerificationRequest
	if err := attributevalue.UnmarshalMap(out.Item, &req); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	return &req, nil
}

// GetByOrder fetches the request owned by orderRef via the order_ref-index
// GSI. Returns (nil, nil) if the order has never been issued a code.
func (s *Store) GetByOrder(ctx context.Context, orderRef string) (*VerificationRequest, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              dynString(OrderRefIndex),
		KeyConditionExpression: dynString("order_ref = :ref"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ref": &types.AttributeValueMemberS{Value: orderRef},
		},
		Limit: dynInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query order index: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var req VerificationRequest
	if err := attributevalue.UnmarshalMap(out.Items[0], &req); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	return &req, nil
}

// ListPending scans for requests still in PENDING status, for the expiry
// sweep. The pending set is bounded by live deliveries, so a scan stays
// small.
func (s *Store) ListPending(ctx context.Context) ([]VerificationRequest, error) {
	out, err := s.client.Scan(ctx, &dyn.ScanInput{
		TableName:                &s.tableName,
		FilterExpression:         dynString("#s = :pending"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: string(StatusPending)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan pending: %w", err)
	}

	reqs := make([]VerificationRequest, 0, len(out.Items))
	for _, item := range out.Items {
		var req VerificationRequest
		if err := attributevalue.UnmarshalMap(item, &req); err != nil {
			return nil, fmt.Errorf("unmarshal request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func dynString(s string) *string { return &s }
func dynInt32(i int32) *int32 { return &i }
