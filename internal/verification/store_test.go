package verification

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testRequest(id, orderRef string) VerificationRequest {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	return VerificationRequest{
		ID:          id,
		OrderRef:    orderRef,
		Code:        "123456",
		Destination: "+2348012345678",
		Status:      StatusPending,
		IssuedAt:    now,
		ExpiresAt:   now.Add(5 * time.Minute),
		MaxAttempts: 3,
	}
}

func TestStore_CreateGetAndDuplicate(t *testing.T) {
	mock := newMockDynamo()
	s := NewStore(mock, "verification-requests")
	ctx := context.Background()

	req := testRequest("req-1", "order-1")
	if err := s.Create(ctx, req); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil || got.OrderRef != "order-1" || got.Code != "123456" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	if err := s.Create(ctx, req); !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("duplicate create should fail with ErrStatusMismatch, got %v", err)
	}
}

func TestStore_GetMissingReturnsNil(t *testing.T) {
	s := NewStore(newMockDynamo(), "verification-requests")
	got, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing request, got %+v", got)
	}
}

func TestStore_TransitionGuardsStatus(t *testing.T) {
	mock := newMockDynamo()
	s := NewStore(mock, "verification-requests")
	ctx := context.Background()

	req := testRequest("req-1", "order-1")
	if err := s.Create(ctx, req); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	next := req
	next.Status = StatusVerified
	next.Attempts = 1
	if err := s.Transition(ctx, next, StatusPending); err != nil {
		t.Fatalf("Transition error: %v", err)
	}

	// the stored status is now VERIFIED; a stale writer loses
	stale := req
	stale.Status = StatusExpired
	if err := s.Transition(ctx, stale, StatusPending); !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch for stale transition, got %v", err)
	}
}

func TestStore_GetByOrder(t *testing.T) {
	mock := newMockDynamo()
	s := NewStore(mock, "verification-requests")
	ctx := context.Background()

	if err := s.Create(ctx, testRequest("req-1", "order-1")); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.Create(ctx, testRequest("req-2", "order-2")); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.GetByOrder(ctx, "order-2")
	if err != nil {
		t.Fatalf("GetByOrder error: %v", err)
	}
	if got == nil || got.ID != "req-2" {
		t.Fatalf("expected req-2, got %+v", got)
	}

	none, err := s.GetByOrder(ctx, "order-3")
	if err != nil {
		t.Fatalf("GetByOrder error: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for unknown order, got %+v", none)
	}
}

func TestStore_ListPending(t *testing.T) {
	mock := newMockDynamo()
	s := NewStore(mock, "verification-requests")
	ctx := context.Background()

	pending := testRequest("req-1", "order-1")
	verified := testRequest("req-2", "order-2")
	verified.Status = StatusVerified
	if err := s.Create(ctx, pending); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.Create(ctx, verified); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "req-1" {
		t.Fatalf("expected only req-1 pending, got %+v", got)
	}
}
