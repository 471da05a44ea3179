package verification

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Notifier delivers a verification code to a destination. Sends are
// fire-and-forget from the manager's point of view: a failed send never rolls
// back the issued code, the resend operation recovers from lost messages.
type Notifier interface {
	Send(ctx context.Context, destination, code string) error
}

// Manager owns the lifecycle of verification requests: issue, validate,
// resend and the expiry sweep. Calls touching the same order are serialized
// by a per-order lock; different orders proceed in parallel.
type Manager struct {
	store    *Store
	notifier Notifier
	cfg      Config
	validate *validatorv10.Validate
	nowFunc  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager returns a Manager backed by store, delivering codes through
// notifier. Zero-valued cfg fields fall back to DefaultConfig.
func NewManager(store *Store, notifier Notifier, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = def.CodeLength
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Manager{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		validate: validatorv10.New(),
		nowFunc:  time.Now,
		locks:    map[string]*sync.Mutex{},
	}
}

// lockOrder serializes mutations for a single orderRef.
func (m *Manager) lockOrder(orderRef string) func() {
	m.mu.Lock()
	l, ok := m.locks[orderRef]
	if !ok {
		l = &sync.Mutex{}
		m.locks[orderRef] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Issue creates the live request for orderRef (or re-cycles the existing one)
// with a fresh code, and enqueues the code for delivery to destination.
// Fails with ErrInvalidDestination for a malformed destination and with
// ErrInvalidState if the order's delivery is already verified.
func (m *Manager) Issue(ctx context.Context, orderRef, destination string) (VerificationRequest, error) {
	if err := m.validate.Var(destination, "required,e164"); err != nil {
		return VerificationRequest{}, fmt.Errorf("%w: %s", ErrInvalidDestination, destination)
	}

	unlock := m.lockOrder(orderRef)
	defer unlock()

	existing, err := m.store.GetByOrder(ctx, orderRef)
	if err != nil {
		return VerificationRequest{}, err
	}

	code, err := GenerateCode(m.cfg.CodeLength)
	if err != nil {
		return VerificationRequest{}, err
	}

	now := m.nowFunc()
	if existing == nil {
		req := VerificationRequest{
			ID:          uuid.NewString(),
			OrderRef:    orderRef,
			Code:        code,
			Destination: destination,
			Status:      StatusPending,
			IssuedAt:    now,
			ExpiresAt:   now.Add(m.cfg.TTL),
			Attempts:    0,
			MaxAttempts: m.cfg.MaxAttempts,
		}
		if err := m.store.Create(ctx, req); err != nil {
			return VerificationRequest{}, err
		}
		m.sendCode(ctx, req)
		return req, nil
	}

	if existing.Status == StatusVerified {
		return VerificationRequest{}, fmt.Errorf("%w: delivery already verified for order %s", ErrInvalidState, orderRef)
	}

	next := m.recycle(*existing, code, now)
	next.Destination = destination
	if err := m.store.Transition(ctx, next, existing.Status); err != nil {
		return VerificationRequest{}, err
	}
	m.sendCode(ctx, next)
	return next, nil
}

// Validate checks submittedCode against the live code for requestID.
// Expiry is evaluated lazily here: an overdue PENDING request transitions to
// EXPIRED without consuming an attempt. Terminal EXPIRED/FAILED requests
// reject validation with ErrInvalidState; a VERIFIED request keeps returning
// success with no further mutation.
func (m *Manager) Validate(ctx context.Context, requestID, submittedCode string) (ValidationResult, error) {
	req, err := m.store.Get(ctx, requestID)
	if err != nil {
		return ValidationResult{}, err
	}
	if req == nil {
		return ValidationResult{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	unlock := m.lockOrder(req.OrderRef)
	defer unlock()

	// re-read under the lock; a concurrent call may have transitioned it
	req, err = m.store.Get(ctx, requestID)
	if err != nil {
		return ValidationResult{}, err
	}
	if req == nil {
		return ValidationResult{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	switch req.Status {
	case StatusVerified:
		// idempotent success, nothing mutates
		return ValidationResult{Outcome: OutcomeVerified, Request: *req}, nil
	case StatusExpired, StatusFailed:
		return ValidationResult{}, fmt.Errorf("%w: request is %s, resend to get a new code", ErrInvalidState, req.Status)
	case StatusPending:
	}

	now := m.nowFunc()
	if now.After(req.ExpiresAt) {
		next := *req
		next.Status = StatusExpired
		if err := m.store.Transition(ctx, next, StatusPending); err != nil {
			return ValidationResult{}, err
		}
		return ValidationResult{Outcome: OutcomeExpired, Request: next}, nil
	}

	next := *req
	next.Attempts++

	if submittedCode == req.Code {
		next.Status = StatusVerified
		if err := m.store.Transition(ctx, next, StatusPending); err != nil {
			return ValidationResult{}, err
		}
		return ValidationResult{Outcome: OutcomeVerified, Request: next}, nil
	}

	if next.Attempts >= req.MaxAttempts {
		next.Status = StatusFailed
		if err := m.store.Transition(ctx, next, StatusPending); err != nil {
			return ValidationResult{}, err
		}
		return ValidationResult{Outcome: OutcomeFailed, RemainingAttempts: 0, Request: next}, nil
	}

	if err := m.store.Transition(ctx, next, StatusPending); err != nil {
		return ValidationResult{}, err
	}
	return ValidationResult{
		Outcome:           OutcomeFailed,
		RemainingAttempts: req.MaxAttempts - next.Attempts,
		Request:           next,
	}, nil
}

// Resend regenerates the code for requestID and starts a fresh PENDING cycle.
// Allowed from PENDING, EXPIRED and FAILED; a VERIFIED request is final and
// rejects with ErrInvalidState.
func (m *Manager) Resend(ctx context.Context, requestID string) (VerificationRequest, error) {
	req, err := m.store.Get(ctx, requestID)
	if err != nil {
		return VerificationRequest{}, err
	}
	if req == nil {
		return VerificationRequest{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	unlock := m.lockOrder(req.OrderRef)
	defer unlock()

	req, err = m.store.Get(ctx, requestID)
	if err != nil {
		return VerificationRequest{}, err
	}
	if req == nil {
		return VerificationRequest{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	if req.Status == StatusVerified {
		return VerificationRequest{}, fmt.Errorf("%w: cannot resend a verified request", ErrInvalidState)
	}

	code, err := GenerateCode(m.cfg.CodeLength)
	if err != nil {
		return VerificationRequest{}, err
	}

	next := m.recycle(*req, code, m.nowFunc())
	if err := m.store.Transition(ctx, next, req.Status); err != nil {
		return VerificationRequest{}, err
	}
	m.sendCode(ctx, next)
	return next, nil
}

// SweepExpired transitions every PENDING request with expiresAt <= now to
// EXPIRED and returns how many it moved. Idempotent and safe to interleave
// with live traffic: each mutation takes the same per-order lock and is
// re-checked under it.
func (m *Manager) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	pending, err := m.store.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, req := range pending {
		if req.ExpiresAt.After(now) {
			continue
		}
		expired, err := m.expireOne(ctx, req.ID, now)
		if err != nil {
			return count, err
		}
		if expired {
			count++
		}
	}
	return count, nil
}

func (m *Manager) expireOne(ctx context.Context, requestID string, now time.Time) (bool, error) {
	// the scan result is stale by definition; re-read under the lock
	stale, err := m.store.Get(ctx, requestID)
	if err != nil || stale == nil {
		return false, err
	}

	unlock := m.lockOrder(stale.OrderRef)
	defer unlock()

	req, err := m.store.Get(ctx, requestID)
	if err != nil || req == nil {
		return false, err
	}
	if req.Status != StatusPending || req.ExpiresAt.After(now) {
		return false, nil
	}

	next := *req
	next.Status = StatusExpired
	if err := m.store.Transition(ctx, next, StatusPending); err != nil {
		if err == ErrStatusMismatch {
			// lost to a concurrent validate/resend; their transition stands
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Current returns the request owned by orderRef, or nil if the order has
// never been issued a code. Read-only, no lock needed.
func (m *Manager) Current(ctx context.Context, orderRef string) (*VerificationRequest, error) {
	return m.store.GetByOrder(ctx, orderRef)
}

// recycle returns a fresh PENDING snapshot reusing the request identity.
func (m *Manager) recycle(req VerificationRequest, code string, now time.Time) VerificationRequest {
	req.Code = code
	req.Status = StatusPending
	req.Attempts = 0
	req.MaxAttempts = m.cfg.MaxAttempts
	req.IssuedAt = now
	req.ExpiresAt = now.Add(m.cfg.TTL)
	return req
}

// sendCode hands the code to the notifier. The transition has already been
// committed, so a send failure is only logged; the caller-facing resend path
// recovers from a lost message.
func (m *Manager) sendCode(ctx context.Context, req VerificationRequest) {
	if err := m.notifier.Send(ctx, req.Destination, req.Code); err != nil {
		log.Printf("[verification] notify failed order=%s request=%s: %v", req.OrderRef, req.ID, err)
	}
}
