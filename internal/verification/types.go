package verification

import (
	"errors"
	"time"
)

// Status of a verification request. The set is closed; every switch over it
// handles all four values.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusExpired  Status = "EXPIRED"
	StatusFailed   Status = "FAILED"
)

// Errors surfaced to callers. Business outcomes (expired, wrong code,
// exhausted attempts) are NOT errors — they come back as a ValidationResult.
var (
	ErrInvalidDestination = errors.New("invalid destination")
	ErrInvalidState       = errors.New("operation not allowed in current status")
	ErrNotFound           = errors.New("verification request not found")
)

// VerificationRequest is the record persisted in the verification_requests
// table. At most one record exists per order; a resend reuses its identity
// and starts a fresh code cycle. Records are never deleted.
type VerificationRequest struct {
	ID          string    `dynamodbav:"request_id"` // PK
	OrderRef    string    `dynamodbav:"order_ref"`  // GSI order_ref-index
	Code        string    `dynamodbav:"code"`
	Destination string    `dynamodbav:"destination"`
	Status      Status    `dynamodbav:"status"`
	IssuedAt    time.Time `dynamodbav:"issued_at"`
	ExpiresAt   time.Time `dynamodbav:"expires_at"`
	Attempts    int       `dynamodbav:"attempts"`
	MaxAttempts int       `dynamodbav:"max_attempts"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}

// Outcome classifies the result of a Validate call.
type Outcome string

const (
	OutcomeVerified Outcome = "VERIFIED"
	OutcomeExpired  Outcome = "EXPIRED"
	OutcomeFailed   Outcome = "FAILED"
)

// ValidationResult is the typed outcome of Validate. RemainingAttempts is
// meaningful only when Outcome is OutcomeFailed; zero means the code cycle is
// exhausted and only a resend can revive it.
type ValidationResult struct {
	Outcome           Outcome
	RemainingAttempts int
	Request           VerificationRequest
}

// Config carries the tunables of the manager. The reference deployment uses
// the defaults; none of them is hardcoded anywhere else.
type Config struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
}

// DefaultConfig returns the reference tunables: 6-digit codes valid for
// 5 minutes with 3 validation attempts.
func DefaultConfig() Config {
	return Config{
		CodeLength:  6,
		TTL:         5 * time.Minute,
		MaxAttempts: 3,
	}
}
