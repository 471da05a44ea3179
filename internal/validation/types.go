package validation

// IssueVerificationRequest is the payload for POST /orders/:orderNo/verification.
// Destination must be an E.164 phone number; the SMS gateway rejects anything else.
type IssueVerificationRequest struct {
	Destination string `json:"destination" validate:"required,e164"`
}

// ValidateCodeRequest is the payload for POST /verification/:id/validate.
type ValidateCodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}
