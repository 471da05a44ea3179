package reconcile

// FinalStatus is the three-tier reconciliation outcome. Operators need more
// than a boolean: COMPLETE is clean success, PARTIAL is "something happened
// but not fraud", FLAGGED needs investigation.
type FinalStatus string

const (
	FinalComplete FinalStatus = "COMPLETE"
	FinalPartial  FinalStatus = "PARTIAL"
	FinalFlagged  FinalStatus = "FLAGGED"
)

// SLAStatus reports whether the dispatch-to-confirmation window held.
type SLAStatus string

const (
	SLAOnTime  SLAStatus = "ON_TIME"
	SLALate    SLAStatus = "LATE"
	SLAUnknown SLAStatus = "UNKNOWN"
)

// Result is the output of a reconciliation run. It is derived, never stored
// as-is; re-derive it whenever any input changes.
type Result struct {
	FinalStatus     FinalStatus `json:"final_status"`
	SLAHours        int         `json:"sla_hours"`
	SLAStatus       SLAStatus   `json:"sla_status"`
	PaymentMatch    bool        `json:"payment_match"`
	QuantityMatch   bool        `json:"quantity_match"`
	PartialDelivery bool        `json:"partial_delivery"`
	Subtotal        float64     `json:"subtotal"`
	ExpectedTotal   float64     `json:"expected_total"`
}
