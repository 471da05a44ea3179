package main

// WorkerMessage is the payload carried on the events queue: either a
// delivery.verified event from the API or a verification.sweep tick from the
// scheduler.
type WorkerMessage struct {
	Type      string `json:"type"`
	OrderRef  string `json:"order_ref,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
