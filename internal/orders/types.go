package orders

import "time"

// PaymentStatus of an order, as reported by the payment read model.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Order statuses. An order sits in PENDING until the reconciliation worker
// writes one of the three final statuses.
const (
	StatusPending  = "PENDING"
	StatusComplete = "COMPLETE"
	StatusPartial  = "PARTIAL"
	StatusFlagged  = "FLAGGED"
)

// OrderItem is a single line of an order. QuantityDelivered above
// QuantityOrdered is tolerated here and flagged downstream, never clamped.
type OrderItem struct {
	SKU               string  `dynamodbav:"sku" json:"sku"`
	Name              string  `dynamodbav:"name" json:"name"`
	QuantityOrdered   int     `dynamodbav:"quantity_ordered" json:"quantity_ordered"`
	QuantityDelivered int     `dynamodbav:"quantity_delivered" json:"quantity_delivered"`
	UnitPrice         float64 `dynamodbav:"unit_price" json:"unit_price"`
}

// Order is the read model stored in the orders table.
type Order struct {
	OrderNo                  string        `dynamodbav:"order_no" json:"order_no"` // PK
	Items                    []OrderItem   `dynamodbav:"items" json:"items"`
	Discount                 float64       `dynamodbav:"discount" json:"discount"`
	AmountPaid               float64       `dynamodbav:"amount_paid" json:"amount_paid"`
	PaymentStatus            PaymentStatus `dynamodbav:"payment_status" json:"payment_status"`
	DispatchTime             *time.Time    `dynamodbav:"dispatch_time,omitempty" json:"dispatch_time,omitempty"`
	DeliveryConfirmationTime *time.Time    `dynamodbav:"delivery_confirmation_time,omitempty" json:"delivery_confirmation_time,omitempty"`
	Status                   string        `dynamodbav:"status" json:"status"` // PENDING | COMPLETE | PARTIAL | FLAGGED
	CreatedAt                time.Time     `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt                time.Time     `dynamodbav:"updated_at" json:"updated_at"`
}
