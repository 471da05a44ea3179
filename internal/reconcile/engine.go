package reconcile

import (
	"math"
	"time"

	"github.com/dvonne2/vitalvida-delivery-core/internal/orders"
	"github.com/dvonne2/vitalvida-delivery-core/internal/verification"
)

// DefaultSLAWindow is the agreed dispatch-to-confirmation threshold.
const DefaultSLAWindow = 48 * time.Hour

// Engine combines delivery quantities, payment and verification signals into
// one authoritative order outcome. It is stateless and pure: no side effects,
// no errors, bit-identical results for identical inputs. Malformed input
// degrades to FLAGGED rather than failing, reconciliation must always
// produce an answer.
type Engine struct {
	SLAWindow time.Duration
}

// NewEngine returns an Engine with the default SLA window.
func NewEngine() *Engine {
	return &Engine{SLAWindow: DefaultSLAWindow}
}

// Reconcile derives the final status for order given the delivery
// verification status. Safe to call concurrently and repeatedly.
func (e *Engine) Reconcile(order orders.Order, verificationStatus verification.Status) Result {
	var subtotal float64
	quantityMatch := true
	partialDelivery := false
	for _, it := range order.Items {
		subtotal += float64(it.QuantityDelivered) * it.UnitPrice
		if it.QuantityDelivered != it.QuantityOrdered {
			quantityMatch = false
		}
		if it.QuantityDelivered > 0 && it.QuantityDelivered < it.QuantityOrdered {
			partialDelivery = true
		}
	}

	expectedTotal := subtotal - order.Discount
	if expectedTotal < 0 {
		expectedTotal = 0
	}
	paymentMatch := cents(order.AmountPaid) == cents(expectedTotal)

	slaHours := 0
	slaStatus := SLAUnknown
	if order.DispatchTime != nil && order.DeliveryConfirmationTime != nil {
		slaHours = int(math.Round(order.DeliveryConfirmationTime.Sub(*order.DispatchTime).Hours()))
		if float64(slaHours) <= e.SLAWindow.Hours() {
			slaStatus = SLAOnTime
		} else {
			slaStatus = SLALate
		}
	}

	verified := verificationStatus == verification.StatusVerified
	paymentConfirmed := order.PaymentStatus == orders.PaymentConfirmed

	var final FinalStatus
	switch {
	case quantityMatch && paymentConfirmed && verified:
		final = FinalComplete
	case partialDelivery,
		!paymentConfirmed && order.AmountPaid > 0,
		verified && !quantityMatch:
		final = FinalPartial
	default:
		final = FinalFlagged
	}

	return Result{
		FinalStatus:     final,
		SLAHours:        slaHours,
		SLAStatus:       slaStatus,
		PaymentMatch:    paymentMatch,
		QuantityMatch:   quantityMatch,
		PartialDelivery: partialDelivery,
		Subtotal:        subtotal,
		ExpectedTotal:   expectedTotal,
	}
}

// cents compares money at cent precision to avoid float rounding artifacts.
func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
