package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dvonne2/vitalvida-delivery-core/internal/aws"
	"github.com/dvonne2/vitalvida-delivery-core/internal/orders"
	"github.com/dvonne2/vitalvida-delivery-core/internal/reconcile"
	"github.com/dvonne2/vitalvida-delivery-core/internal/verification"
)

// Processor consumes events-queue messages: it reconciles verified orders
// and runs the expiry sweep.
type Processor struct {
	orderStore *orders.Store
	manager    *verification.Manager
	engine     *reconcile.Engine
	metrics    *aws.Metrics
	nowFunc    func() time.Time
}

// NewProcessor builds a Processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, verificationTable, ordersTable, smsQueueURL, metricsNamespace string) *Processor {
	store := verification.NewStore(clients.DynamoDB, verificationTable)
	notifier := aws.NewSMSNotifier(clients.SQS, smsQueueURL)
	return &Processor{
		orderStore: orders.NewStore(clients.DynamoDB, ordersTable),
		manager:    verification.NewManager(store, notifier, verification.DefaultConfig()),
		engine:     reconcile.NewEngine(),
		metrics:    aws.NewMetrics(clients.CloudWatch, metricsNamespace),
		nowFunc:    time.Now,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg WorkerMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	switch msg.Type {
	case aws.MessageTypeDeliveryVerified:
		return p.reconcileOrder(ctx, msg)
	case aws.MessageTypeVerificationSweep:
		return p.sweep(ctx)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (p *Processor) reconcileOrder(ctx context.Context, msg WorkerMessage) error {
	log.Printf("[worker] received verified event order=%s request=%s", msg.OrderRef, msg.RequestID)

	order, err := p.orderStore.Get(ctx, msg.OrderRef)
	if err != nil {
		return fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		// Should never happen — DLQ if it does
		return fmt.Errorf("order not found: %s", msg.OrderRef)
	}

	result := p.engine.Reconcile(*order, verification.StatusVerified)

	err = p.orderStore.UpdateStatus(ctx, msg.OrderRef, orders.StatusPending, string(result.FinalStatus))
	if err == orders.ErrStatusMismatch {
		// Competing worker or replayed event: a final status is already in
		// place. Reconciliation is deterministic, so the stored answer is the
		// same answer — swallow the duplicate.
		o2, _ := p.orderStore.Get(ctx, msg.OrderRef)
		if o2 != nil && o2.Status != orders.StatusPending {
			log.Printf("[worker] order=%s already reconciled to %s", msg.OrderRef, o2.Status)
			return nil
		}
		return fmt.Errorf("order=%s status changed underneath reconciliation", msg.OrderRef)
	}
	if err != nil {
		return fmt.Errorf("failed to write final status: %w", err)
	}

	if err := p.metrics.Count(ctx, aws.MetricOrdersReconciled, map[string]string{"FinalStatus": string(result.FinalStatus)}); err != nil {
		log.Printf("[worker] metric emit failed: %v", err)
	}

	log.Printf("[worker] reconciled order=%s final=%s sla=%s payment_match=%t",
		msg.OrderRef, result.FinalStatus, result.SLAStatus, result.PaymentMatch)
	return nil
}

func (p *Processor) sweep(ctx context.Context) error {
	n, err := p.manager.SweepExpired(ctx, p.nowFunc())
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	if n > 0 {
		log.Printf("[worker] expired %d pending verification requests", n)
	}
	return nil
}
