package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message types carried on the events queue.
const (
	MessageTypeDeliveryVerified  = "delivery.verified"
	MessageTypeVerificationSweep = "verification.sweep"
)

// DeliveryVerifiedEvent is published when a delivery code is verified;
// the reconciliation worker consumes it.
type DeliveryVerifiedEvent struct {
	Type      string `json:"type"`
	OrderRef  string `json:"order_ref"`
	RequestID string `json:"request_id"`
}

// Publisher wraps an SQS client and a queue URL for outbound domain events.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// PublishDeliveryVerified announces a verified delivery so the worker can
// reconcile the order. Callers treat failures as soft errors.
func (p *Publisher) PublishDeliveryVerified(ctx context.Context, orderRef, requestID string) error {
	ev := DeliveryVerifiedEvent{
		Type:      MessageTypeDeliveryVerified,
		OrderRef:  orderRef,
		RequestID: requestID,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.send(ctx, string(body), map[string]string{
		"type":      MessageTypeDeliveryVerified,
		"order_ref": orderRef,
	})
}

// send sends a message body to the queue. attributes map[string]string ->
// sent as MessageAttributes.
func (p *Publisher) send(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			// using string type for all attrs
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: &v,
			}
		}
		input.MessageAttributes = msgAttrs
	}

	_, err := p.SQS.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
