package aws

import (
	"context"
	"encoding/json"
	"fmt"
)

// smsMessage is the payload the SMS gateway consumes from its queue.
type smsMessage struct {
	Destination string `json:"destination"`
	Body        string `json:"body"`
}

// SMSNotifier delivers verification codes by enqueueing them for the SMS
// gateway. It satisfies verification.Notifier. Delivery is fire-and-forget:
// the gateway owns retries, the core only needs the enqueue to succeed.
type SMSNotifier struct {
	publisher *Publisher
}

// NewSMSNotifier returns a notifier bound to the SMS gateway queue.
func NewSMSNotifier(sqsClient SQSAPI, queueURL string) *SMSNotifier {
	return &SMSNotifier{
		publisher: NewPublisher(sqsClient, queueURL),
	}
}

// Send enqueues a verification code for delivery to destination.
func (n *SMSNotifier) Send(ctx context.Context, destination, code string) error {
	msg := smsMessage{
		Destination: destination,
		Body:        fmt.Sprintf("Your VitalVida delivery code is %s. It expires in a few minutes.", code),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal sms message: %w", err)
	}
	return n.publisher.send(ctx, string(body), map[string]string{"destination": destination})
}
