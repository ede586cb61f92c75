// Package gateway sends outbound text messages through the notification provider.
package gateway

import (
	"context"
	"fmt"
)

// Message is one outbound text.
type Message struct {
	From string
	To   string
	Text string
}

// DeliveryResult is the provider's per-recipient accounting for one send.
type DeliveryResult struct {
	Registered int
	Failed     int
	Reason     string
}

// OK reports whether no recipient failed.
func (r DeliveryResult) OK() bool {
	return r.Failed == 0
}

func (r DeliveryResult) Err() error {
	if r.OK() {
		return nil
	}
	if r.Reason != "" {
		return fmt.Errorf("%d messages failed: %s", r.Failed, r.Reason)
	}
	return fmt.Errorf("%d messages failed", r.Failed)
}

// Sender submits a message. A non-nil error means the provider could not be
// reached or rejected the request; per-recipient failures come back in the result.
type Sender interface {
	Send(ctx context.Context, msg Message) (DeliveryResult, error)
}
