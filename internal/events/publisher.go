// internal/events/publisher.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published after a money-movement commit.
const (
	TypeLoanDisbursed      = "loan.disbursed"
	TypeLoanClosed         = "loan.closed"
	TypeRepaymentSucceeded = "repayment.succeeded"
	TypeWalletToppedUp     = "wallet.topped_up"
)

// Event is a notification about a committed change. It is informational: the
// ledger, not the event stream, is the source of truth.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// NewEvent stamps a new event with a unique id.
func NewEvent(eventType string, userID int64, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
