package domain

import (
	"encoding/json"
	"time"
)

// BillingEventType enumerates inbound billing event categories.
type BillingEventType string

const (
	BillingEventPaymentSucceeded      BillingEventType = "payment.succeeded"
	BillingEventSubscriptionActivated BillingEventType = "subscription.activated"
	BillingEventSubscriptionRenewed   BillingEventType = "subscription.renewed"
	BillingEventSubscriptionCancelled BillingEventType = "subscription.cancelled"
)

// BillingEvent is one inbound event from the external payment processor.
// ID is globally unique and supplied by the sender; the processor relies on
// it for at-most-once application under at-least-once delivery.
type BillingEvent struct {
	ID     string           `json:"id"`
	Type   BillingEventType `json:"type"`
	UserID string           `json:"user_id"`
	Data   json.RawMessage  `json:"data,omitempty"`
}

// ProcessedEvent is the idempotency record guarding one billing event. Its
// insertion, unique on EventID, is the commit point for "this event took
// effect"; rows are never mutated or deleted.
type ProcessedEvent struct {
	EventID     string
	ProcessedAt time.Time
}

// EventOutcome is the result of handling one inbound billing event.
type EventOutcome string

const (
	EventApplied  EventOutcome = "applied"
	EventSkipped  EventOutcome = "skipped"
	EventRejected EventOutcome = "rejected"
)
