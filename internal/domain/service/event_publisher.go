package service

import (
	"context"
	"time"
)

// Event types published for transaction lifecycle changes
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// TransactionEvent describes a change to a stored transaction
type TransactionEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	Description   string    `json:"description,omitempty"`
	Date          string    `json:"date,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing transaction events
type EventPublisher interface {
	Publish(ctx context.Context, event TransactionEvent) error
}
