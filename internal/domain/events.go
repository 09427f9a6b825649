package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxDraft is an event staged in the transactional outbox, written in the
// same transaction as the state change it describes.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewLedgerEntryPostedEvent stages an event for a freshly inserted ledger row.
func NewLedgerEntryPostedEvent(entry *LedgerEntry) OutboxDraft {
	payload, _ := json.Marshal(entry)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: "ledger",
		AggregateID:   entry.AccountID.String(),
		EventType:     "entry_posted",
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewPaymentEvent stages a payment lifecycle event.
func NewPaymentEvent(p *Payment, eventType string) OutboxDraft {
	payload, _ := json.Marshal(p)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: "payment",
		AggregateID:   p.ID.String(),
		EventType:     eventType,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// GuardResult is the outcome of a guard check.
type GuardResult struct {
	Allowed bool
	Reason  string
	Guard   string
}
