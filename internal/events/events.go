package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventInventorySnapshotBuilt = "InventorySnapshotBuilt"
	EventCalculationCompleted   = "CalculationCompleted"
	EventPurchaseConfirmed      = "PurchaseConfirmed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload as a version 1 event.
func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

// ---- payloads ----

type LowStockAlert struct {
	Store      string `json:"store"`
	ProductKey string `json:"product_key"`
	Stock      int    `json:"stock"`
}

type InventorySnapshotPayload struct {
	SnapshotID  string          `json:"snapshot_id"`
	Stores      int             `json:"stores"`
	Products    int             `json:"products"`
	FailedSKUs  []string        `json:"failed_skus,omitempty"`
	RejectedSKU []string        `json:"rejected_skus,omitempty"`
	Mode        string          `json:"mode"`
	LowStock    []LowStockAlert `json:"low_stock,omitempty"`
}

type CalculationPayload struct {
	Merchant     string   `json:"merchant,omitempty"`
	Total        string   `json:"total"`
	FinalPayment string   `json:"final_payment"`
	Rules        []string `json:"rules"`
	Excluded     int      `json:"excluded"`
}

// Publisher sends envelopes keyed by partition key.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, env Envelope) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte, Envelope) error { return nil }
