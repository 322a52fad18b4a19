package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
)

// OutboxEvent is one order lifecycle event waiting for, or past, relay to
// Pub/Sub. Rows are written in the transaction that changed the order.
//
// A row is pending while PublishedAt is nil and AttemptCount is below the
// relay's ceiling. The relay parks undeliverable rows by setting
// AttemptCount to the ceiling and leaving PublishedAt nil.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	// Payload is a JSON-encoded outbox.Envelope.
	Payload      json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount int             `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string         `gorm:"column:last_error"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	PublishedAt  *time.Time      `gorm:"column:published_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }
