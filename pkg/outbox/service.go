// Package outbox records domain events in the same transaction as the state
// change that caused them. cmd/outbox-publisher relays the rows to Pub/Sub.
package outbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds an emitter. logg may be nil.
func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}
}

// Emit queues event on tx. The row becomes visible to the publisher only if
// tx commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("outbox emit needs the caller's transaction")
	}
	row, env, err := event.row(s.now())
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}

	if s.logg != nil && ctx != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID,
			"event_type":   row.EventType,
			"aggregate_id": row.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}
