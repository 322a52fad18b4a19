package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox/registry"
)

const (
	idleBackoffCap = 10 * time.Second
	maxJitter      = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// disposition is what happens to an outbox row after one delivery attempt.
type disposition int

const (
	delivered disposition = iota
	retryLater
	parked
)

type RelayParams struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	Broker   broker
	Store    eventStore
	Resolver eventResolver
}

// Relay drains committed order events from outbox_events onto Pub/Sub.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	broker      broker
	store       eventStore
	resolver    eventResolver
	batchSize   int
	maxAttempts int
	interval    time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("broker is required")
	case params.Store == nil:
		return nil, errors.New("outbox store is required")
	case params.Resolver == nil:
		return nil, errors.New("event resolver is required")
	}

	r := &Relay{
		logg:        params.Logger,
		db:          params.DB,
		broker:      params.Broker,
		store:       params.Store,
		resolver:    params.Resolver,
		batchSize:   params.Outbox.BatchSize,
		maxAttempts: params.Outbox.MaxAttempts,
		interval:    params.Outbox.PollInterval(),
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	return r, nil
}

// Run polls until ctx is cancelled. Empty polls and failed batches back off
// exponentially up to idleBackoffCap; any delivered batch resets the delay.
func (r *Relay) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := r.broker.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	delay := r.interval
	for {
		handled, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox drain failed", err)
			delay = nextBackoff(delay, r.interval, idleBackoffCap)
		case handled > 0:
			delay = r.interval
			if ctx.Err() == nil {
				continue
			}
		default:
			delay = r.interval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + rand.N(maxJitter)):
		}
	}
}

// drain handles one batch inside a single transaction so row locks taken by
// the fetch are held until every row in the batch has been settled.
func (r *Relay) drain(ctx context.Context) (int, error) {
	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		for _, row := range rows {
			if err := r.settle(ctx, tx, row); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"order_id":      row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	resolved, err := r.resolver.Resolve(row)
	if err == nil {
		logCtx = r.logg.WithFields(logCtx, map[string]any{
			"event_id": resolved.Envelope.EventID,
			"topic":    resolved.Descriptor.Topic,
		})
		err = r.broker.Send(ctx, resolved.Descriptor.Topic, orderMessage(row, resolved))
	}

	switch r.classify(row, err) {
	case delivered:
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.logg.Info(logCtx, "order event published")
	case retryLater:
		r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "order event publish failed, will retry")
		if err := r.store.MarkFailedTx(tx, row.ID, err); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
	case parked:
		r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "order event parked")
		if err := r.store.MarkTerminalTx(tx, row.ID, err, r.maxAttempts); err != nil {
			return fmt.Errorf("park %s: %w", row.ID, err)
		}
	}
	return nil
}

// classify parks rows that can never succeed and rows whose next attempt
// would reach the ceiling. Parked rows sit at maxAttempts so the fetch query
// skips them; the retention cron prunes them later.
func (r *Relay) classify(row models.OutboxEvent, err error) disposition {
	if err == nil {
		return delivered
	}
	var permanent registry.NonRetryableError
	if errors.As(err, &permanent) {
		return parked
	}
	if row.AttemptCount+1 >= r.maxAttempts {
		return parked
	}
	return retryLater
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}
