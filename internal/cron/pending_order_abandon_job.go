package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/phuoc-stack/foodapp-backend/internal/orders"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

const (
	defaultPendingOrderMaxAge = 24 * time.Hour
	defaultPendingOrderBatch  = 100
)

type pendingOrderReader interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderAbandoner interface {
	Abandon(ctx context.Context, orderID uuid.UUID, reason string) (bool, error)
}

// PendingOrderAbandonJobParams configure the stale checkout sweep.
type PendingOrderAbandonJobParams struct {
	Logger    *logger.Logger
	Reader    pendingOrderReader
	Orders    orderAbandoner
	MaxAge    time.Duration
	BatchSize int
}

// NewPendingOrderAbandonJob builds the job that writes off orders whose
// payment never arrived.
func NewPendingOrderAbandonJob(params PendingOrderAbandonJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultPendingOrderMaxAge
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPendingOrderBatch
	}
	return &pendingOrderAbandonJob{
		logg:   params.Logger,
		reader: params.Reader,
		orders: params.Orders,
		maxAge: maxAge,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type pendingOrderAbandonJob struct {
	logg   *logger.Logger
	reader pendingOrderReader
	orders orderAbandoner
	maxAge time.Duration
	batch  int
	now    func() time.Time
}

func (j *pendingOrderAbandonJob) Name() string { return "pending-order-abandon" }

// Run abandons one batch per cycle; the next cycle picks up any remainder.
func (j *pendingOrderAbandonJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	stale, err := j.reader.ListPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query pending orders: %w", err)
	}

	var errs error
	abandoned := 0
	for _, order := range stale {
		changed, err := j.orders.Abandon(ctx, order.ID, orders.AbandonReasonPaymentTimedOut)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("abandon order %s: %w", order.ID, err))
			continue
		}
		if changed {
			abandoned++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(stale),
		"abandoned":  abandoned,
	}), "pending order sweep complete")
	return errs
}
