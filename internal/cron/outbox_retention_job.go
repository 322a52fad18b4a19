package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

type outboxPruner interface {
	Prune(ctx context.Context, cutoff time.Time, maxAttempts int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	Outbox outboxPruner
	// Retention is how long delivered and parked rows stay around for
	// inspection. Defaults to 30 days.
	Retention time.Duration
	// MaxAttempts must match the publisher's ceiling so parked rows are
	// recognised. Defaults to 10.
	MaxAttempts int
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	outbox      outboxPruner
	retention   time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		outbox:      params.Outbox,
		retention:   params.Retention,
		maxAttempts: params.MaxAttempts,
		now:         time.Now,
	}
	if job.retention <= 0 {
		job.retention = 30 * 24 * time.Hour
	}
	if job.maxAttempts <= 0 {
		job.maxAttempts = 10
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	pruned, err := j.outbox.Prune(ctx, cutoff, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("prune outbox before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if pruned > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff": cutoff,
			"pruned": pruned,
		}), "outbox rows pruned")
	}
	return nil
}
