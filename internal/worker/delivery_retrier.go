package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
)

// Redeliverer retries one failed delivery
type Redeliverer interface {
	Redeliver(ctx context.Context, d *notification.Delivery) error
}

// DeliveryRetrier periodically retries failed deliveries
type DeliveryRetrier struct {
	deliveries  notification.DeliveryRepository
	redeliverer Redeliverer
	schedule    string
	batchSize   int
	scheduler   *cron.Cron
	logger      *logger.Logger
}

// NewDeliveryRetrier creates a new delivery retry worker
func NewDeliveryRetrier(
	deliveries notification.DeliveryRepository,
	redeliverer Redeliverer,
	schedule string,
	batchSize int,
	log *logger.Logger,
) *DeliveryRetrier {
	return &DeliveryRetrier{
		deliveries:  deliveries,
		redeliverer: redeliverer,
		schedule:    schedule,
		batchSize:   batchSize,
		logger:      log,
	}
}

// Start schedules the retry job. Runs never overlap.
func (r *DeliveryRetrier) Start(ctx context.Context) error {
	r.scheduler = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := r.scheduler.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.ErrorWithErr(err, "Delivery retry run failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid retry schedule %q: %w", r.schedule, err)
	}

	r.scheduler.Start()
	r.logger.WithFields(map[string]interface{}{
		"schedule": r.schedule,
	}).Info("Delivery retrier started")
	return nil
}

// Stop stops scheduling and waits for a running job
func (r *DeliveryRetrier) Stop() {
	if r.scheduler == nil {
		return
	}
	<-r.scheduler.Stop().Done()
	r.logger.Info("Delivery retrier stopped")
}

// RunOnce retries one batch of failed deliveries and returns how many succeeded
func (r *DeliveryRetrier) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.deliveries.ListRetryable(ctx, notification.MaxRetries, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	sent := 0
	for _, d := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := r.redeliverer.Redeliver(ctx, d); err != nil {
			r.logger.WithFields(map[string]interface{}{
				"delivery_id": d.ID,
				"retry_count": d.RetryCount,
			}).WarnWithErr(err, "Redelivery failed")
			continue
		}
		sent++
	}

	r.logger.WithFields(map[string]interface{}{
		"attempted": len(pending),
		"sent":      sent,
	}).Info("Delivery retry run completed")
	return sent, nil
}
