// Package dispatch delivers resolved destinations on a pool of workers.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/metrics"
)

var (
	// ErrQueueFull is returned by Enqueue when no slot is free
	ErrQueueFull = errors.New("dispatch queue is full")
	// ErrStopped is returned by Enqueue after Stop
	ErrStopped = errors.New("dispatcher is stopped")
)

// DestinationLookup loads destinations for redelivery
type DestinationLookup interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]*notification.Destination, error)
}

// Options configures a Dispatcher
type Options struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single send attempt
	Timeout time.Duration
	// MaxElapsed bounds all attempts of one delivery
	MaxElapsed time.Duration
	// InitialInterval is the first backoff wait. Zero keeps the library default.
	InitialInterval time.Duration
	// EnabledMedia limits the registered senders. Empty enables all.
	EnabledMedia  []string
	SubjectPrefix string
}

type job struct {
	event        *incident.Event
	destinations []*notification.Destination
}

// Dispatcher implements notification.Dispatcher
type Dispatcher struct {
	senders      map[notification.Medium]notification.Sender
	deliveries   notification.DeliveryRepository
	destinations DestinationLookup
	opts         Options
	logger       *logger.Logger

	queue   chan job
	mu      sync.RWMutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a dispatcher. Senders whose medium is not enabled are ignored.
func New(deliveries notification.DeliveryRepository, destinations DestinationLookup, log *logger.Logger, opts Options, senders ...notification.Sender) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = time.Minute
	}

	enabled := make(map[string]bool, len(opts.EnabledMedia))
	for _, m := range opts.EnabledMedia {
		enabled[m] = true
	}

	registered := make(map[notification.Medium]notification.Sender)
	for _, s := range senders {
		if len(enabled) > 0 && !enabled[string(s.Medium())] {
			continue
		}
		registered[s.Medium()] = s
	}

	return &Dispatcher{
		senders:      registered,
		deliveries:   deliveries,
		destinations: destinations,
		opts:         opts,
		logger:       log,
		queue:        make(chan job, opts.QueueSize),
	}
}

// Supports reports whether a sender is registered for the medium
func (d *Dispatcher) Supports(m notification.Medium) bool {
	_, ok := d.senders[m]
	return ok
}

// Media lists the registered media ordered by slug
func (d *Dispatcher) Media() []notification.Medium {
	out := make([]notification.Medium, 0, len(d.senders))
	for m := range d.senders {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Start launches the workers. Deliveries are bound to ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.queue {
				metrics.SetQueueDepth(len(d.queue))
				d.process(ctx, j)
			}
		}()
	}

	d.logger.WithFields(map[string]interface{}{
		"workers": d.opts.Workers,
		"queue":   d.opts.QueueSize,
		"media":   d.Media(),
	}).Info("Dispatcher started")
}

// Stop closes the queue and waits for the workers to drain it
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
	d.logger.Info("Dispatcher stopped")
}

// Enqueue queues delivery of the event without blocking
func (d *Dispatcher) Enqueue(e *incident.Event, destinations []*notification.Destination) error {
	if len(destinations) == 0 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- job{event: e, destinations: destinations}:
		metrics.SetQueueDepth(len(d.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	msg := Render(j.event, d.opts.SubjectPrefix)
	payload, err := json.Marshal(msg)
	if err != nil {
		d.logger.WithFields(map[string]interface{}{
			"event_id": j.event.ID,
		}).ErrorWithErr(err, "Failed to render message")
		return
	}

	for _, dest := range j.destinations {
		d.deliver(ctx, j.event, dest, msg, payload)
	}
}

// deliver sends to one destination. A failure or panic here never reaches
// the other destinations of the job.
func (d *Dispatcher) deliver(ctx context.Context, e *incident.Event, dest *notification.Destination, msg *notification.Message, payload []byte) {
	log := d.logger.WithFields(map[string]interface{}{
		"event_id":       e.ID,
		"incident_id":    e.Incident.ID,
		"destination_id": dest.ID,
		"medium":         dest.Medium,
	})

	rec := &notification.Delivery{
		EventID:       e.ID,
		DestinationID: dest.ID,
		Medium:        dest.Medium,
		Status:        notification.DeliveryStatusPending,
		Payload:       payload,
	}

	start := time.Now()
	sender, ok := d.senders[dest.Medium]
	if !ok {
		rec.Status = notification.DeliveryStatusSkipped
		rec.ErrorMessage = fmt.Sprintf("medium %q is not installed", dest.Medium)
		if err := d.deliveries.Create(ctx, rec); err != nil {
			log.WarnWithErr(err, "Failed to record skipped delivery")
		}
		metrics.RecordDelivery(string(dest.Medium), string(rec.Status), time.Since(start))
		log.Debug("Delivery skipped, medium not installed")
		return
	}

	if err := d.deliveries.Create(ctx, rec); err != nil {
		log.WarnWithErr(err, "Failed to record delivery")
	}

	err := d.send(ctx, sender, dest, msg)
	d.finish(ctx, rec, err, start, log)
}

// send retries with exponential backoff until MaxElapsed or ctx ends
func (d *Dispatcher) send(ctx context.Context, sender notification.Sender, dest *notification.Destination, msg *notification.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = d.opts.MaxElapsed
	if d.opts.InitialInterval > 0 {
		b.InitialInterval = d.opts.InitialInterval
	}

	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
		return sender.Send(attemptCtx, dest, msg)
	}, backoff.WithContext(b, ctx))
}

func (d *Dispatcher) finish(ctx context.Context, rec *notification.Delivery, err error, start time.Time, log *logger.Logger) {
	if err != nil {
		rec.Status = notification.DeliveryStatusFailed
		rec.ErrorMessage = err.Error()
		log.WarnWithErr(err, "Delivery failed")
	} else {
		now := time.Now().UTC()
		rec.Status = notification.DeliveryStatusSent
		rec.ErrorMessage = ""
		rec.SentAt = &now
		log.Debug("Delivery sent")
	}

	// The job context may already be cancelled on shutdown
	if uerr := d.deliveries.Update(context.WithoutCancel(ctx), rec); uerr != nil {
		log.WarnWithErr(uerr, "Failed to update delivery")
	}
	metrics.RecordDelivery(string(rec.Medium), string(rec.Status), time.Since(start))
}

// Redeliver makes one more attempt at a failed delivery. Deliveries whose
// destination or payload is gone are closed out with the retry budget spent.
func (d *Dispatcher) Redeliver(ctx context.Context, rec *notification.Delivery) error {
	log := d.logger.WithFields(map[string]interface{}{
		"delivery_id":    rec.ID,
		"event_id":       rec.EventID,
		"destination_id": rec.DestinationID,
		"medium":         rec.Medium,
	})
	start := time.Now()

	sender, ok := d.senders[rec.Medium]
	if !ok {
		rec.Status = notification.DeliveryStatusSkipped
		rec.ErrorMessage = fmt.Sprintf("medium %q is not installed", rec.Medium)
		return d.deliveries.Update(ctx, rec)
	}

	dests, err := d.destinations.GetMany(ctx, []int64{rec.DestinationID})
	if err != nil {
		return err
	}
	dest, ok := dests[rec.DestinationID]
	if !ok {
		return d.abandon(ctx, rec, "destination no longer exists")
	}

	var msg notification.Message
	if err := json.Unmarshal(rec.Payload, &msg); err != nil {
		return d.abandon(ctx, rec, "stored payload is unreadable")
	}

	rec.RetryCount++
	attemptCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	err = d.attempt(attemptCtx, sender, dest, &msg)
	cancel()

	d.finish(ctx, rec, err, start, log)
	return err
}

func (d *Dispatcher) attempt(ctx context.Context, sender notification.Sender, dest *notification.Destination, msg *notification.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()
	err = sender.Send(ctx, dest, msg)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func (d *Dispatcher) abandon(ctx context.Context, rec *notification.Delivery, reason string) error {
	rec.Status = notification.DeliveryStatusFailed
	rec.ErrorMessage = reason
	rec.RetryCount = notification.MaxRetries
	return d.deliveries.Update(ctx, rec)
}
