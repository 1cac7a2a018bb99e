package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-grades-api/pkg/events"
	"github.com/noah-isme/classroom-grades-api/pkg/jobs"
)

type eventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// EventDispatcher publishes grading events off the request path through a retrying job queue.
type EventDispatcher struct {
	queue     *jobs.Queue
	publisher eventPublisher
	metrics   *MetricsService
	logger    *zap.Logger
}

func NewEventDispatcher(publisher eventPublisher, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &EventDispatcher{publisher: publisher, metrics: metrics, logger: logger}
	cfg.Logger = logger
	cfg.OnDone = d.onDone
	d.queue = jobs.NewQueue("grading-events", d.handle, cfg)
	return d
}

func (d *EventDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop flushes buffered events before returning.
func (d *EventDispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch enqueues event. Failures are logged and counted, never returned.
func (d *EventDispatcher) Dispatch(_ context.Context, event events.Event) {
	if d == nil {
		return
	}
	err := d.queue.Enqueue(jobs.Job{ID: event.ID, Type: string(event.Type), Payload: event})
	if err != nil {
		d.metrics.RecordEvent(string(event.Type), "dropped")
		d.logger.Warn("grading event dropped",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func (d *EventDispatcher) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(events.Event)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return d.publisher.Publish(ctx, event)
}

func (d *EventDispatcher) onDone(job jobs.Job, err error) {
	if err != nil {
		d.metrics.RecordEvent(job.Type, "failed")
		return
	}
	d.metrics.RecordEvent(job.Type, "published")
}
