package service

import (
	"context"
	"encoding/json"
	"log/slog"

	outboxmetrics "sportsfest/internal/outbox/metrics"
	"sportsfest/internal/outbox/models"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/requestcontext"
)

// Recorder is the write side of the outbox. Domain services call Record
// inside their own transactions; the event becomes durable iff the enclosing
// transaction commits.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *outboxmetrics.Metrics
}

func NewRecorder(store Store, opts ...Option) *Recorder {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		store:   store,
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}
}

// Record writes one event. payload is marshalled to JSON; a nil payload
// records an event with no body.
func (r *Recorder) Record(ctx context.Context, eventType, aggregateID string, payload any) error {
	if eventType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "event type cannot be empty")
	}

	var body json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode event payload")
		}
		body = encoded
	}

	e := models.NewEvent(eventType, aggregateID, body, requestcontext.Now(ctx))
	if err := r.store.Append(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
	}
	r.metrics.IncrementRecorded()
	return nil
}
