package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"

	"github.com/PratikDhanave/line-webhook-service/internal/auth"
	"github.com/PratikDhanave/line-webhook-service/internal/logging"
	"github.com/PratikDhanave/line-webhook-service/internal/metrics"
	"github.com/PratikDhanave/line-webhook-service/internal/models"
	"github.com/PratikDhanave/line-webhook-service/internal/tracing"
)

// Journal records delivered events so platform redeliveries can be skipped.
// Record returns first=false when the event id has been seen before.
type Journal interface {
	Record(ctx context.Context, event models.Event) (first bool, err error)
}

// Result summarizes one dispatch.
type Result struct {
	Destination string
	Events      int
	Handled     int
	Skipped     int
	Duplicates  int
	Failed      int
}

// Dispatcher validates webhook bodies and routes their events to handlers.
type Dispatcher struct {
	secret   string
	registry *Registry
	journal  Journal
	logger   *zap.Logger
	metrics  *metrics.Registry
	tracer   *tracing.Tracer
}

// Option configures optional Dispatcher collaborators.
type Option func(*Dispatcher)

func WithJournal(j Journal) Option {
	return func(d *Dispatcher) { d.journal = j }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithTracer(t *tracing.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// NewDispatcher requires the channel secret and a registry; everything else
// is optional.
func NewDispatcher(secret string, registry *Registry, opts ...Option) (*Dispatcher, error) {
	if secret == "" {
		return nil, webhookError("webhook: channel secret is required", goerrors.CategoryValidation,
			http.StatusInternalServerError, TextCodeInternal, nil)
	}
	if registry == nil {
		return nil, webhookError("webhook: handler registry is required", goerrors.CategoryValidation,
			http.StatusInternalServerError, TextCodeInternal, nil)
	}

	d := &Dispatcher{
		secret:   secret,
		registry: registry,
		logger:   zap.NewNop(),
		tracer:   tracing.Noop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("dispatcher")
	return d, nil
}

// Dispatch validates signature over body, parses the events and runs the
// registered handler for each event in payload order.
//
// Only an invalid signature or a malformed body fail the call. Handler and
// journal failures are logged per event and counted in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte, signature string) (Result, error) {
	ctx, span := d.tracer.StartSpan(ctx, "webhook.dispatch")
	defer span.End()

	log := logging.FromContext(ctx, d.logger)

	if !auth.ValidateSignature(d.secret, body, signature) {
		err := errInvalidSignature()
		d.tracer.RecordError(ctx, err)
		return Result{}, err
	}

	payload, err := ParsePayload(body)
	if err != nil {
		d.tracer.RecordError(ctx, err)
		return Result{}, err
	}

	res := Result{Destination: payload.Destination, Events: len(payload.Events)}
	for i, event := range payload.Events {
		outcome := d.dispatchEvent(ctx, log.With(zap.Int("index", i)), event)
		switch outcome {
		case metrics.OutcomeHandled:
			res.Handled++
		case metrics.OutcomeSkipped:
			res.Skipped++
		case metrics.OutcomeDuplicate:
			res.Duplicates++
		case metrics.OutcomeFailed:
			res.Failed++
		}
	}

	log.Debug("webhook dispatched",
		zap.String("destination", res.Destination),
		zap.Int("events", res.Events),
		zap.Int("handled", res.Handled),
		zap.Int("skipped", res.Skipped),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, log *zap.Logger, event models.Event) string {
	typ := string(event.Type)
	log = log.With(zap.String("event_type", typ), zap.String("webhook_event_id", event.WebhookEventID))

	handler, ok := d.registry.Lookup(event.Type)
	if !ok {
		if event.Type == models.EventUnknown {
			log.Debug("unknown event skipped", zap.String("wire_type", event.WireType))
		}
		d.metrics.RecordEvent(typ, metrics.OutcomeSkipped, 0)
		return metrics.OutcomeSkipped
	}

	if d.journal != nil && event.WebhookEventID != "" {
		first, err := d.journal.Record(ctx, event)
		switch {
		case err != nil:
			d.metrics.RecordJournalError()
			log.Warn("delivery journal unavailable, processing event anyway", zap.Error(err))
		case !first:
			log.Info("duplicate delivery skipped", zap.Bool("redelivery", event.Redelivery))
			d.metrics.RecordEvent(typ, metrics.OutcomeDuplicate, 0)
			return metrics.OutcomeDuplicate
		}
	}

	ctx, span := d.tracer.StartSpan(ctx, "webhook.handle_event")
	span.SetAttributes(d.tracer.EventAttributes(event)...)
	defer span.End()

	start := time.Now()
	err := invoke(ctx, handler, event)
	duration := time.Since(start)

	if err != nil {
		d.tracer.RecordError(ctx, err)
		if goerrors.IsCategory(err, goerrors.CategoryExternal) {
			log.Warn("got error from LINE Messaging API", zap.Error(err), zap.Duration("duration", duration))
		} else {
			log.Error("event handler failed", zap.Error(err), zap.Duration("duration", duration))
		}
		d.metrics.RecordEvent(typ, metrics.OutcomeFailed, duration)
		return metrics.OutcomeFailed
	}

	d.metrics.RecordEvent(typ, metrics.OutcomeHandled, duration)
	return metrics.OutcomeHandled
}

// invoke runs h and converts a panic into an error so one bad event cannot
// take down the rest of the batch.
func invoke(ctx context.Context, h HandlerFunc, event models.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webhook: handler panic: %v", r)
		}
	}()
	return h(ctx, event)
}
