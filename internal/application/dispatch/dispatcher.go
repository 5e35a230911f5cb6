package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/metrics"
)

// Route sends facts matching Condition to Sink. An empty condition matches all.
type Route struct {
	Sink      notification.Sink
	Condition string
}

type Options struct {
	Workers         int
	QueueSize       int
	Attempts        int
	DeliveryTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.DeliveryTimeout <= 0 {
		o.DeliveryTimeout = 5 * time.Second
	}
	return o
}

type route struct {
	sink notification.Sink
	cond *condition
}

// Dispatcher fans facts out to sinks from a bounded queue. Emit never
// blocks: a full queue drops the fact. Dropped facts and deliveries that
// still fail after the configured attempts are written to the failure
// repository and are not retried later.
type Dispatcher struct {
	routes   []route
	failures notification.FailureRepository
	opts     Options
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu      sync.RWMutex
	queue   chan *notification.Fact
	pending chan struct{}
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// New compiles every route condition up front.
func New(routes []Route, failures notification.FailureRepository, opts Options, m *metrics.Metrics, logger zerolog.Logger) (*Dispatcher, error) {
	opts = opts.withDefaults()
	d := &Dispatcher{
		failures: failures,
		opts:     opts,
		metrics:  m,
		logger:   logger.With().Str("service", "dispatch").Logger(),
		queue:    make(chan *notification.Fact, opts.QueueSize),
		pending:  make(chan struct{}, maxPendingDropRecords),
	}
	for _, r := range routes {
		if r.Sink == nil {
			return nil, fmt.Errorf("route without sink")
		}
		c, err := compileCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r.Sink.Name(), err)
		}
		d.routes = append(d.routes, route{sink: r.Sink, cond: c})
	}
	return d, nil
}

// Start launches the workers. They keep draining the queue until Stop
// closes it; ctx only supplies values to deliveries, its cancellation is
// ignored so facts emitted during shutdown still reach their sinks.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.logger.Info().Int("workers", d.opts.Workers).Int("queue", d.opts.QueueSize).Int("routes", len(d.routes)).Msg("dispatcher started")
}

// Stop closes the queue and waits for workers to drain it.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
	d.metrics.SetQueueLength(0)
	d.logger.Info().Msg("dispatcher stopped")
}

// Emit enqueues fact without blocking.
func (d *Dispatcher) Emit(fact *notification.Fact) {
	if fact == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(fact, "dispatcher stopped", true)
		return
	}
	select {
	case d.queue <- fact:
		d.metrics.SetQueueLength(len(d.queue))
	default:
		d.drop(fact, "queue full", true)
	}
}

// maxPendingDropRecords bounds the goroutines writing drop records.
const maxPendingDropRecords = 16

// dropSink names the failure records written for dropped facts.
const dropSink = "queue"

func (d *Dispatcher) drop(fact *notification.Fact, reason string, record bool) {
	d.metrics.IncDropped()
	d.logger.Warn().
		Str("factId", fact.ID.String()).
		Str("eventKind", string(fact.EventKind)).
		Str("trackingNumber", fact.TrackingNumber).
		Str("reason", reason).
		Msg("notification dropped")
	if d.failures == nil || !record {
		return
	}
	select {
	case d.pending <- struct{}{}:
	default:
		return
	}
	// Stop has already waited once closed is set; later records run untracked.
	tracked := !d.closed
	if tracked {
		d.wg.Add(1)
	}
	go func() {
		defer func() {
			<-d.pending
			if tracked {
				d.wg.Done()
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.DeliveryTimeout)
		defer cancel()
		failure := notification.NewDeliveryFailure(fact, dropSink, errors.New(reason))
		if err := d.failures.RecordFailure(ctx, failure); err != nil {
			d.logger.Error().Err(err).Str("factId", fact.ID.String()).Msg("record dropped notification")
		}
	}()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	ctx = context.WithoutCancel(ctx)
	for fact := range d.queue {
		d.metrics.SetQueueLength(len(d.queue))
		d.dispatch(ctx, fact)
	}
}

// dispatch delivers one fact to every matching route.
func (d *Dispatcher) dispatch(ctx context.Context, fact *notification.Fact) {
	params := fact.Params()
	for _, r := range d.routes {
		ok, err := r.cond.match(params)
		if err != nil {
			d.logger.Error().Err(err).Str("sink", r.sink.Name()).Str("condition", r.cond.source).Msg("route condition failed")
			continue
		}
		if !ok {
			continue
		}
		if err := d.deliver(ctx, r.sink, fact); err != nil {
			d.fail(ctx, r.sink.Name(), fact, err)
			continue
		}
		d.metrics.IncDelivered(r.sink.Name())
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink notification.Sink, fact *notification.Fact) error {
	var err error
	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		dctx, cancel := context.WithTimeout(ctx, d.opts.DeliveryTimeout)
		err = sink.Deliver(dctx, fact)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < d.opts.Attempts {
			time.Sleep(time.Duration(attempt) * 20 * time.Millisecond)
		}
	}
	return err
}

func (d *Dispatcher) fail(ctx context.Context, sink string, fact *notification.Fact, cause error) {
	d.metrics.IncDeliveryFailed(sink)
	d.logger.Warn().Err(cause).
		Str("sink", sink).
		Str("factId", fact.ID.String()).
		Str("recipientId", fact.RecipientID).
		Msg("notification delivery failed")
	if d.failures == nil {
		return
	}
	if err := d.failures.RecordFailure(ctx, notification.NewDeliveryFailure(fact, sink, cause)); err != nil {
		d.logger.Error().Err(err).Str("factId", fact.ID.String()).Msg("record delivery failure")
	}
}

var _ notification.Dispatcher = (*Dispatcher)(nil)
