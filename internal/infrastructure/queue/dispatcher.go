package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/timesheet-ledger/internal/api/metrics"
	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes audit events to a fixed set of workers using consistent
// hashing on the entity key, so the events of one entity are stored in order.
// It implements ports.AuditRecorder.
type Dispatcher struct {
	workers   []chan domain.AuditEvent
	processor ports.AuditProcessor
	log       zerolog.Logger
	wg        sync.WaitGroup
}

var _ ports.AuditRecorder = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, processor ports.AuditProcessor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.AuditEvent, numWorkers),
		processor: processor,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// after storing the events already buffered.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record enqueues ev on the worker responsible for its entity. It never
// blocks the caller: when the worker's buffer is full the event is dropped
// and logged.
func (d *Dispatcher) Record(_ context.Context, ev domain.AuditEvent) {
	idx := d.shardIndex(ev.EntityKey())
	select {
	case d.workers[idx] <- ev:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditDroppedTotal.Inc()
		d.log.Warn().
			Str("event_id", ev.ID).
			Str("kind", string(ev.Kind)).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
	}
}

// shardIndex maps an entity key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(ctx, id, ch)
			return
		case ev := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.process(ctx, id, ev)
		}
	}
}

// drain stores whatever is still buffered when the dispatcher stops.
func (d *Dispatcher) drain(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	for {
		select {
		case ev := <-ch:
			d.process(ctx, id, ev)
		default:
			metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(0)
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, ev domain.AuditEvent) {
	// Audit writes outlive request cancellation and shutdown.
	if err := d.processor.Process(context.WithoutCancel(ctx), ev); err != nil {
		d.log.Error().Err(err).
			Str("event_id", ev.ID).
			Str("entity", ev.EntityKey()).
			Int("worker_id", id).
			Msg("audit event processing failed")
	}
}
