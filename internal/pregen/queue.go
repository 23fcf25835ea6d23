package pregen

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"framed/internal/logging"
	"framed/internal/services"
)

// Producer generates one item. Implementations are expected to be slow (they
// shell out to external tools) and may fail transiently.
type Producer[T any] func(ctx context.Context) (T, error)

// Options configures a pregeneration queue.
type Options struct {
	// Length is the target steady-state backlog of ready items.
	Length int
	// MaxPending caps concurrent in-flight production attempts.
	MaxPending int
	// MaxRetries is the number of attempts per slot before it is abandoned.
	MaxRetries int
}

// ErrStopped is returned by Take once the queue has been stopped and drained.
var ErrStopped = errors.New("pregen: queue stopped")

// Queue keeps a target number of ready-to-serve items, produced asynchronously
// ahead of demand with bounded concurrency. Producer failures are retried per
// slot and never terminate the queue.
type Queue[T any] struct {
	producer Producer[T]
	opts     Options
	logger   *slog.Logger

	ready chan T

	mu       sync.Mutex
	inflight int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a queue seeded with already-produced items (typically from
// the recovery scan). Start must be called before Take.
func New[T any](producer Producer[T], seed []T, opts Options, logger *slog.Logger) (*Queue[T], error) {
	if producer == nil {
		return nil, errors.New("pregen: producer is required")
	}
	if opts.Length <= 0 {
		return nil, errors.New("pregen: length must be positive")
	}
	if opts.MaxPending <= 0 {
		return nil, errors.New("pregen: max pending must be positive")
	}
	if opts.MaxRetries <= 0 {
		return nil, errors.New("pregen: max retries must be positive")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	capacity := opts.Length
	if len(seed) > capacity {
		capacity = len(seed)
	}
	q := &Queue[T]{
		producer: producer,
		opts:     opts,
		logger:   logging.WithComponent(logger, "pregen"),
		ready:    make(chan T, capacity),
	}
	for _, item := range seed {
		q.ready <- item
	}
	return q, nil
}

// Start begins proactive replenishment. It must be called exactly once.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	if q.ctx != nil {
		q.mu.Unlock()
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()
	q.topUp()
}

// Stop cancels in-flight production and waits for slots to settle. Items
// already in the backlog remain takeable until ErrStopped.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
}

// Take returns the next ready item, blocking until one becomes available.
// Items resolve in the order their production completed, and no item is ever
// handed to two callers.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	var zero T
	q.mu.Lock()
	qctx := q.ctx
	q.mu.Unlock()
	if qctx == nil {
		return zero, errors.New("pregen: queue not started")
	}

	q.topUp()
	select {
	case item := <-q.ready:
		q.topUp()
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-qctx.Done():
		// Drain what is already ready before reporting shutdown.
		select {
		case item := <-q.ready:
			return item, nil
		default:
			return zero, ErrStopped
		}
	}
}

// Ready returns the current backlog size.
func (q *Queue[T]) Ready() int {
	return len(q.ready)
}

// InFlight returns the number of outstanding production attempts.
func (q *Queue[T]) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight
}

// topUp spawns production slots while backlog plus in-flight work is below the
// target length, respecting the concurrency cap. Each spawned slot has a
// reserved ready-channel slot, so completed items never block on delivery.
func (q *Queue[T]) topUp() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx == nil || q.ctx.Err() != nil {
		return
	}
	for len(q.ready)+q.inflight < q.opts.Length && q.inflight < q.opts.MaxPending {
		q.inflight++
		q.wg.Add(1)
		go q.fillSlot()
	}
}

func (q *Queue[T]) fillSlot() {
	defer q.wg.Done()

	var (
		item     T
		produced bool
	)
	for attempt := 1; attempt <= q.opts.MaxRetries; attempt++ {
		value, err := q.producer(q.ctx)
		if err == nil {
			item = value
			produced = true
			break
		}
		if q.ctx.Err() != nil {
			break
		}
		q.logger.Warn("production attempt failed",
			slog.Int(logging.FieldAttempt, attempt),
			logging.Error(err))
		if !services.IsRetryable(err) {
			q.logger.Error("production slot abandoned: error is not retryable", logging.Error(err))
			break
		}
		if attempt == q.opts.MaxRetries {
			q.logger.Error("production slot abandoned: retries exhausted",
				slog.Int("attempts", q.opts.MaxRetries))
		}
	}

	// The item must occupy the ready channel before this slot's inflight
	// reservation is released; decrementing first would let a concurrent
	// topUp fill the reserved capacity and park this send forever.
	q.mu.Lock()
	if produced {
		q.ready <- item
	}
	q.inflight--
	q.mu.Unlock()

	if produced {
		q.topUp()
	}
}
