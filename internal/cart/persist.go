package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/gomarketplace/cartstore/pkg/errors"
	"github.com/gomarketplace/cartstore/pkg/logger"
	"github.com/gomarketplace/cartstore/pkg/metrics"
)

const (
	defaultMaxAttempts    = 5
	defaultWriteTimeout   = 5 * time.Second
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaximumBackoff = 5 * time.Second
)

// ErrQueueClosed is returned by WriteQueue.Persist after Close.
var ErrQueueClosed = errors.New("cart write queue closed")

// SyncPersister writes each snapshot before the mutation returns.
type SyncPersister struct {
	storage Storage
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	timeout time.Duration
}

// NewSyncPersister builds a SyncPersister. A zero timeout uses the default.
func NewSyncPersister(storage Storage, logg *logger.Logger, m *metrics.CartMetrics, timeout time.Duration) *SyncPersister {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &SyncPersister{storage: storage, logg: logg, metrics: m, timeout: timeout}
}

func (p *SyncPersister) Persist(ctx context.Context, snap Snapshot) error {
	if err := writeSnapshot(ctx, p.storage, p.metrics, p.timeout, snap); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart snapshot")
	}
	return nil
}

func writeSnapshot(ctx context.Context, storage Storage, m *metrics.CartMetrics, timeout time.Duration, snap Snapshot) error {
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := storage.SetItem(writeCtx, snap.Key, snap.Payload)
	m.ObservePersist(storage.Name(), time.Since(start))
	if err != nil {
		m.IncPersistFailure(storage.Name())
	}
	return err
}

// RetryPolicy controls how often a queued snapshot write is attempted.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

// QueueOptions configures a WriteQueue.
type QueueOptions struct {
	WriteTimeout time.Duration
	Retry        RetryPolicy
}

type pendingWrite struct {
	snap Snapshot
	// oldest is the sequence number of the first snapshot folded into this write.
	oldest uint64
}

// WriteQueue persists snapshots on a single background worker. Only the
// latest pending snapshot per key is kept, so storage sees snapshots in
// mutation order with intermediate ones possibly skipped.
type WriteQueue struct {
	storage Storage
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	opts    QueueOptions

	mu       sync.Mutex
	pending  map[string]*pendingWrite
	order    []string
	inflight *pendingWrite
	enqueued uint64
	lastErr  error
	progress chan struct{}
	closed   bool
	running  bool

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

// NewWriteQueue builds a queue over storage. Run must be started for
// snapshots to be written.
func NewWriteQueue(storage Storage, logg *logger.Logger, m *metrics.CartMetrics, opts QueueOptions) *WriteQueue {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultMaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff <= 0 {
		retry.MaximumBackoff = defaultMaximumBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = retry.InitialBackoff
	}
	opts.Retry = retry
	if logg == nil {
		logg = logger.Nop()
	}

	return &WriteQueue{
		storage:  storage,
		logg:     logg,
		metrics:  m,
		opts:     opts,
		pending:  make(map[string]*pendingWrite),
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Persist enqueues snap without waiting for the write.
func (q *WriteQueue) Persist(ctx context.Context, snap Snapshot) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return pkgerrors.Wrap(pkgerrors.CodeInternal, ErrQueueClosed, "persist cart snapshot")
	}
	q.enqueued++
	if existing, ok := q.pending[snap.Key]; ok {
		existing.snap = snap
		q.metrics.IncCoalesced()
	} else {
		q.pending[snap.Key] = &pendingWrite{snap: snap, oldest: q.enqueued}
		q.order = append(q.order, snap.Key)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run writes queued snapshots until Close is called or ctx ends, then drains
// whatever is still pending.
func (q *WriteQueue) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return errors.New("cart write queue already running")
	}
	q.running = true
	q.mu.Unlock()
	defer close(q.stopped)

	// ctx only ends the loop; a write in flight when it is cancelled still
	// completes
	writeCtx := context.WithoutCancel(ctx)
	for {
		q.drain(writeCtx)
		select {
		case <-q.wake:
		case <-q.stop:
			q.drain(writeCtx)
			return nil
		case <-ctx.Done():
			q.drain(writeCtx)
			return nil
		}
	}
}

// Flush blocks until every snapshot enqueued before the call has been written
// or dropped. It returns the last write error, if the most recent write failed.
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	target := q.enqueued
	for q.settledLocked() < target {
		ch := q.progress
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
		q.mu.Lock()
	}
	err := q.lastErr
	q.mu.Unlock()

	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart snapshot write failed")
	}
	return nil
}

// Close stops accepting snapshots, drains the queue and waits for the worker.
// When Run was never started the drain happens on the caller.
func (q *WriteQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.stop)
	}
	inline := !q.running
	q.running = true
	q.mu.Unlock()

	if inline {
		q.drain(ctx)
		close(q.stopped)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
	}
	// the worker may have exited on its own context before Close; pick up
	// snapshots enqueued since then
	q.drain(ctx)

	q.mu.Lock()
	err := q.lastErr
	q.mu.Unlock()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart snapshot write failed")
	}
	return nil
}

// Pending reports how many keys have a snapshot waiting to be written.
func (q *WriteQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// settledLocked returns the highest sequence number below which every
// snapshot has been written or dropped.
func (q *WriteQueue) settledLocked() uint64 {
	lowest := q.enqueued + 1
	if q.inflight != nil && q.inflight.oldest < lowest {
		lowest = q.inflight.oldest
	}
	for _, w := range q.pending {
		if w.oldest < lowest {
			lowest = w.oldest
		}
	}
	return lowest - 1
}

func (q *WriteQueue) notifyLocked() {
	close(q.progress)
	q.progress = make(chan struct{})
}

func (q *WriteQueue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.order) == 0 {
			q.mu.Unlock()
			return
		}
		key := q.order[0]
		q.order = q.order[1:]
		w := q.pending[key]
		delete(q.pending, key)
		q.inflight = w
		q.mu.Unlock()

		err := q.write(ctx, w)

		q.mu.Lock()
		q.inflight = nil
		q.lastErr = err
		if err != nil && ctx.Err() != nil {
			q.requeueLocked(w)
			q.notifyLocked()
			q.mu.Unlock()
			return
		}
		q.notifyLocked()
		q.mu.Unlock()
	}
}

// requeueLocked puts back a write abandoned because its context ended, so a
// later drain still sees it. A newer pending snapshot for the key wins but
// inherits the older sequence number.
func (q *WriteQueue) requeueLocked(w *pendingWrite) {
	key := w.snap.Key
	if newer, ok := q.pending[key]; ok {
		if w.oldest < newer.oldest {
			newer.oldest = w.oldest
		}
		return
	}
	q.pending[key] = w
	q.order = append([]string{key}, q.order...)
}

// write attempts a snapshot until it succeeds, runs out of attempts or is
// superseded by a newer snapshot for the same key.
func (q *WriteQueue) write(ctx context.Context, w *pendingWrite) error {
	ctx = q.logg.WithCartKey(ctx, w.snap.Key)
	backoff := q.opts.Retry.InitialBackoff

	var err error
	for attempt := 1; ; attempt++ {
		err = writeSnapshot(ctx, q.storage, q.metrics, q.opts.WriteTimeout, w.snap)
		if err == nil {
			return nil
		}

		attemptCtx := q.logg.WithFields(ctx, map[string]any{
			"attempt": attempt,
			"backend": q.storage.Name(),
			"error":   err.Error(),
		})
		q.logg.Warn(attemptCtx, "cart.persist.attempt_failed")

		if attempt >= q.opts.Retry.MaxAttempts {
			break
		}
		if q.superseded(w.snap.Key) {
			q.logg.Info(attemptCtx, "cart.persist.superseded")
			return nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			q.logg.Warn(attemptCtx, "cart.persist.interrupted")
			return err
		case <-timer.C:
		}
		backoff = minDuration(backoff*2, q.opts.Retry.MaximumBackoff)
	}

	q.logg.Error(q.logg.WithField(ctx, "backend", q.storage.Name()), "cart.persist.dropped", err)
	return err
}

func (q *WriteQueue) superseded(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[key]
	return ok
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
