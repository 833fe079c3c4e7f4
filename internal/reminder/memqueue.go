package reminder

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemQueueConfig holds configuration options for the in-memory queue.
type MemQueueConfig struct {
	// WorkerCount determines how many concurrent delivery workers to start.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// DeliveryAttempts is the maximum number of delivery attempts per job,
	// including the first. If zero or negative, defaults to 1 (no retries).
	DeliveryAttempts int

	// RetryBaseDelay is the delay before the first retry; it doubles on
	// each subsequent attempt.
	RetryBaseDelay time.Duration
}

// DefaultMemQueueConfig returns a MemQueueConfig with reasonable defaults.
func DefaultMemQueueConfig() MemQueueConfig {
	return MemQueueConfig{
		WorkerCount:      2,
		DeliveryAttempts: 3,
		RetryBaseDelay:   time.Second,
	}
}

// MemQueue is the single-process Queue implementation: a min-heap of jobs
// keyed by fire time, a dispatcher goroutine that sleeps until the earliest
// job is due, and a pool of workers that perform delivery. Concurrent due
// jobs fire in parallel; no global serial tick is assumed.
type MemQueue struct {
	deliverer Deliverer
	config    MemQueueConfig
	logger    *slog.Logger

	mu      sync.Mutex
	pending jobHeap
	closed  bool

	// wake nudges the dispatcher when an earlier job arrives.
	wake chan struct{}
	// due hands due jobs to the workers. Unbuffered, so a job is never
	// stranded in a channel at shutdown.
	due chan Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMemQueue creates an in-memory queue delivering through the given
// deliverer. Call Start before enqueueing.
func NewMemQueue(deliverer Deliverer, config MemQueueConfig, log *slog.Logger) *MemQueue {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "mem_queue")

	if config.WorkerCount <= 0 {
		log.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.DeliveryAttempts <= 0 {
		config.DeliveryAttempts = 1
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MemQueue{
		deliverer: deliverer,
		config:    config,
		logger:    log,
		pending:   jobHeap{},
		wake:      make(chan struct{}, 1),
		due:       make(chan Job),
		ctx:       ctx,
		cancel:    cancel,
	}
}

var _ Queue = (*MemQueue)(nil)

// Start launches the dispatcher and the delivery workers.
func (q *MemQueue) Start() {
	q.wg.Add(1)
	go q.dispatcher()

	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.logger.Info("reminder queue started",
		"worker_count", q.config.WorkerCount,
		"delivery_attempts", q.config.DeliveryAttempts)
}

// Stop shuts the queue down. New enqueues are refused immediately; jobs that
// are already past due are delivered best-effort before Stop returns, jobs
// with a future fire time are discarded.
func (q *MemQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	overdue := q.popDueLocked(time.Now())
	remaining := q.pending.Len()
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()

	for _, job := range overdue {
		q.drainDeliver(job)
	}

	q.logger.Info("reminder queue stopped",
		"drained", len(overdue),
		"discarded", remaining)
}

// Enqueue implements Queue.Enqueue. It never waits for the fire time; the
// call returns as soon as the job is in the heap.
func (q *MemQueue) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	heap.Push(&q.pending, job)
	pendingLen := q.pending.Len()
	q.mu.Unlock()

	q.logger.Debug("job enqueued",
		"job_id", job.ID,
		"task_id", job.TaskID,
		"fire_at", job.FireAt,
		"pending", pendingLen)

	// Nudge the dispatcher; a pending nudge is enough.
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// CancelTask implements Queue.CancelTask.
func (q *MemQueue) CancelTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.pending[:0]
	removed := 0
	for _, job := range q.pending {
		if job.TaskID == taskID {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	q.pending = kept
	heap.Init(&q.pending)

	return removed, nil
}

// dispatcher sleeps until the earliest pending job is due, then hands every
// due job to the workers. It re-arms whenever an earlier job arrives.
func (q *MemQueue) dispatcher() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if q.pending.Len() == 0 {
			q.mu.Unlock()
			select {
			case <-q.ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		now := time.Now()
		next := q.pending[0].FireAt
		if next.After(now) {
			q.mu.Unlock()
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-q.ctx.Done():
				timer.Stop()
				return
			case <-q.wake:
				timer.Stop()
				continue
			case <-timer.C:
				continue
			}
		}

		dueJobs := q.popDueLocked(now)
		q.mu.Unlock()

		for i, job := range dueJobs {
			select {
			case q.due <- job:
			case <-q.ctx.Done():
				// Shutting down with due jobs in hand; deliver them
				// inline so past-due work is not silently dropped.
				for _, leftover := range dueJobs[i:] {
					q.drainDeliver(leftover)
				}
				return
			}
		}
	}
}

// worker performs deliveries handed over by the dispatcher.
func (q *MemQueue) worker(id int) {
	defer q.wg.Done()

	q.logger.Debug("starting delivery worker", "worker_id", id)

	for {
		select {
		case <-q.ctx.Done():
			q.logger.Debug("stopping delivery worker", "worker_id", id)
			return
		case job := <-q.due:
			q.process(job, id)
		}
	}
}

// process delivers a single job, retrying with exponential backoff until the
// configured attempts are exhausted. A job that exhausts its attempts is
// logged and dropped.
func (q *MemQueue) process(job Job, workerID int) {
	log := q.logger.With(
		"job_id", job.ID,
		"task_id", job.TaskID,
		"worker_id", workerID,
	)

	delay := q.config.RetryBaseDelay
	for attempt := 1; ; attempt++ {
		err := q.deliverer.Deliver(q.ctx, job.Payload)
		if err == nil {
			log.Info("reminder delivered",
				"recipient", job.Payload.Recipient,
				"attempt", attempt)
			return
		}

		if attempt >= q.config.DeliveryAttempts {
			log.Error("reminder delivery failed, dropping job",
				"error", err,
				"attempts", attempt)
			return
		}

		log.Warn("reminder delivery failed, retrying",
			"error", err,
			"attempt", attempt,
			"retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			log.Warn("shutdown interrupted delivery retries", "attempt", attempt)
			return
		case <-timer.C:
		}
		delay *= 2
	}
}

// popDueLocked removes and returns every job with FireAt <= now.
// Caller must hold q.mu.
func (q *MemQueue) popDueLocked(now time.Time) []Job {
	var due []Job
	for q.pending.Len() > 0 && !q.pending[0].FireAt.After(now) {
		due = append(due, heap.Pop(&q.pending).(Job))
	}
	return due
}

// drainDeliver performs a single best-effort delivery outside the queue's
// lifecycle context, used while shutting down.
func (q *MemQueue) drainDeliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.deliverer.Deliver(ctx, job.Payload); err != nil {
		q.logger.Error("failed to deliver job during drain",
			"job_id", job.ID,
			"task_id", job.TaskID,
			"error", err)
	}
}

// jobHeap is a min-heap of jobs ordered by fire time.
type jobHeap []Job

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].FireAt.Before(h[j].FireAt) }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(Job))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	*h = old[:n-1]
	return job
}
