// Package redisq provides a Redis-backed reminder.Queue. Pending jobs live
// in a sorted set scored by fire time, with a per-task index set enabling
// cancellation; a poller claims due members and dispatches them to delivery
// workers. Durability is delegated to the broker: jobs survive process
// restarts, and a member is only removed once a poller has claimed it.
package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quicktask/quicktask-api/internal/reminder"
	"github.com/redis/go-redis/v9"
)

const (
	// pendingKey is the sorted set of all pending jobs, scored by fire time.
	pendingKey = "reminders:pending"
	// taskKeyPrefix + taskID is the set of pending members for one task.
	taskKeyPrefix = "reminders:task:"
)

// Config holds configuration options for the Redis queue.
type Config struct {
	// PollInterval is how often the poller scans for due jobs.
	// If zero or negative, defaults to one second.
	PollInterval time.Duration

	// WorkerCount determines how many concurrent delivery workers to start.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// DeliveryAttempts is the maximum number of delivery attempts per job,
	// including the first. If zero or negative, defaults to 1.
	DeliveryAttempts int

	// RetryBaseDelay is the delay before the first retry; it doubles on
	// each subsequent attempt.
	RetryBaseDelay time.Duration
}

// Queue is the broker-backed reminder.Queue implementation.
type Queue struct {
	client    *redis.Client
	deliverer reminder.Deliverer
	config    Config
	logger    *slog.Logger

	due    chan reminder.Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a Redis-backed queue delivering through the given deliverer.
// Call Start before enqueueing.
func New(client *redis.Client, deliverer reminder.Deliverer, config Config, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "redis_queue")

	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.DeliveryAttempts <= 0 {
		config.DeliveryAttempts = 1
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		client:    client,
		deliverer: deliverer,
		config:    config,
		logger:    log,
		due:       make(chan reminder.Job),
		ctx:       ctx,
		cancel:    cancel,
	}
}

var _ reminder.Queue = (*Queue)(nil)

// Start launches the poller and the delivery workers.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.poller()

	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.logger.Info("redis reminder queue started",
		"poll_interval", q.config.PollInterval,
		"worker_count", q.config.WorkerCount)
}

// Stop shuts the queue down. Unclaimed jobs stay in Redis and are picked up
// on the next start, so nothing past due is lost across restarts.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	q.logger.Info("redis reminder queue stopped")
}

// Enqueue implements reminder.Queue.Enqueue. The job is added to the pending
// sorted set and to its task's index set in one transaction.
func (q *Queue) Enqueue(ctx context.Context, job reminder.Job) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return reminder.ErrQueueClosed
	}

	member, err := encodeJob(job)
	if err != nil {
		return err
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, pendingKey, redis.Z{
			Score:  float64(job.FireAt.Unix()),
			Member: member,
		})
		pipe.SAdd(ctx, taskKey(job.TaskID), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue job in redis: %w", err)
	}

	return nil
}

// CancelTask implements reminder.Queue.CancelTask.
func (q *Queue) CancelTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	key := taskKey(taskID)

	members, err := q.client.SMembers(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list pending jobs for task: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}

	removed, err := q.client.ZRem(ctx, pendingKey, args...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to remove pending jobs for task: %w", err)
	}
	if err := q.client.Del(ctx, key).Err(); err != nil {
		return int(removed), fmt.Errorf("failed to drop task index: %w", err)
	}

	return int(removed), nil
}

// poller periodically claims due members from the pending set and hands them
// to the workers. ZRem doubles as the claim: whichever poller removes the
// member owns the job, so competing pollers never deliver the same enqueue.
func (q *Queue) poller() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.claimDue()
		}
	}
}

func (q *Queue) claimDue() {
	now := time.Now()
	members, err := q.client.ZRangeByScore(q.ctx, pendingKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		if q.ctx.Err() == nil {
			q.logger.Error("failed to scan for due jobs", "error", err)
		}
		return
	}

	for _, member := range members {
		claimed, err := q.client.ZRem(q.ctx, pendingKey, member).Result()
		if err != nil {
			if q.ctx.Err() == nil {
				q.logger.Error("failed to claim due job", "error", err)
			}
			return
		}
		if claimed == 0 {
			// Another poller got there first.
			continue
		}

		job, err := decodeJob(member)
		if err != nil {
			q.logger.Error("dropping undecodable job member", "error", err)
			continue
		}

		if err := q.client.SRem(q.ctx, taskKey(job.TaskID), member).Err(); err != nil && q.ctx.Err() == nil {
			q.logger.Warn("failed to trim task index", "task_id", job.TaskID, "error", err)
		}

		select {
		case q.due <- job:
		case <-q.ctx.Done():
			// Claimed but not dispatched; deliver inline rather than lose it.
			q.deliver(context.Background(), job, 0)
			return
		}
	}
}

// worker performs deliveries handed over by the poller.
func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.due:
			q.deliver(q.ctx, job, id)
		}
	}
}

// deliver runs the delivery with exponential-backoff retries, then drops the
// job with an error log once attempts are exhausted.
func (q *Queue) deliver(ctx context.Context, job reminder.Job, workerID int) {
	log := q.logger.With(
		"job_id", job.ID,
		"task_id", job.TaskID,
		"worker_id", workerID,
	)

	delay := q.config.RetryBaseDelay
	for attempt := 1; ; attempt++ {
		err := q.deliverer.Deliver(ctx, job.Payload)
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
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay *= 2
	}
}

func taskKey(taskID uuid.UUID) string {
	return taskKeyPrefix + taskID.String()
}

func encodeJob(job reminder.Job) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}
	return string(data), nil
}

func decodeJob(member string) (reminder.Job, error) {
	var job reminder.Job
	if err := json.Unmarshal([]byte(member), &job); err != nil {
		return reminder.Job{}, fmt.Errorf("failed to decode job member: %w", err)
	}
	return job, nil
}
