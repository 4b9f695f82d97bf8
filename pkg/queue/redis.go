package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"AutoOptimiser/pkg/logger"
)

// RedisQueue delivers each message at least once. A worker moves a message
// into the processing list while it runs; messages left there by a crash
// are put back on the next Start.
type RedisQueue struct {
	log    *logger.Logger
	cfg    Config
	client *redis.Client
	keys   keys

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix namespaces the queue's Redis keys.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keys = newKeys(prefix)
	}
}

func NewRedisQueue(lgr *logger.Logger, cfg *Config, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if lgr == nil {
		lgr = logger.Nop()
	}
	r := &RedisQueue{
		log:    lgr,
		cfg:    cfg.withDefaults(),
		client: client,
		keys:   newKeys("optimiser:queue"),
		jobs:   make(map[string]Job),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterJob routes messages of job.Type() to job. The first registration wins.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.log.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
	r.log.Info("job registered", logger.String("type", job.Type()))
}

// Start recovers abandoned messages and starts the workers and the retry mover.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("queue already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	n, err := r.recover(ctx)
	if err != nil {
		return fmt.Errorf("recover processing: %w", err)
	}

	runCtx, stop := context.WithCancel(context.Background())
	r.cancel = stop
	r.running = true
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx, i)
	}
	r.wg.Add(1)
	go r.retryLoop(runCtx)

	r.log.Info("redis queue started",
		logger.Int("workers", r.cfg.Workers),
		logger.Int("recovered", n),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels in-flight handlers and waits for the workers. A cancelled
// message stays in the processing list and is recovered on the next Start.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		r.log.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("queue stop: %w", ctx.Err())
	case <-done:
		r.log.Info("redis queue stopped")
		return nil
	}
}

// Enqueue stores payload for the job registered under msgType and returns
// the message ID.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload any) (string, error) {
	r.mu.RLock()
	_, ok := r.jobs[msgType]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no job registered for type %q", msgType)
	}

	b, id, err := newMessage(msgType, payload)
	if err != nil {
		return "", err
	}
	if err := r.client.LPush(ctx, r.keys.pending, b).Err(); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

func (r *RedisQueue) recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := r.client.LMove(ctx, r.keys.processing, r.keys.pending, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

func (r *RedisQueue) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for ctx.Err() == nil {
		raw, err := r.client.BLMove(ctx, r.keys.pending, r.keys.processing, "RIGHT", "LEFT", time.Second).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.log.Error("queue receive", logger.Int("worker", id), logger.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		r.process(ctx, raw)
	}
}

func (r *RedisQueue) process(ctx context.Context, raw string) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		r.log.Error("drop malformed message", logger.Error(err))
		r.ack(raw)
		return
	}
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.bury(raw, msg)
		return
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	fields := []logger.Field{
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Duration("elapsed_ms", time.Since(start)),
	}
	switch {
	case err == nil:
		r.log.Info("message processed", fields...)
		r.ack(raw)
	case ctx.Err() != nil:
		// Left in processing for recovery.
		r.log.Warn("message interrupted", fields...)
	default:
		r.log.Error("message failed", append(fields, logger.Int("attempt", msg.Attempts+1), logger.Error(err))...)
		msg.LastError = err.Error()
		if msg.Attempts >= r.cfg.RetryLimit {
			r.bury(raw, msg)
			return
		}
		msg.Attempts++
		r.schedule(raw, msg, time.Now().Add(r.cfg.RetryDelay))
	}
}

// ack removes a finished message from the processing list.
func (r *RedisQueue) ack(raw string) {
	if err := r.client.LRem(context.Background(), r.keys.processing, 1, raw).Err(); err != nil {
		r.log.Error("queue ack", logger.Error(err))
	}
}

func (r *RedisQueue) schedule(raw string, msg Message, at time.Time) {
	b, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal retry", logger.Error(err))
		return
	}
	ctx := context.Background()
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, r.keys.retry, redis.Z{Score: float64(at.Unix()), Member: b})
	pipe.LRem(ctx, r.keys.processing, 1, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("schedule retry", logger.String("id", msg.ID), logger.Error(err))
		return
	}
	r.log.Info("retry scheduled",
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.Time("retry_at", at))
}

func (r *RedisQueue) bury(raw string, msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal dead letter", logger.Error(err))
		return
	}
	ctx := context.Background()
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.keys.dead, b)
	pipe.LRem(ctx, r.keys.processing, 1, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("dead letter", logger.String("id", msg.ID), logger.Error(err))
		return
	}
	r.log.Warn("message dead-lettered", logger.String("id", msg.ID), logger.Int("attempts", msg.Attempts))
}

func (r *RedisQueue) retryLoop(ctx context.Context) {
	defer r.wg.Done()
	t := time.NewTicker(r.cfg.PollEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.moveDue(ctx)
		}
	}
}

func (r *RedisQueue) moveDue(ctx context.Context) {
	due, err := r.client.ZRangeByScore(ctx, r.keys.retry, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error("fetch due retries", logger.Error(err))
		}
		return
	}
	for _, m := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(ctx, r.keys.retry, m)
		pipe.LPush(ctx, r.keys.pending, m)
		if _, err := pipe.Exec(ctx); err != nil {
			if ctx.Err() == nil {
				r.log.Error("requeue retry", logger.Error(err))
			}
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
