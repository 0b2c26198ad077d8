// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/palace/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the action journal is pushed onto.
const DefaultQueueName = "palace_actions"

const publishTimeout = 2 * time.Second

// Connect opens a Redis client and checks it with a ping.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisRecorder publishes journal records onto a Redis list from a single
// background worker, so records keep their order and callers never wait on
// the network.
type RedisRecorder struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger

	mu      sync.Mutex
	closed  bool
	pending chan models.ActionRecord
	done    chan struct{}
}

// NewRedisRecorder starts the publishing worker. Close stops it.
func NewRedisRecorder(rdb *redis.Client, queue string, buffer int, logger *logrus.Logger) *RedisRecorder {
	if queue == "" {
		queue = DefaultQueueName
	}
	r := &RedisRecorder{
		rdb:     rdb,
		queue:   queue,
		logger:  logger,
		pending: make(chan models.ActionRecord, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues rec for publishing. A full buffer drops the record.
func (r *RedisRecorder) Record(rec models.ActionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.pending <- rec:
	default:
		r.logger.WithFields(logrus.Fields{
			"game":   rec.GameID,
			"index":  rec.ActionIndex,
			"action": rec.ActionType,
		}).Warn("journal buffer full, dropped action")
	}
}

func (r *RedisRecorder) run() {
	defer close(r.done)
	for rec := range r.pending {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := Publish(ctx, r.rdb, r.queue, rec); err != nil {
			r.logger.WithError(err).WithField("game", rec.GameID).Error("failed to publish action")
		}
		cancel()
	}
}

// Close flushes queued records and stops the worker.
func (r *RedisRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.pending)
	r.mu.Unlock()
	<-r.done
}

// Publish serializes rec to JSON and pushes it onto the queue.
func Publish(ctx context.Context, rdb *redis.Client, queue string, rec models.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// Queue is the consuming end of the journal list.
type Queue struct {
	rdb  *redis.Client
	name string
}

// NewQueue wraps the named list.
func NewQueue(rdb *redis.Client, name string) *Queue {
	if name == "" {
		name = DefaultQueueName
	}
	return &Queue{rdb: rdb, name: name}
}

// Pop blocks up to timeout for the next raw record. It returns nil, nil when
// the list stayed empty.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the list name, res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}
