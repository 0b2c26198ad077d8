// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Queue yields raw journal records. Pop returns nil, nil when nothing arrived
// within timeout.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// Sink persists journal batches.
type Sink interface {
	SaveActions(ctx context.Context, recs []models.ActionRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tunes batching. Zero values pick defaults.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	// Inactivity is how long a game may go without actions before it is
	// marked abandoned.
	Inactivity time.Duration
	PopTimeout time.Duration
	Clock      clockwork.Clock
	Logger     *logrus.Logger
}

const gameEndedAction = "game_ended"

// Service drains the action journal from a Queue into a Sink in batches.
type Service struct {
	queue  Queue
	sink   Sink
	opts   Options
	logger *logrus.Logger
	clock  clockwork.Clock

	batch        []models.ActionRecord
	lastFlush    time.Time
	lastSweep    time.Time
	lastActivity map[uuid.UUID]time.Time
}

// NewService wires a queue to a sink.
func NewService(queue Queue, sink Sink, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		queue:        queue,
		sink:         sink,
		opts:         opts,
		logger:       opts.Logger,
		clock:        opts.Clock,
		batch:        make([]models.ActionRecord, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run consumes until ctx is cancelled, then flushes what it holds.
func (s *Service) Run(ctx context.Context) error {
	s.lastFlush = s.clock.Now()
	s.lastSweep = s.clock.Now()
	s.logger.WithFields(logrus.Fields{
		"batch_size": s.opts.BatchSize,
		"flush":      s.opts.FlushInterval,
	}).Info("historian started")

	for {
		if ctx.Err() != nil {
			s.flush(context.Background())
			s.logger.Info("historian stopped")
			return nil
		}

		data, err := s.queue.Pop(ctx, s.opts.PopTimeout)
		if data != nil {
			s.accept(data)
		}
		if ctx.Err() != nil {
			continue
		}
		if err != nil {
			s.logger.WithError(err).Error("queue pop failed")
			s.sleep(ctx, s.opts.PopTimeout)
			continue
		}

		now := s.clock.Now()
		if len(s.batch) >= s.opts.BatchSize || now.Sub(s.lastFlush) >= s.opts.FlushInterval {
			s.flush(ctx)
		}
		if now.Sub(s.lastSweep) >= s.opts.Inactivity/10 {
			s.sweep(ctx, now)
		}
	}
}

func (s *Service) accept(data []byte) {
	var rec models.ActionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.WithError(err).Warn("invalid action record")
		return
	}
	if rec.GameID == uuid.Nil {
		s.logger.Warn("action record without game id")
		return
	}
	s.batch = append(s.batch, rec)
	if rec.ActionType == gameEndedAction {
		delete(s.lastActivity, rec.GameID)
	} else {
		s.lastActivity[rec.GameID] = s.clock.Now()
	}
}

// flush writes the pending batch. A failed batch is dropped and logged.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = s.clock.Now()
	if len(s.batch) == 0 {
		return
	}
	batch := make([]models.ActionRecord, len(s.batch))
	copy(batch, s.batch)
	s.batch = s.batch[:0]

	if err := s.sink.SaveActions(ctx, batch); err != nil {
		s.logger.WithError(err).WithField("count", len(batch)).Error("failed to flush actions")
		return
	}
	s.logger.WithField("count", len(batch)).Debug("flushed actions")
}

// sweep marks games abandoned once they have been quiet for too long.
func (s *Service) sweep(ctx context.Context, now time.Time) {
	s.lastSweep = now
	for gameID, last := range s.lastActivity {
		if now.Sub(last) <= s.opts.Inactivity {
			continue
		}
		delete(s.lastActivity, gameID)
		if err := s.sink.MarkAbandoned(ctx, gameID); err != nil {
			s.logger.WithError(err).WithField("game", gameID).Error("failed to mark game abandoned")
			continue
		}
		s.logger.WithField("game", gameID).Info("game marked abandoned after inactivity")
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-s.clock.After(d):
	}
}
