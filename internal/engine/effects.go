package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const effectTimeout = 30 * time.Second

// Effect is one best-effort side effect, run after the primary write has
// committed. A failing effect is logged and swallowed; it never affects the
// primary operation or other effects.
type Effect struct {
	Name string
	Run  func(ctx context.Context) error
}

// EffectQueue runs effects on a single background worker, preserving enqueue
// order. Enqueueing after the primary response is sent is what gives the
// deferred-email guarantee: creation latency never includes email latency.
type EffectQueue struct {
	logger *zap.Logger
	ch     chan Effect
	wg     sync.WaitGroup
	once   sync.Once
}

func NewEffectQueue(logger *zap.Logger, buffer int) *EffectQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	q := &EffectQueue{
		logger: logger,
		ch:     make(chan Effect, buffer),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *EffectQueue) run() {
	defer q.wg.Done()
	for eff := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		if err := eff.Run(ctx); err != nil {
			q.logger.Warn("side effect failed", zap.String("effect", eff.Name), zap.Error(err))
		}
		cancel()
	}
}

// Enqueue schedules an effect. When the queue is full the effect runs
// inline on the caller; the work is best-effort either way.
func (q *EffectQueue) Enqueue(eff Effect) {
	select {
	case q.ch <- eff:
	default:
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()
		if err := eff.Run(ctx); err != nil {
			q.logger.Warn("side effect failed", zap.String("effect", eff.Name), zap.Error(err))
		}
	}
}

// Close drains the queue and stops the worker.
func (q *EffectQueue) Close() {
	q.once.Do(func() { close(q.ch) })
	q.wg.Wait()
}
