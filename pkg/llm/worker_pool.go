package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrent = 8

// WorkerPoolConfig configures the LLM worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Zero uses defaultMaxConcurrent
}

// WorkerPool bounds model calls across every Process invocation that shares
// it, so concurrent suggestion passes cannot exceed MaxConcurrent together.
type WorkerPool struct {
	slots  *semaphore.Weighted
	logger *zap.Logger
}

// NewWorkerPool creates a new LLM worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = defaultMaxConcurrent
	}
	return &WorkerPool{
		slots:  semaphore.NewWeighted(int64(config.MaxConcurrent)),
		logger: logger.Named("llm-worker-pool"),
	}
}

// WorkItem is one unit of model work. ID names it in logs and results.
type WorkItem[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// WorkResult is the outcome of one WorkItem.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism and returns the
// results in submission order. A failing item does not stop the others; items
// still waiting for a slot when ctx ends report ctx.Err().
func Process[T any](ctx context.Context, pool *WorkerPool, items []WorkItem[T]) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		results[i].ID = item.ID
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pool.slots.Acquire(ctx, 1); err != nil {
				results[i].Err = err
				return
			}
			defer pool.slots.Release(1)

			results[i].Result, results[i].Err = item.Execute(ctx)
		}()
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			pool.logger.Debug("Work item failed", zap.String("id", r.ID), zap.Error(r.Err))
		}
	}
	if failed > 0 {
		pool.logger.Info("Work items finished with failures",
			zap.Int("total", len(items)),
			zap.Int("failed", failed))
	}
	return results
}
