package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/celestialecho/internal/types"
)

// Queue manages per-conversation lanes with a global concurrency
// semaphore. Each session key gets its own FIFO channel (lane) so that
// lookups within a conversation are processed in order, while the
// semaphore limits the total number of concurrent HORIZONS sessions
// across all conversations.
type Queue struct {
	lanes     map[types.SessionKey]chan *Run
	semaphore *semaphore.Weighted
	processor func(*Run) error
	active    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent lookups to
// execute simultaneously across all lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.SessionKey]chan *Run),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for
// in-flight processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for _, lane := range q.lanes {
		close(lane)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to its conversation's lane, creating the lane (and
// its goroutine) on first use. Returns an error if the lane's buffer is
// full.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	lane, exists := q.lanes[run.SessionKey]
	if !exists {
		lane = make(chan *Run, 100)
		q.lanes[run.SessionKey] = lane
		q.wg.Add(1)
		go q.processLane(lane)
	}

	select {
	case lane <- run:
		q.active.Add(1)
		return nil
	default:
		return fmt.Errorf("queue full for session %s", run.SessionKey)
	}
}

// processLane drains a single lane, acquiring a semaphore slot before
// running the processor synchronously. This keeps strict FIFO ordering
// within a conversation while the semaphore limits cross-conversation
// parallelism.
func (q *Queue) processLane(lane chan *Run) {
	defer q.wg.Done()
	for {
		select {
		case run, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				q.active.Add(-1)
				return
			}
			if q.processor != nil {
				run.Ctx = q.ctx
				run.Status = RunStatusRunning
				if err := q.processor(run); err != nil {
					run.Status = RunStatusFailed
					run.Error = err
					slog.Error("lookup run failed",
						"run_id", string(run.ID), "session_key", string(run.SessionKey),
						"target", run.Target, "error", err)
					run.complete("Sorry, something went wrong looking that up.")
				} else {
					run.Status = RunStatusComplete
				}
			}
			q.active.Add(-1)
			q.semaphore.Release(1)
		case <-q.ctx.Done():
			return
		}
	}
}

// WaitIdle blocks until every enqueued run has finished processing, or
// the timeout expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn func(*Run) error) {
	q.processor = fn
}
