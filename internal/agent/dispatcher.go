package agent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	laneBuffer     = 100
	messageTimeout = 2 * time.Minute
)

type job struct {
	sessionID string
	userID    string
	content   string

	// done receives the outcome for synchronous callers; nil for
	// fire-and-forget dispatch.
	done chan outcome
}

type outcome struct {
	reply string
	err   error
}

// Dispatcher manages per-session lanes with a global concurrency
// semaphore. Each session gets its own FIFO channel so messages within
// a session process sequentially in arrival order, while the semaphore
// bounds total concurrent workers across all sessions.
type Dispatcher struct {
	agent     *Agent
	lanes     map[string]chan job
	semaphore *semaphore.Weighted
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewDispatcher creates a Dispatcher allowing up to maxConcurrent
// messages to process simultaneously across all session lanes.
func NewDispatcher(agent *Agent, maxConcurrent int64, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		agent:     agent,
		lanes:     make(map[string]chan job),
		semaphore: semaphore.NewWeighted(maxConcurrent),
		logger:    logger,
	}
}

// Start initialises the dispatcher's context. Must be called before Dispatch.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)
}

// Stop cancels the dispatcher, closes all lanes, and waits for in-flight
// workers to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Lock()
	for _, lane := range d.lanes {
		close(lane)
	}
	d.lanes = make(map[string]chan job)
	d.mu.Unlock()
	d.wg.Wait()
}

// Dispatch queues a user message on its session's lane, creating the
// lane on first use, and returns immediately. Returns an error if the
// lane's buffer is full.
func (d *Dispatcher) Dispatch(sessionID, userID, content string) error {
	return d.enqueue(job{sessionID: sessionID, userID: userID, content: content})
}

// Process queues a user message like Dispatch but blocks until its
// lane reaches it and processing finishes, returning the reply. The
// message still goes through the session's FIFO lane, so synchronous
// and dispatched messages cannot interleave within a session.
func (d *Dispatcher) Process(ctx context.Context, sessionID, userID, content string) (string, error) {
	done := make(chan outcome, 1)
	if err := d.enqueue(job{sessionID: sessionID, userID: userID, content: content, done: done}); err != nil {
		return "", err
	}

	select {
	case out := <-done:
		return out.reply, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	lane, exists := d.lanes[j.sessionID]
	if !exists {
		lane = make(chan job, laneBuffer)
		d.lanes[j.sessionID] = lane
		d.wg.Add(1)
		go d.processLane(j.sessionID, lane)
	}

	select {
	case lane <- j:
		return nil
	default:
		return fmt.Errorf("message queue full for session %s", j.sessionID)
	}
}

// processLane drains one session lane, acquiring a semaphore slot before
// processing each message synchronously. Strict FIFO within the session;
// the semaphore only limits cross-session parallelism.
func (d *Dispatcher) processLane(sessionID string, lane chan job) {
	defer d.wg.Done()
	for {
		select {
		case j, ok := <-lane:
			if !ok {
				return
			}
			if err := d.semaphore.Acquire(d.ctx, 1); err != nil {
				return
			}
			d.process(j)
			d.semaphore.Release(1)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(d.ctx, messageTimeout)
	defer cancel()

	reply, err := d.runMessage(ctx, j)
	if err != nil {
		d.logger.Error("message processing failed",
			"session_id", j.sessionID, "error", err)
	}
	if j.done != nil {
		j.done <- outcome{reply: reply, err: err}
	}
}

// runMessage shields the lane worker from panics inside the
// orchestration loop. A panic becomes an ordinary failure: the session
// still receives its apology, synchronous callers get their outcome,
// and the worker keeps draining the lane.
func (d *Dispatcher) runMessage(ctx context.Context, j job) (reply string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic in message worker",
				"session_id", j.sessionID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			reply = ""
			err = d.agent.fail(j.sessionID, fmt.Errorf("panic while processing message: %v", rec))
		}
	}()
	return d.agent.ProcessMessage(ctx, j.sessionID, j.userID, j.content)
}
