package agent

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one unit of session work, typically a full conversational turn.
type Task func(ctx context.Context)

// Controller serializes work per session: one running task per session, with
// later submissions queued FIFO. Different sessions run concurrently.
type Controller struct {
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	busy  bool
	queue []Task
}

// NewController creates a session concurrency controller.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:   logger,
		sessions: make(map[string]*sessionState),
	}
}

// Submit runs the task now if the session is idle, otherwise appends it to
// the session's queue. Queued tasks run in submission order.
func (c *Controller) Submit(ctx context.Context, sessionID string, task Task) {
	c.mu.Lock()
	state, ok := c.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		c.sessions[sessionID] = state
	}
	if state.busy {
		state.queue = append(state.queue, task)
		c.mu.Unlock()
		return
	}
	state.busy = true
	c.mu.Unlock()

	go c.run(ctx, sessionID, task)
}

// run executes a task and then drains the session's queue. The busy flag is
// released on every exit path, panics included, so a failing task can never
// wedge its session.
func (c *Controller) run(ctx context.Context, sessionID string, task Task) {
	for {
		c.execute(ctx, sessionID, task)

		c.mu.Lock()
		state := c.sessions[sessionID]
		if len(state.queue) == 0 {
			state.busy = false
			c.mu.Unlock()
			return
		}
		task = state.queue[0]
		state.queue = state.queue[1:]
		c.mu.Unlock()
	}
}

func (c *Controller) execute(ctx context.Context, sessionID string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("session task panicked", "session_id", sessionID, "panic", r)
		}
	}()
	task(ctx)
}

// Busy reports whether the session has a running task.
func (c *Controller) Busy(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.sessions[sessionID]
	return ok && state.busy
}

// QueueLen reports how many tasks are waiting for the session.
func (c *Controller) QueueLen(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.sessions[sessionID]
	if !ok {
		return 0
	}
	return len(state.queue)
}
