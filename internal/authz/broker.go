// Package authz brokers human authorization decisions for tool calls that
// lack a stored permission.
package authz

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/perm"
)

// DefaultTimeout bounds how long a tool call waits for a human decision.
const DefaultTimeout = 30 * time.Second

// Request describes one authorization ask.
type Request struct {
	RequestID string
	SessionID string
	Tool      string
	TargetDir string
}

// Decision is the resolved outcome of an authorization request.
type Decision struct {
	Authorized bool
	Reason     string
	// TimedOut is true when no human decision arrived within the window.
	TimedOut bool
}

// Notifier receives a copy of each outgoing authorization request, e.g. for
// Slack delivery. Implementations must not block.
type Notifier interface {
	NotifyAuthRequest(req *Request)
}

type waiter struct {
	done     chan struct{}
	decision Decision
}

// Broker owns the rendezvous between a blocked tool call and the human
// decision arriving on the client channel. Each request resolves exactly
// once: whichever of client decision, timeout, or cancellation removes the
// waiter from the table owns its resolution and releases every caller
// attached to that request; later deliveries find no waiter and are no-ops.
type Broker struct {
	store    *perm.Store
	guard    *perm.Guard
	eventBus *bus.MessageBus
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	waiters map[string]*waiter
}

// NewBroker creates an authorization broker. notifier may be nil.
func NewBroker(store *perm.Store, guard *perm.Guard, eventBus *bus.MessageBus, notifier Notifier, logger *slog.Logger) *Broker {
	return &Broker{
		store:    store,
		guard:    guard,
		eventBus: eventBus,
		notifier: notifier,
		timeout:  DefaultTimeout,
		logger:   logger,
		waiters:  make(map[string]*waiter),
	}
}

// SetTimeout overrides the decision window. Intended for tests.
func (b *Broker) SetTimeout(d time.Duration) { b.timeout = d }

// NewRequestID returns a fresh authorization request identifier.
func NewRequestID() string { return "auth_" + uuid.NewString() }

// Request publishes an authorization ask to the session's client channel and
// blocks until a decision arrives or the window expires. The returned
// Decision reflects whichever happened first.
func (b *Broker) Request(ctx context.Context, req *Request) (Decision, error) {
	if req.RequestID == "" {
		req.RequestID = NewRequestID()
	}

	b.mu.Lock()
	if existing, ok := b.waiters[req.RequestID]; ok {
		b.mu.Unlock()
		// A repeat ask for a still-pending request attaches to the existing
		// waiter: no second timer, pending row, or client prompt.
		select {
		case <-existing.done:
			return existing.decision, nil
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		}
	}
	w := &waiter{done: make(chan struct{})}
	b.waiters[req.RequestID] = w
	b.mu.Unlock()

	if err := b.store.RecordPendingAuthorization(req.RequestID, req.SessionID, req.Tool, req.TargetDir); err != nil {
		b.logger.Warn("failed to persist pending authorization", "request_id", req.RequestID, "error", err)
	}

	b.eventBus.PublishEvent(&bus.Event{
		Type:      bus.EventAuthRequest,
		SessionID: req.SessionID,
		Tool:      req.Tool,
		RequestID: req.RequestID,
		TargetDir: req.TargetDir,
	})
	if b.notifier != nil {
		b.notifier.NotifyAuthRequest(req)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-w.done:
	case <-timer.C:
		// A decision racing the timer wins iff it removed the waiter first.
		if b.takeWaiter(req.RequestID) != nil {
			w.decision = Decision{TimedOut: true, Reason: "authorization request timed out"}
			close(w.done)
			_ = b.store.ResolvePendingAuthorization(req.RequestID, "timed_out")
			b.guard.ClearPendingOperation(req.RequestID)
		}
		<-w.done
	case <-ctx.Done():
		if b.takeWaiter(req.RequestID) != nil {
			close(w.done)
			_ = b.store.ResolvePendingAuthorization(req.RequestID, "cancelled")
			b.guard.ClearPendingOperation(req.RequestID)
			return Decision{}, ctx.Err()
		}
		<-w.done
	}
	return w.decision, nil
}

// Resolve delivers a client decision for a pending request. The first call
// wins; duplicates and decisions for unknown or already-resolved requests
// return false and have no effect. On a grant the (tool, directory) pair is
// persisted so future calls skip the broker entirely.
func (b *Broker) Resolve(requestID string, authorized bool, reason string) bool {
	w := b.takeWaiter(requestID)
	if w == nil {
		b.logger.Debug("decision for unknown or resolved request", "request_id", requestID)
		return false
	}

	// Read the parked operation before releasing the waiter: the engine may
	// clear it the moment Request returns.
	op, hasOp := b.guard.PendingOperationFor(requestID)

	w.decision = Decision{Authorized: authorized, Reason: reason}
	close(w.done)

	if hasOp {
		if err := b.store.SetPermission(op.Tool, op.TargetDir, authorized); err != nil {
			b.logger.Error("failed to persist authorization decision", "request_id", requestID, "error", err)
		}
	}

	status := "denied"
	if authorized {
		status = "granted"
	}
	_ = b.store.ResolvePendingAuthorization(requestID, status)
	return true
}

// takeWaiter removes and returns the waiter for a request, or nil when
// another path already claimed it.
func (b *Broker) takeWaiter(requestID string) *waiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.waiters[requestID]
	delete(b.waiters, requestID)
	return w
}

// PendingCount reports how many requests are currently awaiting a decision.
func (b *Broker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiters)
}
