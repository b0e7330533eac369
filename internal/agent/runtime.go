package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/perm"
	"github.com/wardenhq/warden/internal/provider"
	"github.com/wardenhq/warden/internal/session"
)

// RuntimeOptions configures the agent runtime.
type RuntimeOptions struct {
	Bus          *bus.MessageBus
	Sessions     *session.Manager
	Broker       *authz.Broker
	Engine       EngineOptions
	SystemPrompt string
	Logger       *slog.Logger
}

// Runtime consumes inbound messages, routes authorization responses to the
// broker, and runs conversational turns through the engine under per-session
// serialization.
type Runtime struct {
	bus        *bus.MessageBus
	sessions   *session.Manager
	broker     *authz.Broker
	engine     *Engine
	controller *Controller
	prompt     string
	logger     *slog.Logger
}

// NewRuntime wires the engine, controller, and broker into a runtime.
func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Runtime{
		bus:        opts.Bus,
		sessions:   opts.Sessions,
		broker:     opts.Broker,
		controller: NewController(opts.Logger),
		prompt:     opts.SystemPrompt,
		logger:     opts.Logger,
	}
	opts.Engine.OnGrant = r.resubmitAfterGrant
	r.engine = NewEngine(opts.Engine)
	return r
}

// Run consumes inbound messages until the context ends.
func (r *Runtime) Run(ctx context.Context) error {
	for {
		msg, err := r.bus.ConsumeInbound(ctx)
		if err != nil {
			return err
		}
		r.handleMessage(ctx, msg)
	}
}

func (r *Runtime) handleMessage(ctx context.Context, msg *bus.InboundMessage) {
	// Authorization responses bypass the session queue entirely: the waiter
	// they resolve is inside a turn that is already running.
	if msg.AuthResponse != nil {
		resp := msg.AuthResponse
		delivered := r.broker.Resolve(resp.RequestID, resp.Authorized, resp.Reason)
		if !delivered {
			r.logger.Debug("stale authorization response",
				"session_id", msg.SessionID, "request_id", resp.RequestID)
		}
		return
	}

	if msg.Content == "" {
		return
	}
	r.controller.Submit(ctx, msg.SessionID, func(taskCtx context.Context) {
		r.runTurn(taskCtx, msg)
	})
}

// runTurn executes one full conversational turn for a session.
func (r *Runtime) runTurn(ctx context.Context, msg *bus.InboundMessage) {
	sess := r.sessions.Get(msg.SessionID)

	history := sess.History()
	if len(history) == 0 && r.prompt != "" {
		history = append(history, provider.Message{Role: "system", Content: r.prompt})
	}
	history = append(history, provider.Message{Role: "user", Content: msg.Content})

	updated, content, err := r.engine.RunLoop(ctx, msg.SessionID, history)
	if err != nil {
		r.logger.Error("turn failed", "session_id", msg.SessionID, "error", err)
		r.bus.PublishOutbound(&bus.OutboundMessage{
			SessionID: msg.SessionID,
			TraceID:   msg.TraceID,
			Content:   fmt.Sprintf("Something went wrong: %v", err),
		})
		return
	}

	sess.SetHistory(updated)
	if err := r.sessions.Save(sess); err != nil {
		r.logger.Warn("failed to persist session", "session_id", msg.SessionID, "error", err)
	}

	// Hidden turns (grant retries, scheduler runs) still produce a reply so
	// the client sees the retried outcome.
	r.bus.PublishOutbound(&bus.OutboundMessage{
		SessionID: msg.SessionID,
		TraceID:   msg.TraceID,
		Content:   content,
	})
}

// resubmitAfterGrant injects a hidden user message telling the model its
// blocked call is now permitted, and queues a fresh turn for the session.
// The queued turn runs after the current one completes, so the retry always
// sees the freshly persisted grant.
func (r *Runtime) resubmitAfterGrant(op *perm.PendingOperation) {
	r.bus.PublishInbound(&bus.InboundMessage{
		SessionID: op.SessionID,
		SenderID:  "system",
		Content: fmt.Sprintf("Authorization was granted for %s on %s. Retry the blocked operation now.",
			op.Tool, op.TargetDir),
		Metadata: map[string]any{
			bus.MetaKeyMessageType: bus.MessageTypeInternal,
			bus.MetaKeyHidden:      true,
		},
	})
}

// Controller exposes the session concurrency controller, mainly for status
// surfaces.
func (r *Runtime) Controller() *Controller { return r.controller }
