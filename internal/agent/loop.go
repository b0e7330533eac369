// Package agent implements the core conversation loop: provider calls, tool
// dispatch, result envelopes, and the authorization rendezvous.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/perm"
	"github.com/wardenhq/warden/internal/provider"
	"github.com/wardenhq/warden/internal/tools"
)

const defaultMaxIterations = 20

// EngineOptions configures a conversation engine.
type EngineOptions struct {
	Provider      provider.LLMProvider
	Registry      *tools.Registry
	Guard         *perm.Guard
	Broker        *authz.Broker
	Bus           *bus.MessageBus
	Logger        *slog.Logger
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxIterations int
	RepeatLimit   int
	// OnGrant is invoked when a blocked call's authorization is granted, so
	// the runtime can resubmit the turn. The granted call is never replayed
	// inline.
	OnGrant func(op *perm.PendingOperation)
}

// Engine drives one conversational turn to completion: it calls the model,
// executes every requested tool in emission order, folds outcomes into
// result envelopes, and iterates until the model stops requesting tools.
type Engine struct {
	opts EngineOptions
}

// NewEngine creates a conversation engine.
func NewEngine(opts EngineOptions) *Engine {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{opts: opts}
}

// RunLoop processes one turn. It returns the full updated message history
// and the assistant's final text content.
func (e *Engine) RunLoop(ctx context.Context, sessionID string, messages []provider.Message) ([]provider.Message, string, error) {
	guard := newToolGuard(e.opts.RepeatLimit)
	definitions := e.opts.Registry.Definitions()

	e.publish(&bus.Event{Type: bus.EventStreamStart, SessionID: sessionID})

	var finalContent string
	for iteration := 0; iteration < e.opts.MaxIterations; iteration++ {
		req := &provider.ChatRequest{
			Messages:    messages,
			Tools:       definitions,
			Model:       e.opts.Model,
			MaxTokens:   e.opts.MaxTokens,
			Temperature: e.opts.Temperature,
			OnChunk: func(text string) {
				e.publish(&bus.Event{Type: bus.EventStreamChunk, SessionID: sessionID, Content: text})
			},
		}

		resp, err := e.opts.Provider.Chat(ctx, req)
		if err != nil {
			e.publish(&bus.Event{Type: bus.EventError, SessionID: sessionID, Message: err.Error()})
			return messages, "", fmt.Errorf("provider call: %w", err)
		}

		messages = append(messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		finalContent = resp.Content

		if len(resp.ToolCalls) == 0 {
			break
		}

		// Tool calls run strictly in the order the model emitted them; each
		// result is appended before the next call executes.
		for _, tc := range resp.ToolCalls {
			envelope := e.executeToolCall(ctx, sessionID, guard, tc)
			messages = append(messages, provider.Message{
				Role:       "tool",
				Content:    envelope.JSON(),
				ToolCallID: tc.ID,
			})
		}
	}

	e.publish(&bus.Event{Type: bus.EventStreamEnd, SessionID: sessionID, Content: finalContent})
	return messages, finalContent, nil
}

// executeToolCall resolves, authorizes, and runs one tool call, returning
// its result envelope. Events carry the backend's original tool spelling;
// dispatch uses the canonical form.
func (e *Engine) executeToolCall(ctx context.Context, sessionID string, guard *toolGuard, tc provider.ToolCall) *ToolResult {
	canonical := tools.Canonicalize(tc.Name)

	e.publish(&bus.Event{
		Type:       bus.EventToolCall,
		SessionID:  sessionID,
		Tool:       tc.Name,
		ToolCallID: tc.ID,
	})

	envelope := e.resolveAndRun(ctx, sessionID, guard, canonical, tc)

	e.publish(&bus.Event{
		Type:       bus.EventToolResult,
		SessionID:  sessionID,
		Tool:       tc.Name,
		ToolCallID: tc.ID,
		Success:    envelope.Success,
		Message:    envelope.Error,
	})
	return envelope
}

func (e *Engine) resolveAndRun(ctx context.Context, sessionID string, guard *toolGuard, canonical string, tc provider.ToolCall) *ToolResult {
	tool, ok := e.opts.Registry.Get(canonical)
	if !ok {
		return Failure(CodeToolNotFound, fmt.Sprintf("unknown tool: %s", tc.Name))
	}

	if err := guard.Check(canonical, tc.Arguments); err != nil {
		return Failure(CodeRepeatLimit, err.Error())
	}

	if fsTool, ok := tool.(tools.FilesystemTool); ok {
		if target, ok := fsTool.TargetPath(tc.Arguments); ok {
			if envelope := e.authorize(ctx, sessionID, canonical, target, tc); envelope != nil {
				return envelope
			}
		}
	}

	raw, err := tool.Execute(tools.WithSession(ctx, sessionID), tc.Arguments)
	return Normalize(raw, err)
}

// authorize checks the permission layer for a filesystem target. A nil
// return means the call may run now; otherwise the returned envelope is the
// call's final outcome for this turn.
func (e *Engine) authorize(ctx context.Context, sessionID, canonical, target string, tc provider.ToolCall) *ToolResult {
	decision, err := e.opts.Guard.Check(canonical, target)
	if err != nil {
		return Failure(CodeExecutionError, fmt.Sprintf("permission check: %v", err))
	}
	if decision.Allowed {
		return nil
	}
	if !decision.NeedsAuthorization {
		return Failure(CodePermissionDenied, decision.Reason)
	}

	requestID := authz.NewRequestID()
	op := &perm.PendingOperation{
		RequestID: requestID,
		SessionID: sessionID,
		Tool:      canonical,
		TargetDir: decision.TargetDir,
		Params:    tc.Arguments,
	}
	e.opts.Guard.StorePendingOperation(op)

	result, err := e.opts.Broker.Request(ctx, &authz.Request{
		RequestID: requestID,
		SessionID: sessionID,
		Tool:      canonical,
		TargetDir: decision.TargetDir,
	})
	if err != nil {
		e.opts.Guard.ClearPendingOperation(requestID)
		return Failure(CodeExecutionError, fmt.Sprintf("authorization request: %v", err))
	}

	switch {
	case result.TimedOut:
		return Failure(CodeAuthorizationTimeout,
			fmt.Sprintf("no authorization decision for %s on %s within the window", canonical, decision.TargetDir))
	case !result.Authorized:
		e.opts.Guard.ClearPendingOperation(requestID)
		reason := result.Reason
		if reason == "" {
			reason = fmt.Sprintf("authorization denied for %s on %s", canonical, decision.TargetDir)
		}
		return Failure(CodeAuthorizationDenied, reason)
	default:
		// The grant is recorded; the runtime resubmits the turn so a fresh
		// run retries the call under the new permission.
		if e.opts.OnGrant != nil {
			e.opts.OnGrant(op)
		}
		e.opts.Guard.ClearPendingOperation(requestID)
		return Failure(CodeAuthorizationGranted,
			fmt.Sprintf("permission granted for %s on %s; the operation will be retried", canonical, decision.TargetDir))
	}
}

func (e *Engine) publish(ev *bus.Event) {
	if e.opts.Bus != nil {
		e.opts.Bus.PublishEvent(ev)
	}
}
