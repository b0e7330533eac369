package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/perm"
	"github.com/wardenhq/warden/internal/provider"
	"github.com/wardenhq/warden/internal/session"
	"github.com/wardenhq/warden/internal/tools"
)

// grantProvider asks for one write, and after the grant message arrives in
// the history, asks for the same write again before finishing.
type grantProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *grantProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	lastUser := ""
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUser = msg.Content
		}
	}
	// After a grant notice, retry the call once, then stop on the envelope.
	if strings.Contains(lastUser, "Authorization was granted") {
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == "tool" {
				return &provider.ChatResponse{Content: "written after grant", FinishReason: "stop"}, nil
			}
			if req.Messages[i].Role == "user" {
				break
			}
		}
		return &provider.ChatResponse{ToolCalls: []provider.ToolCall{
			{ID: "retry1", Name: "write_file", Arguments: map[string]any{}},
		}}, nil
	}
	if p.calls == 1 {
		return &provider.ChatResponse{ToolCalls: []provider.ToolCall{
			{ID: "first1", Name: "write_file", Arguments: map[string]any{}},
		}}, nil
	}
	return &provider.ChatResponse{Content: "blocked for now", FinishReason: "stop"}, nil
}

func (p *grantProvider) Name() string         { return "grant" }
func (p *grantProvider) DefaultModel() string { return "grant-1" }

func TestRuntimeGrantResubmitsTurn(t *testing.T) {
	dir := t.TempDir()
	store, err := perm.NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	guard := perm.NewGuard(store, dir)
	messageBus := bus.NewMessageBus()
	broker := authz.NewBroker(store, guard, messageBus, nil, discardLogger())
	broker.SetTimeout(time.Second)

	var log []string
	var mu sync.Mutex
	registry := tools.NewRegistry()
	registry.MustRegister(&recordingFSTool{
		recordingTool: recordingTool{name: "write_file", log: &log, mu: &mu},
		target:        filepath.Join(dir, "proj", "file.txt"),
	})

	sessions, err := session.NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	runtime := NewRuntime(RuntimeOptions{
		Bus:      messageBus,
		Sessions: sessions,
		Broker:   broker,
		Engine: EngineOptions{
			Provider:      &grantProvider{},
			Registry:      registry,
			Guard:         guard,
			Broker:        broker,
			Bus:           messageBus,
			Logger:        discardLogger(),
			MaxIterations: 5,
		},
		Logger: discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go messageBus.Dispatch(ctx)
	go runtime.Run(ctx)

	// Grant every authorization request as it appears.
	messageBus.SubscribeAllEvents(func(ev *bus.Event) {
		if ev.Type == bus.EventAuthRequest {
			go broker.Resolve(ev.RequestID, true, "")
		}
	})

	replies := make(chan string, 4)
	messageBus.Subscribe("s1", func(msg *bus.OutboundMessage) {
		replies <- msg.Content
	})

	messageBus.PublishInbound(&bus.InboundMessage{
		SessionID: "s1",
		SenderID:  "test",
		Content:   "write the file",
	})

	// First reply: the blocked turn. Second reply: the resubmitted turn that
	// executed the call under the fresh grant.
	var got []string
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case reply := <-replies:
			got = append(got, reply)
		case <-deadline:
			t.Fatalf("timed out, replies so far: %v", got)
		}
	}

	if got[1] != "written after grant" {
		t.Errorf("second reply = %q", got[1])
	}
	mu.Lock()
	defer mu.Unlock()
	if len(log) != 1 {
		t.Errorf("tool executed %d times, want exactly 1", len(log))
	}
}

// readGrantProvider asks to read one file, and once the grant notice is in
// the history retries the read and surfaces the file contents.
type readGrantProvider struct {
	mu    sync.Mutex
	path  string
	calls int
}

func (p *readGrantProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	lastUser := ""
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUser = msg.Content
		}
	}
	if strings.Contains(lastUser, "Authorization was granted") {
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == "tool" {
				var env struct {
					Result string `json:"result"`
				}
				_ = json.Unmarshal([]byte(req.Messages[i].Content), &env)
				return &provider.ChatResponse{Content: "file says: " + env.Result, FinishReason: "stop"}, nil
			}
			if req.Messages[i].Role == "user" {
				break
			}
		}
		return &provider.ChatResponse{ToolCalls: []provider.ToolCall{
			{ID: "retry1", Name: "ReadFile", Arguments: map[string]any{"path": p.path}},
		}}, nil
	}
	if p.calls == 1 {
		return &provider.ChatResponse{ToolCalls: []provider.ToolCall{
			{ID: "first1", Name: "ReadFile", Arguments: map[string]any{"path": p.path}},
		}}, nil
	}
	return &provider.ChatResponse{Content: "waiting for approval", FinishReason: "stop"}, nil
}

func (p *readGrantProvider) Name() string         { return "readgrant" }
func (p *readGrantProvider) DefaultModel() string { return "readgrant-1" }

// A read of an unauthorized path must raise an authorization request, and a
// grant must let a fresh turn read the file.
func TestRuntimeReadAuthorizationRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := perm.NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	guard := perm.NewGuard(store, dir)
	messageBus := bus.NewMessageBus()
	broker := authz.NewBroker(store, guard, messageBus, nil, discardLogger())
	broker.SetTimeout(time.Second)

	proj := filepath.Join(dir, "proj")
	if err := os.MkdirAll(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(proj, "notes.txt")
	if err := os.WriteFile(secret, []byte("secret notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := tools.NewRegistry()
	registry.MustRegister(&tools.ReadFileTool{})

	sessions, err := session.NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	runtime := NewRuntime(RuntimeOptions{
		Bus:      messageBus,
		Sessions: sessions,
		Broker:   broker,
		Engine: EngineOptions{
			Provider:      &readGrantProvider{path: secret},
			Registry:      registry,
			Guard:         guard,
			Broker:        broker,
			Bus:           messageBus,
			Logger:        discardLogger(),
			MaxIterations: 5,
		},
		Logger: discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go messageBus.Dispatch(ctx)
	go runtime.Run(ctx)

	authRequests := make(chan *bus.Event, 2)
	messageBus.SubscribeAllEvents(func(ev *bus.Event) {
		if ev.Type == bus.EventAuthRequest {
			authRequests <- ev
			go broker.Resolve(ev.RequestID, true, "")
		}
	})
	replies := make(chan string, 4)
	messageBus.Subscribe("s1", func(msg *bus.OutboundMessage) { replies <- msg.Content })

	messageBus.PublishInbound(&bus.InboundMessage{
		SessionID: "s1",
		SenderID:  "test",
		Content:   "read my notes",
	})

	var got []string
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case reply := <-replies:
			got = append(got, reply)
		case <-deadline:
			t.Fatalf("timed out, replies so far: %v", got)
		}
	}
	if got[1] != "file says: secret notes" {
		t.Errorf("second reply = %q", got[1])
	}

	select {
	case ev := <-authRequests:
		if ev.Tool != "read_file" {
			t.Errorf("authRequest tool = %q", ev.Tool)
		}
	default:
		t.Error("no authRequest emitted for the blocked read")
	}
}

func TestRuntimeRoutesStaleAuthResponse(t *testing.T) {
	dir := t.TempDir()
	store, err := perm.NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	guard := perm.NewGuard(store, dir)
	messageBus := bus.NewMessageBus()
	broker := authz.NewBroker(store, guard, messageBus, nil, discardLogger())

	sessions, err := session.NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	runtime := NewRuntime(RuntimeOptions{
		Bus:      messageBus,
		Sessions: sessions,
		Broker:   broker,
		Engine: EngineOptions{
			Provider: &scriptedProvider{responses: []*provider.ChatResponse{textResponse("hi")}},
			Registry: tools.NewRegistry(),
			Guard:    guard,
			Broker:   broker,
			Logger:   discardLogger(),
		},
		Logger: discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runtime.Run(ctx)

	// A decision for a request nobody is waiting on must be swallowed
	// without crashing or blocking the inbound queue.
	messageBus.PublishInbound(&bus.InboundMessage{
		SessionID: "s1",
		AuthResponse: &bus.AuthResponse{
			RequestID:  "auth_gone",
			Authorized: true,
		},
	})

	replies := make(chan string, 1)
	messageBus.Subscribe("s1", func(msg *bus.OutboundMessage) { replies <- msg.Content })
	go messageBus.Dispatch(ctx)

	messageBus.PublishInbound(&bus.InboundMessage{
		SessionID: "s1",
		SenderID:  "test",
		Content:   "hello",
	})

	select {
	case reply := <-replies:
		if reply != "hi" {
			t.Errorf("reply = %q", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runtime stalled after stale auth response")
	}
}
