package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/wardenhq/warden/internal/agent"
	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/memstore"
	"github.com/wardenhq/warden/internal/notify"
	"github.com/wardenhq/warden/internal/perm"
	"github.com/wardenhq/warden/internal/provider"
	"github.com/wardenhq/warden/internal/scheduler"
	"github.com/wardenhq/warden/internal/session"
	"github.com/wardenhq/warden/internal/tools"
)

const systemPrompt = "You are Warden, a personal assistant with access to tools. " +
	"Use tools when they help; answer directly when they don't. " +
	"If a tool reports that authorization was granted and will be retried, wait for the retry instead of calling it again."

// app bundles the wired components shared by the agent and gateway commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	bus       *bus.MessageBus
	runtime   *agent.Runtime
	permStore *perm.Store
	guard     *perm.Guard
	broker    *authz.Broker
	memories  *memstore.Store
	scheduler *scheduler.Scheduler
	mirror    *audit.Mirror
}

// buildApp assembles the full runtime from configuration.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dbPath := cfg.DatabasePath()

	prov, model, err := provider.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	permStore, err := perm.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := permStore.MarkStalePending(); err != nil {
		logger.Warn("failed to expire stale pending authorizations", "error", err)
	}
	guard := perm.NewGuard(permStore, cfg.Paths.HomeRoot)

	memories, err := memstore.NewStore(dbPath)
	if err != nil {
		permStore.Close()
		return nil, err
	}

	messageBus := bus.NewMessageBus()

	var notifier authz.Notifier
	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.BotToken != "" {
		notifier = notify.NewSlackNotifier(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel, logger)
	}
	broker := authz.NewBroker(permStore, guard, messageBus, notifier, logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		bus:       messageBus,
		permStore: permStore,
		guard:     guard,
		broker:    broker,
		memories:  memories,
	}

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(dbPath, messageBus, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.scheduler = sched
	}

	registry, err := a.buildRegistry()
	if err != nil {
		a.close()
		return nil, err
	}

	sessions, err := session.NewManager(cfg.Paths.DataDir)
	if err != nil {
		a.close()
		return nil, err
	}

	a.runtime = agent.NewRuntime(agent.RuntimeOptions{
		Bus:      messageBus,
		Sessions: sessions,
		Broker:   broker,
		Engine: agent.EngineOptions{
			Provider:      prov,
			Registry:      registry,
			Guard:         guard,
			Broker:        broker,
			Bus:           messageBus,
			Logger:        logger,
			Model:         model,
			MaxTokens:     cfg.Model.MaxTokens,
			Temperature:   cfg.Model.Temperature,
			MaxIterations: cfg.Model.MaxToolIterations,
			RepeatLimit:   cfg.Tools.RepeatLimit,
		},
		SystemPrompt: systemPrompt,
		Logger:       logger,
	})

	if cfg.Audit.Enabled && len(cfg.Audit.Brokers) > 0 {
		a.mirror = audit.NewMirror(cfg.Audit.Brokers, cfg.Audit.Topic, logger)
		a.mirror.Attach(messageBus)
	}
	return a, nil
}

func (a *app) buildRegistry() (*tools.Registry, error) {
	registry := tools.NewRegistry()
	toolSet := []tools.Tool{
		&tools.ReadFileTool{},
		&tools.WriteFileTool{},
		&tools.EditFileTool{},
		&tools.ListDirTool{},
		&tools.RememberTool{Store: a.memories},
		&tools.RecallTool{Store: a.memories},
	}
	if a.cfg.Tools.Exec.Enabled {
		toolSet = append(toolSet, &tools.ExecTool{
			Workspace: a.cfg.Paths.Workspace,
			Timeout:   a.cfg.Tools.Exec.Timeout,
		})
	}
	if a.cfg.Tools.Web.Enabled {
		toolSet = append(toolSet, tools.NewWebFetchTool(a.cfg.Tools.Web.Timeout, int(a.cfg.Tools.Web.MaxBodyBytes)))
	}
	if a.scheduler != nil {
		toolSet = append(toolSet,
			&tools.ScheduleCreateTool{Scheduler: a.scheduler},
			&tools.ScheduleListTool{Scheduler: a.scheduler},
			&tools.ScheduleCancelTool{Scheduler: a.scheduler},
		)
	}
	for _, t := range toolSet {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (a *app) close() {
	if a.scheduler != nil {
		_ = a.scheduler.Close()
	}
	if a.memories != nil {
		_ = a.memories.Close()
	}
	if a.permStore != nil {
		_ = a.permStore.Close()
	}
}
