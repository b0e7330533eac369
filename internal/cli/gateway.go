package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/gateway"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the WebSocket gateway daemon",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("Warden Gateway")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger()
	a, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Printf("Startup error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	go a.bus.Dispatch(ctx)
	go a.runtime.Run(ctx)
	if a.mirror != nil {
		go a.mirror.Run(ctx)
	}
	if a.scheduler != nil {
		a.scheduler.Start()
		defer a.scheduler.Stop()
	}

	server := gateway.NewServer(cfg.Gateway.Host, cfg.Gateway.Port, cfg.Gateway.AuthToken, a.bus, logger)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Printf("Gateway error: %v\n", err)
		os.Exit(1)
	}
}
