package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/config"
)

var (
	agentMessage   string
	agentSessionID string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Chat with the agent directly in CLI",
	Run:   runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Message to send to the agent")
	agentCmd.Flags().StringVarP(&agentSessionID, "session", "s", "cli:default", "Session ID")
}

func runAgent(cmd *cobra.Command, args []string) {
	if agentMessage == "" {
		fmt.Println("Error: --message is required")
		os.Exit(1)
	}

	printHeader("Warden Agent")

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

	go a.bus.Dispatch(ctx)
	go a.runtime.Run(ctx)
	if a.mirror != nil {
		go a.mirror.Run(ctx)
	}

	replies := make(chan string, 4)
	a.bus.Subscribe(agentSessionID, func(msg *bus.OutboundMessage) {
		replies <- msg.Content
	})
	a.bus.SubscribeEvents(agentSessionID, handleCLIEvent(a))

	fmt.Printf("Model: %s\n", cfg.Model.Name)
	fmt.Println("Thinking...")

	a.bus.PublishInbound(&bus.InboundMessage{
		SessionID: agentSessionID,
		SenderID:  "cli",
		Content:   agentMessage,
	})

	// A granted authorization queues a retry turn, so more than one reply can
	// arrive. Drain until the session settles.
	for {
		select {
		case reply := <-replies:
			fmt.Println("\n" + reply)
			time.Sleep(100 * time.Millisecond)
			if !a.runtime.Controller().Busy(agentSessionID) && a.bus.InboundSize() == 0 {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleCLIEvent renders session events and prompts for authorization
// decisions on stdin.
func handleCLIEvent(a *app) func(*bus.Event) {
	stdin := bufio.NewReader(os.Stdin)
	return func(ev *bus.Event) {
		switch ev.Type {
		case bus.EventToolCall:
			fmt.Println(color.YellowString("→ %s", ev.Tool))
		case bus.EventToolResult:
			if ev.Success {
				fmt.Println(color.GreenString("✓ %s", ev.Tool))
			} else {
				fmt.Println(color.RedString("✗ %s: %s", ev.Tool, ev.Message))
			}
		case bus.EventAuthRequest:
			go func() {
				fmt.Printf("%s\n  tool: %s\n  dir:  %s\nAllow? [y/N]: ",
					color.MagentaString("Authorization required"), ev.Tool, ev.TargetDir)
				line, _ := stdin.ReadString('\n')
				answer := strings.ToLower(strings.TrimSpace(line))
				a.bus.PublishInbound(&bus.InboundMessage{
					SessionID: ev.SessionID,
					SenderID:  "cli",
					AuthResponse: &bus.AuthResponse{
						RequestID:  ev.RequestID,
						Authorized: answer == "y" || answer == "yes",
					},
				})
			}()
		case bus.EventError:
			fmt.Println(color.RedString("error: %s", ev.Message))
		}
	}
}
