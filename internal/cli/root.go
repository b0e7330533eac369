// Package cli implements the warden command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/wardenhq/warden/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		" __        __            _\n" +
		" \\ \\      / /_ _ _ __ __| | ___ _ __\n" +
		"  \\ \\ /\\ / / _` | '__/ _` |/ _ \\ '_ \\\n" +
		"   \\ V  V / (_| | | | (_| |  __/ | | |\n" +
		"    \\_/\\_/ \\__,_|_|  \\__,_|\\___|_| |_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - personal agent gateway",
	Long:  color.CyanString(logo) + "\nA personal agent gateway with directory-scoped tool permissions.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

// newLogger builds the process logger. WARDEN_LOG_LEVEL=debug enables debug
// output.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("WARDEN_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
