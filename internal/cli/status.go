package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/provider"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Warden Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Warden Status")
		fmt.Printf("Version: %s\n", version)

		path, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + path + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (" + path + ")")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ✗ Unable to load: %v\n", err)
			return
		}

		fmt.Printf("Model:   %s\n", cfg.Model.Name)
		if _, _, err := provider.Resolve(cfg); err == nil {
			fmt.Println("Provider: ✓ Configured")
		} else {
			fmt.Printf("Provider: ✗ %v\n", err)
		}

		if _, err := os.Stat(cfg.DatabasePath()); err == nil {
			fmt.Println("Database: ✓ Found (" + cfg.DatabasePath() + ")")
		} else {
			fmt.Println("Database: ✗ Not created yet")
		}

		fmt.Printf("Home root: %s\n", cfg.Paths.HomeRoot)
		fmt.Printf("Gateway:   %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
		fmt.Println("Status:  Ready")
	},
}
