package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/perm"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Inspect and edit directory-scoped tool permissions",
}

var permissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored permission records",
	Run: func(cmd *cobra.Command, args []string) {
		store := openPermStore()
		defer store.Close()

		records, err := store.ListPermissions()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(records) == 0 {
			fmt.Println("No permission records.")
			return
		}
		for _, rec := range records {
			verdict := color.GreenString("allow")
			if !rec.Allowed {
				verdict = color.RedString("deny")
			}
			fmt.Printf("%s  %-12s %s\n", verdict, rec.Tool, rec.TargetDir)
		}
	},
}

var permissionsAllowCmd = &cobra.Command{
	Use:   "allow <tool> <dir>",
	Short: "Grant a tool access to a directory",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		setPermission(args[0], args[1], true)
	},
}

var permissionsDenyCmd = &cobra.Command{
	Use:   "deny <tool> <dir>",
	Short: "Deny a tool access to a directory",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		setPermission(args[0], args[1], false)
	},
}

var permissionsRemoveCmd = &cobra.Command{
	Use:   "remove <tool> <dir>",
	Short: "Remove a permission record",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		store := openPermStore()
		defer store.Close()
		if err := store.RemovePermission(args[0], args[1]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed record for %s on %s\n", args[0], perm.NormalizeDir(args[1]))
	},
}

func init() {
	permissionsCmd.AddCommand(permissionsListCmd)
	permissionsCmd.AddCommand(permissionsAllowCmd)
	permissionsCmd.AddCommand(permissionsDenyCmd)
	permissionsCmd.AddCommand(permissionsRemoveCmd)
}

func openPermStore() *perm.Store {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	store, err := perm.NewStore(cfg.DatabasePath())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return store
}

func setPermission(tool, dir string, allowed bool) {
	store := openPermStore()
	defer store.Close()
	if err := store.SetPermission(tool, dir, allowed); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	verdict := "allowed"
	if !allowed {
		verdict = "denied"
	}
	fmt.Printf("%s is now %s in %s\n", tool, verdict, perm.NormalizeDir(dir))
}
