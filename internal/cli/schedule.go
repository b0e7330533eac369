package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/scheduler"
)

var scheduleSessionID string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect and manage scheduled jobs",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled jobs for a session",
	Run: func(cmd *cobra.Command, args []string) {
		sched := openScheduler()
		defer sched.Close()

		jobs, err := sched.ListJobs(cmd.Context(), scheduleSessionID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(jobs) == 0 {
			fmt.Println("No scheduled jobs.")
			return
		}
		for _, job := range jobs {
			fmt.Printf("%s  [%s]  next %s\n  %s\n", job.ID, job.Spec, job.NextRun, job.Prompt)
		}
	},
}

var scheduleCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a scheduled job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sched := openScheduler()
		defer sched.Close()

		if err := sched.CancelJob(cmd.Context(), args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cancelled %s\n", args[0])
	},
}

func init() {
	scheduleCmd.PersistentFlags().StringVarP(&scheduleSessionID, "session", "s", "cli:default", "Session ID")
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleCancelCmd)
}

// openScheduler opens the job store without starting the cron runner; these
// commands only read and edit persisted jobs.
func openScheduler() *scheduler.Scheduler {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	sched, err := scheduler.New(cfg.DatabasePath(), bus.NewMessageBus(), newLogger())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return sched
}
