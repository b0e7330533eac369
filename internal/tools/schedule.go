package tools

import (
	"context"
	"fmt"
	"strings"
)

// JobScheduler is the scheduling surface the schedule tools drive.
// Implemented by the cron-backed scheduler in internal/scheduler.
type JobScheduler interface {
	CreateJob(ctx context.Context, sessionID, spec, prompt string) (string, error)
	ListJobs(ctx context.Context, sessionID string) ([]JobInfo, error)
	CancelJob(ctx context.Context, jobID string) error
}

// JobInfo describes one scheduled job.
type JobInfo struct {
	ID      string
	Spec    string
	Prompt  string
	NextRun string
}

// ScheduleCreateTool registers a recurring prompt on a cron schedule. Jobs
// fire back into the session that created them.
type ScheduleCreateTool struct {
	Scheduler JobScheduler
}

func (t *ScheduleCreateTool) Name() string { return "schedule_create" }

func (t *ScheduleCreateTool) Description() string {
	return "Schedule a prompt to run on a recurring cron schedule."
}

func (t *ScheduleCreateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cron": map[string]any{
				"type":        "string",
				"description": "Cron expression, e.g. '0 9 * * 1-5' for weekday mornings",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "The prompt to run on each trigger",
			},
		},
		"required": []string{"cron", "prompt"},
	}
}

func (t *ScheduleCreateTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	spec := strings.TrimSpace(GetString(params, "cron", ""))
	prompt := strings.TrimSpace(GetString(params, "prompt", ""))
	if spec == "" || prompt == "" {
		return nil, fmt.Errorf("cron and prompt are required")
	}

	id, err := t.Scheduler.CreateJob(ctx, SessionFrom(ctx), spec, prompt)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return map[string]any{"job_id": id, "cron": spec}, nil
}

// ScheduleListTool lists the session's scheduled jobs.
type ScheduleListTool struct {
	Scheduler JobScheduler
}

func (t *ScheduleListTool) Name() string { return "schedule_list" }

func (t *ScheduleListTool) Description() string {
	return "List scheduled jobs for this session."
}

func (t *ScheduleListTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ScheduleListTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	jobs, err := t.Scheduler.ListJobs(ctx, SessionFrom(ctx))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		return "No scheduled jobs.", nil
	}

	var b strings.Builder
	for _, job := range jobs {
		fmt.Fprintf(&b, "%s  [%s]  next %s  %s\n", job.ID, job.Spec, job.NextRun, job.Prompt)
	}
	return b.String(), nil
}

// ScheduleCancelTool cancels a scheduled job by ID.
type ScheduleCancelTool struct {
	Scheduler JobScheduler
}

func (t *ScheduleCancelTool) Name() string { return "schedule_cancel" }

func (t *ScheduleCancelTool) Description() string {
	return "Cancel a scheduled job by its ID."
}

func (t *ScheduleCancelTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"job_id": map[string]any{
				"type":        "string",
				"description": "The ID of the job to cancel",
			},
		},
		"required": []string{"job_id"},
	}
}

func (t *ScheduleCancelTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	id := strings.TrimSpace(GetString(params, "job_id", ""))
	if id == "" {
		return nil, fmt.Errorf("job_id is required")
	}
	if err := t.Scheduler.CancelJob(ctx, id); err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	return fmt.Sprintf("Cancelled job %s.", id), nil
}
