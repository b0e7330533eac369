// Package scheduler runs recurring prompts on cron schedules and feeds them
// into the agent as internal messages.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/tools"
)

// cronParser accepts standard 5-field expressions plus descriptors like
// "@daily".
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler persists jobs in sqlite and drives them with a cron runner. Each
// trigger publishes the job's prompt as an internal inbound message, so a
// scheduled run flows through the same turn pipeline as a typed one.
type Scheduler struct {
	db     *sql.DB
	bus    *bus.MessageBus
	logger *slog.Logger
	runner *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

const jobSchema = `
CREATE TABLE IF NOT EXISTS scheduled_jobs (
	job_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	cron_spec TEXT NOT NULL,
	prompt TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_jobs_session ON scheduled_jobs(session_id);
`

// New opens the job store at dbPath and prepares the cron runner. Persisted
// jobs are loaded but not started until Start is called.
func New(dbPath string, messageBus *bus.MessageBus, logger *slog.Logger) (*Scheduler, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open scheduler db: %w", err)
	}
	if _, err := db.Exec(jobSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply scheduler schema: %w", err)
	}

	s := &Scheduler{
		db:      db,
		bus:     messageBus,
		logger:  logger,
		runner:  cron.New(cron.WithParser(cronParser)),
		entries: make(map[string]cron.EntryID),
	}
	if err := s.loadJobs(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Start begins firing schedules.
func (s *Scheduler) Start() { s.runner.Start() }

// Stop halts the runner and waits for in-flight triggers.
func (s *Scheduler) Stop() {
	<-s.runner.Stop().Done()
}

// Close stops the runner and closes the job store.
func (s *Scheduler) Close() error {
	s.Stop()
	return s.db.Close()
}

// CreateJob validates the cron spec, persists the job, and registers it with
// the runner.
func (s *Scheduler) CreateJob(ctx context.Context, sessionID, spec, prompt string) (string, error) {
	if _, err := cronParser.Parse(spec); err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	jobID := "job_" + uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (job_id, session_id, cron_spec, prompt) VALUES (?, ?, ?, ?)`,
		jobID, sessionID, spec, prompt)
	if err != nil {
		return "", fmt.Errorf("persist job: %w", err)
	}

	if err := s.register(jobID, sessionID, spec, prompt); err != nil {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE job_id = ?`, jobID)
		return "", err
	}
	return jobID, nil
}

// ListJobs returns the session's jobs with their next run times.
func (s *Scheduler) ListJobs(ctx context.Context, sessionID string) ([]tools.JobInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, cron_spec, prompt FROM scheduled_jobs WHERE session_id = ? ORDER BY created_at`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []tools.JobInfo
	for rows.Next() {
		var info tools.JobInfo
		if err := rows.Scan(&info.ID, &info.Spec, &info.Prompt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		info.NextRun = s.nextRun(info.ID)
		result = append(result, info)
	}
	return result, rows.Err()
}

// CancelJob removes a job from the store and the runner.
func (s *Scheduler) CancelJob(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no job with ID %s", jobID)
	}

	s.mu.Lock()
	if entryID, ok := s.entries[jobID]; ok {
		s.runner.Remove(entryID)
		delete(s.entries, jobID)
	}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) loadJobs() error {
	rows, err := s.db.Query(`SELECT job_id, session_id, cron_spec, prompt FROM scheduled_jobs`)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobID, sessionID, spec, prompt string
		if err := rows.Scan(&jobID, &sessionID, &spec, &prompt); err != nil {
			return fmt.Errorf("scan job: %w", err)
		}
		if err := s.register(jobID, sessionID, spec, prompt); err != nil {
			s.logger.Warn("skipping unparseable persisted job", "job_id", jobID, "error", err)
		}
	}
	return rows.Err()
}

func (s *Scheduler) register(jobID, sessionID, spec, prompt string) error {
	entryID, err := s.runner.AddFunc(spec, func() {
		s.logger.Info("scheduled job fired", "job_id", jobID, "session_id", sessionID)
		s.bus.PublishInbound(&bus.InboundMessage{
			SessionID: sessionID,
			SenderID:  "scheduler",
			Content:   prompt,
			Metadata: map[string]any{
				bus.MetaKeyMessageType:  bus.MessageTypeInternal,
				bus.MetaKeySchedulerJob: jobID,
			},
		})
	})
	if err != nil {
		return fmt.Errorf("register job %s: %w", jobID, err)
	}

	s.mu.Lock()
	s.entries[jobID] = entryID
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) nextRun(jobID string) string {
	s.mu.Lock()
	entryID, ok := s.entries[jobID]
	s.mu.Unlock()
	if !ok {
		return "not scheduled"
	}
	next := s.runner.Entry(entryID).Next
	if next.IsZero() {
		return "not scheduled"
	}
	return next.Format(time.RFC3339)
}
