package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunReport summarizes one reminder run.
type RunReport struct {
	RunID          string
	ClientProjects int
	FailedProjects int
	ItemsFound     int
	Notify         NotifyReport
	Duration       time.Duration
}

// ReminderJob runs one batch: scan client projects, then post reminders.
type ReminderJob struct {
	creds    *CredentialManager
	scanner  *ScanService
	notifier *NotifyService
}

// NewReminderJob creates a new ReminderJob with the required dependencies.
func NewReminderJob(creds *CredentialManager, scanner *ScanService, notifier *NotifyService) *ReminderJob {
	return &ReminderJob{
		creds:    creds,
		scanner:  scanner,
		notifier: notifier,
	}
}

// Run executes one scan and notification pass. It fails only when no usable
// credential exists or the notification history cannot be read; every
// per-project failure is logged and reflected in the report.
func (j *ReminderJob) Run(ctx context.Context) (RunReport, error) {
	start := time.Now()
	report := RunReport{RunID: uuid.NewString()}
	logger := slog.With("run_id", report.RunID)

	logger.Info("reminder run started")

	if _, err := j.creds.Current(ctx); err != nil {
		return report, fmt.Errorf("obtaining credential: %w", err)
	}

	scan, err := j.scanner.Scan(ctx)
	if err != nil {
		return report, fmt.Errorf("scanning: %w", err)
	}
	report.ClientProjects = len(scan.Projects)
	report.FailedProjects = scan.FailedProjects
	report.ItemsFound = len(scan.Items)

	notify, err := j.notifier.Notify(ctx, scan.Projects, scan.Items)
	report.Notify = notify
	if err != nil {
		return report, fmt.Errorf("notifying: %w", err)
	}

	report.Duration = time.Since(start).Round(time.Millisecond)
	logger.Info("reminder run complete",
		"client_projects", report.ClientProjects,
		"failed_projects", report.FailedProjects,
		"items_found", report.ItemsFound,
		"eligible", notify.Eligible,
		"suppressed", notify.Suppressed,
		"projects_notified", notify.ProjectsNotified,
		"projects_failed", notify.ProjectsFailed,
		"threads_created", notify.ThreadsCreated,
		"duration", report.Duration,
	)

	return report, nil
}
