package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// NotifyPolicy holds the rules for posting reminders.
type NotifyPolicy struct {
	// Cooldown is the minimum interval between two reminders for one item.
	Cooldown time.Duration
	// StaleAfter is quoted in the reminder heading.
	StaleAfter time.Duration
	// ThreadSubject is the subject of a newly created reminder thread.
	ThreadSubject string
	// ThreadMarker identifies an existing reminder thread by title.
	ThreadMarker string
}

// NotifyReport summarizes one notification pass.
type NotifyReport struct {
	Candidates       int
	Eligible         int
	Suppressed       int
	ProjectsNotified int
	ProjectsFailed   int
	ProjectsSkipped  int
	ThreadsCreated   int
	Recorded         int
}

// NotifyService posts one aggregated reminder per project and records which
// items were included so they are not repeated within the cooldown.
type NotifyService struct {
	client  driven.BasecampClient
	history driven.HistoryStore
	policy  NotifyPolicy
	now     func() time.Time
}

// NewNotifyService creates a new NotifyService with the required dependencies.
func NewNotifyService(client driven.BasecampClient, history driven.HistoryStore, policy NotifyPolicy) *NotifyService {
	return &NotifyService{
		client:  client,
		history: history,
		policy:  policy,
		now:     time.Now,
	}
}

// ShouldNotify reports whether item is due a reminder: it has never been
// notified, or its last reminder is at least cooldown old.
func ShouldNotify(item model.ContentItem, history map[model.ItemKey]model.NotificationRecord, cooldown time.Duration, now time.Time) bool {
	rec, ok := history[item.Key()]
	if !ok {
		return true
	}
	return now.Sub(rec.NotifiedAt) >= cooldown
}

// Partition splits items into those due a reminder and those still within
// their cooldown. Repeated keys are kept once, at their first position.
func Partition(items []model.ContentItem, history map[model.ItemKey]model.NotificationRecord, cooldown time.Duration, now time.Time) (eligible, suppressed []model.ContentItem) {
	seen := make(map[model.ItemKey]bool, len(items))
	for _, item := range items {
		if seen[item.Key()] {
			continue
		}
		seen[item.Key()] = true

		if ShouldNotify(item, history, cooldown, now) {
			eligible = append(eligible, item)
		} else {
			suppressed = append(suppressed, item)
		}
	}
	return eligible, suppressed
}

// GroupByProject groups items by project. Groups appear in the order their
// project is first seen and keep the relative order of their items.
func GroupByProject(items []model.ContentItem) []model.ProjectGroup {
	index := make(map[int64]int)
	var groups []model.ProjectGroup

	for _, item := range items {
		i, ok := index[item.ProjectID]
		if !ok {
			i = len(groups)
			index[item.ProjectID] = i
			groups = append(groups, model.ProjectGroup{ProjectID: item.ProjectID})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// Notify posts reminders for the eligible items. A failure for one project
// is logged and counted; the remaining projects are still processed and the
// failed project's items stay unrecorded. Only a history read failure aborts.
func (s *NotifyService) Notify(ctx context.Context, projects []model.ClientProject, items []model.ContentItem) (NotifyReport, error) {
	report := NotifyReport{Candidates: len(items)}

	records, err := s.history.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("loading notification history: %w", err)
	}

	history := make(map[model.ItemKey]model.NotificationRecord, len(records))
	for _, rec := range records {
		history[rec.Key()] = rec
	}

	eligible, suppressed := Partition(items, history, s.policy.Cooldown, s.now())
	report.Eligible = len(eligible)
	report.Suppressed = len(suppressed)

	byID := make(map[int64]model.ClientProject, len(projects))
	for _, p := range projects {
		byID[p.ProjectID] = p
	}

	for _, group := range GroupByProject(eligible) {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		project, ok := byID[group.ProjectID]
		if !ok || !project.HasMessageBoard() {
			slog.Warn("no message board for project, skipping reminder", "project_id", group.ProjectID, "items", len(group.Items))
			report.ProjectsSkipped++
			continue
		}

		created, err := s.notifyProject(ctx, project, group)
		if err != nil {
			slog.Error("posting reminder failed", "project_id", group.ProjectID, "items", len(group.Items), "error", err)
			report.ProjectsFailed++
			continue
		}

		report.ProjectsNotified++
		if created {
			report.ThreadsCreated++
		}
		report.Recorded += s.record(ctx, group)
	}

	slog.Info("notification pass complete",
		"candidates", report.Candidates,
		"eligible", report.Eligible,
		"suppressed", report.Suppressed,
		"projects_notified", report.ProjectsNotified,
		"projects_failed", report.ProjectsFailed,
		"threads_created", report.ThreadsCreated,
	)

	return report, nil
}

// notifyProject posts the reminder for one group, reusing the project's
// active reminder thread when there is one. It reports whether a new thread
// was created.
func (s *NotifyService) notifyProject(ctx context.Context, project model.ClientProject, group model.ProjectGroup) (bool, error) {
	body, err := RenderReminder(group.Items, s.policy.StaleAfter)
	if err != nil {
		return false, &model.NotificationPostError{ProjectID: project.ProjectID, Err: err}
	}

	messages, err := s.client.ListMessages(ctx, project.ProjectID, project.MessageBoardID)
	if err != nil {
		return false, &model.NotificationPostError{ProjectID: project.ProjectID, Err: fmt.Errorf("looking up reminder thread: %w", err)}
	}

	if thread, ok := findReminderThread(messages, s.policy.ThreadMarker); ok {
		slog.Info("updating reminder thread", "project_id", project.ProjectID, "thread_id", thread.ID, "items", len(group.Items))
		if _, err := s.client.CreateComment(ctx, project.ProjectID, thread.ID, body); err != nil {
			return false, &model.NotificationPostError{ProjectID: project.ProjectID, Err: err}
		}
		return false, nil
	}

	slog.Info("creating reminder thread", "project_id", project.ProjectID, "items", len(group.Items))
	thread, err := s.client.CreateMessage(ctx, project.ProjectID, project.MessageBoardID, s.policy.ThreadSubject, "")
	if err != nil {
		return false, &model.NotificationPostError{ProjectID: project.ProjectID, Err: err}
	}
	if _, err := s.client.CreateComment(ctx, project.ProjectID, thread.ID, body); err != nil {
		// The empty thread is picked up on the next run.
		return true, &model.NotificationPostError{ProjectID: project.ProjectID, Err: err}
	}
	return true, nil
}

// record writes a history record for every item of a posted group and
// returns how many were written. A failed write only means the item may be
// reminded again before its cooldown ends.
func (s *NotifyService) record(ctx context.Context, group model.ProjectGroup) int {
	notifiedAt := s.now().UTC()

	var written int
	for _, item := range group.Items {
		rec := model.NotificationRecord{
			ItemID:     item.ID,
			ItemType:   item.Type,
			ProjectID:  item.ProjectID,
			NotifiedAt: notifiedAt,
		}
		if err := s.history.Upsert(ctx, rec); err != nil {
			slog.Error("recording notification failed", "item_id", item.ID, "item_type", item.Type, "error", err)
			continue
		}
		written++
	}
	return written
}

// findReminderThread returns the first active message whose title or subject
// contains marker.
func findReminderThread(messages []model.Message, marker string) (model.Message, bool) {
	if marker == "" {
		return model.Message{}, false
	}
	for _, m := range messages {
		if m.Status != model.RecordingStatusActive {
			continue
		}
		if strings.Contains(m.Title, marker) || strings.Contains(m.Subject, marker) {
			return m, true
		}
	}
	return model.Message{}, false
}
