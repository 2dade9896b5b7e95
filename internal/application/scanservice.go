package application

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// ScanPolicy holds the rules that decide which projects are scanned and
// which content counts as stale.
type ScanPolicy struct {
	// ProjectPattern selects client projects by name.
	ProjectPattern *regexp.Regexp
	// MaxProjectAge excludes projects created longer ago than this.
	MaxProjectAge time.Duration
	// MaxProjectIdle excludes projects not updated within this window.
	MaxProjectIdle time.Duration
	// StaleAfter is how long client content may go unanswered.
	StaleAfter time.Duration
	// Concurrency bounds how many projects are fetched at once.
	Concurrency int
}

// MatchClientProject reports whether p follows the client-project naming
// convention and is recent enough to be worth scanning.
func (p ScanPolicy) MatchClientProject(project model.Project, now time.Time) bool {
	if p.ProjectPattern == nil || !p.ProjectPattern.MatchString(project.Name) {
		return false
	}
	if p.MaxProjectAge > 0 && now.Sub(project.CreatedAt) > p.MaxProjectAge {
		return false
	}
	if p.MaxProjectIdle > 0 && now.Sub(project.UpdatedAt) > p.MaxProjectIdle {
		return false
	}
	return true
}

// IsStaleMessage reports whether a client message has waited longer than
// the staleness window without any reply.
func (p ScanPolicy) IsStaleMessage(m model.Message, now time.Time) bool {
	return m.Creator.Client && m.CommentsCount == 0 && p.olderThanWindow(m.CreatedAt, now)
}

// IsStaleComment reports whether a client comment has waited longer than
// the staleness window. Comments have no replies of their own; the caller
// passes only the latest comment of a thread.
func (p ScanPolicy) IsStaleComment(c model.Comment, now time.Time) bool {
	return c.Creator.Client && p.olderThanWindow(c.CreatedAt, now)
}

func (p ScanPolicy) olderThanWindow(created, now time.Time) bool {
	return !created.IsZero() && now.Sub(created) > p.StaleAfter
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	// Projects are the client projects selected for this run, in API order.
	Projects []model.ClientProject
	// Items are the stale client items, grouped by project in Projects order.
	Items []model.ContentItem
	// FailedProjects counts projects whose messages could not be fetched.
	FailedProjects int
}

// ScanService finds client content that has gone unanswered.
type ScanService struct {
	client driven.BasecampClient
	policy ScanPolicy
	now    func() time.Time
}

// NewScanService creates a new ScanService with the required dependencies.
func NewScanService(client driven.BasecampClient, policy ScanPolicy) *ScanService {
	if policy.Concurrency < 1 {
		policy.Concurrency = 1
	}
	return &ScanService{
		client: client,
		policy: policy,
		now:    time.Now,
	}
}

// Scan selects the client projects and collects their stale items. Fetch
// failures degrade to empty results and are logged; only cancellation of
// ctx is returned as an error.
func (s *ScanService) Scan(ctx context.Context) (ScanResult, error) {
	start := s.now()

	projects, err := s.client.ListProjects(ctx)
	if err != nil {
		slog.Error("fetching projects failed", "error", err)
		return ScanResult{}, ctx.Err()
	}

	var result ScanResult
	for _, p := range projects {
		if !s.policy.MatchClientProject(p, start) {
			continue
		}
		boardID, _ := p.MessageBoardID()
		result.Projects = append(result.Projects, model.ClientProject{
			ProjectID:      p.ID,
			Name:           p.Name,
			MessageBoardID: boardID,
		})
	}

	// Each project writes only its own slot so the merge below is
	// independent of completion order.
	perProject := make([][]model.ContentItem, len(result.Projects))
	failed := make([]bool, len(result.Projects))

	var g errgroup.Group
	g.SetLimit(s.policy.Concurrency)

	for i, cp := range result.Projects {
		if !cp.HasMessageBoard() {
			slog.Debug("project has no message board, skipping", "project_id", cp.ProjectID, "project", cp.Name)
			continue
		}

		g.Go(func() error {
			items, err := s.scanProject(ctx, cp, start)
			if err != nil {
				slog.Error("project scan failed", "project_id", cp.ProjectID, "project", cp.Name, "error", err)
				failed[i] = true
				return nil
			}
			perProject[i] = items
			return nil
		})
	}
	_ = g.Wait()

	for i := range result.Projects {
		result.Items = append(result.Items, perProject[i]...)
		if failed[i] {
			result.FailedProjects++
		}
	}

	slog.Info("scan complete",
		"projects_total", len(projects),
		"client_projects", len(result.Projects),
		"items", len(result.Items),
		"failed_projects", result.FailedProjects,
		"duration", s.now().Sub(start).Round(time.Millisecond),
	)

	return result, ctx.Err()
}

// scanProject collects the stale items of one project. A failed comment
// fetch skips that message's comment check; a failed message fetch fails
// the whole project.
func (s *ScanService) scanProject(ctx context.Context, cp model.ClientProject, now time.Time) ([]model.ContentItem, error) {
	messages, err := s.client.ListMessages(ctx, cp.ProjectID, cp.MessageBoardID)
	if err != nil {
		return nil, err
	}

	var items []model.ContentItem
	for _, msg := range messages {
		if s.policy.IsStaleMessage(msg, now) {
			items = append(items, messageItem(cp.ProjectID, msg))
		}

		if msg.CommentsCount == 0 {
			continue
		}

		comments, err := s.client.ListComments(ctx, cp.ProjectID, msg.ID)
		if err != nil {
			slog.Warn("fetching comments failed, skipping comment check",
				"project_id", cp.ProjectID, "message_id", msg.ID, "error", err)
			continue
		}
		if len(comments) == 0 {
			continue
		}

		latest := comments[len(comments)-1]
		if s.policy.IsStaleComment(latest, now) {
			items = append(items, commentItem(cp.ProjectID, msg, latest))
		}
	}

	slog.Debug("project scanned", "project_id", cp.ProjectID, "messages", len(messages), "items", len(items))
	return items, nil
}

func messageItem(projectID int64, msg model.Message) model.ContentItem {
	return model.ContentItem{
		ID:            msg.ID,
		Type:          model.ItemTypeMessage,
		ProjectID:     projectID,
		Subject:       messageSubject(msg),
		URL:           msg.URL,
		AppURL:        msg.AppURL,
		CreatedAt:     msg.CreatedAt,
		CommentsCount: msg.CommentsCount,
	}
}

func commentItem(projectID int64, msg model.Message, c model.Comment) model.ContentItem {
	return model.ContentItem{
		ID:        c.ID,
		Type:      model.ItemTypeComment,
		ProjectID: projectID,
		Subject:   "Comment on: " + messageSubject(msg),
		URL:       c.URL,
		AppURL:    c.AppURL,
		CreatedAt: c.CreatedAt,
	}
}

func messageSubject(msg model.Message) string {
	if msg.Subject != "" {
		return msg.Subject
	}
	return msg.Title
}
