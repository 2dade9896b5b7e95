// Package basecamp implements the BasecampClient port on top of a
// retry-aware API gateway.
package basecamp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BasecampClient = (*Client)(nil)

// maxPages stops a misbehaving Link header from paging forever.
const maxPages = 1000

// Client implements the driven.BasecampClient port.
type Client struct {
	gw *Gateway
}

// NewClient creates a Client that issues every call through gw.
func NewClient(gw *Gateway) *Client {
	return &Client{gw: gw}
}

// ListProjects retrieves all active projects, following pagination.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	items, err := getAll[apiProject](ctx, c.gw, "/projects.json")
	if err != nil {
		return nil, &model.TransientFetchError{Op: "list projects", Err: err}
	}

	projects := make([]model.Project, 0, len(items))
	for _, p := range items {
		projects = append(projects, mapProject(p))
	}
	return projects, nil
}

// ListMessages retrieves every message on a project's message board.
func (c *Client) ListMessages(ctx context.Context, projectID, boardID int64) ([]model.Message, error) {
	path := fmt.Sprintf("/buckets/%d/message_boards/%d/messages.json", projectID, boardID)
	items, err := getAll[apiMessage](ctx, c.gw, path)
	if err != nil {
		return nil, &model.TransientFetchError{Op: fmt.Sprintf("list messages for project %d", projectID), Err: err}
	}

	messages := make([]model.Message, 0, len(items))
	for _, m := range items {
		messages = append(messages, mapMessage(m))
	}
	return messages, nil
}

// ListComments retrieves every comment on a recording, oldest first.
func (c *Client) ListComments(ctx context.Context, projectID, recordingID int64) ([]model.Comment, error) {
	path := fmt.Sprintf("/buckets/%d/recordings/%d/comments.json", projectID, recordingID)
	items, err := getAll[apiComment](ctx, c.gw, path)
	if err != nil {
		return nil, &model.TransientFetchError{Op: fmt.Sprintf("list comments for recording %d", recordingID), Err: err}
	}

	comments := make([]model.Comment, 0, len(items))
	for _, cm := range items {
		comments = append(comments, mapComment(cm))
	}
	return comments, nil
}

// CreateMessage posts an active message on a message board.
func (c *Client) CreateMessage(ctx context.Context, projectID, boardID int64, subject, content string) (model.Message, error) {
	path := fmt.Sprintf("/buckets/%d/message_boards/%d/messages.json", projectID, boardID)
	req := createMessageRequest{
		Subject: subject,
		Content: content,
		Status:  string(model.RecordingStatusActive),
	}

	var created apiMessage
	if err := c.gw.Post(ctx, path, req, &created); err != nil {
		return model.Message{}, fmt.Errorf("creating message in project %d: %w", projectID, err)
	}
	return mapMessage(created), nil
}

// CreateComment adds a comment to a recording.
func (c *Client) CreateComment(ctx context.Context, projectID, recordingID int64, content string) (model.Comment, error) {
	path := fmt.Sprintf("/buckets/%d/recordings/%d/comments.json", projectID, recordingID)

	var created apiComment
	if err := c.gw.Post(ctx, path, createCommentRequest{Content: content}, &created); err != nil {
		return model.Comment{}, fmt.Errorf("commenting on recording %d in project %d: %w", recordingID, projectID, err)
	}
	return mapComment(created), nil
}

// GetProfile returns the person the current credential belongs to.
func (c *Client) GetProfile(ctx context.Context) (model.Identity, error) {
	var p apiPerson
	if _, err := c.gw.Get(ctx, "/my/profile.json", &p); err != nil {
		return model.Identity{}, &model.TransientFetchError{Op: "get profile", Err: err}
	}
	return model.Identity{
		ID:           p.ID,
		Name:         p.Name,
		EmailAddress: p.EmailAddress,
		Client:       p.Client,
	}, nil
}

// getAll fetches path and every page linked from it.
func getAll[T any](ctx context.Context, gw *Gateway, path string) ([]T, error) {
	var all []T
	for page := 1; path != ""; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("pagination exceeded %d pages", maxPages)
		}

		var items []T
		next, err := gw.Get(ctx, path, &items)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		slog.Debug("fetched page", "path", path, "page", page, "count", len(items))

		all = append(all, items...)
		path = next
	}
	return all, nil
}
