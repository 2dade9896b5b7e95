package driven

import (
	"context"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
)

// BasecampClient defines the driven port for the Basecamp resource API.
// Read methods return *model.TransientFetchError on failure. List methods
// follow pagination and return every page.
type BasecampClient interface {
	// ListProjects returns all active projects visible to the credential.
	ListProjects(ctx context.Context) ([]model.Project, error)

	// ListMessages returns the messages posted on a message board.
	ListMessages(ctx context.Context, projectID, boardID int64) ([]model.Message, error)

	// ListComments returns the comments on a recording, oldest first.
	ListComments(ctx context.Context, projectID, recordingID int64) ([]model.Comment, error)

	// CreateMessage posts a new active message on a message board.
	CreateMessage(ctx context.Context, projectID, boardID int64, subject, content string) (model.Message, error)

	// CreateComment adds a comment to a recording.
	CreateComment(ctx context.Context, projectID, recordingID int64, content string) (model.Comment, error)

	// GetProfile returns the identity that owns the current credential.
	GetProfile(ctx context.Context) (model.Identity, error)
}
