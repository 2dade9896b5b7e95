package model

import "time"

// Dock is one tool linked to a project (message board, todoset, schedule, ...).
type Dock struct {
	ID      int64
	Name    string
	Title   string
	Enabled bool
	URL     string
}

// Project is a Basecamp project as listed by /projects.json.
type Project struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Dock      []Dock
}

// MessageBoardID returns the id of the project's message board tool.
// The second return value is false when the project has no message board.
func (p Project) MessageBoardID() (int64, bool) {
	for _, d := range p.Dock {
		if d.Name == DockMessageBoard && d.ID != 0 {
			return d.ID, true
		}
	}
	return 0, false
}

// ClientProject is a project selected for scanning during one run.
// MessageBoardID is zero when the project has no message board.
type ClientProject struct {
	ProjectID      int64
	Name           string
	MessageBoardID int64
}

// HasMessageBoard reports whether messages can be fetched for the project.
func (p ClientProject) HasMessageBoard() bool {
	return p.MessageBoardID != 0
}
