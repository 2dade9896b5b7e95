package basecamp

import (
	"time"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
)

// Wire types for the subset of the Basecamp 4 JSON API this client reads.

type apiPerson struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	Client       bool   `json:"client"`
}

type apiDock struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

type apiProject struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Dock      []apiDock `json:"dock"`
}

type apiMessage struct {
	ID            int64     `json:"id"`
	Status        string    `json:"status"`
	Title         string    `json:"title"`
	Subject       string    `json:"subject"`
	URL           string    `json:"url"`
	AppURL        string    `json:"app_url"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	Creator       apiPerson `json:"creator"`
}

type apiComment struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	URL       string    `json:"url"`
	AppURL    string    `json:"app_url"`
	CreatedAt time.Time `json:"created_at"`
	Creator   apiPerson `json:"creator"`
}

type createMessageRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

func mapPerson(p apiPerson) model.Person {
	return model.Person{ID: p.ID, Name: p.Name, Client: p.Client}
}

func mapProject(p apiProject) model.Project {
	docks := make([]model.Dock, 0, len(p.Dock))
	for _, d := range p.Dock {
		docks = append(docks, model.Dock{
			ID:      d.ID,
			Name:    d.Name,
			Title:   d.Title,
			Enabled: d.Enabled,
			URL:     d.URL,
		})
	}
	return model.Project{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
		Dock:      docks,
	}
}

func mapMessage(m apiMessage) model.Message {
	return model.Message{
		ID:            m.ID,
		Subject:       m.Subject,
		Title:         m.Title,
		Status:        model.RecordingStatus(m.Status),
		URL:           m.URL,
		AppURL:        m.AppURL,
		CommentsCount: m.CommentsCount,
		CreatedAt:     m.CreatedAt.UTC(),
		Creator:       mapPerson(m.Creator),
	}
}

func mapComment(c apiComment) model.Comment {
	return model.Comment{
		ID:        c.ID,
		URL:       c.URL,
		AppURL:    c.AppURL,
		CreatedAt: c.CreatedAt.UTC(),
		Creator:   mapPerson(c.Creator),
	}
}
