package model

import "time"

// Person is the creator of a recording.
type Person struct {
	ID     int64
	Name   string
	Client bool
}

// Message is a message board post.
type Message struct {
	ID            int64
	Subject       string
	Title         string
	Status        RecordingStatus
	URL           string
	AppURL        string
	CommentsCount int
	CreatedAt     time.Time
	Creator       Person
}

// Comment is a reply on a recording.
type Comment struct {
	ID        int64
	URL       string
	AppURL    string
	CreatedAt time.Time
	Creator   Person
}

// ItemKey identifies a content item across runs.
type ItemKey struct {
	ID   int64
	Type ItemType
}

// ContentItem is a stale, unanswered piece of client content found by a scan.
type ContentItem struct {
	ID            int64
	Type          ItemType
	ProjectID     int64
	Subject       string
	URL           string
	AppURL        string
	CreatedAt     time.Time
	CommentsCount int // messages only
}

// Key returns the deduplication key of the item.
func (c ContentItem) Key() ItemKey {
	return ItemKey{ID: c.ID, Type: c.Type}
}
