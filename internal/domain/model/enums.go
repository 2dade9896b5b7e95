package model

// ItemType distinguishes the two kinds of client content that can go stale.
type ItemType string

const (
	ItemTypeMessage ItemType = "Message"
	ItemTypeComment ItemType = "Comment"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeMessage || t == ItemTypeComment
}

// RecordingStatus is the lifecycle status Basecamp reports for a recording.
type RecordingStatus string

const (
	RecordingStatusActive   RecordingStatus = "active"
	RecordingStatusArchived RecordingStatus = "archived"
	RecordingStatusTrashed  RecordingStatus = "trashed"
)

// DockMessageBoard is the dock tool name of a project's message board.
const DockMessageBoard = "message_board"
