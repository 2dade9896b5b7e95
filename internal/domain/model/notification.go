package model

import "time"

// NotificationRecord remembers when a content item was last included in a reminder.
// At most one record exists per (ItemID, ItemType).
type NotificationRecord struct {
	ItemID     int64
	ItemType   ItemType
	ProjectID  int64
	NotifiedAt time.Time
}

// Key returns the deduplication key of the record.
func (r NotificationRecord) Key() ItemKey {
	return ItemKey{ID: r.ItemID, Type: r.ItemType}
}

// ProjectGroup holds the items of one project that go into a single reminder.
type ProjectGroup struct {
	ProjectID int64
	Items     []ContentItem
}
