package driven

import (
	"context"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
)

// HistoryStore defines the driven port for notification history persistence.
// Records are unique per (item id, item type) and are never deleted.
type HistoryStore interface {
	// ListAll returns every notification record.
	ListAll(ctx context.Context) ([]model.NotificationRecord, error)

	// Upsert inserts the record or refreshes NotifiedAt and ProjectID of the
	// existing record with the same key.
	Upsert(ctx context.Context, rec model.NotificationRecord) error
}
