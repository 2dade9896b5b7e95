package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HistoryStore = (*HistoryRepo)(nil)

func init() {
	// modernc.org/sqlite registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// historyRow mirrors one notification_history row.
type historyRow struct {
	ItemID     int64  `db:"item_id"`
	ItemType   string `db:"item_type"`
	ProjectID  int64  `db:"project_id"`
	NotifiedAt string `db:"notified_at"`
}

// HistoryRepo is the SQLite implementation of the HistoryStore port.
type HistoryRepo struct {
	reader *sqlx.DB
	writer *sqlx.DB
}

// NewHistoryRepo creates a new HistoryRepo backed by the given database.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{
		reader: sqlx.NewDb(db.Reader, "sqlite"),
		writer: sqlx.NewDb(db.Writer, "sqlite"),
	}
}

// ListAll returns every notification record ordered by insertion.
func (r *HistoryRepo) ListAll(ctx context.Context) ([]model.NotificationRecord, error) {
	const query = `SELECT item_id, item_type, project_id, notified_at FROM notification_history ORDER BY id`

	var rows []historyRow
	if err := r.reader.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list notification history: %w", err)
	}

	records := make([]model.NotificationRecord, 0, len(rows))
	for _, row := range rows {
		notifiedAt, err := parseTime(row.NotifiedAt)
		if err != nil {
			return nil, fmt.Errorf("parse notified_at for %s %d: %w", row.ItemType, row.ItemID, err)
		}
		records = append(records, model.NotificationRecord{
			ItemID:     row.ItemID,
			ItemType:   model.ItemType(row.ItemType),
			ProjectID:  row.ProjectID,
			NotifiedAt: notifiedAt,
		})
	}

	return records, nil
}

// Upsert inserts the record, or refreshes notified_at and project_id when a
// record with the same (item_id, item_type) already exists.
func (r *HistoryRepo) Upsert(ctx context.Context, rec model.NotificationRecord) error {
	if !rec.ItemType.Valid() {
		return fmt.Errorf("upsert notification history: invalid item type %q", rec.ItemType)
	}

	const query = `
		INSERT INTO notification_history (item_id, item_type, project_id, notified_at)
		VALUES (:item_id, :item_type, :project_id, :notified_at)
		ON CONFLICT(item_id, item_type) DO UPDATE SET
			project_id = excluded.project_id,
			notified_at = excluded.notified_at`

	row := historyRow{
		ItemID:     rec.ItemID,
		ItemType:   string(rec.ItemType),
		ProjectID:  rec.ProjectID,
		NotifiedAt: formatTime(rec.NotifiedAt),
	}
	if _, err := r.writer.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert notification history %s %d: %w", rec.ItemType, rec.ItemID, err)
	}
	return nil
}
