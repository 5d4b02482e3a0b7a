package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ActivityLogStorage is the append-only audit trail. Writes are best-effort
// from the services' point of view: a failed audit write is logged, never
// propagated into the business flow.
type ActivityLogStorage interface {
	Append(ctx context.Context, actor string, action string, detail string) error
}

type activityLogRepository struct {
	db *sql.DB
}

func NewActivityLogRepository(db *sql.DB) ActivityLogStorage {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Append(ctx context.Context, actor string, action string, detail string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO activity_log (actor, action, detail, created_at) VALUES ($1, $2, $3, NOW())",
		actor, action, detail)
	if err != nil {
		return fmt.Errorf("failed to append activity log: %w", err)
	}
	return nil
}
