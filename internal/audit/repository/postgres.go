package repository

import (
	"context"
	"database/sql"

	"splendoura/backend/internal/audit/domain"
)

// PostgresRepository persists security events in the security_events table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a security event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the event to the database. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.SecurityEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO security_events (id, user_id, session_id, action, reason, ip_address, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, nullIfEmpty(e.UserID), nullIfEmpty(e.SessionID),
		e.Action, e.Reason, e.IP, e.Metadata, e.CreatedAt)
	return err
}

// ListByUser returns security events for the given user, newest first,
// paginated by limit and offset.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.SecurityEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, action, reason, ip_address, metadata, created_at
		FROM security_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SecurityEvent
	for rows.Next() {
		var (
			e        domain.SecurityEvent
			uid, sid sql.NullString
		)
		if err := rows.Scan(&e.ID, &uid, &sid, &e.Action, &e.Reason, &e.IP, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = uid.String
		e.SessionID = sid.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
