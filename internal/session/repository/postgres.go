package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"splendoura/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, token_hash, expires_at, revoked_at, replaced_by_session_id, last_used_at, ip_address, user_agent, created_at`

// PostgresRepository persists sessions in the auth_sessions table.
type PostgresRepository struct {
	db *sql.DB // nil when transaction-scoped
	q  queryer
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewPostgresRepository returns a session repository backed by the given pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, q: db}
}

// InTx begins a read-committed transaction and runs fn against a
// transaction-scoped repository whose FindAny locks the row for update.
// Nested calls reuse the enclosing transaction.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	txRepo := &PostgresRepository{q: tx}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO auth_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt,
		timeToNull(s.RevokedAt), strToNull(s.ReplacedBySessionID), timeToNull(s.LastUsedAt),
		s.IPAddress, s.UserAgent, s.CreatedAt,
	)
	return err
}

// FindActive returns the non-revoked, unexpired session for id and userID, or
// nil if not found. Returns an error only for database failures.
func (r *PostgresRepository) FindActive(ctx context.Context, id, userID string, now time.Time) (*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM auth_sessions
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL AND expires_at > $3`
	if r.db == nil {
		query += ` FOR UPDATE`
	}
	return scanSession(r.q.QueryRowContext(ctx, query, id, userID, now))
}

// FindAny returns the session for id and userID regardless of state, or nil
// if not found. Inside a transaction the row is locked for update.
func (r *PostgresRepository) FindAny(ctx context.Context, id, userID string) (*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM auth_sessions
		WHERE id = $1 AND user_id = $2`
	if r.db == nil {
		query += ` FOR UPDATE`
	}
	return scanSession(r.q.QueryRowContext(ctx, query, id, userID))
}

// ListActiveForUser returns the user's active sessions, newest first.
func (r *PostgresRepository) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM auth_sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Revoke sets revoked_at on the session at the given time; a no-op if the
// session is already revoked (the earlier revocation time is kept).
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE auth_sessions SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL`, id, at)
	return err
}

// MarkRotated terminates the session as rotation's predecessor: revoked_at,
// last_used_at, and the forward pointer are set in one statement.
func (r *PostgresRepository) MarkRotated(ctx context.Context, id, replacementID string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = $2, last_used_at = $2, replaced_by_session_id = $3
		WHERE id = $1`, id, at, replacementID)
	return err
}

// RevokeAllForUser revokes every non-revoked session owned by the user.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE auth_sessions SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL`, userID, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	s, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSessionRow(row rowScanner) (*domain.Session, error) {
	var (
		s          domain.Session
		revokedAt  sql.NullTime
		replacedBy sql.NullString
		lastUsedAt sql.NullTime
		ipAddress  sql.NullString
		userAgent  sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt,
		&revokedAt, &replacedBy, &lastUsedAt,
		&ipAddress, &userAgent, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	if replacedBy.Valid {
		s.ReplacedBySessionID = &replacedBy.String
	}
	if lastUsedAt.Valid {
		s.LastUsedAt = &lastUsedAt.Time
	}
	s.IPAddress = ipAddress.String
	s.UserAgent = userAgent.String
	return &s, nil
}

func timeToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func strToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
