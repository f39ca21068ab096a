package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is the subset of pgxpool.Pool used by PGRepository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGRepository stores login activity in PostgreSQL.
type PGRepository struct {
	db DB
}

// NewRepository constructs a PGRepository.
func NewRepository(db DB) *PGRepository {
	return &PGRepository{db: db}
}

const insertLogin = `
INSERT INTO login_activity (session_id, user_id, email, role, login_time, user_agent, ip_address)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id) DO NOTHING`

// InsertLogin writes row unless the session was already recorded.
func (r *PGRepository) InsertLogin(ctx context.Context, row TimelineRow) error {
	_, err := r.db.Exec(ctx, insertLogin,
		row.SessionID,
		row.UserID,
		row.Email,
		row.Role,
		row.LoginTime,
		optionalText(row.UserAgent),
		optionalText(row.IPAddress),
	)
	if err != nil {
		return fmt.Errorf("audit: insert login: %w", err)
	}
	return nil
}

const selectTimeline = `
SELECT session_id, user_id, email, role, login_time, COALESCE(user_agent, ''), COALESCE(ip_address, '')
FROM login_activity
WHERE ($1::timestamptz IS NULL OR login_time >= $1)
  AND ($2::timestamptz IS NULL OR login_time < $2)
  AND ($3::text IS NULL OR user_id = $3)
  AND ($4::text IS NULL OR role = $4)
ORDER BY login_time DESC, session_id
OFFSET $5
LIMIT $6`

// LoginTimeline lists activity newest first. A zero limit returns every row.
func (r *PGRepository) LoginTimeline(ctx context.Context, p TimelineParams) ([]TimelineRow, error) {
	var limit pgtype.Int8
	if p.Limit > 0 {
		limit = pgtype.Int8{Int64: int64(p.Limit), Valid: true}
	}
	rows, err := r.db.Query(ctx, selectTimeline,
		toPgTime(p.From),
		toPgTime(p.To),
		optionalText(p.UserID),
		optionalText(p.Role),
		p.Offset,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query timeline: %w", err)
	}
	defer rows.Close()

	result := make([]TimelineRow, 0)
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.SessionID, &row.UserID, &row.Email, &row.Role, &row.LoginTime, &row.UserAgent, &row.IPAddress); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// PruneLogins deletes activity recorded before the cutoff.
func (r *PGRepository) PruneLogins(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM login_activity WHERE login_time < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("audit: prune logins: %w", err)
	}
	return tag.RowsAffected(), nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

var _ Repository = (*PGRepository)(nil)
