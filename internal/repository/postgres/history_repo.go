package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
)

type HistoryRepo struct {
	DB        *sql.DB
	Retention time.Duration
}

func NewHistoryRepo(db *sql.DB, retention time.Duration) *HistoryRepo {
	return &HistoryRepo{DB: db, Retention: retention}
}

// Append records one login attempt. Callers treat this as fire-and-forget.
func (r *HistoryRepo) Append(ctx context.Context, rec domain.LoginRecord) error {
	query := `
	INSERT INTO login_history (identity_id, ip_address, user_agent, device_id, method, outcome)
	VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.DB.ExecContext(ctx, query,
		rec.IdentityID, rec.IPAddress, rec.UserAgent, rec.DeviceID, rec.Method, rec.Outcome)
	if err != nil {
		return fmt.Errorf("failed to append login history: %w", err)
	}
	return nil
}

// ListByIdentity returns recent entries, newest first. Rows past the
// retention window are excluded even before the purge worker removes them.
func (r *HistoryRepo) ListByIdentity(ctx context.Context, identityID int64, limit int) ([]domain.LoginRecord, error) {
	query := `
	SELECT id, identity_id, ip_address, user_agent, device_id, method, outcome, created_at
	FROM login_history
	WHERE identity_id = $1 AND created_at > $2
	ORDER BY created_at DESC
	LIMIT $3;
	`
	cutoff := time.Now().Add(-r.Retention)
	rows, err := r.DB.QueryContext(ctx, query, identityID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login history: %w", err)
	}
	defer rows.Close()

	records := make([]domain.LoginRecord, 0)
	for rows.Next() {
		var rec domain.LoginRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.IdentityID,
			&rec.IPAddress,
			&rec.UserAgent,
			&rec.DeviceID,
			&rec.Method,
			&rec.Outcome,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}

	return records, nil
}

// DeleteOlderThan purges entries created before the cutoff, standing in
// for a document-store TTL index.
func (r *HistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_history WHERE created_at < $1;`
	result, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge login history: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}
