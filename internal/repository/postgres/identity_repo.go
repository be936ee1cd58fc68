package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
)

type IdentityRepo struct {
	DB *sql.DB
}

func NewIdentityRepo(db *sql.DB) *IdentityRepo {
	return &IdentityRepo{DB: db}
}

const identitySelectFields = `id, email, username, password_hash, role, is_locked, lock_until,
	google_subject_id, google_email, registration_method, is_email_verified, profile_id, created_at`

// scanIdentity is a helper that scans a row into an Identity
func scanIdentity(row interface{ Scan(dest ...any) error }) (*domain.Identity, error) {
	var identity domain.Identity
	var lockUntil sql.NullTime
	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.Username,
		&identity.PasswordHash,
		&identity.Role,
		&identity.IsLocked,
		&lockUntil,
		&identity.GoogleSubjectID,
		&identity.GoogleEmail,
		&identity.RegistrationMethod,
		&identity.IsEmailVerified,
		&identity.ProfileID,
		&identity.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lockUntil.Valid {
		identity.LockUntil = lockUntil.Time
	}
	return &identity, nil
}

// FindByIdentifier retrieves an identity by email OR username.
func (r *IdentityRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.Identity, error) {
	query := `SELECT ` + identitySelectFields + ` FROM identities WHERE email = $1 OR username = $1;`
	identity, err := scanIdentity(r.DB.QueryRowContext(ctx, query, identifier))
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return identity, nil
}

// FindByEmail retrieves an identity by email.
func (r *IdentityRepo) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	query := `SELECT ` + identitySelectFields + ` FROM identities WHERE email = $1;`
	identity, err := scanIdentity(r.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return identity, nil
}

// FindByID retrieves an identity by id.
func (r *IdentityRepo) FindByID(ctx context.Context, id int64) (*domain.Identity, error) {
	query := `SELECT ` + identitySelectFields + ` FROM identities WHERE id = $1;`
	identity, err := scanIdentity(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return identity, nil
}

// FindByGoogleLink retrieves the identity whose email AND google link both
// match the provider assertion.
func (r *IdentityRepo) FindByGoogleLink(ctx context.Context, email, subjectID string) (*domain.Identity, error) {
	query := `SELECT ` + identitySelectFields + ` FROM identities WHERE email = $1 AND google_subject_id = $2;`
	identity, err := scanIdentity(r.DB.QueryRowContext(ctx, query, email, subjectID))
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return identity, nil
}

// UsernameTaken reports whether a username is already in use.
func (r *IdentityRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM identities WHERE username = $1);`
	if err := r.DB.QueryRowContext(ctx, query, username).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return taken, nil
}

// Create inserts a new identity and fills in its id. Unique violations on
// email or username surface as ConflictError naming the taken field.
func (r *IdentityRepo) Create(ctx context.Context, identity *domain.Identity) error {
	query := `
	INSERT INTO identities (email, username, password_hash, role, google_subject_id, google_email,
		registration_method, is_email_verified, profile_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id, created_at;
	`
	err := r.DB.QueryRowContext(ctx, query,
		identity.Email,
		identity.Username,
		identity.PasswordHash,
		identity.Role,
		identity.GoogleSubjectID,
		identity.GoogleEmail,
		identity.RegistrationMethod,
		identity.IsEmailVerified,
		identity.ProfileID,
	).Scan(&identity.ID, &identity.CreatedAt)
	if err != nil {
		if conflict := asConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

// StoreGoogleLink records a verified google link on an identity.
func (r *IdentityRepo) StoreGoogleLink(ctx context.Context, identityID int64, subjectID, email string) error {
	query := `UPDATE identities SET google_subject_id = $2, google_email = $3 WHERE id = $1;`
	if _, err := r.DB.ExecContext(ctx, query, identityID, subjectID, email); err != nil {
		return fmt.Errorf("failed to store google link: %w", err)
	}
	return nil
}

// UpsertSession atomically records a login from a device: a repeat login
// from the same device bumps last_used_at, a new device appends a row.
// The conditional upsert keeps concurrent logins for one identity from
// losing each other's entries.
func (r *IdentityRepo) UpsertSession(ctx context.Context, identityID int64, refreshToken string, device domain.DeviceContext) error {
	query := `
	INSERT INTO identity_sessions (identity_id, refresh_token, ip_address, user_agent, device_id)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (identity_id, device_id)
	DO UPDATE SET last_used_at = now();
	`
	_, err := r.DB.ExecContext(ctx, query, identityID, refreshToken, device.IPAddress, device.UserAgent, device.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes the session row for one device. It reports whether
// a row actually existed.
func (r *IdentityRepo) DeleteSession(ctx context.Context, identityID int64, deviceID string) (bool, error) {
	query := `DELETE FROM identity_sessions WHERE identity_id = $1 AND device_id = $2;`
	result, err := r.DB.ExecContext(ctx, query, identityID, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// SessionsByIdentity lists the identity's active device sessions, newest first.
func (r *IdentityRepo) SessionsByIdentity(ctx context.Context, identityID int64) ([]domain.DeviceSession, error) {
	query := `
	SELECT id, identity_id, refresh_token, ip_address, user_agent, device_id, created_at, last_used_at
	FROM identity_sessions
	WHERE identity_id = $1
	ORDER BY last_used_at DESC;
	`
	rows, err := r.DB.QueryContext(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.DeviceSession, 0)
	for rows.Next() {
		var s domain.DeviceSession
		if err := rows.Scan(
			&s.ID,
			&s.IdentityID,
			&s.RefreshToken,
			&s.IPAddress,
			&s.UserAgent,
			&s.DeviceID,
			&s.CreatedAt,
			&s.LastUsedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}

	return sessions, nil
}

// asConflict maps Postgres unique violations onto the error taxonomy,
// naming the actually conflicting field.
func asConflict(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "identities_email_key":
		return domain.Wrap(domain.KindConflict, "email already in use", err)
	case "identities_username_key":
		return domain.Wrap(domain.KindConflict, "username already taken", err)
	}
	return domain.Wrap(domain.KindConflict, "duplicate record", err)
}
