package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
)

type ProfileRepo struct {
	DB *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db}
}

// Create inserts a new profile and fills in its id. Profiles are created
// before their owning identity.
func (r *ProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	query := `
	INSERT INTO profiles (first_name, last_name, avatar_url, bio, location, created_ip)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at;
	`
	err := r.DB.QueryRowContext(ctx, query,
		profile.FirstName,
		profile.LastName,
		profile.AvatarURL,
		profile.Bio,
		profile.Location,
		profile.CreatedIP,
	).Scan(&profile.ID, &profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// FindByID retrieves a profile by id.
func (r *ProfileRepo) FindByID(ctx context.Context, id int64) (*domain.Profile, error) {
	query := `
	SELECT id, first_name, last_name, avatar_url, bio, location, created_ip, created_at
	FROM profiles WHERE id = $1;
	`
	var profile domain.Profile
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.FirstName,
		&profile.LastName,
		&profile.AvatarURL,
		&profile.Bio,
		&profile.Location,
		&profile.CreatedIP,
		&profile.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// UpdateAvatar updates a profile's avatar URL.
func (r *ProfileRepo) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	query := `UPDATE profiles SET avatar_url = $2 WHERE id = $1;`
	if _, err := r.DB.ExecContext(ctx, query, id, avatarURL); err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return nil
}
