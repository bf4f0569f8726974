package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrProfileExists = errors.New("profile already completed")
)

type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
	Insert(ctx context.Context, p *Profile) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, first_name, last_name, email, address, city, postal_code, phone, updated_at
         FROM user_profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.Address, &p.City, &p.PostalCode, &p.Phone, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return &p, nil
}

func (r *repo) Upsert(ctx context.Context, p *Profile) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_profiles (user_id, first_name, last_name, email, address, city, postal_code, phone)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         ON CONFLICT (user_id) DO UPDATE
         SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, email = EXCLUDED.email,
             address = EXCLUDED.address, city = EXCLUDED.city, postal_code = EXCLUDED.postal_code,
             phone = EXCLUDED.phone, updated_at = now()
         RETURNING updated_at`,
		p.UserID, p.FirstName, p.LastName, p.Email, p.Address, p.City, p.PostalCode, p.Phone,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Insert creates the profile only if the user has none yet.
func (r *repo) Insert(ctx context.Context, p *Profile) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_profiles (user_id, first_name, last_name, email, address, city, postal_code, phone)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         ON CONFLICT (user_id) DO NOTHING
         RETURNING updated_at`,
		p.UserID, p.FirstName, p.LastName, p.Email, p.Address, p.City, p.PostalCode, p.Phone,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProfileExists
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}
