package store

import (
	"context"
	"database/sql"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// GetAdmin retrieves the operator credential by username.
func (s *SQLiteStore) GetAdmin(ctx context.Context, username string) (*domain.Admin, error) {
	var a domain.Admin
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password, created_at FROM admins WHERE username = ?`, username).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAdmin creates the operator account unless it already exists. An
// existing password is never overwritten.
func (s *SQLiteStore) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO admins (username, password, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, nowUTC())
	return err
}
