package store

import (
	"context"
	"database/sql"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

const doctorColumns = `id, name, specialization, department, phone, email, bio, image_url, created_at`

func scanDoctor(row rowScanner) (*domain.Doctor, error) {
	var d domain.Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.Department, &d.Phone, &d.Email, &d.Bio, &d.ImageURL, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDoctor adds a doctor to the directory.
func (s *SQLiteStore) CreateDoctor(ctx context.Context, d *domain.Doctor) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = nowUTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO doctors (name, specialization, department, phone, email, bio, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Name, d.Specialization, d.Department, d.Phone, d.Email, d.Bio, d.ImageURL, d.CreatedAt)
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

// GetDoctor retrieves a doctor by id.
func (s *SQLiteStore) GetDoctor(ctx context.Context, id int64) (*domain.Doctor, error) {
	d, err := scanDoctor(s.db.QueryRowContext(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// ListDoctors returns the directory ordered by department then name.
func (s *SQLiteStore) ListDoctors(ctx context.Context) ([]domain.Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+doctorColumns+` FROM doctors ORDER BY department, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doctors := []domain.Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, *d)
	}
	return doctors, rows.Err()
}

// UpdateDoctor overwrites a doctor entry.
func (s *SQLiteStore) UpdateDoctor(ctx context.Context, d *domain.Doctor) (bool, error) {
	n, err := affected(s.db.ExecContext(ctx,
		`UPDATE doctors SET name = ?, specialization = ?, department = ?, phone = ?, email = ?, bio = ?, image_url = ? WHERE id = ?`,
		d.Name, d.Specialization, d.Department, d.Phone, d.Email, d.Bio, d.ImageURL, d.ID))
	return n > 0, err
}

// DeleteDoctor removes a doctor.
func (s *SQLiteStore) DeleteDoctor(ctx context.Context, id int64) (bool, error) {
	n, err := affected(s.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = ?`, id))
	return n > 0, err
}
