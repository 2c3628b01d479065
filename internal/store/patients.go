package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

const patientColumns = `id, patient_id, name, email, age, gender, phone, address, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*domain.Patient, error) {
	var p domain.Patient
	var email, gender, phone, address sql.NullString
	var age sql.NullInt64
	if err := row.Scan(&p.ID, &p.PatientID, &p.Name, &email, &age, &gender, &phone, &address, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Email = email.String
	p.Gender = gender.String
	p.Phone = phone.String
	p.Address = address.String
	if age.Valid {
		a := int(age.Int64)
		p.Age = &a
	}
	return &p, nil
}

func nullAge(age *int) sql.NullInt64 {
	if age == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*age), Valid: true}
}

// CreatePatient inserts a patient. PatientID must already be assigned.
func (s *SQLiteStore) CreatePatient(ctx context.Context, p *domain.Patient) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = nowUTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (patient_id, name, email, age, gender, phone, address, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PatientID, p.Name, nullString(p.Email), nullAge(p.Age), nullString(p.Gender), nullString(p.Phone), nullString(p.Address), p.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("patient %s: %w", p.PatientID, domain.ErrConflict)
	}
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

// GetPatient retrieves a patient by its public patient id.
func (s *SQLiteStore) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	p, err := scanPatient(s.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE patient_id = ?`, patientID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListPatients returns all patients, newest first.
func (s *SQLiteStore) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := []domain.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, *p)
	}
	return patients, rows.Err()
}

// UpdatePatient overwrites the editable fields. It reports false when no
// patient has the given patient id.
func (s *SQLiteStore) UpdatePatient(ctx context.Context, p *domain.Patient) (bool, error) {
	n, err := affected(s.db.ExecContext(ctx,
		`UPDATE patients SET name = ?, email = ?, age = ?, gender = ?, phone = ?, address = ? WHERE patient_id = ?`,
		p.Name, nullString(p.Email), nullAge(p.Age), nullString(p.Gender), nullString(p.Phone), nullString(p.Address), p.PatientID))
	return n > 0, err
}

// DeletePatient removes a patient; visits cascade.
func (s *SQLiteStore) DeletePatient(ctx context.Context, patientID string) (bool, error) {
	n, err := affected(s.db.ExecContext(ctx, `DELETE FROM patients WHERE patient_id = ?`, patientID))
	return n > 0, err
}
