package store

import (
	"context"
	"database/sql"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

const visitColumns = `id, patient_id, visit_date, department, doctor_name, notes, created_at`

// CreateVisit records a visit for an existing patient.
func (s *SQLiteStore) CreateVisit(ctx context.Context, v *domain.Visit) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = nowUTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO patient_visits (patient_id, visit_date, department, doctor_name, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		v.PatientID, v.VisitDate, v.Department, v.DoctorName, v.Notes, v.CreatedAt)
	if err != nil {
		return err
	}
	v.ID, err = res.LastInsertId()
	return err
}

// ListVisits returns every visit, most recent visit date first.
func (s *SQLiteStore) ListVisits(ctx context.Context) ([]domain.Visit, error) {
	return s.queryVisits(ctx, `SELECT `+visitColumns+` FROM patient_visits ORDER BY visit_date DESC, id DESC`)
}

// ListVisitsByPatient returns the visits of one patient.
func (s *SQLiteStore) ListVisitsByPatient(ctx context.Context, patientID string) ([]domain.Visit, error) {
	return s.queryVisits(ctx,
		`SELECT `+visitColumns+` FROM patient_visits WHERE patient_id = ? ORDER BY visit_date DESC, id DESC`, patientID)
}

func (s *SQLiteStore) queryVisits(ctx context.Context, query string, args ...any) ([]domain.Visit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visits := []domain.Visit{}
	for rows.Next() {
		var v domain.Visit
		var notes sql.NullString
		if err := rows.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.Department, &v.DoctorName, &notes, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Notes = notes.String
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
