package store

import (
	"context"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// CreateAppointment books an appointment. Status defaults to pending.
func (s *SQLiteStore) CreateAppointment(ctx context.Context, a *domain.Appointment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = nowUTC()
	}
	if a.Status == "" {
		a.Status = domain.AppointmentStatusPending
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (patient_id, patient_name, phone, department, doctor_name, appointment_date, appointment_time, status, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.PatientID, a.PatientName, a.Phone, a.Department, a.DoctorName, a.AppointmentDate, a.AppointmentTime, a.Status, a.Notes, a.CreatedAt)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// ListAppointments returns appointments, latest slot first.
func (s *SQLiteStore) ListAppointments(ctx context.Context) ([]domain.Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, patient_id, patient_name, phone, department, doctor_name, appointment_date, appointment_time, status, notes, created_at
		 FROM appointments ORDER BY appointment_date DESC, appointment_time DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []domain.Appointment{}
	for rows.Next() {
		var a domain.Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.Phone, &a.Department, &a.DoctorName,
			&a.AppointmentDate, &a.AppointmentTime, &a.Status, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// UpdateAppointmentStatus sets the status of an appointment.
func (s *SQLiteStore) UpdateAppointmentStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (bool, error) {
	n, err := affected(s.db.ExecContext(ctx, `UPDATE appointments SET status = ? WHERE id = ?`, status, id))
	return n > 0, err
}
