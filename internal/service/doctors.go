package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

func doctorFromInput(in domain.DoctorInput) (*domain.Doctor, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Department) == "" {
		return nil, domain.Invalid("name and department are required")
	}
	return &domain.Doctor{
		Name:           strings.TrimSpace(in.Name),
		Specialization: in.Specialization,
		Department:     strings.TrimSpace(in.Department),
		Phone:          in.Phone,
		Email:          in.Email,
		Bio:            in.Bio,
		ImageURL:       in.ImageURL,
	}, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]domain.Doctor, error) {
	doctors, err := s.store.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) AddDoctor(ctx context.Context, in domain.DoctorInput) (*domain.Doctor, error) {
	d, err := doctorFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateDoctor(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}
	return d, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id int64, in domain.DoctorInput) (*domain.Doctor, error) {
	d, err := doctorFromInput(in)
	if err != nil {
		return nil, err
	}
	d.ID = id
	ok, err := s.store.UpdateDoctor(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.store.GetDoctor(ctx, id)
}

func (s *Service) DeleteDoctor(ctx context.Context, id int64) error {
	ok, err := s.store.DeleteDoctor(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) BookAppointment(ctx context.Context, in domain.AppointmentInput) (*domain.Appointment, error) {
	if strings.TrimSpace(in.PatientName) == "" || strings.TrimSpace(in.Phone) == "" {
		return nil, domain.Invalid("patient_name and phone are required")
	}
	if strings.TrimSpace(in.AppointmentDate) == "" || strings.TrimSpace(in.AppointmentTime) == "" {
		return nil, domain.Invalid("appointment_date and appointment_time are required")
	}

	a := &domain.Appointment{
		PatientID:       in.PatientID,
		PatientName:     strings.TrimSpace(in.PatientName),
		Phone:           strings.TrimSpace(in.Phone),
		Department:      in.Department,
		DoctorName:      in.DoctorName,
		AppointmentDate: in.AppointmentDate,
		AppointmentTime: in.AppointmentTime,
		Status:          domain.AppointmentStatusPending,
		Notes:           in.Notes,
	}
	if err := s.store.CreateAppointment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return a, nil
}

func (s *Service) ListAppointments(ctx context.Context) ([]domain.Appointment, error) {
	appts, err := s.store.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	st := domain.AppointmentStatus(status)
	if !st.Valid() {
		return domain.Invalid("invalid appointment status: " + status)
	}
	ok, err := s.store.UpdateAppointmentStatus(ctx, id, st)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
