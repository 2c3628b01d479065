package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

const patientIDAttempts = 5

// newPatientID returns "PAT" + the last 8 digits of the unix millis + 3 random digits.
func (s *Service) newPatientID() string {
	ms := fmt.Sprintf("%d", s.now().UnixMilli())
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return fmt.Sprintf("PAT%s%03d", ms, rand.IntN(1000))
}

func validatePatient(in domain.PatientInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name is required")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return domain.Invalid("age must be between 0 and 150")
	}
	return nil
}

func (s *Service) RegisterPatient(ctx context.Context, in domain.PatientInput) (*domain.Patient, error) {
	if err := validatePatient(in); err != nil {
		return nil, err
	}
	p := &domain.Patient{
		PatientID: s.newPatientID(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Age:       in.Age,
		Gender:    in.Gender,
		Phone:     in.Phone,
		Address:   in.Address,
	}
	// Ids minted in the same millisecond can collide; draw again.
	for attempt := 0; ; attempt++ {
		err := s.store.CreatePatient(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == patientIDAttempts-1 {
			return nil, fmt.Errorf("failed to create patient: %w", err)
		}
		p.PatientID = s.newPatientID()
	}
}

func (s *Service) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// GetPatient returns the patient together with their visits.
func (s *Service) GetPatient(ctx context.Context, patientID string) (*domain.PatientRecord, error) {
	p, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	visits, err := s.store.ListVisitsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return &domain.PatientRecord{Patient: *p, Visits: visits}, nil
}

func (s *Service) UpdatePatient(ctx context.Context, patientID string, in domain.PatientInput) (*domain.Patient, error) {
	if err := validatePatient(in); err != nil {
		return nil, err
	}
	p := &domain.Patient{
		PatientID: patientID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Age:       in.Age,
		Gender:    in.Gender,
		Phone:     in.Phone,
		Address:   in.Address,
	}
	ok, err := s.store.UpdatePatient(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.store.GetPatient(ctx, patientID)
}

func (s *Service) DeletePatient(ctx context.Context, patientID string) error {
	ok, err := s.store.DeletePatient(ctx, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) RecordVisit(ctx context.Context, in domain.VisitInput) (*domain.Visit, error) {
	if strings.TrimSpace(in.PatientID) == "" || strings.TrimSpace(in.VisitDate) == "" {
		return nil, domain.Invalid("patient_id and visit_date are required")
	}
	p, err := s.store.GetPatient(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}

	v := &domain.Visit{
		PatientID:  in.PatientID,
		VisitDate:  in.VisitDate,
		Department: in.Department,
		DoctorName: in.DoctorName,
		Notes:      in.Notes,
	}
	if err := s.store.CreateVisit(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}
	return v, nil
}

func (s *Service) ListVisits(ctx context.Context) ([]domain.Visit, error) {
	visits, err := s.store.ListVisits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}
