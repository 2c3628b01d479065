package service

import (
	"context"
	"fmt"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// Health is the result of a readiness probe.
type Health struct {
	Database      string `json:"database"`
	SchemaVersion int    `json:"schema_version"`
	MailEnabled   bool   `json:"mail_enabled"`
}

// Stats returns the dashboard counts with the configured display offsets.
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	st, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	st.TotalPatients += s.config.StatsPatientBase
	st.TotalDoctors += s.config.StatsDoctorBase
	return st, nil
}

// Health pings the store and reports the applied schema version.
func (s *Service) Health(ctx context.Context) (*Health, error) {
	if err := s.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	version, err := s.store.SchemaVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	return &Health{Database: "ok", SchemaVersion: version, MailEnabled: s.config.MailEnabled()}, nil
}
