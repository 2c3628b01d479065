package store

import (
	"context"
	"fmt"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// GetStats counts the dashboard figures. Display offsets are applied by the
// service, not here.
func (s *SQLiteStore) GetStats(ctx context.Context) (*domain.Stats, error) {
	var st domain.Stats
	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&st.TotalPatients, `SELECT COUNT(*) FROM patients`, nil},
		{&st.TotalVisits, `SELECT COUNT(*) FROM patient_visits`, nil},
		{&st.PendingAppointments, `SELECT COUNT(*) FROM appointments WHERE status = ?`, []any{domain.AppointmentStatusPending}},
		{&st.TotalDoctors, `SELECT COUNT(*) FROM doctors`, nil},
		{&st.UnreadMessages, `SELECT COUNT(*) FROM messages WHERE sender_type = ? AND status = ?`, []any{domain.SenderPatient, domain.MessageStatusUnread}},
		{&st.PendingReplies, `SELECT COUNT(*) FROM (
			SELECT conversation_id FROM messages WHERE conversation_id IS NOT NULL
			GROUP BY conversation_id
			HAVING SUM(CASE WHEN sender_type = 'patient' THEN 1 ELSE 0 END) > 0
			   AND SUM(CASE WHEN sender_type = 'doctor' THEN 1 ELSE 0 END) = 0)`, nil},
		{&st.UnmatchedReplies, `SELECT COUNT(*) FROM unmatched_replies WHERE resolved_at IS NULL`, nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}
	return &st, nil
}
