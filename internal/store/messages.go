package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

const messageColumns = `id, conversation_id, patient_id, name, email, message, sender_type, status, created_at`

func scanMessage(row rowScanner) (*domain.Message, error) {
	var m domain.Message
	var convID, patientID sql.NullString
	if err := row.Scan(&m.ID, &convID, &patientID, &m.Name, &m.Email, &m.Text, &m.SenderType, &m.Status, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ConversationID = convID.String
	m.PatientID = patientID.String
	return &m, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func insertMessage(ctx context.Context, db execer, m *domain.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = nowUTC()
	}
	if m.SenderType == "" {
		m.SenderType = domain.SenderPatient
	}
	if m.Status == "" {
		m.Status = domain.MessageStatusUnread
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, patient_id, name, email, message, sender_type, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(m.ConversationID), nullString(m.PatientID), m.Name, m.Email, m.Text, m.SenderType, m.Status, m.CreatedAt)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

func queryMessages(ctx context.Context, db querier, query string, args ...any) ([]domain.Message, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// CreateMessage inserts a message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, m *domain.Message) error {
	return insertMessage(ctx, s.db, m)
}

// GetMessage retrieves a message by row id.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListMessages returns every message, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]domain.Message, error) {
	return queryMessages(ctx, s.db, `SELECT `+messageColumns+` FROM messages ORDER BY created_at DESC, id DESC`)
}

// ListConversation returns the rows of one conversation in thread order.
func (s *SQLiteStore) ListConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	return queryMessages(ctx, s.db,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`, conversationID)
}

// ListMessagesByName returns every row of every conversation in which name
// wrote at least one message.
func (s *SQLiteStore) ListMessagesByName(ctx context.Context, name string) ([]domain.Message, error) {
	return queryMessages(ctx, s.db,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_id IN (SELECT conversation_id FROM messages WHERE name = ? AND conversation_id IS NOT NULL)
		    OR (conversation_id IS NULL AND name = ?)
		 ORDER BY created_at ASC, id ASC`, name, name)
}

// UpdateMessageStatus sets the status of one message.
func (s *SQLiteStore) UpdateMessageStatus(ctx context.Context, id int64, status domain.MessageStatus) (bool, error) {
	n, err := affected(s.db.ExecContext(ctx, `UPDATE messages SET status = ? WHERE id = ?`, status, id))
	return n > 0, err
}

// AdoptConversation gives a message without a conversation the id convID.
// It reports false when the row is missing or already has one.
func (s *SQLiteStore) AdoptConversation(ctx context.Context, id int64, convID string) (bool, error) {
	n, err := affected(s.db.ExecContext(ctx,
		`UPDATE messages SET conversation_id = ? WHERE id = ? AND conversation_id IS NULL`, convID, id))
	return n > 0, err
}

// MarkConversationRead marks the unread patient messages of a conversation read.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, conversationID string) (int64, error) {
	return affected(s.db.ExecContext(ctx,
		`UPDATE messages SET status = ? WHERE conversation_id = ? AND sender_type = ? AND status = ?`,
		domain.MessageStatusRead, conversationID, domain.SenderPatient, domain.MessageStatusUnread))
}

// DeleteConversation removes every row of a conversation and its mail map entries.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := affected(tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID))
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM outbound_mail WHERE conversation_id = ?`, conversationID); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// DeleteMessagesBefore removes messages created before the cutoff.
func (s *SQLiteStore) DeleteMessagesBefore(ctx context.Context, before time.Time) (int64, error) {
	return affected(s.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, before.UTC()))
}

// DeleteAllMessages removes every message.
func (s *SQLiteStore) DeleteAllMessages(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := affected(tx.ExecContext(ctx, `DELETE FROM messages`))
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM outbound_mail`); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// ListPendingConversationIDs returns conversations that have a patient
// message but no doctor message yet, most recently active first.
func (s *SQLiteStore) ListPendingConversationIDs(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT conversation_id FROM messages
		WHERE conversation_id IS NOT NULL
		GROUP BY conversation_id
		HAVING SUM(CASE WHEN sender_type = 'patient' THEN 1 ELSE 0 END) > 0
		   AND SUM(CASE WHEN sender_type = 'doctor' THEN 1 ELSE 0 END) = 0
		ORDER BY MAX(created_at) DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
