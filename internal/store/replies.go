package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/conversation"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// AppendReply inserts an operator reply as a read doctor message. The
// existence check, the duplicate check and the insert share one transaction.
func (s *SQLiteStore) AppendReply(ctx context.Context, in domain.ReplyInput) (*domain.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	msg, err := appendReply(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

func appendReply(ctx context.Context, tx *sql.Tx, in domain.ReplyInput) (*domain.Message, error) {
	thread, err := queryMessages(ctx, tx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if len(thread) == 0 {
		return nil, domain.ErrConversationNotFound
	}
	if in.RequirePatientMessage && !conversation.HasPatientMessage(thread) {
		return nil, domain.ErrNoPatientMessage
	}
	if in.Dedupe && conversation.IsDuplicateReply(thread, in.Text) {
		return nil, domain.ErrDuplicateReply
	}

	msg := &domain.Message{
		ConversationID: in.ConversationID,
		PatientID:      firstPatientID(thread),
		Name:           in.Name,
		Email:          in.Email,
		Text:           in.Text,
		SenderType:     domain.SenderDoctor,
		Status:         domain.MessageStatusRead,
	}
	if err := insertMessage(ctx, tx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func firstPatientID(thread []domain.Message) string {
	for _, m := range thread {
		if m.PatientID != "" {
			return m.PatientID
		}
	}
	return ""
}

// RecordOutboundMail remembers which conversation a notification announced.
func (s *SQLiteStore) RecordOutboundMail(ctx context.Context, mail *domain.OutboundMail) error {
	if mail.SentAt.IsZero() {
		mail.SentAt = nowUTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outbound_mail (message_id, conversation_id, message_row_id, sent_at) VALUES (?, ?, ?, ?)`,
		normalizeMailID(mail.MessageID), mail.ConversationID, mail.MessageRowID, mail.SentAt)
	return err
}

// ConversationForMailIDs returns the conversation announced by any of the
// given Message-IDs, or "" when none is known.
func (s *SQLiteStore) ConversationForMailIDs(ctx context.Context, messageIDs []string) (string, error) {
	var args []any
	for _, id := range messageIDs {
		if id = normalizeMailID(id); id != "" {
			args = append(args, id)
		}
	}
	if len(args) == 0 {
		return "", nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	var convID string
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id FROM outbound_mail WHERE message_id IN (`+placeholders+`) ORDER BY sent_at DESC LIMIT 1`,
		args...).Scan(&convID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return convID, err
}

func normalizeMailID(id string) string {
	return strings.Trim(strings.TrimSpace(id), "<>")
}

// CreateUnmatchedReply queues an operator reply for manual assignment. It
// reports false when the same mail was already queued.
func (s *SQLiteStore) CreateUnmatchedReply(ctx context.Context, r *domain.UnmatchedReply) (bool, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = nowUTC()
	}
	var received sql.NullTime
	if !r.ReceivedAt.IsZero() {
		received = sql.NullTime{Time: r.ReceivedAt.UTC(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO unmatched_replies (mail_message_id, subject, from_addr, text, candidates, received_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		normalizeMailID(r.MailMessageID), r.Subject, r.From, r.Text, strings.Join(r.Candidates, ","), received, r.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	r.ID, err = res.LastInsertId()
	return true, err
}

const unmatchedColumns = `id, mail_message_id, subject, from_addr, text, candidates, received_at, created_at, resolved_at, conversation_id`

func scanUnmatched(row rowScanner) (*domain.UnmatchedReply, error) {
	var r domain.UnmatchedReply
	var candidates string
	var received, resolved sql.NullTime
	var convID sql.NullString
	if err := row.Scan(&r.ID, &r.MailMessageID, &r.Subject, &r.From, &r.Text, &candidates,
		&received, &r.CreatedAt, &resolved, &convID); err != nil {
		return nil, err
	}
	r.Candidates = []string{}
	if candidates != "" {
		r.Candidates = strings.Split(candidates, ",")
	}
	if received.Valid {
		r.ReceivedAt = received.Time
	}
	if resolved.Valid {
		t := resolved.Time
		r.ResolvedAt = &t
	}
	r.ConversationID = convID.String
	return &r, nil
}

// GetUnmatchedReply retrieves a queued reply by id.
func (s *SQLiteStore) GetUnmatchedReply(ctx context.Context, id int64) (*domain.UnmatchedReply, error) {
	r, err := scanUnmatched(s.db.QueryRowContext(ctx, `SELECT `+unmatchedColumns+` FROM unmatched_replies WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListUnmatchedReplies returns queued replies, newest first.
func (s *SQLiteStore) ListUnmatchedReplies(ctx context.Context, includeResolved bool) ([]domain.UnmatchedReply, error) {
	query := `SELECT ` + unmatchedColumns + ` FROM unmatched_replies`
	if !includeResolved {
		query += ` WHERE resolved_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := []domain.UnmatchedReply{}
	for rows.Next() {
		r, err := scanUnmatched(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, *r)
	}
	return replies, rows.Err()
}

// AssignUnmatchedReply appends a queued reply to a conversation and marks it
// resolved. A reply already present in the thread still resolves the queue
// entry; ErrDuplicateReply is returned alongside a nil message.
func (s *SQLiteStore) AssignUnmatchedReply(ctx context.Context, id int64, in domain.ReplyInput) (*domain.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := scanUnmatched(tx.QueryRowContext(ctx, `SELECT `+unmatchedColumns+` FROM unmatched_replies WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.ResolvedAt != nil {
		return nil, domain.ErrAlreadyResolved
	}

	in.Text = r.Text
	msg, appendErr := appendReply(ctx, tx, in)
	if appendErr != nil && appendErr != domain.ErrDuplicateReply {
		return nil, appendErr
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE unmatched_replies SET resolved_at = ?, conversation_id = ? WHERE id = ?`,
		time.Now().UTC(), in.ConversationID, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, appendErr
}
