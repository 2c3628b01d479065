package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/conversation"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// staleMessageAge is the cutoff used by ClearOldMessages.
const staleMessageAge = 7 * 24 * time.Hour

var whitespace = regexp.MustCompile(`\s+`)

// patientEmail derives the placeholder address the public form files
// messages under.
func patientEmail(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), ".") + "@patient.local"
}

// SendMessage stores a patient message, starting a new conversation when
// none is given, then notifies the operator and live subscribers.
func (s *Service) SendMessage(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	name := strings.TrimSpace(req.Name)
	text := strings.TrimSpace(req.Message)
	switch {
	case name == "":
		return nil, domain.Invalid("Name is required")
	case strings.TrimSpace(req.Age) == "":
		return nil, domain.Invalid("Age is required")
	case text == "":
		return nil, domain.Invalid("Message is required")
	}

	email := patientEmail(name)
	convID := strings.TrimSpace(req.ConversationID)
	if convID == "" {
		convID = conversation.NewID(name, email, s.now())
	} else if !conversation.ValidID(convID) {
		return nil, domain.Invalid("invalid conversation_id")
	}

	msg := &domain.Message{
		ConversationID: convID,
		PatientID:      req.PatientID,
		Name:           name,
		Email:          email,
		Text:           text,
		SenderType:     domain.SenderPatient,
		Status:         domain.MessageStatusUnread,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.logger.Info().
		Str("conversation_id", convID).
		Int64("message_id", msg.ID).
		Msg("patient message stored")

	s.publisher.PublishMessage(*msg)
	s.notifyAsync(*msg, strings.TrimSpace(req.Age))

	return &domain.SendMessageResponse{ConversationID: convID, MessageID: msg.ID}, nil
}

func (s *Service) ListMessages(ctx context.Context) ([]domain.Message, error) {
	messages, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *Service) UpdateMessageStatus(ctx context.Context, id int64, status string) error {
	st := domain.MessageStatus(status)
	if !st.Valid() {
		return domain.Invalid("invalid message status: " + status)
	}
	ok, err := s.store.UpdateMessageStatus(ctx, id, st)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// ListConversations returns every thread summarized, unread threads first.
func (s *Service) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	messages, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return conversation.Summarize(messages), nil
}

// GetConversation returns one thread with its derived state.
func (s *Service) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	if rowID, ok := conversation.SingletonRowID(conversationID); ok {
		return s.singletonConversation(ctx, conversationID, rowID)
	}
	messages, err := s.store.ListConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if len(messages) == 0 {
		return nil, domain.ErrConversationNotFound
	}
	conv := conversation.Build(conversationID, messages)
	return &conv, nil
}

// singletonConversation opens a message stored without a conversation id
// under the key the summaries list it by.
func (s *Service) singletonConversation(ctx context.Context, key string, rowID int64) (*domain.Conversation, error) {
	m, err := s.store.GetMessage(ctx, rowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if m == nil || m.ConversationID != "" {
		return nil, domain.ErrConversationNotFound
	}
	conv := conversation.Build(key, []domain.Message{*m})
	return &conv, nil
}

// MarkConversationRead marks the patient messages of a thread read.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID string) (int64, error) {
	n, err := s.store.MarkConversationRead(ctx, conversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return n, nil
}

// DeleteConversation removes a thread and tells its subscribers.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string) (int64, error) {
	var deleted int64
	err := s.locker.WithLock(ctx, conversationLockKey(conversationID), func(ctx context.Context) error {
		n, err := s.store.DeleteConversation(ctx, conversationID)
		deleted = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation: %w", err)
	}
	if deleted > 0 {
		s.publisher.PublishCleared(conversationID)
	}
	return deleted, nil
}

// PatientConversations summarizes the threads a patient name took part in.
func (s *Service) PatientConversations(ctx context.Context, name string) ([]domain.ConversationSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("Name is required")
	}
	messages, err := s.store.ListMessagesByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient messages: %w", err)
	}
	return conversation.Summarize(messages), nil
}

// ClearOldMessages deletes messages older than a week.
func (s *Service) ClearOldMessages(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteMessagesBefore(ctx, s.now().Add(-staleMessageAge))
	if err != nil {
		return 0, fmt.Errorf("failed to clear old messages: %w", err)
	}
	s.logger.Info().Int64("deleted", n).Msg("old messages cleared")
	return n, nil
}

// ClearAllMessages deletes every message.
func (s *Service) ClearAllMessages(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAllMessages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}
	s.logger.Warn().Int64("deleted", n).Msg("all messages cleared")
	return n, nil
}
