package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/conversation"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// doctorName is the display name of operator replies.
const doctorName = "Doctor"

func (s *Service) doctorEmail() string {
	if s.config.HospitalEmail != "" {
		return s.config.HospitalEmail
	}
	return "doctor@hospital.local"
}

// appendReply inserts an operator reply under the conversation lock and
// announces it.
func (s *Service) appendReply(ctx context.Context, in domain.ReplyInput) (*domain.Message, error) {
	var msg *domain.Message
	err := s.locker.WithLock(ctx, conversationLockKey(in.ConversationID), func(ctx context.Context) error {
		var err error
		msg, err = s.store.AppendReply(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publisher.PublishMessage(*msg)
	return msg, nil
}

// Reply records a reply typed by the operator in the dashboard.
func (s *Service) Reply(ctx context.Context, req domain.ReplyRequest) (*domain.Message, error) {
	text := strings.TrimSpace(req.Message)
	if req.ConversationID == "" || text == "" {
		return nil, domain.Invalid("conversation_id and message are required")
	}

	msg, err := s.appendReply(ctx, domain.ReplyInput{
		ConversationID: req.ConversationID,
		Name:           doctorName,
		Email:          s.doctorEmail(),
		Text:           text,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save reply: %w", err)
	}

	s.logger.Info().Str("conversation_id", msg.ConversationID).Int64("message_id", msg.ID).Msg("operator reply saved")
	return msg, nil
}

// ReplyToMessage answers one message from the flat message list. The
// reply joins the message's conversation; a message that has none gets a
// new one first. The message is then marked replied.
func (s *Service) ReplyToMessage(ctx context.Context, id int64, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Invalid("admin_reply is required")
	}
	m, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}

	convID := m.ConversationID
	if convID == "" {
		convID = conversation.NewID(m.Name, m.Email, s.now())
		if _, err := s.store.AdoptConversation(ctx, m.ID, convID); err != nil {
			return nil, fmt.Errorf("failed to start conversation: %w", err)
		}
		// Lost a race with another reply; use the id it assigned.
		m, err = s.store.GetMessage(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to reload message: %w", err)
		}
		if m == nil {
			return nil, domain.ErrNotFound
		}
		convID = m.ConversationID
	}

	reply, err := s.Reply(ctx, domain.ReplyRequest{ConversationID: convID, Message: text})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.UpdateMessageStatus(ctx, id, domain.MessageStatusReplied); err != nil {
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}
	return reply, nil
}

func (s *Service) ListUnmatchedReplies(ctx context.Context, includeResolved bool) ([]domain.UnmatchedReply, error) {
	replies, err := s.store.ListUnmatchedReplies(ctx, includeResolved)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched replies: %w", err)
	}
	return replies, nil
}

// AssignUnmatchedReply attaches a held reply to the conversation the
// operator picked. A reply that is already in the thread resolves the
// entry without inserting a second copy.
func (s *Service) AssignUnmatchedReply(ctx context.Context, id int64, conversationID string) (*domain.Message, error) {
	if !conversation.ValidID(conversationID) {
		return nil, domain.Invalid("invalid conversation_id")
	}

	var msg *domain.Message
	err := s.locker.WithLock(ctx, conversationLockKey(conversationID), func(ctx context.Context) error {
		var err error
		msg, err = s.store.AssignUnmatchedReply(ctx, id, domain.ReplyInput{
			ConversationID:        conversationID,
			Name:                  doctorName,
			Email:                 s.doctorEmail(),
			RequirePatientMessage: true,
			Dedupe:                true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publisher.PublishMessage(*msg)
	return msg, nil
}
