package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/mailer"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// notificationSubject carries the conversation marker so operator replies
// can be matched back to the thread.
func notificationSubject(msg domain.Message) string {
	return fmt.Sprintf("New message from %s [%s]", msg.Name, msg.ConversationID)
}

func notificationEmail(to string, msg domain.Message, age string) mailer.Email {
	text := fmt.Sprintf("Patient: %s\nAge: %s\nConversation: %s\n\n%s\n\nReply to this email to answer the patient.\n",
		msg.Name, age, msg.ConversationID, msg.Text)

	var b strings.Builder
	b.WriteString("<h2>New patient message</h2>")
	fmt.Fprintf(&b, "<p><strong>Patient:</strong> %s<br><strong>Age:</strong> %s<br><strong>Conversation:</strong> %s</p>",
		html.EscapeString(msg.Name), html.EscapeString(age), html.EscapeString(msg.ConversationID))
	fmt.Fprintf(&b, "<p>%s</p>", strings.ReplaceAll(html.EscapeString(msg.Text), "\n", "<br>"))
	b.WriteString("<p>Reply to this email to answer the patient.</p>")

	return mailer.Email{
		To:      to,
		Subject: notificationSubject(msg),
		Text:    text,
		HTML:    b.String(),
	}
}

// notifyAsync mails the operator about a patient message without holding
// up the request.
func (s *Service) notifyAsync(msg domain.Message, age string) {
	if s.mailer == nil || s.config.HospitalEmail == "" {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.config.MailTimeout)
		defer cancel()
		if err := s.notify(ctx, msg, age); err != nil {
			if errors.Is(err, domain.ErrMailDisabled) {
				s.logger.Debug().Str("conversation_id", msg.ConversationID).Msg("mail disabled, notification skipped")
				return
			}
			s.logger.Warn().Err(err).Str("conversation_id", msg.ConversationID).Msg("failed to send notification")
		}
	}()
}

func (s *Service) notify(ctx context.Context, msg domain.Message, age string) error {
	id, err := s.mailer.Send(ctx, notificationEmail(s.config.HospitalEmail, msg, age))
	if err != nil {
		return err
	}
	if err := s.store.RecordOutboundMail(ctx, &domain.OutboundMail{
		MessageID:      id,
		ConversationID: msg.ConversationID,
		MessageRowID:   msg.ID,
	}); err != nil {
		return fmt.Errorf("failed to record outbound mail: %w", err)
	}
	s.logger.Info().Str("conversation_id", msg.ConversationID).Str("mail_id", id).Msg("notification sent")
	return nil
}

// SendTestEmail sends a fixed message to the hospital address.
func (s *Service) SendTestEmail(ctx context.Context) (string, error) {
	if s.mailer == nil || s.config.HospitalEmail == "" {
		return "", domain.ErrMailDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.MailTimeout)
	defer cancel()
	id, err := s.mailer.Send(ctx, mailer.Email{
		To:      s.config.HospitalEmail,
		Subject: "Test Email - hospital",
		Text:    "If you receive this, email is working correctly!",
		HTML:    "<h2>Test Email</h2><p>If you receive this, email is working correctly!</p>",
	})
	if err != nil {
		return "", fmt.Errorf("failed to send test email: %w", err)
	}
	return id, nil
}
