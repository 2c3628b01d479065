package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/locker"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/mailbox"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/mailtext"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/policy"
)

const (
	replyCheckLockKey = "reply-check"
	// heldCandidateLimit caps the suggestions stored with a held reply.
	heldCandidateLimit = 5
)

// CheckReplies imports operator replies from the mailbox. Only one run is
// active at a time; a concurrent caller gets ErrReplyCheckRunning.
func (s *Service) CheckReplies(ctx context.Context) (*domain.ReplyCheckResult, error) {
	if s.mailbox == nil {
		return nil, domain.ErrMailDisabled
	}

	var result *domain.ReplyCheckResult
	err := s.locker.TryLock(ctx, replyCheckLockKey, func(ctx context.Context) error {
		var err error
		result, err = s.checkReplies(ctx)
		return err
	})
	if errors.Is(err, locker.ErrLockNotAcquired) {
		return nil, domain.ErrReplyCheckRunning
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) checkReplies(ctx context.Context) (*domain.ReplyCheckResult, error) {
	result := &domain.ReplyCheckResult{StartedAt: s.now(), Outcomes: map[domain.ReplyOutcome]int{}}

	batch, err := s.mailbox.Collect(ctx, s.config.ReplyBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to collect mailbox: %w", err)
	}
	result.Folder = batch.Folder

	for _, cand := range batch.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Scanned++
		outcome, err := s.reconcile(ctx, batch, cand)
		if err != nil {
			return nil, err
		}
		result.Record(outcome)
	}

	result.Duration = s.now().Sub(result.StartedAt)
	s.logger.Info().
		Str("folder", result.Folder).
		Int("scanned", result.Scanned).
		Int("imported", result.Imported).
		Int("duplicates", result.Duplicates).
		Int("held", result.Held).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("reply check finished")
	return result, nil
}

// reconcile handles one candidate. A returned error aborts the batch; every
// per-message problem is reported as an outcome instead.
func (s *Service) reconcile(ctx context.Context, batch *mailbox.Batch, cand mailbox.Candidate) (domain.ReplyOutcome, error) {
	log := s.logger.With().Uint32("uid", cand.UID).Str("folder", batch.Folder).Logger()

	m, err := mailtext.Parse(cand.Raw)
	if err != nil {
		log.Warn().Err(err).Msg("failed to parse candidate")
		return domain.ReplyOutcomeParseFailed, nil
	}
	log = log.With().Str("mail_id", m.MessageID).Logger()

	fromOperator := batch.FromSent || s.isOperatorAddress(m.From)
	convID := mailtext.ConversationMarker(m.Subject)
	if convID == "" && fromOperator {
		convID = m.HeaderMarker()
	}
	if convID == "" {
		convID, err = s.store.ConversationForMailIDs(ctx, m.ThreadIDs())
		if err != nil {
			return "", fmt.Errorf("failed to resolve thread: %w", err)
		}
	}

	decision, err := s.policyEngine.Evaluate(ctx, policy.ReplyInput{
		HasConversationID: convID != "",
		IsReply:           m.IsReply(),
		FromOperator:      fromOperator,
		FromSentFolder:    batch.FromSent,
	})
	if err != nil {
		return "", fmt.Errorf("failed to evaluate reply policy: %w", err)
	}

	text := m.Reply()

	switch decision {
	case domain.ReplyDecisionReject:
		log.Debug().Str("subject", m.Subject).Msg("candidate rejected")
		return domain.ReplyOutcomeRejected, nil
	case domain.ReplyDecisionHold:
		return s.hold(ctx, m, text)
	}

	if utf8.RuneCountInString(text) < s.config.ReplyMinLength {
		log.Debug().Str("conversation_id", convID).Msg("reply too short")
		return domain.ReplyOutcomeTooShort, nil
	}

	msg, err := s.appendReply(ctx, domain.ReplyInput{
		ConversationID:        convID,
		Name:                  doctorName,
		Email:                 s.doctorEmail(),
		Text:                  text,
		RequirePatientMessage: true,
		Dedupe:                true,
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateReply):
		return domain.ReplyOutcomeDuplicate, nil
	case errors.Is(err, domain.ErrConversationNotFound):
		log.Info().Str("conversation_id", convID).Msg("reply for unknown conversation discarded")
		return domain.ReplyOutcomeUnknownThread, nil
	case errors.Is(err, domain.ErrNoPatientMessage):
		log.Info().Str("conversation_id", convID).Msg("reply for conversation without patient message discarded")
		return domain.ReplyOutcomeNoPatient, nil
	case err != nil:
		return "", fmt.Errorf("failed to append reply: %w", err)
	}

	log.Info().Str("conversation_id", convID).Int64("message_id", msg.ID).Msg("reply imported")
	return domain.ReplyOutcomeImported, nil
}

// hold queues an operator reply that could not be tied to a thread.
func (s *Service) hold(ctx context.Context, m *mailtext.Mail, text string) (domain.ReplyOutcome, error) {
	if utf8.RuneCountInString(text) < s.config.ReplyMinLength {
		return domain.ReplyOutcomeTooShort, nil
	}
	candidates, err := s.store.ListPendingConversationIDs(ctx, heldCandidateLimit)
	if err != nil {
		return "", fmt.Errorf("failed to list pending conversations: %w", err)
	}
	created, err := s.store.CreateUnmatchedReply(ctx, &domain.UnmatchedReply{
		MailMessageID: heldMailKey(m, text),
		Subject:       m.Subject,
		From:          m.From,
		Text:          text,
		Candidates:    candidates,
		ReceivedAt:    m.Date,
	})
	if err != nil {
		return "", fmt.Errorf("failed to hold reply: %w", err)
	}
	if !created {
		return domain.ReplyOutcomeDuplicate, nil
	}
	s.logger.Info().Str("mail_id", m.MessageID).Strs("candidates", candidates).Msg("reply held for assignment")
	return domain.ReplyOutcomeHeld, nil
}

// heldMailKey identifies a held mail across checks. Mail without a
// Message-ID is keyed by a digest of its sender, date, subject and text.
func heldMailKey(m *mailtext.Mail, text string) string {
	if strings.TrimSpace(m.MessageID) != "" {
		return m.MessageID
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		strings.ToLower(m.From), m.Date.UTC().Format(time.RFC3339), m.Subject, text,
	}, "\x00")))
	return "nomsgid:" + hex.EncodeToString(sum[:])
}

func (s *Service) isOperatorAddress(addr string) bool {
	if addr == "" {
		return false
	}
	for _, own := range []string{s.config.HospitalEmail, s.config.SMTPUsername} {
		if own != "" && strings.EqualFold(addr, own) {
			return true
		}
	}
	return false
}
