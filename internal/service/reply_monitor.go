package service

import (
	"context"
	"errors"
	"time"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// RunReplyMonitor checks the mailbox once after ReplyCheckDelay and then on
// every ReplyCheckInterval until ctx is done.
func (s *Service) RunReplyMonitor(ctx context.Context) {
	delay := time.NewTimer(s.config.ReplyCheckDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-delay.C:
		s.sweepReplies(ctx)
	}

	ticker := time.NewTicker(s.config.ReplyCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepReplies(ctx)
		}
	}
}

func (s *Service) sweepReplies(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.ReplyCheckInterval)
	defer cancel()

	if _, err := s.CheckReplies(sweepCtx); err != nil {
		switch {
		case errors.Is(err, domain.ErrReplyCheckRunning):
			s.logger.Debug().Msg("reply check already running, tick skipped")
		case ctx.Err() != nil:
		default:
			s.logger.Warn().Err(err).Msg("reply check failed")
		}
	}
}
