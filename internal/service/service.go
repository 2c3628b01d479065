// Package service implements the hospital operations on top of the store,
// the mail adapters and the live feed.
package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/locker"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/mailbox"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/mailer"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/config"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/policy"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/store"
)

// Publisher pushes stored changes to live subscribers.
type Publisher interface {
	PublishMessage(msg domain.Message)
	PublishCleared(conversationID string)
}

type nopPublisher struct{}

func (nopPublisher) PublishMessage(domain.Message) {}
func (nopPublisher) PublishCleared(string)         {}

type Service struct {
	store        store.Store
	locker       locker.Locker
	mailbox      mailbox.Mailbox
	mailer       mailer.Mailer
	policyEngine *policy.Engine
	publisher    Publisher
	config       *config.Config
	logger       zerolog.Logger
	now          func() time.Time

	// background tracks notification goroutines.
	background sync.WaitGroup
}

func New(st store.Store, lk locker.Locker, mb mailbox.Mailbox, ml mailer.Mailer, policyEngine *policy.Engine, pub Publisher, cfg *config.Config, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = nopPublisher{}
	}
	if lk == nil {
		lk = locker.NewLocal()
	}
	return &Service{
		store:        st,
		locker:       lk,
		mailbox:      mb,
		mailer:       ml,
		policyEngine: policyEngine,
		publisher:    pub,
		config:       cfg,
		logger:       logger.With().Str("component", "service").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Wait blocks until background notifications have finished.
func (s *Service) Wait() {
	s.background.Wait()
}

func conversationLockKey(conversationID string) string {
	return "conversation:" + conversationID
}
