// Package store defines the storage interface and its SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error

	// Admin operations
	GetAdmin(ctx context.Context, username string) (*domain.Admin, error)
	EnsureAdmin(ctx context.Context, username, passwordHash string) error

	// Patient operations
	CreatePatient(ctx context.Context, patient *domain.Patient) error
	GetPatient(ctx context.Context, patientID string) (*domain.Patient, error)
	ListPatients(ctx context.Context) ([]domain.Patient, error)
	UpdatePatient(ctx context.Context, patient *domain.Patient) (bool, error)
	DeletePatient(ctx context.Context, patientID string) (bool, error)

	// Visit operations
	CreateVisit(ctx context.Context, visit *domain.Visit) error
	ListVisits(ctx context.Context) ([]domain.Visit, error)
	ListVisitsByPatient(ctx context.Context, patientID string) ([]domain.Visit, error)

	// Doctor operations
	CreateDoctor(ctx context.Context, doctor *domain.Doctor) error
	GetDoctor(ctx context.Context, id int64) (*domain.Doctor, error)
	ListDoctors(ctx context.Context) ([]domain.Doctor, error)
	UpdateDoctor(ctx context.Context, doctor *domain.Doctor) (bool, error)
	DeleteDoctor(ctx context.Context, id int64) (bool, error)

	// Appointment operations
	CreateAppointment(ctx context.Context, appt *domain.Appointment) error
	ListAppointments(ctx context.Context) ([]domain.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (bool, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessage(ctx context.Context, id int64) (*domain.Message, error)
	ListMessages(ctx context.Context) ([]domain.Message, error)
	ListConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	ListMessagesByName(ctx context.Context, name string) ([]domain.Message, error)
	UpdateMessageStatus(ctx context.Context, id int64, status domain.MessageStatus) (bool, error)
	AdoptConversation(ctx context.Context, id int64, convID string) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID string) (int64, error)
	DeleteConversation(ctx context.Context, conversationID string) (int64, error)
	DeleteMessagesBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteAllMessages(ctx context.Context) (int64, error)
	ListPendingConversationIDs(ctx context.Context, limit int) ([]string, error)

	// Reply operations
	AppendReply(ctx context.Context, in domain.ReplyInput) (*domain.Message, error)
	RecordOutboundMail(ctx context.Context, mail *domain.OutboundMail) error
	ConversationForMailIDs(ctx context.Context, messageIDs []string) (string, error)
	CreateUnmatchedReply(ctx context.Context, reply *domain.UnmatchedReply) (bool, error)
	GetUnmatchedReply(ctx context.Context, id int64) (*domain.UnmatchedReply, error)
	ListUnmatchedReplies(ctx context.Context, includeResolved bool) ([]domain.UnmatchedReply, error)
	AssignUnmatchedReply(ctx context.Context, id int64, in domain.ReplyInput) (*domain.Message, error)

	// Dashboard
	GetStats(ctx context.Context) (*domain.Stats, error)
}
