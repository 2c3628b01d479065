// Package domain defines the core domain models for the hospital server.
package domain

// SenderType identifies who wrote a message.
type SenderType string

const (
	SenderPatient SenderType = "patient"
	SenderDoctor  SenderType = "doctor"
)

// MessageStatus is the read state of a single message.
type MessageStatus string

const (
	MessageStatusUnread  MessageStatus = "unread"
	MessageStatusRead    MessageStatus = "read"
	MessageStatusReplied MessageStatus = "replied"
)

// Valid reports whether s is a known message status.
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusUnread, MessageStatusRead, MessageStatusReplied:
		return true
	}
	return false
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is a known appointment status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// ConversationState is the display state derived from a thread.
type ConversationState string

const (
	ConversationStateNew     ConversationState = "new"
	ConversationStateRead    ConversationState = "read"
	ConversationStateReplied ConversationState = "replied"
)

// ReplyDecision is the outcome of the reply admission policy.
type ReplyDecision string

const (
	ReplyDecisionAccept ReplyDecision = "accept"
	ReplyDecisionHold   ReplyDecision = "hold"
	ReplyDecisionReject ReplyDecision = "reject"
)

// ReplyOutcome records what the reconciler did with one mailbox candidate.
type ReplyOutcome string

const (
	ReplyOutcomeImported      ReplyOutcome = "imported"
	ReplyOutcomeDuplicate     ReplyOutcome = "duplicate"
	ReplyOutcomeRejected      ReplyOutcome = "rejected"
	ReplyOutcomeHeld          ReplyOutcome = "held"
	ReplyOutcomeNoPatient     ReplyOutcome = "no_patient_message"
	ReplyOutcomeUnknownThread ReplyOutcome = "unknown_conversation"
	ReplyOutcomeTooShort      ReplyOutcome = "too_short"
	ReplyOutcomeParseFailed   ReplyOutcome = "parse_failed"
)
