package domain

import "time"

// Patient is a registered patient.
type Patient struct {
	ID        int64     `json:"id"`
	PatientID string    `json:"patient_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Age       *int      `json:"age,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PatientRecord is a patient together with their visit history.
type PatientRecord struct {
	Patient
	Visits []Visit `json:"visits"`
}

// Visit is a recorded patient visit.
type Visit struct {
	ID         int64     `json:"id"`
	PatientID  string    `json:"patient_id"`
	VisitDate  string    `json:"visit_date"`
	Department string    `json:"department"`
	DoctorName string    `json:"doctor_name"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Doctor is an entry in the doctor directory.
type Doctor struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Department     string    `json:"department"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Bio            string    `json:"bio"`
	ImageURL       string    `json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// Appointment is a booked appointment.
type Appointment struct {
	ID              int64             `json:"id"`
	PatientID       string            `json:"patient_id"`
	PatientName     string            `json:"patient_name"`
	Phone           string            `json:"phone"`
	Department      string            `json:"department"`
	DoctorName      string            `json:"doctor_name"`
	AppointmentDate string            `json:"appointment_date"`
	AppointmentTime string            `json:"appointment_time"`
	Status          AppointmentStatus `json:"status"`
	Notes           string            `json:"notes"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Admin is the operator credential.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is one row of a conversation.
type Message struct {
	ID             int64         `json:"id"`
	ConversationID string        `json:"conversation_id"`
	PatientID      string        `json:"patient_id,omitempty"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Text           string        `json:"message"`
	SenderType     SenderType    `json:"sender_type"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Conversation is the derived view of one thread. It is never stored.
type Conversation struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []Message         `json:"messages"`
	HasUnread      bool              `json:"has_unread"`
	HasReplied     bool              `json:"has_replied"`
	UnreadCount    int               `json:"unread_count"`
	State          ConversationState `json:"state"`
}

// ConversationSummary is one entry of the conversation list.
type ConversationSummary struct {
	ConversationID string            `json:"conversation_id"`
	PatientName    string            `json:"patient_name"`
	PatientEmail   string            `json:"patient_email"`
	MessageCount   int               `json:"message_count"`
	UnreadCount    int               `json:"unread_count"`
	HasUnread      bool              `json:"has_unread"`
	HasReplied     bool              `json:"has_replied"`
	State          ConversationState `json:"state"`
	LastMessage    Message           `json:"last_message"`
	LastMessageAt  time.Time         `json:"last_message_at"`
}

// OutboundMail maps a notification Message-ID to the conversation it announced.
type OutboundMail struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	MessageRowID   int64     `json:"message_row_id"`
	SentAt         time.Time `json:"sent_at"`
}

// UnmatchedReply is an operator reply that could not be tied to a conversation.
type UnmatchedReply struct {
	ID             int64      `json:"id"`
	MailMessageID  string     `json:"mail_message_id"`
	Subject        string     `json:"subject"`
	From           string     `json:"from"`
	Text           string     `json:"text"`
	Candidates     []string   `json:"candidates"`
	ReceivedAt     time.Time  `json:"received_at"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalPatients       int `json:"totalPatients"`
	TotalVisits         int `json:"totalVisits"`
	PendingAppointments int `json:"pendingAppointments"`
	TotalDoctors        int `json:"totalDoctors"`
	UnreadMessages      int `json:"unreadMessages"`
	PendingReplies      int `json:"pendingReplies"`
	UnmatchedReplies    int `json:"unmatchedReplies"`
}

// ReplyCheckResult summarizes one reconciler pass.
type ReplyCheckResult struct {
	Folder     string               `json:"folder"`
	Scanned    int                  `json:"scanned"`
	Imported   int                  `json:"found"`
	Duplicates int                  `json:"duplicates"`
	Held       int                  `json:"held"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
	Outcomes   map[ReplyOutcome]int `json:"outcomes"`
	StartedAt  time.Time            `json:"started_at"`
	Duration   time.Duration        `json:"duration_ns"`
}

// Record counts one candidate outcome.
func (r *ReplyCheckResult) Record(o ReplyOutcome) {
	if r.Outcomes == nil {
		r.Outcomes = make(map[ReplyOutcome]int)
	}
	r.Outcomes[o]++
	switch o {
	case ReplyOutcomeImported:
		r.Imported++
	case ReplyOutcomeDuplicate:
		r.Duplicates++
	case ReplyOutcomeHeld:
		r.Held++
	case ReplyOutcomeParseFailed:
		r.Failed++
	default:
		r.Skipped++
	}
}
