package domain

// LoginRequest is the operator login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PatientInput creates or updates a patient.
type PatientInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Age     *int   `json:"age"`
	Gender  string `json:"gender"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// VisitInput records a visit.
type VisitInput struct {
	PatientID  string `json:"patient_id"`
	VisitDate  string `json:"visit_date"`
	Department string `json:"department"`
	DoctorName string `json:"doctor_name"`
	Notes      string `json:"notes"`
}

// DoctorInput creates or updates a doctor.
type DoctorInput struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Department     string `json:"department"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Bio            string `json:"bio"`
	ImageURL       string `json:"image_url"`
}

// AppointmentInput books an appointment.
type AppointmentInput struct {
	PatientID       string `json:"patient_id"`
	PatientName     string `json:"patient_name"`
	Phone           string `json:"phone"`
	Department      string `json:"department"`
	DoctorName      string `json:"doctor_name"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Notes           string `json:"notes"`
}

// StatusUpdate changes the status of an appointment or message.
type StatusUpdate struct {
	Status string `json:"status"`
}

// SendMessageRequest is a patient message. Age is accepted as text because
// the public form posts it that way.
type SendMessageRequest struct {
	Name           string `json:"name"`
	Age            string `json:"age"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	PatientID      string `json:"patient_id,omitempty"`
}

// SendMessageResponse is returned after a patient message is stored.
type SendMessageResponse struct {
	ConversationID string `json:"conversation_id"`
	MessageID      int64  `json:"message_id"`
}

// ReplyRequest is a manual operator reply.
type ReplyRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// MessageReplyRequest answers one message from the flat message list.
type MessageReplyRequest struct {
	AdminReply string `json:"admin_reply"`
}

// AssignReplyRequest attaches a held reply to a conversation.
type AssignReplyRequest struct {
	ConversationID string `json:"conversation_id"`
}

// ReplyInput is the store-level request to append an operator reply.
type ReplyInput struct {
	ConversationID string
	Name           string
	Email          string
	Text           string
	// RequirePatientMessage rejects conversations without a patient-sent row.
	RequirePatientMessage bool
	// Dedupe rejects text already present as a doctor message.
	Dedupe bool
}
