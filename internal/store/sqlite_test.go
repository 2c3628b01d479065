package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/conversation"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func patientMessage(conv, name, text string, at time.Time) *domain.Message {
	return &domain.Message{
		ConversationID: conv,
		Name:           name,
		Email:          "patient@hospital.local",
		Text:           text,
		SenderType:     domain.SenderPatient,
		Status:         domain.MessageStatusUnread,
		CreatedAt:      at,
	}
}

func TestMigrationsAreVersioned(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	// Re-running is a no-op.
	n, err := NewMigrator(store.db).Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	statuses, err := NewMigrator(store.db).Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, st := range statuses {
		assert.True(t, st.Applied, st.Name)
	}
}

func TestMigrateFreshDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(db)
	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	assert.False(t, statuses[0].Applied)

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestDefaultDoctorsSeededOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doctors, err := store.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 6)

	require.NoError(t, store.seedDoctors(ctx))
	doctors, err = store.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 6)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", DSN(":memory:"))
	dsn := DSN("data/hospital.db")
	assert.Contains(t, dsn, "file:data/hospital.db?")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_txlock=immediate")
}

func TestPatientLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	age := 34
	p := &domain.Patient{PatientID: "PAT12345678901", Name: "Jane", Age: &age}
	require.NoError(t, store.CreatePatient(ctx, p))
	assert.NotZero(t, p.ID)

	got, err := store.GetPatient(ctx, "PAT12345678901")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jane", got.Name)
	require.NotNil(t, got.Age)
	assert.Equal(t, 34, *got.Age)
	assert.Empty(t, got.Email)

	require.NoError(t, store.CreateVisit(ctx, &domain.Visit{PatientID: p.PatientID, VisitDate: "2026-03-01", Department: "OPD", DoctorName: "Dr. Sarah Johnson"}))
	require.NoError(t, store.CreateVisit(ctx, &domain.Visit{PatientID: p.PatientID, VisitDate: "2026-04-01", Department: "OPD", DoctorName: "Dr. Sarah Johnson"}))
	visits, err := store.ListVisitsByPatient(ctx, p.PatientID)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "2026-04-01", visits[0].VisitDate)

	got.Phone = "+45 1234"
	ok, err := store.UpdatePatient(ctx, got)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DeletePatient(ctx, p.PatientID)
	require.NoError(t, err)
	assert.True(t, ok)

	visits, err = store.ListVisits(ctx)
	require.NoError(t, err)
	assert.Empty(t, visits, "visits cascade with the patient")

	missing, err := store.GetPatient(ctx, p.PatientID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreatePatientDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreatePatient(ctx, &domain.Patient{PatientID: "PAT12345678901", Name: "Jane"}))
	err := store.CreatePatient(ctx, &domain.Patient{PatientID: "PAT12345678901", Name: "John"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestVisitRequiresPatient(t *testing.T) {
	store := newTestStore(t)
	err := store.CreateVisit(context.Background(), &domain.Visit{PatientID: "PAT-NOPE", VisitDate: "2026-03-01", Department: "OPD", DoctorName: "x"})
	assert.Error(t, err)
}

func TestAppointmentStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	a := &domain.Appointment{PatientName: "Jane", Phone: "1", Department: "OPD", AppointmentDate: "2026-05-01", AppointmentTime: "10:00"}
	require.NoError(t, store.CreateAppointment(ctx, a))
	assert.Equal(t, domain.AppointmentStatusPending, a.Status)

	ok, err := store.UpdateAppointmentStatus(ctx, a.ID, domain.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.UpdateAppointmentStatus(ctx, 999, domain.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.False(t, ok)

	appts, err := store.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, domain.AppointmentStatusConfirmed, appts[0].Status)
}

func TestEnsureAdminKeepsExistingPassword(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.EnsureAdmin(ctx, "admin", "hash-1"))
	require.NoError(t, store.EnsureAdmin(ctx, "admin", "hash-2"))

	admin, err := store.GetAdmin(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "hash-1", admin.PasswordHash)

	none, err := store.GetAdmin(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestConversationQueries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "I have a fever", now.Add(-time.Minute))))
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "Still feverish", now)))
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-BBBBBBBB", "Ole", "Knee pain", now)))

	thread, err := store.ListConversation(ctx, "CONV-AAAAAAAA")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "I have a fever", thread[0].Text)

	byName, err := store.ListMessagesByName(ctx, "Jane")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	pending, err := store.ListPendingConversationIDs(ctx, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CONV-AAAAAAAA", "CONV-BBBBBBBB"}, pending)

	n, err := store.MarkConversationRead(ctx, "CONV-AAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	thread, err = store.ListConversation(ctx, "CONV-AAAAAAAA")
	require.NoError(t, err)
	assert.False(t, conversation.HasUnread(thread))
}

func TestDeleteConversationLeavesOthers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "one", now)))
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "two", now)))
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-BBBBBBBB", "Ole", "three", now)))

	n, err := store.DeleteConversation(ctx, "CONV-AAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := store.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "CONV-BBBBBBBB", all[0].ConversationID)
}

func TestDeleteMessagesBefore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "old", now.Add(-8*24*time.Hour))))
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "new", now)))

	n, err := store.DeleteMessagesBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.DeleteAllMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAppendReply(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "I have a fever", time.Now().UTC())))

	in := domain.ReplyInput{
		ConversationID:        "CONV-AAAAAAAA",
		Name:                  "Doctor",
		Email:                 "clinic@hospital.local",
		Text:                  "Please rest and hydrate",
		RequirePatientMessage: true,
		Dedupe:                true,
	}
	msg, err := store.AppendReply(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domain.SenderDoctor, msg.SenderType)
	assert.Equal(t, domain.MessageStatusRead, msg.Status)

	_, err = store.AppendReply(ctx, in)
	assert.ErrorIs(t, err, domain.ErrDuplicateReply)

	in.ConversationID = "CONV-FFFFFFFF"
	_, err = store.AppendReply(ctx, in)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	thread, err := store.ListConversation(ctx, "CONV-AAAAAAAA")
	require.NoError(t, err)
	assert.Len(t, thread, 2)
	assert.True(t, conversation.HasReplied(thread))
}

func TestAppendReplyRequiresPatientMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateMessage(ctx, &domain.Message{
		ConversationID: "CONV-AAAAAAAA", Name: "Doctor", Email: "x", Text: "hello",
		SenderType: domain.SenderDoctor, Status: domain.MessageStatusRead,
	}))

	_, err := store.AppendReply(ctx, domain.ReplyInput{ConversationID: "CONV-AAAAAAAA", Name: "Doctor", Text: "follow up", RequirePatientMessage: true})
	assert.ErrorIs(t, err, domain.ErrNoPatientMessage)
}

func TestOutboundMailMap(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.RecordOutboundMail(ctx, &domain.OutboundMail{MessageID: "<abc@hospital.local>", ConversationID: "CONV-AAAAAAAA"}))

	conv, err := store.ConversationForMailIDs(ctx, []string{"<other@x>", "abc@hospital.local"})
	require.NoError(t, err)
	assert.Equal(t, "CONV-AAAAAAAA", conv)

	conv, err = store.ConversationForMailIDs(ctx, []string{"<nobody@x>"})
	require.NoError(t, err)
	assert.Empty(t, conv)

	conv, err = store.ConversationForMailIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, conv)
}

func TestUnmatchedReplyAssignment(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "I have a fever", time.Now().UTC())))

	r := &domain.UnmatchedReply{
		MailMessageID: "<reply-1@mail>",
		Subject:       "Re: your question",
		From:          "clinic@hospital.local",
		Text:          "Take paracetamol twice a day",
		Candidates:    []string{"CONV-AAAAAAAA"},
	}
	created, err := store.CreateUnmatchedReply(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateUnmatchedReply(ctx, &domain.UnmatchedReply{MailMessageID: "reply-1@mail", Text: "again"})
	require.NoError(t, err)
	assert.False(t, created, "same mail is queued once")

	open, err := store.ListUnmatchedReplies(ctx, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, []string{"CONV-AAAAAAAA"}, open[0].Candidates)

	msg, err := store.AssignUnmatchedReply(ctx, r.ID, domain.ReplyInput{ConversationID: "CONV-AAAAAAAA", Name: "Doctor", RequirePatientMessage: true, Dedupe: true})
	require.NoError(t, err)
	assert.Equal(t, "Take paracetamol twice a day", msg.Text)

	_, err = store.AssignUnmatchedReply(ctx, r.ID, domain.ReplyInput{ConversationID: "CONV-AAAAAAAA"})
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	_, err = store.AssignUnmatchedReply(ctx, 999, domain.ReplyInput{ConversationID: "CONV-AAAAAAAA"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	open, err = store.ListUnmatchedReplies(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, open)

	resolved, err := store.GetUnmatchedReply(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "CONV-AAAAAAAA", resolved.ConversationID)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.CreatePatient(ctx, &domain.Patient{PatientID: "PAT1", Name: "Jane"}))
	require.NoError(t, store.CreateAppointment(ctx, &domain.Appointment{PatientName: "Jane", Phone: "1", Department: "OPD", AppointmentDate: "2026-05-01", AppointmentTime: "10:00"}))
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-AAAAAAAA", "Jane", "hello", now)))
	require.NoError(t, store.CreateMessage(ctx, patientMessage("CONV-BBBBBBBB", "Ole", "hello", now)))
	_, err := store.AppendReply(ctx, domain.ReplyInput{ConversationID: "CONV-BBBBBBBB", Name: "Doctor", Text: "Answer given"})
	require.NoError(t, err)

	st, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalPatients)
	assert.Equal(t, 1, st.PendingAppointments)
	assert.Equal(t, 6, st.TotalDoctors)
	assert.Equal(t, 2, st.UnreadMessages)
	assert.Equal(t, 1, st.PendingReplies)
	assert.Equal(t, 0, st.UnmatchedReplies)
}
