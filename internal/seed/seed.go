// Package seed fills a database with fake patients, visits, appointments
// and patient conversations for local development.
package seed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// Service is the subset of the hospital service the seeder drives. Records
// go through it so generated data passes the same validation as real input.
type Service interface {
	RegisterPatient(ctx context.Context, in domain.PatientInput) (*domain.Patient, error)
	RecordVisit(ctx context.Context, in domain.VisitInput) (*domain.Visit, error)
	BookAppointment(ctx context.Context, in domain.AppointmentInput) (*domain.Appointment, error)
	SendMessage(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error)
}

// Options sizes a seed run.
type Options struct {
	Patients      int
	VisitsPer     int
	Appointments  int
	Conversations int
	// Seed makes the run reproducible; zero picks a random seed.
	Seed uint64
}

// Result counts what was created.
type Result struct {
	Patients      int `json:"patients"`
	Visits        int `json:"visits"`
	Appointments  int `json:"appointments"`
	Conversations int `json:"conversations"`
}

var departments = []string{
	"Cardiology",
	"Neurology",
	"Orthopedics",
	"Pediatrics",
	"General Medicine",
	"Emergency",
}

var complaints = []string{
	"I have had a fever for three days",
	"My knee hurts when I climb stairs",
	"Can I get a refill of my prescription?",
	"I keep getting headaches in the evening",
	"My child has a rash on both arms",
	"Is it safe to exercise after my surgery?",
}

var slots = []string{"09:00", "09:30", "10:00", "11:15", "13:00", "14:30", "16:00"}

// Run creates the requested records.
func Run(ctx context.Context, svc Service, opts Options, logger zerolog.Logger) (*Result, error) {
	f := gofakeit.New(opts.Seed)
	res := &Result{}
	now := time.Now()

	logger.Info().Int("patients", opts.Patients).Msg("seeding patients")
	for i := 0; i < opts.Patients; i++ {
		age := f.Number(1, 95)
		p, err := svc.RegisterPatient(ctx, domain.PatientInput{
			Name:    f.Name(),
			Email:   f.Email(),
			Age:     &age,
			Gender:  f.Gender(),
			Phone:   f.Phone(),
			Address: fmt.Sprintf("%s, %s", f.Street(), f.City()),
		})
		if err != nil {
			return res, fmt.Errorf("register patient: %w", err)
		}
		res.Patients++

		for j := 0; j < opts.VisitsPer; j++ {
			_, err := svc.RecordVisit(ctx, domain.VisitInput{
				PatientID:  p.PatientID,
				VisitDate:  f.DateRange(now.AddDate(-1, 0, 0), now).Format("2006-01-02"),
				Department: f.RandomString(departments),
				DoctorName: "Dr. " + f.LastName(),
				Notes:      f.Phrase(),
			})
			if err != nil {
				return res, fmt.Errorf("record visit: %w", err)
			}
			res.Visits++
		}
	}

	logger.Info().Int("appointments", opts.Appointments).Msg("seeding appointments")
	for i := 0; i < opts.Appointments; i++ {
		_, err := svc.BookAppointment(ctx, domain.AppointmentInput{
			PatientName:     f.Name(),
			Phone:           f.Phone(),
			Department:      f.RandomString(departments),
			DoctorName:      "Dr. " + f.LastName(),
			AppointmentDate: f.DateRange(now, now.AddDate(0, 2, 0)).Format("2006-01-02"),
			AppointmentTime: f.RandomString(slots),
			Notes:           f.Phrase(),
		})
		if err != nil {
			return res, fmt.Errorf("book appointment: %w", err)
		}
		res.Appointments++
	}

	logger.Info().Int("conversations", opts.Conversations).Msg("seeding conversations")
	for i := 0; i < opts.Conversations; i++ {
		_, err := svc.SendMessage(ctx, domain.SendMessageRequest{
			Name:    f.Name(),
			Age:     strconv.Itoa(f.Number(18, 90)),
			Message: f.RandomString(complaints),
		})
		if err != nil {
			return res, fmt.Errorf("send message: %w", err)
		}
		res.Conversations++
	}

	return res, nil
}
