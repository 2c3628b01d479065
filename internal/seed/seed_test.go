package seed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/locker"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/config"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/policy"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/service"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/tests/helpers"
)

func TestRunCreatesRecords(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.NewDefaultEngine(ctx)
	require.NoError(t, err)
	cfg := &config.Config{SessionSecret: "test", SessionTTL: time.Hour, MailTimeout: time.Second, ReplyBatchSize: 10, ReplyMinLength: 6}
	svc := service.New(helpers.NewTestStore(t), locker.NewLocal(), nil, nil, engine, nil, cfg, zerolog.Nop())

	res, err := Run(ctx, svc, Options{Patients: 3, VisitsPer: 2, Appointments: 4, Conversations: 2, Seed: 42}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, &Result{Patients: 3, Visits: 6, Appointments: 4, Conversations: 2}, res)

	patients, err := svc.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, patients, 3)

	convs, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	assert.Len(t, convs, 2)

	appts, err := svc.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 4)
}
