package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointmentRepo "nahio/database/repository/appointment"
	profileRepo "nahio/database/repository/profile"
	"nahio/services/account"
	"nahio/services/appointment"
	"nahio/services/identity"
	"nahio/services/profile"
	"nahio/utils"
)

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	profiles := profileRepo.NewMemoryProfileRepo()
	repo := appointmentRepo.NewMemoryAppointmentRepo()
	dir := profile.NewDirectory(profiles, utils.NewMemoryKV(), time.Minute, nil)
	accounts := account.NewService(identity.NewMemoryGateway(), profiles, dir, nil)
	appts := &appointment.Service{Repo: repo, Directory: dir, Location: time.UTC}

	report, err := seedDemo(ctx, accounts, appts, seedOptions{
		Institutions: 2, Scouts: 3, Visits: 40, Password: "demo1234", Days: 2,
	}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	assert.Len(t, report.Institutions, 2)
	assert.Len(t, report.Scouts, 3)
	assert.Equal(t, 40, report.Visits+report.Conflicts)
	assert.LessOrEqual(t, report.Visits, 2*2*len(candidateSlots), "one visit per slot at most")

	booked := 0
	for _, inst := range report.Institutions {
		list, err := repo.ListByInstitution(ctx, inst)
		require.NoError(t, err)
		booked += len(list)
	}
	assert.Equal(t, report.Visits, booked)

	active, err := profiles.ListActiveInstitutions(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
