package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nahio/config"
	"nahio/models"
	"nahio/services/account"
	"nahio/services/appointment"
	"nahio/utils"
)

type seedOptions struct {
	Institutions int
	Scouts       int
	Visits       int
	Password     string
	Days         int
}

type seedReport struct {
	Institutions []string
	Scouts       []string
	Visits       int
	Conflicts    int
}

// candidateSlots are the visit times demo appointments are booked into.
var candidateSlots = []string{"08:00", "09:30", "11:00", "14:00", "15:30", "17:00"}

var demoCities = []struct{ City, State, CEP string }{
	{"São Paulo", "SP", "01310100"},
	{"Rio de Janeiro", "RJ", "20040002"},
	{"Belo Horizonte", "MG", "30130010"},
	{"Porto Alegre", "RS", "90010150"},
	{"Recife", "PE", "50030230"},
}

func seedCmd() *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register demo institutions and scouts and book visits between them",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.GetLogger()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			a, err := bootstrap(ctx, config.AppConfig, logger)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			report, err := seedDemo(ctx, a.handlers.Accounts, a.handlers.Appointments, opts, rng)
			if err != nil {
				return err
			}
			logger.Info("Demo data seeded",
				zap.Int("institutions", len(report.Institutions)),
				zap.Int("scouts", len(report.Scouts)),
				zap.Int("visits", report.Visits),
				zap.Int("slotConflicts", report.Conflicts))
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Institutions, "institutions", 5, "institutions to register")
	cmd.Flags().IntVar(&opts.Scouts, "scouts", 10, "scouts to register")
	cmd.Flags().IntVar(&opts.Visits, "visits", 20, "visits to book")
	cmd.Flags().IntVar(&opts.Days, "days", 7, "book visits over this many days from tomorrow")
	cmd.Flags().StringVar(&opts.Password, "password", "demo1234", "password of every demo account")
	return cmd
}

// seedDemo registers demo accounts and books random visits between them.
// Slot conflicts are counted, not treated as failures.
func seedDemo(ctx context.Context, accounts *account.Service, appts *appointment.Service, opts seedOptions, rng *rand.Rand) (*seedReport, error) {
	if opts.Days <= 0 {
		opts.Days = 7
	}
	report := &seedReport{}

	for i := 1; i <= opts.Institutions; i++ {
		city := demoCities[(i-1)%len(demoCities)]
		res, err := accounts.RegisterInstitution(ctx, account.InstitutionRegistration{
			Institution: account.InstitutionStep{
				SchoolName:      fmt.Sprintf("Escola Demo %d", i),
				CNPJ:            fmt.Sprintf("%014d", 10000000000000+i),
				Phone:           fmt.Sprintf("11900000%03d", i),
				Email:           fmt.Sprintf("escola%d@demo.nahio.app", i),
				Password:        opts.Password,
				ConfirmPassword: opts.Password,
			},
			Address: models.Address{
				CEP:      city.CEP,
				Street:   "Rua Demonstração",
				Number:   fmt.Sprint(100 + i),
				District: "Centro",
				City:     city.City,
				State:    city.State,
			},
			Guardian: account.GuardianStep{
				Name:                fmt.Sprintf("Responsável %d", i),
				Email:               fmt.Sprintf("responsavel%d@demo.nahio.app", i),
				ProvisionalPassword: opts.Password,
			},
		})
		if err != nil {
			return report, fmt.Errorf("seed institution %d: %w", i, err)
		}
		report.Institutions = append(report.Institutions, res.UserID)
	}

	for i := 1; i <= opts.Scouts; i++ {
		res, err := accounts.RegisterScout(ctx, account.ScoutRegistration{
			Name:            fmt.Sprintf("Olheiro %d", i),
			Email:           fmt.Sprintf("olheiro%d@demo.nahio.app", i),
			Password:        opts.Password,
			ConfirmPassword: opts.Password,
			Region:          demoCities[(i-1)%len(demoCities)].State,
		})
		if err != nil {
			return report, fmt.Errorf("seed scout %d: %w", i, err)
		}
		report.Scouts = append(report.Scouts, res.UserID)
	}

	if len(report.Institutions) == 0 || len(report.Scouts) == 0 {
		return report, nil
	}
	loc := appts.Location
	if loc == nil {
		loc = time.UTC
	}
	tomorrow := time.Now().In(loc).AddDate(0, 0, 1)
	for i := 0; i < opts.Visits; i++ {
		scoutID := report.Scouts[rng.Intn(len(report.Scouts))]
		_, err := appts.Create(ctx, models.Actor{UserID: scoutID, UserType: models.UserTypeScout}, models.AppointmentDraft{
			InstitutionID: report.Institutions[rng.Intn(len(report.Institutions))],
			VisitDate:     models.DateOnly(tomorrow.AddDate(0, 0, rng.Intn(opts.Days))),
			TimeSlot:      candidateSlots[rng.Intn(len(candidateSlots))],
			Notes:         "Visita de demonstração",
		})
		var apptErr *appointment.Error
		switch {
		case err == nil:
			report.Visits++
		case errors.As(err, &apptErr) && apptErr.Code == appointment.CodeConflict:
			report.Conflicts++
		default:
			return report, fmt.Errorf("seed visit %d: %w", i+1, err)
		}
	}
	return report, nil
}
