package main

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/hibiken/asynq"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"nahio/config"
	"nahio/cron"
	"nahio/database"
	"nahio/database/repository"
	"nahio/handlers"
	"nahio/services/account"
	"nahio/services/address"
	"nahio/services/appointment"
	"nahio/services/identity"
	"nahio/services/invitation"
	"nahio/services/notification"
	"nahio/services/profile"
	"nahio/services/session"
	"nahio/utils"
)

// application holds the wired stores, services and their closers.
type application struct {
	cfg    config.Config
	logger *zap.Logger

	appointments repository.AppointmentRepository
	profiles     repository.ProfileRepository
	gateway      identity.Gateway
	sessions     *session.Context
	handlers     *handlers.HandlerBundle
	dispatcher   *notification.Dispatcher
	checks       []utils.ReadyCheck

	redisUp bool
	queue   *asynq.Client
	kafka   *kafka.Writer
}

func usesFirebase(cfg config.Config) bool {
	return cfg.AppointmentStore == repository.StoreFirestore ||
		cfg.ProfileStore == repository.StoreFirestore ||
		cfg.IdentityProvider == "firebase" ||
		cfg.PushEnabled
}

// openStores connects the databases selected by configuration and builds the repositories.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*application, *firebase.App, error) {
	a := &application{cfg: cfg, logger: logger}

	var fbApp *firebase.App
	if usesFirebase(cfg) {
		var err error
		if fbApp, err = utils.FirebaseInit(ctx); err != nil {
			return nil, nil, err
		}
	}
	if cfg.AppointmentStore == repository.StoreFirestore || cfg.ProfileStore == repository.StoreFirestore {
		if err := database.InitFirestore(ctx, fbApp); err != nil {
			return nil, nil, err
		}
	}
	if cfg.AppointmentStore == repository.StoreMongo || cfg.ProfileStore == repository.StoreMongo {
		if err := database.InitDB(ctx, logger); err != nil {
			return nil, nil, err
		}
		a.checks = append(a.checks, utils.ReadyCheck{Name: "mongo", Check: database.MongoReadyCheck})
	}
	if cfg.AppointmentStore == repository.StorePostgres {
		if err := database.InitPostgres(ctx, cfg.PostgresURL); err != nil {
			return nil, nil, err
		}
		a.checks = append(a.checks, utils.ReadyCheck{Name: "postgres", Check: database.PostgresReadyCheck})
	}

	var err error
	if a.appointments, err = repository.NewAppointmentRepository(cfg.AppointmentStore); err != nil {
		return nil, nil, err
	}
	if a.profiles, err = repository.NewProfileRepository(cfg.ProfileStore); err != nil {
		return nil, nil, err
	}
	logger.Info("Stores ready",
		zap.String("appointments", cfg.AppointmentStore),
		zap.String("profiles", cfg.ProfileStore))
	return a, fbApp, nil
}

// bootstrap wires every service behind the HTTP API and the worker.
func bootstrap(ctx context.Context, cfg config.Config, logger *zap.Logger) (*application, error) {
	a, fbApp, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := utils.InitRedis(); err != nil {
		if config.IsProduction() {
			return nil, err
		}
		logger.Warn("Redis unavailable, using in-process cache, sessions and inbox", zap.Error(err))
	} else {
		a.redisUp = true
		a.checks = append(a.checks, utils.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return utils.CacheClient.Ping(ctx).Err()
		}})
	}

	var (
		kv    utils.KV
		store session.Store
		inbox notification.InboxStore
	)
	if a.redisUp {
		kv = utils.RedisKV{Client: utils.CacheClient}
		store = session.RedisStore{Client: utils.SessionClient}
		inbox = &notification.RedisInbox{Client: utils.CacheClient}
	} else {
		kv = utils.NewMemoryKV()
		store = session.NewMemoryStore()
		inbox = notification.NewMemoryInbox()
	}

	switch cfg.IdentityProvider {
	case "firebase":
		if a.gateway, err = identity.NewFirebaseGateway(ctx, fbApp, cfg.FirebaseWebAPIKey); err != nil {
			return nil, err
		}
	case "memory":
		a.gateway = identity.NewMemoryGateway()
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}

	directory := profile.NewDirectory(a.profiles, kv, cfg.NameCacheTTL, logger.Named("directory"))

	inline, err := a.inlineNotifiers(ctx, fbApp, inbox)
	if err != nil {
		return nil, err
	}
	a.dispatcher = &notification.Dispatcher{Deliver: inline, Appointments: a.appointments, Logger: logger.Named("dispatcher")}

	svc := &appointment.Service{
		Repo:             a.appointments,
		Directory:        directory,
		Notifier:         inline,
		Logger:           logger.Named("appointment"),
		Location:         cfg.Location(),
		ReminderLeadTime: cfg.ReminderLeadTime,
	}
	if cfg.WorkerEnabled && a.redisUp {
		a.queue = asynq.NewClient(cron.RedisOpt(cfg))
		svc.Notifier = &notification.QueueNotifier{Queue: a.queue}
		svc.Reminders = &notification.ReminderQueue{Queue: a.queue}
	}

	a.sessions = session.New(a.gateway, a.profiles, store, cfg.SessionTTL, logger.Named("session"))
	if err := a.sessions.Init(ctx); err != nil {
		return nil, err
	}

	a.handlers = &handlers.HandlerBundle{
		Appointments: svc,
		Sessions:     a.sessions,
		Accounts:     account.NewService(a.gateway, a.profiles, directory, logger.Named("account")),
		Invitations:  &invitation.Service{Institutions: directory},
		Address:      address.NewClient(cfg.ViaCEPBaseURL, kv, logger.Named("address")),
		Inbox:        inbox,
	}
	return a, nil
}

// inlineNotifiers builds the notifiers that deliver an event directly.
func (a *application) inlineNotifiers(ctx context.Context, fbApp *firebase.App, inbox notification.InboxStore) (notification.Multi, error) {
	out := notification.Multi{&notification.InboxNotifier{Store: inbox}}
	if a.cfg.PushEnabled {
		client, err := fbApp.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase: failed to init messaging: %w", err)
		}
		out = append(out, &notification.PushNotifier{Sender: client, Users: a.profiles, Logger: a.logger.Named("push")})
	}
	if a.cfg.KafkaBrokers != "" {
		a.kafka = notification.NewKafkaWriter(a.cfg.KafkaBrokers, a.cfg.KafkaTopicPrefix)
		out = append(out, &notification.EventPublisher{Writer: a.kafka})
		a.logger.Info("Publishing appointment events", zap.String("topic", notification.EventsTopic(a.cfg.KafkaTopicPrefix)))
	}
	return out, nil
}

// migrate applies indexes and schemas for the stores that own them.
func (a *application) migrate(ctx context.Context) error {
	var errs []error
	for name, store := range map[string]any{"appointments": a.appointments, "profiles": a.profiles} {
		m, ok := store.(repository.Migrator)
		if !ok {
			a.logger.Info("Nothing to migrate", zap.String("store", name))
			continue
		}
		if err := m.Migrate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		a.logger.Info("Store migrated", zap.String("store", name))
	}
	return errors.Join(errs...)
}

func (a *application) close(ctx context.Context) {
	if a.sessions != nil {
		a.sessions.Dispose()
	}
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Warn("Failed to close kafka writer", zap.Error(err))
		}
	}
	utils.CloseRedis()
	database.CloseDB(ctx)
}
