// Package app wires configuration into stores, sinks and services for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"divecenter-backend/internal/config"
	"divecenter-backend/internal/lifecycle"
	"divecenter-backend/internal/lock"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/notify"
	"divecenter-backend/internal/repository"
	"divecenter-backend/internal/repository/memory"
	"divecenter-backend/internal/repository/postgres"
	"divecenter-backend/internal/service"
)

// Stores is the backend-independent view of the inventory store.
type Stores struct {
	Equipment     repository.EquipmentRepository
	Centers       repository.CenterRepository
	Notifications repository.NotificationRepository
	Snapshots     repository.SnapshotReader
	Ping          func(ctx context.Context) error
}

type App struct {
	Config     *config.Config
	Stores     Stores
	Equipment  service.EquipmentService
	Centers    service.CenterService
	Dispatcher *notify.Dispatcher

	closers []func(ctx context.Context) error
}

// Build opens the configured store, starts the notification dispatcher and builds the services.
// On error everything opened so far is closed again.
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(ctx)
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	sinks, err := a.buildSinks(ctx)
	if err != nil {
		return nil, err
	}
	a.Dispatcher = notify.NewDispatcher(notify.Options{
		QueueSize:   cfg.Notifications.QueueSize,
		Workers:     cfg.Notifications.Workers,
		SendTimeout: cfg.Notifications.SendTimeout,
	}, sinks...)
	a.closers = append(a.closers, a.Dispatcher.Close)

	machine := lifecycle.NewMachine(Policy(cfg))
	locks := lock.NewKeyedLocker(cfg.Lifecycle.LockWait)
	a.Equipment = service.NewEquipmentService(a.Stores.Equipment, machine, locks, a.Dispatcher)
	a.Centers = service.NewCenterService(a.Stores.Centers, a.Stores.Snapshots, a.Stores.Notifications, cfg.Lifecycle.UsageThresholds)
	return a, nil
}

// Policy maps the lifecycle section of the configuration onto a state machine policy.
func Policy(cfg *config.Config) lifecycle.Policy {
	return lifecycle.Policy{
		UsageReset:      lifecycle.ResetPolicy(cfg.Lifecycle.UsageReset),
		ServiceInterval: cfg.ServiceInterval(),
		Thresholds:      cfg.Lifecycle.UsageThresholds,
	}
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Store.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		s := memory.NewStore()
		a.Stores = Stores{
			Equipment:     s.Equipment,
			Centers:       s.Centers,
			Notifications: s.Notifications,
			Snapshots:     s.Snapshots,
			Ping:          s.Ping,
		}
		return nil
	case "postgres":
		logger.Info("Connecting to database...", "host", a.Config.Database.Host, "port", a.Config.Database.Port, "database", a.Config.Database.Database)
		db, err := postgres.Open(ctx, a.Config.GetDatabaseConnectionString())
		if err != nil {
			return err
		}
		s := postgres.NewStore(db)
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		if a.Config.Store.AutoMigrate {
			if err := s.Migrate(); err != nil {
				return err
			}
		}
		logger.Info("Database connection established")
		a.Stores = Stores{
			Equipment:     s.Equipment,
			Centers:       s.Centers,
			Notifications: s.Notifications,
			Snapshots:     s.Snapshots,
			Ping:          s.Ping,
		}
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", a.Config.Store.Driver)
	}
}

func (a *App) buildSinks(ctx context.Context) ([]notify.Sink, error) {
	n := a.Config.Notifications
	var sinks []notify.Sink

	if n.Log {
		sinks = append(sinks, notify.LogSink{})
	}
	if n.Store {
		sinks = append(sinks, notify.NewStoreSink(a.Stores.Notifications))
	}
	if n.Kafka.Enabled {
		producer, err := notify.NewSyncProducer(n.Kafka.Brokers, n.Kafka.ClientID)
		if err != nil {
			return nil, err
		}
		k := notify.NewKafkaSink(producer, n.Kafka.Topic)
		a.closers = append(a.closers, func(context.Context) error { return k.Close() })
		sinks = append(sinks, k)
	}
	if n.SendGrid.Enabled {
		sinks = append(sinks, notify.NewEmailSink(n.SendGrid.APIKey, notify.EmailConfig{
			FromEmail:         n.SendGrid.FromEmail,
			FromName:          n.SendGrid.FromName,
			StaffEmails:       n.SendGrid.StaffEmails,
			DefaultStaffEmail: n.SendGrid.DefaultStaffEmail,
			NotifyRenters:     n.SendGrid.NotifyRenters,
		}))
	}
	if n.Firebase.Enabled {
		client, err := notify.NewFirebaseClient(ctx, n.Firebase.ProjectID, n.Firebase.CredentialsFile)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notify.NewPushSink(client, n.Firebase.TopicPrefix))
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	logger.Info("Notification sinks configured", "sinks", names)
	return sinks, nil
}

// Close drains the dispatcher first, then releases the sinks and the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
