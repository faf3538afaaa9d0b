// Package app assembles the stores, notification pipeline and sweeper shared
// by the API server and the cronjob runner.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equiprent-backend/internal/config"
	"equiprent-backend/internal/jobs"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/messaging/kafka"
	"equiprent-backend/internal/repository"
	"equiprent-backend/internal/repository/memory"
	"equiprent-backend/internal/repository/postgres"
	"equiprent-backend/internal/service"

	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "equiprent:lifecycle-sweep"

type Repositories struct {
	Bookings      repository.BookingRepository
	Sales         repository.SaleRepository
	Users         repository.UserRepository
	Notifications repository.NotificationRepository
}

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Repos  Repositories
	Queue  *service.NotificationQueue
	Runner *jobs.JobRunner

	closers []func() error
}

// Build opens the configured store and transports and starts the notification
// workers. The caller must Close the returned App.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	if err := a.openStore(ctx, cfg); err != nil {
		a.Close(ctx)
		return nil, err
	}

	deliverer, err := a.newDeliverer(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	logger.Info("Notification transport configured", "transport", deliverer.Name(), "workers", cfg.Notify.Workers)

	a.Queue = service.NewNotificationQueue(a.Repos.Notifications, deliverer, cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Notify.MaxRetries)
	a.Queue.Start(ctx)

	var lock jobs.DistributedLock
	if cfg.Sweeper.DistributedLock {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			client.Close()
			a.Close(ctx)
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, client.Close)
		lock = jobs.NewRedisLock(client, sweepLockKey)
		logger.Info("Distributed sweep lock enabled", "redis", cfg.Redis.Addr, "ttl", cfg.Sweeper.LockTTL())
	}

	a.Runner = jobs.NewJobRunner(
		jobs.Repositories{Bookings: a.Repos.Bookings, Sales: a.Repos.Sales, Users: a.Repos.Users},
		a.Queue,
		lock,
		jobs.Options{
			AdminEmail:  cfg.Notify.AdminEmail,
			Workers:     cfg.Sweeper.Workers,
			CallTimeout: cfg.Sweeper.CallTimeout(),
			LockTTL:     cfg.Sweeper.LockTTL(),
		},
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on exit")
		store := memory.NewStore()
		a.Repos = Repositories{Bookings: store.Bookings, Sales: store.Sales, Users: store.Users, Notifications: store.Notifications}
		return nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}

	store := postgres.NewStore(db)
	if err := store.Ping(ctx, 5*time.Second); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established")
	a.Repos = Repositories{
		Bookings:      store.BookingRepository,
		Sales:         store.SaleRepository,
		Users:         store.UserRepository,
		Notifications: store.NotificationRepository,
	}
	return nil
}

func (a *App) newDeliverer(ctx context.Context, cfg *config.Config) (service.Deliverer, error) {
	switch cfg.Notify.Transport {
	case "smtp":
		return service.NewEmailDeliverer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From), nil
	case "sendgrid":
		return service.NewSendGridDeliverer(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, cfg.SendGrid.Templates), nil
	case "kafka":
		if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers[0], cfg.Kafka.Topic); err != nil {
			logger.Warn("Could not ensure kafka topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout())
		a.closers = append(a.closers, producer.Close)
		return producer, nil
	case "log":
		return service.NewLogDeliverer(), nil
	default:
		return nil, fmt.Errorf("unsupported notification transport %q", cfg.Notify.Transport)
	}
}

// Close drains the notification queue and releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Queue != nil {
		if err := a.Queue.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notification queue: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
