package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/api/handlers"
	"github.com/pratik-mahalle/alertroute/internal/api/router"
	"github.com/pratik-mahalle/alertroute/internal/config"
	"github.com/pratik-mahalle/alertroute/internal/dispatch"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/domain/user"
	"github.com/pratik-mahalle/alertroute/internal/evaluator"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
	"github.com/pratik-mahalle/alertroute/internal/repository/postgres"
	"github.com/pratik-mahalle/alertroute/internal/resolver"
	"github.com/pratik-mahalle/alertroute/internal/services"
	"github.com/pratik-mahalle/alertroute/internal/worker"
	"github.com/pratik-mahalle/alertroute/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	if err := run(cfg, log); err != nil {
		log.FatalWithErr(err, "Server exited")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := postgres.RunMigrations(db, migrations.GetFS(cfg.Database.Driver))
	if err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{
		"driver":  cfg.Database.Driver,
		"applied": applied,
	}).Info("Database ready")

	// Repositories
	users := postgres.NewUserRepository(db)
	timeslots := postgres.NewTimeslotRepository(db)
	filters := postgres.NewFilterRepository(db)
	destinations := postgres.NewDestinationRepository(db)
	profiles := postgres.NewProfileRepository(db)
	media := postgres.NewMediaRepository(db)
	deliveries := postgres.NewDeliveryRepository(db)
	incidents := postgres.NewIncidentRepository(db)

	raw, err := cfg.Routing.FallbackDocument()
	if err != nil {
		log.WarnWithErr(err, "Ignoring fallback filter")
	}
	eval := evaluator.NewFromConfig(raw, log)

	dispatcher := dispatch.New(deliveries, destinations, log, dispatch.Options{
		Workers:       cfg.Dispatch.Workers,
		QueueSize:     cfg.Dispatch.QueueSize,
		Timeout:       cfg.Dispatch.Timeout,
		MaxElapsed:    cfg.Dispatch.MaxElapsed,
		EnabledMedia:  cfg.Dispatch.EnabledMedia,
		SubjectPrefix: cfg.Email.SubjectPrefix,
	}, senders(cfg)...)
	for _, m := range dispatcher.Media() {
		if err := media.MarkInstalled(ctx, string(m), m.DisplayName()); err != nil {
			return fmt.Errorf("failed to register medium %s: %w", m, err)
		}
	}

	policy, err := resolver.ParsePolicy(cfg.Routing.ProfileMatchPolicy)
	if err != nil {
		return err
	}
	matcher := resolver.NewMatcher(eval, policy, cfg.Routing.Location)
	res := resolver.New(profiles, media, dispatcher, matcher, log)

	// Services
	userService := services.NewUserService(users, log, user.Hooks{
		Created: []user.CreatedHook{
			services.DefaultTimeslotHook(timeslots),
			services.SyncedEmailHook(destinations),
		},
		EmailChanged: []user.EmailChangedHook{
			services.ResyncEmailHook(destinations),
		},
	})
	timeslotService := services.NewTimeslotService(timeslots, cfg.Routing.Location, log)
	filterService := services.NewFilterService(filters, profiles, incidents, eval, log)
	destinationService := services.NewDestinationService(destinations, profiles, log)
	profileService := services.NewProfileService(profiles, timeslots, filters, destinations, incidents, eval, log)
	notificationService := services.NewNotificationService(incidents, res, dispatcher, cfg.Routing.SendNotifications, log)

	handler := router.New(cfg.Server, log, &router.Handlers{
		Health:      handlers.NewHealthHandler(db, dispatcher, log),
		User:        handlers.NewUserHandler(userService, log, validator.New()),
		Timeslot:    handlers.NewTimeslotHandler(timeslotService, log),
		Filter:      handlers.NewFilterHandler(filterService, log),
		Destination: handlers.NewDestinationHandler(destinationService, log),
		Profile:     handlers.NewProfileHandler(profileService, log),
		Event:       handlers.NewEventHandler(notificationService, log),
	})

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Workers
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer := worker.NewEventConsumer(
			worker.NewKafkaReader(cfg.Kafka),
			notificationService,
			cfg.Kafka.BatchSize,
			cfg.Kafka.FlushInterval,
			log,
		)
		go func() {
			defer close(consumerDone)
			consumer.Start(ctx)
		}()
	} else {
		close(consumerDone)
	}

	if cfg.Retry.Enabled {
		retrier := worker.NewDeliveryRetrier(deliveries, dispatcher, cfg.Retry.Schedule, cfg.Retry.BatchSize, log)
		if err := retrier.Start(ctx); err != nil {
			return err
		}
		defer retrier.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     log.Std("http"),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
			"send":        cfg.Routing.SendNotifications,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WarnWithErr(err, "Graceful shutdown failed")
	}

	stop()
	select {
	case <-consumerDone:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("Event consumer did not stop in time")
	}
	return nil
}

// senders builds one sender per medium. SMS needs a gateway address.
func senders(cfg *config.Config) []notification.Sender {
	mailer := dispatch.NewDialer(cfg.Email)
	client := &http.Client{Timeout: cfg.Dispatch.Timeout}

	out := []notification.Sender{
		dispatch.NewEmailSender(mailer, cfg.Email.From),
		dispatch.NewSlackSender(client),
		dispatch.NewWebhookSender(client),
	}
	if cfg.Email.SMSGatewayAddress != "" {
		out = append(out, dispatch.NewSMSSender(mailer, cfg.Email.From, cfg.Email.SMSGatewayAddress))
	}
	return out
}
