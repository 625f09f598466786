// Package main wires the festival server: storage, the feature services,
// the HTTP edge and the background workers that deliver outbox events,
// send notifications and run the maintenance sweeps. Business rules live
// in the internal service packages; this file only connects them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	adminservice "sportsfest/internal/admin/service"
	capacitymetrics "sportsfest/internal/capacity/metrics"
	capacityservice "sportsfest/internal/capacity/service"
	seatstore "sportsfest/internal/capacity/store/seat"
	"sportsfest/internal/jobs"
	"sportsfest/internal/jwt"
	notificationmetrics "sportsfest/internal/notification/metrics"
	notificationsender "sportsfest/internal/notification/sender"
	notificationservice "sportsfest/internal/notification/service"
	otpmetrics "sportsfest/internal/otp/metrics"
	otpservice "sportsfest/internal/otp/service"
	challengestore "sportsfest/internal/otp/store/challenge"
	outboxmetrics "sportsfest/internal/outbox/metrics"
	"sportsfest/internal/outbox/publisher"
	outboxservice "sportsfest/internal/outbox/service"
	eventstore "sportsfest/internal/outbox/store/event"
	"sportsfest/internal/payment/gateway"
	paymentmetrics "sportsfest/internal/payment/metrics"
	paymentmodels "sportsfest/internal/payment/models"
	paymentservice "sportsfest/internal/payment/service"
	paymentstore "sportsfest/internal/payment/store/payment"
	"sportsfest/internal/platform/config"
	"sportsfest/internal/platform/httpserver"
	"sportsfest/internal/platform/logger"
	"sportsfest/internal/platform/metrics"
	platformotel "sportsfest/internal/platform/otel"
	"sportsfest/internal/platform/postgres"
	"sportsfest/internal/platform/redis"
	registrationmetrics "sportsfest/internal/registration/metrics"
	registrationservice "sportsfest/internal/registration/service"
	registrationstore "sportsfest/internal/registration/store/registration"
	sponsorshipmetrics "sportsfest/internal/sponsorship/metrics"
	sponsorshipservice "sportsfest/internal/sponsorship/service"
	sponsorshipstore "sportsfest/internal/sponsorship/store/sponsorship"
	sportmetrics "sportsfest/internal/sport/metrics"
	sportservice "sportsfest/internal/sport/service"
	categorystore "sportsfest/internal/sport/store/category"
	sportstore "sportsfest/internal/sport/store/sport"
	studentmetrics "sportsfest/internal/student/metrics"
	studentservice "sportsfest/internal/student/service"
	studentstore "sportsfest/internal/student/store/student"
	httptransport "sportsfest/internal/transport/http"
	"sportsfest/migrations"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traceShutdown, err := platformotel.Setup(ctx, "sportsfest")
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		_ = traceShutdown(context.Background())
	}()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, migrations.FS, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := redis.Connect(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	storeTx := newPostgresTx(db)

	sportStore := sportstore.NewPostgres(db)
	categoryStore := categorystore.NewPostgres(db)
	seatStore := seatstore.NewPostgres(db)
	studentStore := studentstore.NewPostgres(db)
	registrationStore := registrationstore.NewPostgres(db)
	paymentStore := paymentstore.NewPostgres(db)
	sponsorshipStore := sponsorshipstore.NewPostgres(db)
	eventStore := eventstore.NewPostgres(db)

	// Notifications drain through a background worker. The log sender stands
	// in until a mail provider is integrated; swapping it out touches only
	// this line.
	notifier := notificationservice.New(notificationsender.NewLog(log),
		notificationservice.WithLogger(log),
		notificationservice.WithMetrics(notificationmetrics.New()),
	)

	outboxMetrics := outboxmetrics.New()
	recorder := outboxservice.NewRecorder(eventStore,
		outboxservice.WithLogger(log),
		outboxservice.WithMetrics(outboxMetrics),
	)

	ledger := capacityservice.NewLedger(seatStore,
		capacityservice.WithLogger(log),
		capacityservice.WithMetrics(capacitymetrics.New()),
	)

	studentSvc := studentservice.New(studentStore,
		studentservice.WithLogger(log),
		studentservice.WithMetrics(studentmetrics.New()),
	)

	sportSvc := sportservice.New(sportStore, categoryStore,
		sportservice.WithLogger(log),
		sportservice.WithMetrics(sportmetrics.New()),
	)

	// Hosted providers sit behind circuit breakers; local collection has no
	// remote dependency to break.
	gateways := map[paymentmodels.Provider]gateway.Gateway{
		paymentmodels.ProviderLocal: gateway.NewLocal(),
		paymentmodels.ProviderRazorpay: gateway.NewBreaker(paymentmodels.ProviderRazorpay.String(), gateway.NewRazorpay(),
			gateway.WithLogger(log)),
		paymentmodels.ProviderStripe: gateway.NewBreaker(paymentmodels.ProviderStripe.String(), gateway.NewStripe(),
			gateway.WithLogger(log)),
	}
	paymentSvc := paymentservice.New(paymentStore, storeTx, gateways,
		paymentservice.WithLogger(log),
		paymentservice.WithMetrics(paymentmetrics.New()),
		paymentservice.WithEvents(recorder),
	)

	registrationSvc := registrationservice.New(registrationStore, storeTx, ledger, categoryStore, studentStore, paymentSvc,
		registrationservice.WithLogger(log),
		registrationservice.WithMetrics(registrationmetrics.New()),
		registrationservice.WithEvents(recorder),
		registrationservice.WithNotices(notifier),
	)
	paymentSvc.Subscribe(registrationSvc)

	sponsorshipSvc := sponsorshipservice.New(sponsorshipStore,
		sponsorshipservice.WithLogger(log),
		sponsorshipservice.WithMetrics(sponsorshipmetrics.New()),
	)

	tokens := jwt.NewService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTTL)

	// Redis keeps challenges visible to every instance; without it the
	// in-memory store serves single-instance deployments.
	var challenges otpservice.Store = challengestore.NewInMemory()
	if redisClient != nil {
		challenges = challengestore.NewRedis(redisClient)
	}
	otpSvc := otpservice.New(challenges, otpservice.NewStudentDirectory(studentStore), tokens,
		otpservice.WithLogger(log),
		otpservice.WithMetrics(otpmetrics.New()),
		otpservice.WithNotifier(notifier),
		otpservice.WithTTL(cfg.OTP.TTL),
		otpservice.WithMaxAttempts(cfg.OTP.MaxAttempts),
	)

	adminSvc := adminservice.New(registrationSvc, paymentSvc, sponsorshipSvc, studentStore, categoryStore,
		adminservice.WithLogger(log),
	)

	var pub outboxservice.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaPub.Close()
		pub = kafkaPub
		log.Info("outbox publishing to kafka",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.Topic),
		)
	} else {
		pub = publisher.NewLog(log)
		log.Info("no kafka brokers configured, outbox events go to the log")
	}

	listener, err := outboxservice.NewListener(cfg.Postgres.URL,
		outboxservice.WithListenerLogger(log),
	)
	if err != nil {
		return fmt.Errorf("subscribe outbox channel: %w", err)
	}
	relay := outboxservice.NewRelay(eventStore, storeTx, pub,
		outboxservice.WithRelayLogger(log),
		outboxservice.WithRelayMetrics(outboxMetrics),
		outboxservice.WithWake(listener.Wake()),
	)

	runner := jobs.New(log)
	runner.Every(ctx, cfg.Jobs.Interval, "payment_timeout_sweep",
		jobs.PaymentTimeoutSweep(paymentSvc, cfg.Payment.PendingTimeout))
	runner.Every(ctx, cfg.Jobs.Interval, "sponsorship_expiry_sweep",
		jobs.SponsorshipExpirySweep(sponsorshipSvc))
	runner.Every(ctx, cfg.Jobs.Interval, "login_challenge_sweep",
		jobs.LoginChallengeSweep(otpSvc))

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        metrics.New(),
		DB:             db,
		RequestTimeout: cfg.Server.RequestTimeout,
		AdminToken:     cfg.Server.AdminToken,
		JWTValidator:   tokens,
		Auth:           otpSvc,
		Students:       studentSvc,
		Sports:         sportSvc,
		Registrations:  registrationSvc,
		Payments:       paymentSvc,
		Sponsorships:   sponsorshipSvc,
		Admin:          adminSvc,
	})
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		return listener.Run(gctx)
	})
	g.Go(func() error {
		return notifier.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
