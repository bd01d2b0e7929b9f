package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/medhelp-app/medhelp/libs/config"
	"github.com/medhelp-app/medhelp/libs/db"
	"github.com/medhelp-app/medhelp/libs/httpx"
	"github.com/medhelp-app/medhelp/libs/inbox"
	"github.com/medhelp-app/medhelp/libs/kafkax"
	otelx "github.com/medhelp-app/medhelp/libs/otel"
	"github.com/medhelp-app/medhelp/libs/outbox"
	"github.com/medhelp-app/medhelp/libs/runtime"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/dispatch"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/email"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/handlers"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/storage"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/stream"
)

// Every topic the dispatcher knows how to render.
var defaultTopics = []string{
	"booking.appointment.booked.v1",
	"booking.appointment.cancelled.v1",
	"booking.payment.succeeded.v1",
	"directory.doctor.verified.v1",
	"directory.doctor.rejected.v1",
	"identity.user.registered.v1",
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	notificationsRepo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@medhelp.local"),
	)

	hub := stream.NewHub()
	dispatcher := dispatch.New(pool, notificationsRepo, outboxRepo, emailSender, hub, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		topics := defaultTopics
		if raw := strings.TrimSpace(config.String("KAFKA_CONSUME_TOPICS", "")); raw != "" {
			topics = nil
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					topics = append(topics, t)
				}
			}
		}
		inboxRepo := inbox.NewRepository(pool)
		for _, topic := range topics {
			eventConsumer := kafkax.NewConsumer(logger, inboxRepo, kafkax.ConsumerConfig{
				Brokers: brokers,
				GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
				Topic:   topic,
			}, dispatcher.Handle())
			go eventConsumer.Run(ctx)
		}
	}

	notificationHandler := handlers.New(notificationsRepo, hub, logger)
	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/notifications", notificationHandler.List)
	mux.HandleFunc("/api/v1/notifications/read", notificationHandler.MarkRead)
	mux.HandleFunc("/api/v1/notifications/read-all", notificationHandler.MarkAllRead)
	mux.HandleFunc("/api/v1/notifications/stream", notificationHandler.Stream)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
