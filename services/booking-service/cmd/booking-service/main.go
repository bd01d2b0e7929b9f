package main

import (
	"context"
	"net/http"
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
	"github.com/medhelp-app/medhelp/services/booking-service/internal/consumer"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/handlers"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/payments"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/schedule"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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

	repo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	directory := schedule.NewHTTPProvider(config.String("DIRECTORY_URL", "http://localhost:8082"))
	daySched, err := schedule.NewDayScheduleProvider(config.String("DIRECTORY_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("directory grpc client init failed; falling back to http", "err", err)
		daySched = nil
	}

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		rejectedConsumer := kafkax.NewConsumer(logger, inbox.NewRepository(pool), kafkax.ConsumerConfig{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "booking-service"),
			Topic:   config.String("KAFKA_DOCTOR_REJECTED_TOPIC", "directory.doctor.rejected.v1"),
		}, consumer.DoctorRejected(pool, repo, outboxRepo, logger))
		go rejectedConsumer.Run(ctx)
	}

	bookingHandler := handlers.NewBookingHandler(repo, outboxRepo, directory, daySched, logger)
	paymentHandler := payments.NewHandler(payments.NewRepository(pool), repo, outboxRepo, logger, payments.Config{
		StripeSecretKey:               config.String("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:           config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookToleranceSeconds: config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300),
		Currency:                      config.String("PAYMENT_CURRENCY", "usd"),
		CheckoutSuccessURL:            config.String("CHECKOUT_SUCCESS_URL", "http://localhost:8080/payments/success?session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancelURL:             config.String("CHECKOUT_CANCEL_URL", "http://localhost:8080/payments/cancel?session_id={CHECKOUT_SESSION_ID}"),
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/book", bookingHandler.Create)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/payments/checkout", paymentHandler.Checkout)
	mux.HandleFunc("/api/v1/payments/session", paymentHandler.SessionStatus)
	mux.HandleFunc("/api/v1/payments/stripe/webhook", paymentHandler.StripeWebhook)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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
