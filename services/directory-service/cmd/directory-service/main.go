package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/medhelp-app/medhelp/libs/config"
	"github.com/medhelp-app/medhelp/libs/db"
	"github.com/medhelp-app/medhelp/libs/httpx"
	otelx "github.com/medhelp-app/medhelp/libs/otel"
	"github.com/medhelp-app/medhelp/libs/outbox"
	"github.com/medhelp-app/medhelp/libs/runtime"
	"github.com/medhelp-app/medhelp/services/directory-service/internal/handlers"
	"github.com/medhelp-app/medhelp/services/directory-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "directory-service")
	port, err := config.Port("PORT", "8082")
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

	repo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	httpHandler := handlers.New(pool, repo, outboxRepo, logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers: config.String("KAFKA_BROKERS", ""),
	})
	go outboxPublisher.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)
	mux.HandleFunc("/api/v1/doctors", httpHandler.List)
	mux.HandleFunc("/api/v1/doctors/get", httpHandler.Get)
	mux.HandleFunc("/api/v1/doctors/availability", httpHandler.Availability)
	mux.HandleFunc("/api/v1/doctors/apply", httpHandler.Apply)
	mux.HandleFunc("/api/v1/doctors/me", httpHandler.Me)
	mux.HandleFunc("/api/v1/doctors/me/availability", httpHandler.SetAvailability)
	mux.HandleFunc("/api/v1/admin/doctors", httpHandler.ListDoctors)
	mux.HandleFunc("/api/v1/admin/doctors/pending", httpHandler.ListPending)
	mux.HandleFunc("/api/v1/admin/doctors/verify", httpHandler.Verify)
	mux.HandleFunc("/api/v1/admin/doctors/reject", httpHandler.Reject)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	handler = otelhttp.NewHandler(handler, "directory")
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

	if err := startGrpcServer(ctx, logger, repo); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
