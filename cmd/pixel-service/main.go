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

	"github.com/Wuchinator/pixel-tracker/internal/config"
	"github.com/Wuchinator/pixel-tracker/internal/pixel"
	"github.com/Wuchinator/pixel-tracker/pkg/kafka"
	"github.com/Wuchinator/pixel-tracker/pkg/logger"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Error loading config: %v", err))
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Error initializing logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, "pixel-service")
	log.Info("Starting Pixel Service",
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.HTTP.Port),
		zap.Bool("kafka_enabled", cfg.Kafka.Enabled),
	)

	publisher := pixel.NopPublisher()
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:          cfg.Kafka.Brokers,
			Topic:            cfg.Kafka.Topic,
			Retries:          cfg.Kafka.ProducerRetries,
			Timeout:          cfg.Kafka.ProducerTimeout,
			RequiredAcks:     cfg.Kafka.RequiredAcks,
			Compression:      cfg.Kafka.CompressionType,
			IdempotentWrites: cfg.Kafka.IdempotentWrites,
			MaxMessageBytes:  cfg.Kafka.MaxMessageBytes,
		}, log)
		if err != nil {
			log.Fatal("Error initializing kafka", zap.Error(err))
		}
		defer producer.Close()
		publisher = producer
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clock := quartz.NewReal()
	store := pixel.NewMemoryStore(logger.WithComponent(log, "store"))
	service := pixel.NewService(pixel.ServiceConfig{
		BaseURL:              cfg.HTTP.BaseURL,
		ContinuousViewWindow: cfg.Tracking.ContinuousViewWindow,
		PingGapLimit:         cfg.Tracking.PingGapLimit,
		RecentLimit:          cfg.Tracking.RecentLimit,
		Clock:                clock,
		Registerer:           registry,
	}, store, publisher, log)

	reaper := pixel.NewReaper(pixel.ReaperConfig{
		Interval:   cfg.Tracking.ReaperInterval,
		StaleAfter: cfg.Tracking.SessionStaleAfter,
		Clock:      clock,
	}, service, logger.WithComponent(log, "reaper"))

	handler := pixel.NewHandler(service, pixel.HandlerConfig{
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
	}, logger.WithComponent(log, "http"))

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(requestLogger(log))
	router.Use(recoverer(log))
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reaper.Start(ctx)

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Error running HTTP server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down HTTP server")
	reaper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown HTTP server timed out", zap.Error(err))
		_ = server.Close()
	}
	log.Info("Pixel Service stopped")
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Error("HTTP request failed", fields...)
			} else {
				log.Debug("HTTP request", fields...)
			}
		})
	}
}

func recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic recovered",
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
