package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulseline/notifyd/internal/config"
	"github.com/pulseline/notifyd/internal/logger"
	"github.com/pulseline/notifyd/internal/notify"
	"github.com/pulseline/notifyd/internal/queue"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := queue.DialWithRetry(ctx, queue.ConnectionOptions{
		URL:           cfg.RabbitURL,
		RetryAttempts: 8,
		Delay:         time.Second,
		Logger:        log,
	})
	if err != nil {
		log.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	email := notify.NewEmailAdapter(notify.EmailConfig{
		Host:     cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Sender:   cfg.EmailSender,
		Password: cfg.EmailPassword,
	}, log)
	sms := notify.NewSMSAdapter(notify.SMSConfig{
		AccountSID: cfg.TwilioSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioPhone,
	}, log)
	// The worker has no realtime hub; in-app jobs that land on the queue
	// resolve to a handled failure instead of crashing dispatch.
	inApp := notify.NewInAppAdapter(nil, log)

	dispatcher := notify.NewDispatcher(email, sms, inApp,
		time.Duration(cfg.SendTimeoutSeconds)*time.Second, log)

	// Metrics endpoint for the worker process.
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics listener failed", "error", err)
		}
	}()
	defer metricsSrv.Close()

	worker := queue.NewWorker(conn, cfg.RabbitQueue, dispatcher, log)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}

	log.Info("worker exited")
}
