package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulseline/notifyd/internal/api"
	"github.com/pulseline/notifyd/internal/config"
	"github.com/pulseline/notifyd/internal/hub"
	"github.com/pulseline/notifyd/internal/logger"
	"github.com/pulseline/notifyd/internal/notify"
	"github.com/pulseline/notifyd/internal/queue"
	"github.com/pulseline/notifyd/internal/store"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	gin.SetMode(cfg.GinMode)

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Construction order matters: the hub exists before anything that
	// publishes through it.
	realtimeHub := hub.New(log)
	wsHandler := hub.NewHandler(realtimeHub, log)
	inApp := notify.NewInAppAdapter(realtimeHub, log)

	// Email and SMS are normally worker concerns; the server also carries
	// them for the direct-send endpoint.
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

	producer := queue.NewProducer(cfg.RabbitURL, cfg.RabbitQueue, log)
	defer producer.Close()

	handler := api.NewHandler(db, producer, email, sms, inApp, log)
	router := api.NewRouter(handler, wsHandler, log, cfg.CORSAllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited")
}
