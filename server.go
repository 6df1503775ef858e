package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/handlers"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/mmdatafocus/loyalty_backend/workflow"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
)

const defaultPort = "8080"

func main() {
	logger := config.GetLogger()
	// missing DB_HOST / API_SECRET is fatal before anything listens
	config.MustRequireEnv(config.RequiredEnv...)

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var temporalClient client.Client
	if config.TemporalReviewsEnabled() {
		c, err := config.DialTemporal()
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "temporal"}).Warn("temporal unavailable; review decisions apply synchronously: " + err.Error())
		} else {
			temporalClient = c
			defer c.Close()
		}
	}
	reviews := workflow.NewReviewCoordinator(temporalClient)

	storage, err := utils.NewObjectStorage(os.Getenv("GCS_BUCKET"))
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "storage"}).Warn("object storage disabled: " + err.Error())
	}

	r := setupRouter(logger, handlers.Deps{
		Reviews:   reviews,
		Evaluator: workflow.NewTierEvaluator(logger, reviews),
		Storage:   storage,
	})

	// Start listening immediately; until DB/Redis are ready the readiness gate answers 503.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can block tables; run it as a separate job when SKIP_MIGRATIONS=true.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// outbox dispatcher publishes after commit
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger, workflow.DefaultPublisher()).Run(dispatcherCtx)

	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := config.RetryDelay(attempt)
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
		"port": port,
	}).Info("loyalty backend started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// stop background workers before draining requests
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
