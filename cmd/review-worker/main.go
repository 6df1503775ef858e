// review-worker runs the Temporal worker for tier-change reviews.
//
// Env: TEMPORAL_HOST_PORT, TEMPORAL_NAMESPACE, TEMPORAL_TASK_QUEUE and the DB_* / REDIS_ADDRESS
// variables the activities need.
package main

import (
	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/workflow"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/worker"
)

func main() {
	logger := config.GetLogger()
	config.MustRequireEnv("DB_HOST", "TEMPORAL_HOST_PORT")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	c, err := config.DialTemporal()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "temporal"}).Fatal("unable to create Temporal client: " + err.Error())
	}
	defer c.Close()

	taskQueue := config.TemporalTaskQueue()
	w := worker.New(c, taskQueue, worker.Options{})
	workflow.RegisterReviewWorker(w)

	logger.WithFields(logrus.Fields{"task_queue": taskQueue}).Info("review worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.WithFields(logrus.Fields{"field": "temporal"}).Fatal("worker exited: " + err.Error())
	}
}
