package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
)

const DefaultReviewTaskQueue = "tier-review"

func TemporalTaskQueue() string {
	if v := os.Getenv("TEMPORAL_TASK_QUEUE"); v != "" {
		return v
	}
	return DefaultReviewTaskQueue
}

// DialTemporal connects to TEMPORAL_HOST_PORT / TEMPORAL_NAMESPACE.
func DialTemporal() (client.Client, error) {
	hostPort := os.Getenv("TEMPORAL_HOST_PORT")
	if hostPort == "" {
		return nil, fmt.Errorf("TEMPORAL_HOST_PORT not set")
	}
	namespace := os.Getenv("TEMPORAL_NAMESPACE")
	if namespace == "" {
		namespace = "default"
	}
	return client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
		Logger:    temporalLogger{entry: logrus.NewEntry(GetLogger()).WithField("component", "temporal")},
	})
}

// temporalLogger adapts logrus to the sdk's key/value logger.
type temporalLogger struct {
	entry *logrus.Entry
}

func (l temporalLogger) fields(keyvals []interface{}) *logrus.Entry {
	e := l.entry
	for i := 0; i+1 < len(keyvals); i += 2 {
		e = e.WithField(fmt.Sprint(keyvals[i]), keyvals[i+1])
	}
	return e
}

func (l temporalLogger) Debug(msg string, keyvals ...interface{}) { l.fields(keyvals).Debug(msg) }
func (l temporalLogger) Info(msg string, keyvals ...interface{})  { l.fields(keyvals).Info(msg) }
func (l temporalLogger) Warn(msg string, keyvals ...interface{})  { l.fields(keyvals).Warn(msg) }
func (l temporalLogger) Error(msg string, keyvals ...interface{}) { l.fields(keyvals).Error(msg) }
