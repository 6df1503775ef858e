package config

import (
	"context"
	"os"

	"github.com/mmdatafocus/loyalty_backend/appctx"
	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

// LOG_LEVEL picks the level (default error). LOG_FORMAT=text switches off JSON for local runs.
func init() {
	logg = logrus.New()
	if os.Getenv("LOG_FORMAT") == "text" {
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logg.SetFormatter(&logrus.JSONFormatter{})
	}
	logg.SetLevel(logrus.ErrorLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logg.SetLevel(lvl)
	}
	logg.SetOutput(os.Stdout)
}

// RequestFields returns the bank, user and correlation id carried by ctx.
func RequestFields(ctx context.Context) logrus.Fields {
	fields := logrus.Fields{}
	if ctx == nil {
		return fields
	}
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyBankId); ok && v != "" {
		fields["bank_id"] = v
	}
	if v, ok := appctx.GetInt(ctx, appctx.ContextKeyUserId); ok {
		fields["user_id"] = v
	}
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyCorrelationId); ok && v != "" {
		fields["correlation_id"] = v
	}
	return fields
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if logger == nil {
		logger = logg
	}
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}

// LogRequestError is LogError with the request's bank, user and correlation id attached.
func LogRequestError(ctx context.Context, moduleName string, funcName string, err error) {
	logg.WithFields(RequestFields(ctx)).WithFields(logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
	}).Error(err.Error())
}
