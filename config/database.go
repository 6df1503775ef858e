package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the global handle. Used by the CLI and by tests that run on sqlite.
func SetDB(d *gorm.DB) {
	db = d
}

func init() {
	// Load env from .env
	godotenv.Load()
	// Do NOT block startup in init() waiting for DB.
	// The HTTP port has to open before dependencies connect.
}

// MysqlDSN builds the DSN from DB_USER, DB_PASSWORD, DB_HOST, DB_PORT (default 3306) and DB_NAME.
// A DB_HOST of "/cloudsql/<CONNECTION_NAME>" connects through the Cloud SQL proxy socket.
func MysqlDSN() string {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "3306"
	}
	network, address := "tcp", fmt.Sprintf("%s:%s", host, port)
	if strings.HasPrefix(host, "/cloudsql/") {
		network, address = "unix", host
	}
	return fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		network,
		address,
		os.Getenv("DB_NAME"),
	)
}

// PoolSettings mirrors the database/sql pool knobs.
type PoolSettings struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// PoolSettingsFromEnv reads DB_MAX_OPEN_CONNS (50), DB_MAX_IDLE_CONNS (25),
// DB_CONN_MAX_LIFETIME_SECONDS (300) and DB_CONN_MAX_IDLE_TIME_SECONDS (60).
func PoolSettingsFromEnv() PoolSettings {
	return PoolSettings{
		MaxOpen:     intFromEnv("DB_MAX_OPEN_CONNS", 50),
		MaxIdle:     intFromEnv("DB_MAX_IDLE_CONNS", 25),
		MaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		MaxIdleTime: time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second,
	}
}

func (p PoolSettings) apply(d *gorm.DB) error {
	sqlDB, err := d.DB()
	if err != nil {
		return err
	}
	if p.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle >= 0 {
		sqlDB.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.MaxLifetime)
	}
	if p.MaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(p.MaxIdleTime)
	}
	return nil
}

// RetryDelay doubles from 2s and stops growing at 30s.
func RetryDelay(attempt int) time.Duration {
	sleep := time.Second * time.Duration(1<<min(attempt, 5))
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}

// ConnectDatabaseWithRetry connects and sets the global DB.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry() {
	dsn := MysqlDSN()
	entry := GetLogger().WithField("field", "database")

	for attempt := 1; ; attempt++ {
		conn, err := gorm.Open(mysql.Open(dsn), GormConfig())
		if err == nil {
			if err := PoolSettingsFromEnv().apply(conn); err != nil {
				entry.WithError(err).Warn("pool settings not applied")
			}
			if err := InstallPlugins(conn); err != nil {
				entry.WithError(err).Error("db connected but failed to install plugins")
			}
			db = conn
			entry.WithField("attempt", attempt).Warn("connected to database")
			return
		}

		sleep := RetryDelay(attempt)
		entry.WithFields(logrus.Fields{
			"attempt": attempt,
			"retry":   sleep.String(),
		}).Error("failed to connect database: " + err.Error())
		time.Sleep(sleep)
	}
}

// InstallPlugins registers tracing and the tenant guard on a gorm handle.
func InstallPlugins(d *gorm.DB) error {
	if err := d.Use(otelgorm.NewPlugin()); err != nil {
		return fmt.Errorf("otelgorm: %w", err)
	}
	if err := d.Use(NewTenantGuardPlugin()); err != nil {
		return fmt.Errorf("tenant guard: %w", err)
	}
	return nil
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}

// GormConfig is shared by the server, the CLI and tests.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormLogger(),
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// gormLogger logs errors and slow queries to stdout, or every statement to GORM_LOG when set.
func gormLogger() logger.Interface {
	cfg := logger.Config{
		LogLevel:      logger.Error,
		SlowThreshold: time.Second,
	}
	var out io.Writer = os.Stdout
	if path := os.Getenv("GORM_LOG"); path != "" {
		if f, err := os.Create(path); err == nil {
			out = f
			cfg.LogLevel = logger.Info
		}
	}
	return logger.New(log.New(out, "\r\n", log.LstdFlags), cfg)
}
