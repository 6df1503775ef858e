package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmdatafocus/loyalty_backend/appctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRequireEnv(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("API_SECRET", "  ")
	t.Setenv("PUBSUB_TOPIC", "")

	err := RequireEnv("DB_HOST", "API_SECRET", "PUBSUB_TOPIC")
	var missing *MissingEnvError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"API_SECRET", "PUBSUB_TOPIC"}, missing.Keys)
	assert.Contains(t, err.Error(), "API_SECRET, PUBSUB_TOPIC")

	t.Setenv("API_SECRET", "s3cret")
	assert.NoError(t, RequireEnv(RequiredEnv...))
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("TEMPORAL_HOST_PORT", "")
	t.Setenv("FEATURE_TEMPORAL_REVIEWS", "true")
	assert.False(t, TemporalReviewsEnabled())

	t.Setenv("TEMPORAL_HOST_PORT", "temporal:7233")
	assert.True(t, TemporalReviewsEnabled())
	t.Setenv("FEATURE_TEMPORAL_REVIEWS", "false")
	assert.False(t, TemporalReviewsEnabled())

	t.Setenv("FEATURE_ALLOW_SELF_APPROVAL", "")
	assert.False(t, AllowSelfApproval())
	t.Setenv("FEATURE_ALLOW_SELF_APPROVAL", "true")
	assert.True(t, AllowSelfApproval())
}

type guardedRow struct {
	ID     int `gorm:"primary_key"`
	BankId string
	Name   string
}

func TestTenantGuardScopesQueries(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "guard.db")), GormConfig())
	require.NoError(t, err)
	require.NoError(t, db.Use(NewTenantGuardPlugin()))
	require.NoError(t, db.AutoMigrate(&guardedRow{}))
	require.NoError(t, db.Create(&[]guardedRow{
		{BankId: "BANK01", Name: "a"},
		{BankId: "BANK01", Name: "b"},
		{BankId: "BANK02", Name: "c"},
	}).Error)

	bank := appctx.Set(context.Background(), appctx.ContextKeyBankId, "BANK01")
	cases := []struct {
		name string
		ctx  context.Context
		want int64
	}{
		{"scoped", bank, 2},
		{"admin bypass", appctx.Set(bank, appctx.ContextKeyIsAdmin, true), 3},
		{"internal bypass", appctx.Set(bank, appctx.ContextKeySkipTenantScope, true), 3},
		{"no bank", context.Background(), 3},
	}
	for _, tc := range cases {
		var count int64
		require.NoError(t, db.WithContext(tc.ctx).Model(&guardedRow{}).Count(&count).Error, tc.name)
		assert.Equal(t, tc.want, count, tc.name)
	}

	// explicit bank_id filters are left alone
	var rows []guardedRow
	require.NoError(t, db.WithContext(bank).Where("bank_id = ?", "BANK02").Find(&rows).Error)
	assert.Len(t, rows, 1)

	res := db.WithContext(bank).Model(&guardedRow{}).Where("name = ?", "c").Update("name", "z")
	require.NoError(t, res.Error)
	assert.EqualValues(t, 0, res.RowsAffected)
}

func TestScopedBank(t *testing.T) {
	bank := appctx.Set(context.Background(), appctx.ContextKeyBankId, "BANK01")

	bankId, ok := ScopedBank(bank)
	assert.True(t, ok)
	assert.Equal(t, "BANK01", bankId)

	for name, ctx := range map[string]context.Context{
		"admin":   appctx.Set(bank, appctx.ContextKeyIsAdmin, true),
		"skip":    appctx.Set(bank, appctx.ContextKeySkipTenantScope, true),
		"no bank": context.Background(),
		"blank":   appctx.Set(context.Background(), appctx.ContextKeyBankId, ""),
	} {
		_, ok := ScopedBank(ctx)
		assert.False(t, ok, name)
	}
	// an explicit false flag keeps the scope
	_, ok = ScopedBank(appctx.Set(bank, appctx.ContextKeyIsAdmin, false))
	assert.True(t, ok)
}

func TestRequestFields(t *testing.T) {
	ctx := appctx.Set(context.Background(), appctx.ContextKeyBankId, "BANK01")
	ctx = appctx.Set(ctx, appctx.ContextKeyUserId, 7)
	ctx = appctx.Set(ctx, appctx.ContextKeyCorrelationId, "cid-1")

	fields := RequestFields(ctx)
	assert.Equal(t, "BANK01", fields["bank_id"])
	assert.Equal(t, 7, fields["user_id"])
	assert.Equal(t, "cid-1", fields["correlation_id"])
	assert.Empty(t, RequestFields(context.Background()))
}

func TestMysqlDSN(t *testing.T) {
	t.Setenv("DB_USER", "loyalty")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "loyalty")
	t.Setenv("DB_PORT", "")

	t.Setenv("DB_HOST", "10.0.0.5")
	assert.Equal(t, "loyalty:pw@tcp(10.0.0.5:3306)/loyalty?parseTime=true&charset=utf8mb4&loc=UTC", MysqlDSN())

	t.Setenv("DB_HOST", "/cloudsql/proj:asia-southeast1:loyalty")
	assert.Equal(t, "loyalty:pw@unix(/cloudsql/proj:asia-southeast1:loyalty)/loyalty?parseTime=true&charset=utf8mb4&loc=UTC", MysqlDSN())
}

func TestPoolSettingsAndRetry(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "12")
	t.Setenv("DB_MAX_IDLE_CONNS", "oops")
	p := PoolSettingsFromEnv()
	assert.Equal(t, 12, p.MaxOpen)
	assert.Equal(t, 25, p.MaxIdle)

	assert.Equal(t, 2*time.Second, RetryDelay(1))
	assert.Equal(t, 16*time.Second, RetryDelay(4))
	assert.Equal(t, 30*time.Second, RetryDelay(9))
}
