package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// bank id is required for every tenant-owned operation
func requireBankId(ctx context.Context) (string, error) {
	bankId, ok := utils.GetBankIdFromContext(ctx)
	if !ok || bankId == "" {
		return "", utils.ErrorBankIdRequired
	}
	return bankId, nil
}

// reviewer / requester identity carried in the request context
func actorFromContext(ctx context.Context) (int, string) {
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok || userName == "" {
		userName = "System"
	}
	return userId, userName
}

// likePattern builds a case-insensitive LIKE argument.
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// allFilter treats "" and "all" as no filter.
func allFilter(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorRecordNotFound
	}
	return err
}

// runInTx runs fn in a transaction bound to ctx.
func runInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return config.GetDB().WithContext(ctx).Transaction(fn)
}

func datatypesJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func lockingForUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
