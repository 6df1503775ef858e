package models

import (
	"context"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

type Resource interface {
	GetBankId() string
}

// first find in redis, then in db, using ctx's bank_id in WHERE, cache result
// (may return RecordNotFound error)
func GetResource[T Resource](ctx context.Context, id int, associations ...string) (*T, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.RetrieveRedis[T](id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result, err = utils.FetchModel[T](ctx, bankId, id, associations...)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedis[T](result, id); err != nil {
			return nil, err
		}
	} else if (*result).GetBankId() != bankId {
		// cached copy belongs to another bank
		return nil, utils.ErrorRecordNotFound
	}
	return result, nil
}

// list all resources of the bank, redis or db, cache result
func ListAllResource[T any](ctx context.Context, orders ...string) ([]*T, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	results, err := utils.RetrieveRedisList[T](bankId)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results, err = utils.FetchAllModels[T](ctx, bankId, orders...)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[T](results, bankId); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ToggleActiveModel flips is_active and records the change in History within one transaction.
func ToggleActiveModel[T RedisCleaner](ctx context.Context, bankId string, id int, isActive bool) (*T, error) {
	var result T
	db := config.GetDB()

	if err := db.WithContext(ctx).Where("bank_id = ?", bankId).First(&result, id).Error; err != nil {
		return nil, notFound(err)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated := tx.Model(&result).UpdateColumn("is_active", isActive)
		// MySQL counts 0 affected rows when is_active already holds the value
		if updated.Error != nil {
			return updated.Error
		}
		actionType := "*INACTIVE*"
		if isActive {
			actionType = "*ACTIVE*"
		}
		return createHistory(tx, actionType, id, updated.Statement.Table, nil, nil, "toggled "+utils.GetTypeName[T]())
	})
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(result); err != nil {
		return nil, err
	}
	// re-read so the returned flag reflects the stored value
	if err := db.WithContext(ctx).Where("bank_id = ?", bankId).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
