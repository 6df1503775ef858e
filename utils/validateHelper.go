package utils

import (
	"context"
	"reflect"

	"github.com/mmdatafocus/loyalty_backend/config"
)

// check if id exists for the bank, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, bankId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, bankId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// check if ALL ids exist for the bank
func ValidateResourcesId[M any, ID comparable](ctx context.Context, bankId string, ids []ID) error {
	unqIds := UniqueSlice(ids)
	if len(unqIds) == 0 {
		return nil
	}
	count, err := ResourceCountWhere[M](ctx, bankId, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, bankId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if exceptId == nil || reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, bankId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, bankId, column+" = ? AND NOT id = ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError(column, "duplicate "+column)
	}
	return nil
}

// count records, using WHERE bank_id = ? AND $condition
// bank_id can be blank for admin user
func ResourceCountWhere[T any](ctx context.Context, bankId string, condition string, value ...interface{}) (int64, error) {
	var model T
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	if bankId != "" {
		dbCtx = dbCtx.Where("bank_id = ?", bankId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
