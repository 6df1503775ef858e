package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/loyalty_backend/models"
	"gorm.io/gorm"
)

type customerTierReader struct {
	db *gorm.DB
}

func (r *customerTierReader) getCustomerTiers(ctx context.Context, ids []int) []*dataloader.Result[*models.CustomerTier] {
	var results []models.CustomerTier
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.CustomerTier](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetCustomerTier(ctx context.Context, id int) (*models.CustomerTier, error) {
	loaders := For(ctx)
	return loaders.CustomerTierLoader.Load(ctx, id)()
}
