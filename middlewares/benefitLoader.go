package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/loyalty_backend/models"
	"gorm.io/gorm"
)

type benefitReader struct {
	db *gorm.DB
}

func (r *benefitReader) getBenefits(ctx context.Context, ids []int) []*dataloader.Result[*models.Benefit] {
	var results []models.Benefit
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Benefit](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetBenefit(ctx context.Context, id int) (*models.Benefit, error) {
	loaders := For(ctx)
	return loaders.BenefitLoader.Load(ctx, id)()
}
