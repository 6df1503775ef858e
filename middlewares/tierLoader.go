package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/loyalty_backend/models"
	"gorm.io/gorm"
)

type tierReader struct {
	db *gorm.DB
}

// keyed by tier code; an unknown code resolves to a placeholder carrying the code as its name
func (r *tierReader) getTiers(ctx context.Context, codes []string) []*dataloader.Result[*models.TierDefinition] {
	var results []*models.TierDefinition
	err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&results).Error
	if err != nil {
		return handleError[*models.TierDefinition](len(codes), err)
	}
	byCode := make(map[string]*models.TierDefinition, len(results))
	for _, t := range results {
		byCode[t.Code] = t
	}
	loaderResults := make([]*dataloader.Result[*models.TierDefinition], 0, len(codes))
	for _, code := range codes {
		t, ok := byCode[code]
		if !ok {
			placeholder := models.TierDefinition{}.GetDefault(0).(models.TierDefinition)
			placeholder.Code = code
			placeholder.Name = code
			t = &placeholder
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.TierDefinition]{Data: t})
	}
	return loaderResults
}

func GetTierByCode(ctx context.Context, code string) (*models.TierDefinition, error) {
	loaders := For(ctx)
	return loaders.TierLoader.Load(ctx, code)()
}
