package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

type branchReader struct {
	db *gorm.DB
}

// customers without a branch carry id 0, which resolves to the "Unassigned" placeholder without a query
func (r *branchReader) getBranches(ctx context.Context, ids []int) []*dataloader.Result[*models.Branch] {
	assigned := make([]int, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			assigned = append(assigned, id)
		}
	}
	var results []models.Branch
	if len(assigned) > 0 {
		q := r.db.WithContext(ctx).Where("id IN ?", assigned)
		if bankId, ok := utils.GetBankIdFromContext(ctx); ok && bankId != "" {
			q = q.Where("bank_id = ?", bankId)
		}
		if err := q.Find(&results).Error; err != nil {
			return handleError[*models.Branch](len(ids), err)
		}
	}
	return generateLoaderResults(results, ids)
}

// GetBranch loads a customer's branch through the request's batch loader.
func GetBranch(ctx context.Context, id int) (*models.Branch, error) {
	return For(ctx).BranchLoader.Load(ctx, id)()
}
