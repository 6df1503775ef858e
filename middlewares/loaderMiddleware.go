package middlewares

import (
	"context"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch the lookups made while enriching list responses.
type Loaders struct {
	BranchLoader       *dataloader.Loader[int, *models.Branch]
	TierLoader         *dataloader.Loader[string, *models.TierDefinition]
	CustomerTierLoader *dataloader.Loader[int, *models.CustomerTier]
	BenefitLoader      *dataloader.Loader[int, *models.Benefit]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	branchReader := &branchReader{db: conn}
	tierReader := &tierReader{db: conn}
	customerTierReader := &customerTierReader{db: conn}
	benefitReader := &benefitReader{db: conn}

	return &Loaders{
		BranchLoader:       dataloader.NewBatchedLoader(branchReader.getBranches, dataloader.WithWait[int, *models.Branch](time.Millisecond)),
		TierLoader:         dataloader.NewBatchedLoader(tierReader.getTiers, dataloader.WithWait[string, *models.TierDefinition](time.Millisecond)),
		CustomerTierLoader: dataloader.NewBatchedLoader(customerTierReader.getCustomerTiers, dataloader.WithWait[int, *models.CustomerTier](time.Millisecond)),
		BenefitLoader:      dataloader.NewBatchedLoader(benefitReader.getBenefits, dataloader.WithWait[int, *models.Benefit](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := WithLoaders(c.Request.Context(), loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// For returns the request's loaders, or a fresh set when the middleware did not run.
func For(ctx context.Context) *Loaders {
	if loaders, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return loaders
	}
	return NewLoaders(config.GetDB())
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns results from db into dataloader results
// (T must be a struct)
func generateLoaderResults[T models.Data](results []T, ids []int) []*dataloader.Result[*T] {
	// generate resultMap from results
	resultMap := make(map[int]T)
	var resultZero T
	resultMap[0] = resultZero.GetDefault(0).(T)
	for _, result := range results {
		resultMap[result.GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data := resultMap[id]
		if reflect.ValueOf(data).IsZero() {
			data = data.GetDefault(id).(T)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: &data})
	}
	return loaderResults
}
