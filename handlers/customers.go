package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/middlewares"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/workflow"
)

// customerRow is a customer tier record with the display fields the listing shows.
type customerRow struct {
	*models.CustomerTier
	TierName   string `json:"tier_name"`
	TierColor  string `json:"tier_color"`
	BranchName string `json:"branch_name"`
}

type customerPage struct {
	Items    []*customerRow `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// enrichCustomers resolves tier and branch names through the request's dataloaders.
func enrichCustomers(ctx context.Context, customers []*models.CustomerTier) ([]*customerRow, error) {
	rows := make([]*customerRow, 0, len(customers))
	for _, customer := range customers {
		row := &customerRow{CustomerTier: customer}
		tier, err := middlewares.GetTierByCode(ctx, customer.CurrentTierCode)
		if err != nil {
			return nil, err
		}
		row.TierName = tier.Name
		row.TierColor = tier.Color
		branch, err := middlewares.GetBranch(ctx, customer.BranchId)
		if err != nil {
			return nil, err
		}
		row.BranchName = branch.Name
		rows = append(rows, row)
	}
	return rows, nil
}

func listCustomersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.CustomerTierFilter
		if !bindQuery(c, &filter) {
			return
		}
		ctx := c.Request.Context()
		page, err := models.ListCustomerTiers(ctx, &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		rows, err := enrichCustomers(ctx, page.Items)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, customerPage{Items: rows, Total: page.Total, Page: page.Page, PageSize: page.PageSize})
	}
}

func getCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		customer, err := models.GetCustomerTier(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		rows, err := enrichCustomers(c.Request.Context(), []*models.CustomerTier{customer})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows[0])
	}
}

func createCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomerTier
		if !bindJSON(c, &input) {
			return
		}
		customer, err := models.CreateCustomerTier(c.Request.Context(), &input)
		respond(c, http.StatusCreated, customer, err)
	}
}

func updateCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.UpdateCustomerTierInput
		if !bindJSON(c, &input) {
			return
		}
		customer, err := models.UpdateCustomerTier(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, customer, err)
	}
}

func deleteCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		customer, err := models.DeleteCustomerTier(c.Request.Context(), id)
		respond(c, http.StatusOK, customer, err)
	}
}

func toggleCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleRequest
		if !bindJSON(c, &req) {
			return
		}
		customer, err := models.ToggleActiveCustomerTier(c.Request.Context(), id, *req.IsActive)
		respond(c, http.StatusOK, customer, err)
	}
}

func evaluateHandler(evaluator *workflow.TierEvaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := evaluator.RunTierEvaluation(c.Request.Context())
		respond(c, http.StatusAccepted, task, err)
	}
}

func historyHandler(referenceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		histories, err := models.GetHistories(c.Request.Context(), referenceType, id)
		respond(c, http.StatusOK, histories, err)
	}
}
