package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/middlewares"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
)

const maxImageSizeBytes int64 = 5 * 1024 * 1024

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

func listBenefitsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.BenefitFilter
		if !bindQuery(c, &filter) {
			return
		}
		benefits, err := models.GetBenefits(c.Request.Context(), &filter)
		respond(c, http.StatusOK, benefits, err)
	}
}

func getBenefitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		benefit, err := models.GetBenefit(c.Request.Context(), id)
		respond(c, http.StatusOK, benefit, err)
	}
}

func createBenefitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBenefit
		if !bindJSON(c, &input) {
			return
		}
		benefit, err := models.CreateBenefit(c.Request.Context(), &input)
		respond(c, http.StatusCreated, benefit, err)
	}
}

func updateBenefitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewBenefit
		if !bindJSON(c, &input) {
			return
		}
		benefit, err := models.UpdateBenefit(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, benefit, err)
	}
}

func deleteBenefitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		benefit, err := models.DeleteBenefit(c.Request.Context(), id)
		respond(c, http.StatusOK, benefit, err)
	}
}

func toggleBenefitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleRequest
		if !bindJSON(c, &req) {
			return
		}
		benefit, err := models.ToggleActiveBenefit(c.Request.Context(), id, *req.IsActive)
		respond(c, http.StatusOK, benefit, err)
	}
}

// uploadBenefitImageHandler takes a multipart "file" field (jpeg or png, 5MB max).
func uploadBenefitImageHandler(store utils.ObjectStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage is not configured"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSizeBytes+1024*1024)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxImageSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxImageSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}
		if int64(len(data)) > maxImageSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		if !imageMimeTypes[http.DetectContentType(data)] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}
		benefit, err := models.UploadBenefitImage(c.Request.Context(), id, fileHeader.Filename, data, store)
		respond(c, http.StatusOK, benefit, err)
	}
}

func redeemBenefitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBenefitRedemption
		if !bindJSON(c, &input) {
			return
		}
		redemption, err := models.RedeemBenefit(c.Request.Context(), &input)
		respond(c, http.StatusCreated, redemption, err)
	}
}

func listRedemptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var query struct {
			CustomerTierId int `form:"customer_tier_id"`
			models.PageInput
		}
		if !bindQuery(c, &query) {
			return
		}
		ctx := c.Request.Context()
		page, err := models.GetBenefitRedemptions(ctx, id, query.CustomerTierId, query.PageInput)
		if err != nil {
			respondError(c, err)
			return
		}
		rows, err := enrichRedemptions(ctx, page.Items)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, redemptionPage{Items: rows, Total: page.Total, Page: page.Page, PageSize: page.PageSize})
	}
}

type redemptionRow struct {
	*models.BenefitRedemption
	CustomerId   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
}

type redemptionPage struct {
	Items    []*redemptionRow `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func enrichRedemptions(ctx context.Context, redemptions []*models.BenefitRedemption) ([]*redemptionRow, error) {
	rows := make([]*redemptionRow, 0, len(redemptions))
	for _, redemption := range redemptions {
		benefit, err := middlewares.GetBenefit(ctx, redemption.BenefitId)
		if err != nil {
			return nil, err
		}
		redemption.Benefit = benefit
		customer, err := middlewares.GetCustomerTier(ctx, redemption.CustomerTierId)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &redemptionRow{
			BenefitRedemption: redemption,
			CustomerId:        customer.CustomerId,
			CustomerName:      customer.CustomerName,
		})
	}
	return rows, nil
}
