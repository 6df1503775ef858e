package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models/reports"
)

func dateRange(c *gin.Context) (reports.DateRange, bool) {
	var dr reports.DateRange
	if !bindQuery(c, &dr) {
		return dr, false
	}
	if dr.From != nil && dr.To != nil && dr.To.Before(*dr.From) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be before from"})
		return dr, false
	}
	return dr, true
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dr, ok := dateRange(c)
		if !ok {
			return
		}
		result, err := reports.GetDashboardOverview(c.Request.Context(), dr)
		respond(c, http.StatusOK, result, err)
	}
}

func tierDistributionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := reports.GetTierDistribution(c.Request.Context())
		respond(c, http.StatusOK, result, err)
	}
}

func pointsSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dr, ok := dateRange(c)
		if !ok {
			return
		}
		result, err := reports.GetPointsSummary(c.Request.Context(), dr)
		respond(c, http.StatusOK, result, err)
	}
}

func benefitRedemptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dr, ok := dateRange(c)
		if !ok {
			return
		}
		result, err := reports.GetBenefitRedemptionStats(c.Request.Context(), dr)
		respond(c, http.StatusOK, result, err)
	}
}

func reviewSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dr, ok := dateRange(c)
		if !ok {
			return
		}
		result, err := reports.GetReviewSummary(c.Request.Context(), dr)
		respond(c, http.StatusOK, result, err)
	}
}

func integrationStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := reports.GetIntegrationStatus(c.Request.Context())
		respond(c, http.StatusOK, result, err)
	}
}

func branchSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := reports.GetBranchSummary(c.Request.Context())
		respond(c, http.StatusOK, result, err)
	}
}

// exportReportHandler streams the xlsx, or returns a signed URL when exports go to a bucket.
func exportReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dr, ok := dateRange(c)
		if !ok {
			return
		}
		result, err := reports.Export(c.Request.Context(), c.Param("name"), dr)
		if err != nil {
			respondError(c, err)
			return
		}
		if result.URL != "" {
			c.JSON(http.StatusOK, result)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
		c.Data(http.StatusOK, reports.XlsxContentType, result.Data)
	}
}
