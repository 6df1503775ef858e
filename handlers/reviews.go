package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/workflow"
)

func listReviewsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.TierReviewFilter
		if !bindQuery(c, &filter) {
			return
		}
		page, err := models.ListTierReviews(c.Request.Context(), &filter)
		respond(c, http.StatusOK, page, err)
	}
}

func getReviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		review, err := models.GetTierReview(c.Request.Context(), id)
		respond(c, http.StatusOK, review, err)
	}
}

func createReviewHandler(reviews *workflow.ReviewCoordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTierReview
		if !bindJSON(c, &input) {
			return
		}
		ctx := c.Request.Context()
		review, err := models.CreateTierReview(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := reviews.Start(ctx, review); err != nil {
			config.LogError(config.GetLogger(), "handlers", "createReviewHandler", "StartReviewWorkflow", review.ID, err)
		}
		c.JSON(http.StatusCreated, review)
	}
}

// decideReviewHandler answers 202 when the decision was queued on the review workflow.
func decideReviewHandler(reviews *workflow.ReviewCoordinator, status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req commentRequest
		if !bindJSON(c, &req) {
			return
		}
		review, queued, err := reviews.Decide(c.Request.Context(), id, status, req.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		if queued {
			c.JSON(http.StatusAccepted, gin.H{"queued": true, "review": review})
			return
		}
		c.JSON(http.StatusOK, review)
	}
}
