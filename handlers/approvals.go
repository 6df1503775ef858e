package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listApprovalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.ApprovalFilter
		if !bindQuery(c, &filter) {
			return
		}
		page, err := models.ListApprovals(c.Request.Context(), &filter)
		respond(c, http.StatusOK, page, err)
	}
}

func getApprovalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		approval, err := models.GetApproval(c.Request.Context(), id)
		respond(c, http.StatusOK, approval, err)
	}
}

func createApprovalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewApproval
		if !bindJSON(c, &input) {
			return
		}
		approval, err := models.CreateApproval(c.Request.Context(), &input)
		respond(c, http.StatusCreated, approval, err)
	}
}

func decideApprovalHandler(status string) gin.HandlerFunc {
	decide := models.ApproveApproval
	if status == models.ApprovalStatusRejected {
		decide = models.RejectApproval
	}
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req commentRequest
		if !bindJSON(c, &req) {
			return
		}
		approval, err := decide(c.Request.Context(), id, req.Comment)
		respond(c, http.StatusOK, approval, err)
	}
}
