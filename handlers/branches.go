package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listBranchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		branches, err := models.GetBranches(c.Request.Context(), c.Query("search"), c.Query("region"))
		respond(c, http.StatusOK, branches, err)
	}
}

func getBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		branch, err := models.GetBranch(c.Request.Context(), id)
		respond(c, http.StatusOK, branch, err)
	}
}

func createBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBranch
		if !bindJSON(c, &input) {
			return
		}
		branch, err := models.CreateBranch(c.Request.Context(), &input)
		respond(c, http.StatusCreated, branch, err)
	}
}

func updateBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewBranch
		if !bindJSON(c, &input) {
			return
		}
		branch, err := models.UpdateBranch(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, branch, err)
	}
}

func deleteBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		branch, err := models.DeleteBranch(c.Request.Context(), id)
		respond(c, http.StatusOK, branch, err)
	}
}

func toggleBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleRequest
		if !bindJSON(c, &req) {
			return
		}
		branch, err := models.ToggleActiveBranch(c.Request.Context(), id, *req.IsActive)
		respond(c, http.StatusOK, branch, err)
	}
}
