package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listTiersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tiers, err := models.GetTierDefinitions(c.Request.Context())
		respond(c, http.StatusOK, tiers, err)
	}
}

func getTierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		tier, err := models.GetTierDefinition(c.Request.Context(), id)
		respond(c, http.StatusOK, tier, err)
	}
}

func resolveTierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		score, err := strconv.Atoi(c.Query("score"))
		if err != nil || score < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "score must be a non-negative integer"})
			return
		}
		tier, err := models.ResolveTierForScore(c.Request.Context(), score)
		respond(c, http.StatusOK, tier, err)
	}
}

func createTierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTierDefinition
		if !bindJSON(c, &input) {
			return
		}
		tier, err := models.CreateTierDefinition(c.Request.Context(), &input)
		respond(c, http.StatusCreated, tier, err)
	}
}

func updateTierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewTierDefinition
		if !bindJSON(c, &input) {
			return
		}
		tier, err := models.UpdateTierDefinition(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, tier, err)
	}
}

func deleteTierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		tier, err := models.DeleteTierDefinition(c.Request.Context(), id)
		respond(c, http.StatusOK, tier, err)
	}
}

func toggleTierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleRequest
		if !bindJSON(c, &req) {
			return
		}
		tier, err := models.ToggleActiveTierDefinition(c.Request.Context(), id, *req.IsActive)
		respond(c, http.StatusOK, tier, err)
	}
}
