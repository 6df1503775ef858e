package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listOutboxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var page models.PageInput
		if !bindQuery(c, &page) {
			return
		}
		events, err := models.GetOutboxEvents(c.Request.Context(), c.Query("status"), page)
		respond(c, http.StatusOK, events, err)
	}
}

func replayOutboxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		event, err := models.ReplayOutboxEvent(c.Request.Context(), id)
		respond(c, http.StatusOK, event, err)
	}
}
