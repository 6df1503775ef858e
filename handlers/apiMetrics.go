package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listApiMetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.ApiMetricFilter
		if !bindQuery(c, &filter) {
			return
		}
		page, err := models.ListApiMetrics(c.Request.Context(), &filter)
		respond(c, http.StatusOK, page, err)
	}
}

func getApiMetricHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		metric, err := models.GetApiMetric(c.Request.Context(), id)
		respond(c, http.StatusOK, metric, err)
	}
}

func recordApiMetricHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewApiMetric
		if !bindJSON(c, &input) {
			return
		}
		metric, err := models.RecordMetric(c.Request.Context(), &input)
		respond(c, http.StatusOK, metric, err)
	}
}
