package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listParametersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		params, err := models.GetParameters(c.Request.Context(), c.Query("category"))
		respond(c, http.StatusOK, params, err)
	}
}

func getParameterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		param, err := models.GetParameter(c.Request.Context(), id)
		respond(c, http.StatusOK, param, err)
	}
}

func getParameterByKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		param, err := models.GetParameterByKey(c.Request.Context(), c.Param("key"))
		respond(c, http.StatusOK, param, err)
	}
}

func createParameterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewParameter
		if !bindJSON(c, &input) {
			return
		}
		param, err := models.CreateParameter(c.Request.Context(), &input)
		respond(c, http.StatusCreated, param, err)
	}
}

func updateParameterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewParameter
		if !bindJSON(c, &input) {
			return
		}
		param, err := models.UpdateParameter(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, param, err)
	}
}

func deleteParameterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		param, err := models.DeleteParameter(c.Request.Context(), id)
		respond(c, http.StatusOK, param, err)
	}
}
