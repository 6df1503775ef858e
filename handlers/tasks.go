package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listTasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.TaskFilter
		if !bindQuery(c, &filter) {
			return
		}
		page, err := models.ListTasks(c.Request.Context(), &filter)
		respond(c, http.StatusOK, page, err)
	}
}

func getTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		task, err := models.GetTask(c.Request.Context(), id)
		respond(c, http.StatusOK, task, err)
	}
}

func createTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTask
		if !bindJSON(c, &input) {
			return
		}
		task, err := models.CreateTask(c.Request.Context(), &input)
		respond(c, http.StatusCreated, task, err)
	}
}

func updateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewTask
		if !bindJSON(c, &input) {
			return
		}
		task, err := models.UpdateTask(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, task, err)
	}
}

func deleteTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		task, err := models.DeleteTask(c.Request.Context(), id)
		respond(c, http.StatusOK, task, err)
	}
}

func updateTaskStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.TaskStatusInput
		if !bindJSON(c, &input) {
			return
		}
		task, err := models.UpdateTaskStatus(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, task, err)
	}
}
