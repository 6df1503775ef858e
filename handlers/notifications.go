package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.NotificationFilter
		if !bindQuery(c, &filter) {
			return
		}
		page, err := models.ListNotifications(c.Request.Context(), &filter)
		respond(c, http.StatusOK, page, err)
	}
}

func getNotificationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		notification, err := models.GetNotification(c.Request.Context(), id)
		respond(c, http.StatusOK, notification, err)
	}
}

func createNotificationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewNotification
		if !bindJSON(c, &input) {
			return
		}
		notification, err := models.CreateNotification(c.Request.Context(), &input)
		respond(c, http.StatusCreated, notification, err)
	}
}

func updateNotificationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewNotification
		if !bindJSON(c, &input) {
			return
		}
		notification, err := models.UpdateNotification(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, notification, err)
	}
}

func deleteNotificationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		notification, err := models.DeleteNotification(c.Request.Context(), id)
		respond(c, http.StatusOK, notification, err)
	}
}

func sendNotificationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		notification, err := models.SendNotification(c.Request.Context(), id)
		respond(c, http.StatusAccepted, notification, err)
	}
}
