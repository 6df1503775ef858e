package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		respond(c, http.StatusOK, info, err)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		respond(c, http.StatusOK, gin.H{"success": ok}, err)
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		user, err := models.GetUser(c.Request.Context(), userId)
		respond(c, http.StatusOK, user, err)
	}
}

func modulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		modules, err := models.GetModules(c.Request.Context())
		respond(c, http.StatusOK, modules, err)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.GetUsers(c.Request.Context(), c.Query("search"))
		respond(c, http.StatusOK, users, err)
	}
}

func getUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		user, err := models.GetUser(c.Request.Context(), id)
		respond(c, http.StatusOK, user, err)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		respond(c, http.StatusCreated, user, err)
	}
}

func updateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		user, err := models.UpdateUser(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, user, err)
	}
}

func toggleUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleRequest
		if !bindJSON(c, &req) {
			return
		}
		user, err := models.ToggleActiveUser(c.Request.Context(), id, *req.IsActive)
		respond(c, http.StatusOK, user, err)
	}
}

func listRolesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, err := models.GetRoles(c.Request.Context())
		respond(c, http.StatusOK, roles, err)
	}
}

func getRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		role, err := models.GetRole(c.Request.Context(), id)
		respond(c, http.StatusOK, role, err)
	}
}

func createRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRole
		if !bindJSON(c, &input) {
			return
		}
		role, err := models.CreateRole(c.Request.Context(), &input)
		respond(c, http.StatusCreated, role, err)
	}
}

func updateRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewRole
		if !bindJSON(c, &input) {
			return
		}
		role, err := models.UpdateRole(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, role, err)
	}
}

func deleteRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		role, err := models.DeleteRole(c.Request.Context(), id)
		respond(c, http.StatusOK, role, err)
	}
}
