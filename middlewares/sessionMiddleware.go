package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
)

const sessionUserKey = "sessionUser"

func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		userId, exists, err := models.LookupSession(token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		user, err := models.GetSessionUser(c.Request.Context(), userId)
		if err != nil || user.IsActive == nil || !*user.IsActive {
			config.GetLogger().WithField("userId", userId).Warn("session rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SessionUser(ctx, user.BankId, user.ID, user.Username, user.Name, user.RoleId)
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionUserKey, sessionUser{ID: user.ID, BankId: user.BankId, RoleId: user.RoleId, IsAdmin: user.IsAdmin()})
		c.Next()
	}
}

type sessionUser struct {
	ID      int
	BankId  string
	RoleId  int
	IsAdmin bool
}

func currentUser(c *gin.Context) (sessionUser, bool) {
	v, ok := c.Get(sessionUserKey)
	if !ok {
		return sessionUser{}, false
	}
	u, ok := v.(sessionUser)
	return u, ok
}
