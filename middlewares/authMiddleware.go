package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/utils"
)

type authString string

// AuthMiddleware accepts a bearer JWT for clients that do not hold a session token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}
		if _, ok := currentUser(c); ok {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		claim, err := utils.JwtValidate(auth)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), authString("auth"), claim)
		ctx = utils.SessionUser(ctx, claim.BankId, claim.ID, claim.Username, claim.Username, claim.RoleId)
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionUserKey, sessionUser{ID: claim.ID, BankId: claim.BankId, RoleId: claim.RoleId, IsAdmin: claim.IsAdmin})
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}
