package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/guarded", guard, func(c *gin.Context) {
		bankId, _ := utils.GetBankIdFromContext(c.Request.Context())
		c.String(http.StatusOK, bankId)
	})
	return r
}

func bearer(t *testing.T, claim utils.JwtCustomClaim) string {
	t.Helper()
	token, err := utils.JwtGenerate(claim)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRequireAdmin(t *testing.T) {
	t.Setenv("API_SECRET", "middleware-secret")
	r := newTestRouter(RequireAdmin())

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"bank admin", bearer(t, utils.JwtCustomClaim{ID: 2, BankId: "BANK01", RoleId: 3}), http.StatusForbidden},
		{"platform admin", bearer(t, utils.JwtCustomClaim{ID: 1, BankId: "BANK01", IsAdmin: true}), http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.name)
	}
}

func TestRequireModuleAdminSkipsRoleLookup(t *testing.T) {
	t.Setenv("API_SECRET", "middleware-secret")
	r := newTestRouter(RequireModule(models.ModuleReviews, models.ActionApprove))

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", bearer(t, utils.JwtCustomClaim{ID: 1, BankId: "BANK07", IsAdmin: true}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BANK07", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
