package models_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLoginUsers(t *testing.T, ctx context.Context) (*models.User, *models.User) {
	t.Helper()
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("API_SECRET", "test-secret")
	ids := moduleIds(t, ctx)

	role, err := models.CreateRole(ctx, &models.NewRole{
		Name:           "Reviewer",
		AllowedModules: []*models.NewAllowedModule{{ModuleID: ids[models.ModuleReviews], AllowedActions: "read;approve"}},
	})
	require.NoError(t, err)
	reviewer, err := models.CreateUser(ctx, &models.NewUser{
		Username: "thida", Name: "Thida Win", Password: "reviewer-pass", RoleId: role.ID,
	})
	require.NoError(t, err)
	admin, err := models.SeedAdmin(context.Background(), testBank, "root", "Platform Admin", "admin-pass")
	require.NoError(t, err)
	return reviewer, admin
}

func TestLogin(t *testing.T) {
	ctx := openTestDB(t)
	reviewer, admin := seedLoginUsers(t, ctx)
	assert.Empty(t, reviewer.Password)
	assert.True(t, admin.IsAdmin())

	info, err := models.Login(context.Background(), " thida ", "reviewer-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, info.Token)
	assert.Equal(t, "Reviewer", info.Role)
	assert.Equal(t, testBank, info.BankId)
	assert.Equal(t, []string{"read", "approve"}, info.AllowedModules[models.ModuleReviews])
	assert.NotContains(t, info.AllowedModules, models.ModuleCustomers)

	claim, err := utils.JwtValidate(info.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reviewer.ID, claim.ID)
	assert.False(t, claim.IsAdmin)

	adminInfo, err := models.Login(context.Background(), "root", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, "Admin", adminInfo.Role)
	assert.Contains(t, adminInfo.AllowedModules[models.ModuleReviews], models.ActionApprove)

	failures := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "thida", "nope"},
		{"unknown user", "nobody", "reviewer-pass"},
		{"empty password", "thida", ""},
	}
	for _, tc := range failures {
		_, err := models.Login(context.Background(), tc.username, tc.password)
		require.ErrorIs(t, err, models.ErrInvalidCredentials, tc.name)
	}
}

func TestLoginDisabledUser(t *testing.T) {
	ctx := openTestDB(t)
	reviewer, _ := seedLoginUsers(t, ctx)

	_, err := models.ToggleActiveUser(ctx, reviewer.ID, false)
	require.NoError(t, err)

	_, err = models.Login(context.Background(), "thida", "reviewer-pass")
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrInvalidCredentials))

	// a user cannot disable their own account
	self := utils.SetUserIdInContext(ctx, reviewer.ID)
	_, err = models.ToggleActiveUser(self, reviewer.ID, false)
	require.Error(t, err)
}

func TestLogout(t *testing.T) {
	ctx := openTestDB(t)
	seedLoginUsers(t, ctx)

	_, err := models.Logout(ctx)
	require.Error(t, err)

	info, err := models.Login(context.Background(), "thida", "reviewer-pass")
	require.NoError(t, err)
	ok, err := models.Logout(utils.SetTokenInContext(ctx, info.Token))
	require.NoError(t, err)
	assert.True(t, ok)

	// without redis the session store is empty either way
	_, exists, err := models.LookupSession(info.Token)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUsernamesAreUniqueAcrossBanks(t *testing.T) {
	ctx := openTestDB(t)
	t.Setenv("BCRYPT_COST", "4")
	_, err := models.CreateUser(ctx, &models.NewUser{Username: "kyaw", Name: "Kyaw", Password: "pw-123456", Role: models.UserRoleAdmin})
	require.NoError(t, err)

	other := utils.SystemContext(context.Background(), "BANK02")
	_, err = models.CreateUser(other, &models.NewUser{Username: "kyaw", Name: "Kyaw Two", Password: "pw-123456", Role: models.UserRoleAdmin})
	var validationErr *utils.ValidationError
	require.True(t, errors.As(err, &validationErr), "got %v", err)
	assert.Equal(t, "username", validationErr.Field)
}
