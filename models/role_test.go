package models_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moduleIds(t *testing.T, ctx context.Context) map[string]int {
	t.Helper()
	modules, err := models.GetModules(ctx)
	require.NoError(t, err)
	ids := make(map[string]int, len(modules))
	for _, m := range modules {
		ids[m.Name] = m.ID
	}
	return ids
}

func TestUpdateRoleReplacesModules(t *testing.T) {
	ctx := openTestDB(t)
	ids := moduleIds(t, ctx)

	role, err := models.CreateRole(ctx, &models.NewRole{
		Name: "Relationship Manager",
		AllowedModules: []*models.NewAllowedModule{
			{ModuleID: ids[models.ModuleCustomers], AllowedActions: "read;write"},
			{ModuleID: ids[models.ModuleReviews], AllowedActions: "read"},
		},
	})
	require.NoError(t, err)

	allowed, err := models.AllowedModules(ctx, role.ID)
	require.NoError(t, err)
	want := map[string][]string{
		models.ModuleCustomers: {"read", "write"},
		models.ModuleReviews:   {"read"},
	}
	if diff := cmp.Diff(want, allowed); diff != "" {
		t.Fatalf("allowed modules mismatch (-want +got):\n%s", diff)
	}

	_, err = models.UpdateRole(ctx, role.ID, &models.NewRole{
		Name: "Tier Reviewer",
		AllowedModules: []*models.NewAllowedModule{
			{ModuleID: ids[models.ModuleReviews], AllowedActions: "read;approve"},
		},
	})
	require.NoError(t, err)

	updated, err := models.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tier Reviewer", updated.Name)
	require.Len(t, updated.RoleModules, 1)
	assert.Equal(t, ids[models.ModuleReviews], updated.RoleModules[0].ModuleId)

	allowed, err = models.AllowedModules(ctx, role.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string][]string{models.ModuleReviews: {"read", "approve"}}, allowed); diff != "" {
		t.Fatalf("allowed modules after update mismatch (-want +got):\n%s", diff)
	}
	access := []struct {
		module string
		action string
		want   bool
	}{
		{models.ModuleReviews, models.ActionApprove, true},
		{models.ModuleReviews, models.ActionRead, true},
		{models.ModuleReviews, models.ActionWrite, false},
		{models.ModuleCustomers, models.ActionRead, false},
	}
	for _, a := range access {
		ok, err := models.CanAccess(ctx, role.ID, a.module, a.action)
		require.NoError(t, err)
		assert.Equal(t, a.want, ok, "%s %s", a.module, a.action)
	}

	// a rejected update leaves the stored permissions alone
	bad := []struct {
		name    string
		modules []*models.NewAllowedModule
	}{
		{"unknown module", []*models.NewAllowedModule{{ModuleID: 9999, AllowedActions: "read"}}},
		{"unknown action", []*models.NewAllowedModule{{ModuleID: ids[models.ModuleCustomers], AllowedActions: "approve"}}},
		{"no actions", []*models.NewAllowedModule{{ModuleID: ids[models.ModuleCustomers], AllowedActions: ""}}},
		{"duplicate module", []*models.NewAllowedModule{
			{ModuleID: ids[models.ModuleCustomers], AllowedActions: "read"},
			{ModuleID: ids[models.ModuleCustomers], AllowedActions: "write"},
		}},
	}
	for _, tc := range bad {
		_, err := models.UpdateRole(ctx, role.ID, &models.NewRole{Name: "Broken", AllowedModules: tc.modules})
		var validationErr *utils.ValidationError
		require.True(t, errors.As(err, &validationErr), "%s: got %v", tc.name, err)
	}
	stored, err := models.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tier Reviewer", stored.Name)
	require.Len(t, stored.RoleModules, 1)
}

func TestRoleNamesAreUnique(t *testing.T) {
	ctx := openTestDB(t)
	first, err := models.CreateRole(ctx, &models.NewRole{Name: "Auditor"})
	require.NoError(t, err)
	second, err := models.CreateRole(ctx, &models.NewRole{Name: "Branch Staff"})
	require.NoError(t, err)

	_, err = models.CreateRole(ctx, &models.NewRole{Name: " Auditor "})
	var validationErr *utils.ValidationError
	require.True(t, errors.As(err, &validationErr), "got %v", err)

	_, err = models.UpdateRole(ctx, second.ID, &models.NewRole{Name: "Auditor"})
	require.True(t, errors.As(err, &validationErr), "got %v", err)

	// the same name in another bank is fine
	_, err = models.CreateRole(utils.SystemContext(context.Background(), "BANK02"), &models.NewRole{Name: "Auditor"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
}

func TestDeleteRoleInUse(t *testing.T) {
	ctx := openTestDB(t)
	t.Setenv("BCRYPT_COST", "4")
	ids := moduleIds(t, ctx)

	role, err := models.CreateRole(ctx, &models.NewRole{
		Name:           "Reviewer",
		AllowedModules: []*models.NewAllowedModule{{ModuleID: ids[models.ModuleReviews], AllowedActions: "read"}},
	})
	require.NoError(t, err)
	user, err := models.CreateUser(ctx, &models.NewUser{
		Username: "aye", Name: "Aye Aye", Password: "s3cret-pass", RoleId: role.ID,
	})
	require.NoError(t, err)

	_, err = models.DeleteRole(ctx, role.ID)
	require.ErrorIs(t, err, utils.ErrorInUse)

	_, err = models.UpdateUser(ctx, user.ID, &models.NewUser{
		Username: "aye", Name: "Aye Aye", Role: models.UserRoleAdmin,
	})
	require.NoError(t, err)

	deleted, err := models.DeleteRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reviewer", deleted.Name)

	allowed, err := models.AllowedModules(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, allowed)
}
