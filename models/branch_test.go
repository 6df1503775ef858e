package models_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchCrud(t *testing.T) {
	ctx := openTestDB(t)

	branch, err := models.CreateBranch(ctx, &models.NewBranch{
		Code: " ygn01 ", Name: "Yangon Downtown", Region: "Yangon", Phone: "+65 8123 4567",
	})
	require.NoError(t, err)
	assert.Equal(t, "YGN01", branch.Code)
	assert.Equal(t, "+6581234567", branch.Phone)
	require.NotNil(t, branch.IsActive)
	assert.True(t, *branch.IsActive)

	_, err = models.CreateBranch(ctx, &models.NewBranch{Code: "MDY01", Name: "Mandalay", Region: "Mandalay"})
	require.NoError(t, err)

	invalid := []struct {
		name  string
		input models.NewBranch
		field string
	}{
		{"duplicate code", models.NewBranch{Code: "ygn01", Name: "Another"}, "code"},
		{"duplicate name", models.NewBranch{Code: "YGN02", Name: "Yangon Downtown"}, "name"},
		{"bad code", models.NewBranch{Code: "ygn 02", Name: "Another"}, "code"},
		{"bad phone", models.NewBranch{Code: "YGN02", Name: "Another", Phone: "12"}, "phone"},
	}
	for _, tc := range invalid {
		input := tc.input
		_, err := models.CreateBranch(ctx, &input)
		var validationErr *utils.ValidationError
		require.True(t, errors.As(err, &validationErr), "%s: got %v", tc.name, err)
		assert.Equal(t, tc.field, validationErr.Field, tc.name)
	}

	updated, err := models.UpdateBranch(ctx, branch.ID, &models.NewBranch{
		Code: "YGN01", Name: "Yangon Main", Region: "Yangon", ManagerName: "Daw Hla",
	})
	require.NoError(t, err)
	assert.Equal(t, "Yangon Main", updated.Name)
	assert.Equal(t, "Daw Hla", updated.ManagerName)

	byRegion, err := models.GetBranches(ctx, "", "Mandalay")
	require.NoError(t, err)
	require.Len(t, byRegion, 1)
	assert.Equal(t, "MDY01", byRegion[0].Code)

	all, err := models.GetBranches(ctx, "", "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := models.GetBranches(ctx, "main", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, branch.ID, found[0].ID)

	off, err := models.ToggleActiveBranch(ctx, branch.ID, false)
	require.NoError(t, err)
	assert.False(t, *off.IsActive)
}

func TestDeleteBranchWithCustomers(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)

	busy, err := models.CreateBranch(ctx, &models.NewBranch{Code: "YGN01", Name: "Yangon"})
	require.NoError(t, err)
	empty, err := models.CreateBranch(ctx, &models.NewBranch{Code: "NPT01", Name: "Naypyitaw"})
	require.NoError(t, err)

	_, err = models.CreateCustomerTier(ctx, &models.NewCustomerTier{
		CustomerId: "C-BR1", CustomerName: "Branch Customer", Score: 1200, BranchId: busy.ID,
	})
	require.NoError(t, err)

	_, err = models.DeleteBranch(ctx, busy.ID)
	require.ErrorIs(t, err, utils.ErrorInUse)

	_, err = models.DeleteBranch(ctx, empty.ID)
	require.NoError(t, err)
	_, err = models.GetBranch(ctx, empty.ID)
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)

	// customers cannot point at a branch that does not exist
	_, err = models.CreateCustomerTier(ctx, &models.NewCustomerTier{
		CustomerId: "C-BR2", CustomerName: "Lost", Score: 10, BranchId: empty.ID,
	})
	var validationErr *utils.ValidationError
	require.True(t, errors.As(err, &validationErr), "got %v", err)
	assert.Equal(t, "branch_id", validationErr.Field)
}
