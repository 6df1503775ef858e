package models_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTierDefinitionValidation(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)

	cases := []struct {
		name  string
		input models.NewTierDefinition
		field string
	}{
		{"min above max", models.NewTierDefinition{Code: "plat", Name: "Platinum", MinScore: 300000, MaxScore: 200000}, "min_score"},
		{"overlaps gold", models.NewTierDefinition{Code: "plat", Name: "Platinum", MinScore: 90000, MaxScore: 200000}, "min_score"},
		{"inside silver", models.NewTierDefinition{Code: "plat", Name: "Platinum", MinScore: 2000, MaxScore: 3000}, "min_score"},
		{"touches bronze edge", models.NewTierDefinition{Code: "plat", Name: "Platinum", MinScore: 999, MaxScore: 999}, "min_score"},
		{"bad code", models.NewTierDefinition{Code: "pla-t", Name: "Platinum", MinScore: 100001, MaxScore: 200000}, "code"},
		{"blank name", models.NewTierDefinition{Code: "plat", Name: "  ", MinScore: 100001, MaxScore: 200000}, "name"},
		{"duplicate code", models.NewTierDefinition{Code: " gold ", Name: "Gold 2", MinScore: 100001, MaxScore: 200000}, "code"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := tc.input
			_, err := models.CreateTierDefinition(ctx, &input)
			var validationErr *utils.ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}

	plat, err := models.CreateTierDefinition(ctx, &models.NewTierDefinition{Code: "plat", Name: "Platinum", MinScore: 100001, MaxScore: 200000})
	require.NoError(t, err)
	assert.Equal(t, "PLAT", plat.Code)
}

func TestUpdateTierDefinitionRanges(t *testing.T) {
	ctx := openTestDB(t)
	tiers := seedTiers(t, ctx)
	gold := tiers["GOLD"]

	// its own range does not count as an overlap
	updated, err := models.UpdateTierDefinition(ctx, gold.ID, &models.NewTierDefinition{Code: "GOLD", Name: "Gold", MinScore: 5000, MaxScore: 150000})
	require.NoError(t, err)
	assert.Equal(t, 150000, updated.MaxScore)

	_, err = models.UpdateTierDefinition(ctx, gold.ID, &models.NewTierDefinition{Code: "GOLD", Name: "Gold", MinScore: 4000, MaxScore: 150000})
	var validationErr *utils.ValidationError
	require.True(t, errors.As(err, &validationErr), "got %v", err)

	// a held code cannot be renamed
	seedCustomer(t, ctx, "C-GOLD", 7000)
	_, err = models.UpdateTierDefinition(ctx, gold.ID, &models.NewTierDefinition{Code: "GOLD_PLUS", Name: "Gold", MinScore: 5000, MaxScore: 150000})
	require.True(t, errors.As(err, &validationErr), "got %v", err)
	assert.Equal(t, "code", validationErr.Field)
}

func TestInactiveTiersIgnoredByOverlap(t *testing.T) {
	ctx := openTestDB(t)
	tiers := seedTiers(t, ctx)
	silver := tiers["SILVER"]

	off, err := models.ToggleActiveTierDefinition(ctx, silver.ID, false)
	require.NoError(t, err)
	assert.False(t, *off.IsActive)

	// toggling to the value already stored is a no-op
	again, err := models.ToggleActiveTierDefinition(ctx, silver.ID, false)
	require.NoError(t, err)
	assert.False(t, *again.IsActive)

	_, err = models.CreateTierDefinition(ctx, &models.NewTierDefinition{Code: "silver_new", Name: "Silver New", MinScore: 1000, MaxScore: 4999})
	require.NoError(t, err)

	_, err = models.ResolveTierForScore(ctx, 2500)
	require.NoError(t, err)

	// reactivating would overlap SILVER_NEW
	_, err = models.ToggleActiveTierDefinition(ctx, silver.ID, true)
	var validationErr *utils.ValidationError
	require.True(t, errors.As(err, &validationErr), "got %v", err)
}

func TestDeleteTierDefinitionHeldByCustomers(t *testing.T) {
	ctx := openTestDB(t)
	tiers := seedTiers(t, ctx)
	seedCustomer(t, ctx, "C-B1", 300)

	_, err := models.DeleteTierDefinition(ctx, tiers["BRONZE"].ID)
	require.ErrorIs(t, err, utils.ErrorInUse)

	deleted, err := models.DeleteTierDefinition(ctx, tiers["SILVER"].ID)
	require.NoError(t, err)
	assert.Equal(t, "SILVER", deleted.Code)

	_, err = models.GetTierDefinition(ctx, tiers["SILVER"].ID)
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)

	histories, err := models.GetHistories(ctx, "tier_definitions", tiers["SILVER"].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, histories)
}
