package models_test

import (
	"testing"

	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleBenefitTwice(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	benefit, err := models.CreateBenefit(ctx, &models.NewBenefit{
		Code:        "lounge",
		Name:        "Airport lounge",
		BenefitType: models.BenefitTypeService,
	})
	require.NoError(t, err)
	require.True(t, *benefit.IsActive)

	off, err := models.ToggleActiveBenefit(ctx, benefit.ID, false)
	require.NoError(t, err)
	assert.False(t, *off.IsActive)

	on, err := models.ToggleActiveBenefit(ctx, benefit.ID, true)
	require.NoError(t, err)
	assert.True(t, *on.IsActive)

	inactive := false
	listed, err := models.GetBenefits(ctx, &models.BenefitFilter{Active: &inactive})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestCreateBenefitValidation(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)

	cases := []struct {
		name  string
		input models.NewBenefit
		field string
	}{
		{"bad type", models.NewBenefit{Code: "B1", Name: "b", BenefitType: "cashback"}, "benefit_type"},
		{"discount over 100", models.NewBenefit{Code: "B2", Name: "b", BenefitType: models.BenefitTypeDiscount, Value: decimal.NewFromInt(120)}, "value"},
		{"negative value", models.NewBenefit{Code: "B3", Name: "b", BenefitType: models.BenefitTypeService, Value: decimal.NewFromInt(-1)}, "value"},
		{"unknown tier", models.NewBenefit{Code: "B4", Name: "b", BenefitType: models.BenefitTypeService, EligibleTiers: []string{"platinum"}}, "eligible_tiers"},
		{"bad code", models.NewBenefit{Code: "B 5!", Name: "b", BenefitType: models.BenefitTypeService}, "code"},
	}
	for _, tc := range cases {
		_, err := models.CreateBenefit(ctx, &tc.input)
		var validationErr *utils.ValidationError
		if !assert.ErrorAs(t, err, &validationErr, tc.name) {
			continue
		}
		assert.Equal(t, tc.field, validationErr.Field, tc.name)
	}
}

func TestRedeemBenefit(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	benefit, err := models.CreateBenefit(ctx, &models.NewBenefit{
		Code:          "gold_dining",
		Name:          "Dining voucher",
		BenefitType:   models.BenefitTypeDiscount,
		Value:         decimal.NewFromInt(15),
		PointsCost:    300,
		EligibleTiers: []string{"gold"},
	})
	require.NoError(t, err)

	bronze := seedCustomer(t, ctx, "BR-1", 100)
	_, err = models.RedeemBenefit(ctx, &models.NewBenefitRedemption{BenefitId: benefit.ID, CustomerTierId: bronze.ID})
	var validationErr *utils.ValidationError
	require.ErrorAs(t, err, &validationErr)

	gold := seedCustomer(t, ctx, "GO-1", 6000)
	// no points account yet
	_, err = models.RedeemBenefit(ctx, &models.NewBenefitRedemption{BenefitId: benefit.ID, CustomerTierId: gold.ID})
	require.ErrorIs(t, err, utils.ErrorInsufficientPoints)

	account, err := models.OpenPointsAccount(ctx, &models.NewPointsAccount{CustomerTierId: gold.ID, OpeningBalance: 500})
	require.NoError(t, err)

	redemption, err := models.RedeemBenefit(ctx, &models.NewBenefitRedemption{BenefitId: benefit.ID, CustomerTierId: gold.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 300, redemption.PointsUsed)
	assert.Equal(t, "GOLD", redemption.TierCode)
	require.NotNil(t, redemption.LedgerEntryId)
	assert.EqualValues(t, 200, assertLedgerMatchesBalance(t, ctx, account.ID))

	_, err = models.RedeemBenefit(ctx, &models.NewBenefitRedemption{BenefitId: benefit.ID, CustomerTierId: gold.ID})
	require.ErrorIs(t, err, utils.ErrorInsufficientPoints)

	redemptions, err := models.GetBenefitRedemptions(ctx, benefit.ID, 0, models.PageInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, redemptions.Total)
}
