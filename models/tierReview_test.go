package models_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTierReviewUpgrade(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	customer := seedCustomer(t, ctx, "C-100", 500)
	require.Equal(t, "BRONZE", customer.CurrentTierCode)

	review, err := models.CreateTierReview(ctx, &models.NewTierReview{
		CustomerTierId: customer.ID,
		ToScore:        6000,
		Reason:         "annual review",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, review.Status)
	assert.Equal(t, models.ChangeTypeUpgrade, review.ChangeType)
	assert.Equal(t, "BRONZE", review.FromTierCode)
	assert.Equal(t, "GOLD", review.ToTierCode)

	stored, err := models.GetCustomerTier(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusUnderReview, stored.Status)

	// one pending review per customer
	_, err = models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToScore: 2000})
	require.ErrorIs(t, err, utils.ErrorConflict)
}

func TestCreateTierReviewDowngrade(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	customer := seedCustomer(t, ctx, "C-200", 6000)

	review, err := models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToScore: 1500})
	require.NoError(t, err)
	assert.Equal(t, models.ChangeTypeDowngrade, review.ChangeType)
	assert.Equal(t, "SILVER", review.ToTierCode)

	_, err = models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToTierCode: "gold"})
	var validationErr *utils.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a validation error for the current tier, got %v", err)
	}
}

func TestReviewDecisionRequiresComment(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	customer := seedCustomer(t, ctx, "C-300", 100)
	review, err := models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToScore: 1200})
	require.NoError(t, err)

	decide := map[string]func(context.Context, int, string) (*models.TierReview, error){
		"approve": models.ApproveTierReview,
		"reject":  models.RejectTierReview,
	}
	for name, fn := range decide {
		for _, comment := range []string{"", "   ", "\t\n"} {
			_, err := fn(ctx, review.ID, comment)
			if !errors.Is(err, utils.ErrorCommentRequired) {
				t.Fatalf("%s with comment %q: expected ErrorCommentRequired, got %v", name, comment, err)
			}
		}
	}

	stored, err := models.GetTierReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, stored.Status)
}

func TestApproveTierReviewAppliesTier(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	customer := seedCustomer(t, ctx, "C-400", 800)
	review, err := models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToScore: 5200})
	require.NoError(t, err)

	reviewer := asUser(ctx, 7, "Thida")
	approved, err := models.ApproveTierReview(reviewer, review.ID, "  verified statements  ")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, approved.Status)
	assert.Equal(t, "verified statements", approved.Comment)
	assert.Equal(t, 7, approved.ReviewerId)
	assert.Equal(t, "Thida", approved.ReviewerName)
	require.NotNil(t, approved.ReviewedAt)

	stored, err := models.GetCustomerTier(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "GOLD", stored.CurrentTierCode)
	assert.Equal(t, 5200, stored.CurrentScore)
	assert.Equal(t, "BRONZE", stored.PreviousTierCode)
	assert.Equal(t, 800, stored.PreviousScore)
	assert.Equal(t, models.CustomerStatusUpgraded, stored.Status)

	var decided int64
	require.NoError(t, config.GetDB().Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", models.EventTierReviewDecided, review.ID).
		Count(&decided).Error)
	assert.EqualValues(t, 1, decided)

	// terminal reviews cannot be decided again
	_, err = models.RejectTierReview(reviewer, review.ID, "too late")
	require.ErrorIs(t, err, utils.ErrorInvalidTransition)
	_, err = models.ApproveTierReview(reviewer, review.ID, "again")
	require.ErrorIs(t, err, utils.ErrorInvalidTransition)
}

func TestRejectTierReviewKeepsTier(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	customer := seedCustomer(t, ctx, "C-500", 1500)
	review, err := models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToScore: 7000})
	require.NoError(t, err)

	rejected, err := models.RejectTierReview(asUser(ctx, 3, "Aung"), review.ID, "income not verified")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusRejected, rejected.Status)

	stored, err := models.GetCustomerTier(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "SILVER", stored.CurrentTierCode)
	assert.Equal(t, 1500, stored.CurrentScore)
	assert.Equal(t, models.CustomerStatusActive, stored.Status)

	histories, err := models.GetHistories(ctx, "tier_reviews", review.ID)
	require.NoError(t, err)
	found := false
	for _, h := range histories {
		if h.ActionType == models.HistoryActionReject {
			found = true
			assert.Equal(t, "Aung", h.UserName)
		}
	}
	assert.True(t, found, "expected a REJECT history entry")
}

func TestTierReviewRequiresBank(t *testing.T) {
	openTestDB(t)
	_, err := models.CreateTierReview(context.Background(), &models.NewTierReview{CustomerTierId: 1, ToScore: 10})
	require.ErrorIs(t, err, utils.ErrorBankIdRequired)
}

func TestTierReviewIsolatedByBank(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	customer := seedCustomer(t, ctx, "C-600", 100)
	review, err := models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToScore: 1200})
	require.NoError(t, err)

	other := utils.SystemContext(context.Background(), "BANK02")
	_, err = models.GetTierReview(other, review.ID)
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
	_, err = models.ApproveTierReview(other, review.ID, "not mine")
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestTierReviewExplicitTierScore(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)

	cases := []struct {
		name      string
		score     int
		toTier    string
		toScore   int
		wantScore int
		wantErr   bool
	}{
		{name: "no score clamps up to the tier minimum", score: 2000, toTier: "gold", wantScore: 5000},
		{name: "no score clamps down to the tier maximum", score: 2000, toTier: "bronze", wantScore: 999},
		{name: "score inside the tier is kept", score: 2000, toTier: "gold", toScore: 6500, wantScore: 6500},
		{name: "score outside the tier is rejected", score: 2000, toTier: "gold", toScore: 3000, wantErr: true},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			customer := seedCustomer(t, ctx, fmt.Sprintf("C-EX-%d", i), tc.score)
			review, err := models.CreateTierReview(ctx, &models.NewTierReview{
				CustomerTierId: customer.ID,
				ToTierCode:     tc.toTier,
				ToScore:        tc.toScore,
			})
			if tc.wantErr {
				var validationErr *utils.ValidationError
				require.True(t, errors.As(err, &validationErr), "got %v", err)
				assert.Equal(t, "to_score", validationErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantScore, review.ToScore)

			_, err = models.ApproveTierReview(asUser(ctx, 7, "Thida"), review.ID, "manual override")
			require.NoError(t, err)
			stored, err := models.GetCustomerTier(ctx, customer.ID)
			require.NoError(t, err)
			assert.Equal(t, utils.NormalizeCode(tc.toTier), stored.CurrentTierCode)
			assert.Equal(t, tc.wantScore, stored.CurrentScore)
			assert.Equal(t, tc.score, stored.PreviousScore)
		})
	}
}
