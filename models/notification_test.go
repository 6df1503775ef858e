package models_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateNotificationByStatus(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)
	seedCustomer(t, ctx, "C-N1", 6000)

	edit := &models.NewNotification{Title: "Gold perks", Message: "Airport lounge access is live", Channel: models.NotificationChannelPush, TargetTierCode: "gold"}

	cases := []struct {
		name    string
		prepare func(t *testing.T, id int)
		wantErr error
	}{
		{"draft", func(t *testing.T, id int) {}, nil},
		{"scheduled", func(t *testing.T, id int) {
			_, err := models.SendNotification(ctx, id)
			require.NoError(t, err)
		}, nil},
		{"sent", func(t *testing.T, id int) {
			_, err := models.SendNotification(ctx, id)
			require.NoError(t, err)
			require.NoError(t, models.MarkNotificationDelivered(ctx, id, nil))
		}, utils.ErrorInvalidTransition},
		{"failed", func(t *testing.T, id int) {
			_, err := models.SendNotification(ctx, id)
			require.NoError(t, err)
			require.NoError(t, models.MarkNotificationDelivered(ctx, id, errors.New("topic unavailable")))
		}, utils.ErrorInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := models.CreateNotification(ctx, &models.NewNotification{
				Title: "Draft " + tc.name, Message: "hello", Channel: models.NotificationChannelEmail,
			})
			require.NoError(t, err)
			tc.prepare(t, n.ID)

			input := *edit
			updated, err := models.UpdateNotification(ctx, n.ID, &input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				stored, err := models.GetNotification(ctx, n.ID)
				require.NoError(t, err)
				assert.Equal(t, "Draft "+tc.name, stored.Title)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Gold perks", updated.Title)
			assert.Equal(t, "GOLD", updated.TargetTierCode)
		})
	}
}

func TestNotificationValidation(t *testing.T) {
	ctx := openTestDB(t)
	seedTiers(t, ctx)

	invalid := []struct {
		name  string
		input models.NewNotification
		field string
	}{
		{"blank title", models.NewNotification{Title: " ", Message: "m", Channel: models.NotificationChannelSMS}, "title"},
		{"blank message", models.NewNotification{Title: "t", Message: "", Channel: models.NotificationChannelSMS}, "message"},
		{"unknown channel", models.NewNotification{Title: "t", Message: "m", Channel: "fax"}, "channel"},
		{"unknown tier", models.NewNotification{Title: "t", Message: "m", Channel: models.NotificationChannelSMS, TargetTierCode: "diamond"}, "target_tier_code"},
	}
	for _, tc := range invalid {
		input := tc.input
		_, err := models.CreateNotification(ctx, &input)
		var validationErr *utils.ValidationError
		require.True(t, errors.As(err, &validationErr), "%s: got %v", tc.name, err)
		assert.Equal(t, tc.field, validationErr.Field, tc.name)
	}

	everyone, err := models.CreateNotification(ctx, &models.NewNotification{
		Title: "Hello", Message: "m", Channel: models.NotificationChannelInApp, TargetTierCode: "ALL",
	})
	require.NoError(t, err)
	assert.Empty(t, everyone.TargetTierCode)

	page, err := models.ListNotifications(ctx, &models.NotificationFilter{Channel: "all", Status: models.NotificationStatusDraft})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}
