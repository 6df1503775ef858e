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

func newApproval(t *testing.T, ctx context.Context) *models.Approval {
	t.Helper()
	approval, err := models.CreateApproval(ctx, &models.NewApproval{
		RequestType: models.ApprovalTypeParameterChange,
		Title:       "Raise gold threshold",
		Details:     map[string]interface{}{"key": "gold_min_score", "value": 5500},
	})
	require.NoError(t, err)
	return approval
}

func TestApprovalCommentRequired(t *testing.T) {
	ctx := openTestDB(t)
	approval := newApproval(t, asUser(ctx, 11, "Maker"))
	checker := asUser(ctx, 12, "Checker")

	for _, comment := range []string{"", "  "} {
		_, err := models.ApproveApproval(checker, approval.ID, comment)
		require.ErrorIs(t, err, utils.ErrorCommentRequired)
		_, err = models.RejectApproval(checker, approval.ID, comment)
		require.ErrorIs(t, err, utils.ErrorCommentRequired)
	}
	stored, err := models.GetApproval(ctx, approval.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, stored.Status)
}

func TestApprovalDecisionIsFinal(t *testing.T) {
	ctx := openTestDB(t)
	approval := newApproval(t, asUser(ctx, 11, "Maker"))
	checker := asUser(ctx, 12, "Checker")

	approved, err := models.ApproveApproval(checker, approval.ID, "ok for Q3")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, approved.Status)
	assert.Equal(t, "Checker", approved.ApproverName)
	require.NotNil(t, approved.ApproverId)
	assert.Equal(t, 12, *approved.ApproverId)

	_, err = models.RejectApproval(checker, approval.ID, "changed my mind")
	require.ErrorIs(t, err, utils.ErrorInvalidTransition)
	_, err = models.ApproveApproval(checker, approval.ID, "again")
	require.ErrorIs(t, err, utils.ErrorInvalidTransition)
}

func TestApprovalSelfDecisionForbidden(t *testing.T) {
	t.Setenv("FEATURE_ALLOW_SELF_APPROVAL", "false")
	ctx := openTestDB(t)
	maker := asUser(ctx, 11, "Maker")
	approval := newApproval(t, maker)

	_, err := models.ApproveApproval(maker, approval.ID, "looks fine to me")
	if !errors.Is(err, utils.ErrorForbidden) {
		t.Fatalf("expected ErrorForbidden, got %v", err)
	}
}

func TestApprovalRejectsUnknownType(t *testing.T) {
	ctx := openTestDB(t)
	_, err := models.CreateApproval(ctx, &models.NewApproval{RequestType: "holiday", Title: "x"})
	var validationErr *utils.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "request_type", validationErr.Field)
}

func TestListApprovalsFilter(t *testing.T) {
	ctx := openTestDB(t)
	maker := asUser(ctx, 11, "Maker")
	first := newApproval(t, maker)
	newApproval(t, maker)
	_, err := models.RejectApproval(asUser(ctx, 12, "Checker"), first.ID, "no budget")
	require.NoError(t, err)

	cases := map[string]int64{"": 2, "all": 2, models.ApprovalStatusPending: 1, models.ApprovalStatusRejected: 1}
	for status, want := range cases {
		page, err := models.ListApprovals(ctx, &models.ApprovalFilter{Status: status})
		require.NoError(t, err)
		if page.Total != want {
			t.Fatalf("status %q: expected %d approvals, got %d", status, want, page.Total)
		}
	}
}
