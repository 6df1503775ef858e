package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type reviewWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
}

func TestTierReviewWorkflow(t *testing.T) {
	suite.Run(t, new(reviewWorkflowSuite))
}

func (s *reviewWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterWorkflow(TierReviewWorkflow)
	s.env.RegisterActivity(&ReviewActivities{})
}

func (s *reviewWorkflowSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

var reviewInput = TierReviewInput{BankId: testBank, ReviewId: 3}

func (s *reviewWorkflowSuite) queryState() TierReviewState {
	val, err := s.env.QueryWorkflow(TierReviewStateQuery)
	s.Require().NoError(err)
	var state TierReviewState
	s.Require().NoError(val.Get(&state))
	return state
}

func (s *reviewWorkflowSuite) TestDecisionApplied() {
	var a *ReviewActivities
	decision := models.ReviewDecision{Status: models.ReviewStatusApproved, Comment: "meets gold", ReviewerId: 7, ReviewerName: "Aye Aye"}
	s.env.OnActivity(a.ApplyReviewDecision, mock.Anything, reviewInput, decision).Return(models.ReviewStatusApproved, nil).Once()

	s.env.RegisterDelayedCallback(func() {
		s.Equal(models.ReviewStatusPending, s.queryState().Status)
		s.env.SignalWorkflow(TierReviewDecisionSignal, decision)
	}, time.Hour)
	s.env.ExecuteWorkflow(TierReviewWorkflow, reviewInput)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	var state TierReviewState
	s.NoError(s.env.GetWorkflowResult(&state))
	s.Equal(models.ReviewStatusApproved, state.Status)
	s.Equal("Aye Aye", state.ReviewerName)
	s.Empty(state.LastError)
}

func (s *reviewWorkflowSuite) TestRefusedDecisionKeepsWaiting() {
	var a *ReviewActivities
	blank := models.ReviewDecision{Status: models.ReviewStatusRejected, ReviewerId: 7, ReviewerName: "Aye Aye"}
	valid := models.ReviewDecision{Status: models.ReviewStatusRejected, Comment: "score dropped after audit", ReviewerId: 7, ReviewerName: "Aye Aye"}
	s.env.OnActivity(a.ApplyReviewDecision, mock.Anything, reviewInput, blank).
		Return("", temporal.NewNonRetryableApplicationError("comment is required", errTypeRefused, nil)).Once()
	s.env.OnActivity(a.ApplyReviewDecision, mock.Anything, reviewInput, valid).Return(models.ReviewStatusRejected, nil).Once()

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(TierReviewDecisionSignal, blank)
	}, time.Hour)
	s.env.RegisterDelayedCallback(func() {
		state := s.queryState()
		s.Equal(models.ReviewStatusPending, state.Status)
		s.Contains(state.LastError, "comment is required")
		s.env.SignalWorkflow(TierReviewDecisionSignal, valid)
	}, 2*time.Hour)
	s.env.ExecuteWorkflow(TierReviewWorkflow, reviewInput)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	var state TierReviewState
	s.NoError(s.env.GetWorkflowResult(&state))
	s.Equal(models.ReviewStatusRejected, state.Status)
}

func (s *reviewWorkflowSuite) TestDecidedElsewhereEndsWorkflow() {
	var a *ReviewActivities
	decision := models.ReviewDecision{Status: models.ReviewStatusApproved, Comment: "ok", ReviewerId: 7, ReviewerName: "Aye Aye"}
	s.env.OnActivity(a.ApplyReviewDecision, mock.Anything, reviewInput, decision).
		Return("", temporal.NewNonRetryableApplicationError("review is not pending", errTypeAlreadyDecided, nil)).Once()

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(TierReviewDecisionSignal, decision)
	}, time.Minute)
	s.env.ExecuteWorkflow(TierReviewWorkflow, reviewInput)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	var state TierReviewState
	s.NoError(s.env.GetWorkflowResult(&state))
	s.Equal("decided", state.Status)
}

func (s *reviewWorkflowSuite) TestFailedDecisionKeepsWorkflowOpen() {
	var a *ReviewActivities
	first := models.ReviewDecision{Status: models.ReviewStatusApproved, Comment: "first try", ReviewerId: 7, ReviewerName: "Aye Aye"}
	second := models.ReviewDecision{Status: models.ReviewStatusApproved, Comment: "second try", ReviewerId: 7, ReviewerName: "Aye Aye"}
	s.env.OnActivity(a.ApplyReviewDecision, mock.Anything, reviewInput, first).Return("", errors.New("database is down"))
	s.env.OnActivity(a.ApplyReviewDecision, mock.Anything, reviewInput, second).Return(models.ReviewStatusApproved, nil).Once()

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(TierReviewDecisionSignal, first)
	}, time.Hour)
	s.env.RegisterDelayedCallback(func() {
		state := s.queryState()
		s.Equal(models.ReviewStatusPending, state.Status)
		s.Contains(state.LastError, "database is down")
		s.env.SignalWorkflow(TierReviewDecisionSignal, second)
	}, 3*time.Hour)
	s.env.ExecuteWorkflow(TierReviewWorkflow, reviewInput)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	var state TierReviewState
	s.NoError(s.env.GetWorkflowResult(&state))
	s.Equal(models.ReviewStatusApproved, state.Status)
	s.Empty(state.LastError)
}

func TestApplyReviewDecisionActivity(t *testing.T) {
	ctx, _ := openTestDB(t)
	customer := seedCustomer(t, ctx, "C100", 400)
	review, err := models.CreateTierReview(ctx, &models.NewTierReview{
		CustomerTierId: customer.ID,
		ToScore:        1200,
		ToTierCode:     "SILVER",
		Reason:         "quarterly evaluation",
	})
	require.NoError(t, err)

	a := &ReviewActivities{}
	input := TierReviewInput{BankId: testBank, ReviewId: review.ID}

	_, err = a.ApplyReviewDecision(ctx, input, models.ReviewDecision{Status: models.ReviewStatusApproved, ReviewerId: 9, ReviewerName: "Ko Ko"})
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errTypeRefused, appErr.Type())
	assert.True(t, appErr.NonRetryable())

	status, err := a.ApplyReviewDecision(ctx, input, models.ReviewDecision{Status: models.ReviewStatusApproved, Comment: "ok", ReviewerId: 9, ReviewerName: "Ko Ko"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, status)

	stored, err := models.GetTierReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ko Ko", stored.ReviewerName)

	_, err = a.ApplyReviewDecision(ctx, input, models.ReviewDecision{Status: models.ReviewStatusRejected, Comment: "late", ReviewerId: 9, ReviewerName: "Ko Ko"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errTypeAlreadyDecided, appErr.Type())
}

func TestReviewCoordinatorWithoutTemporal(t *testing.T) {
	ctx, _ := openTestDB(t)
	customer := seedCustomer(t, ctx, "C200", 6000)
	review, err := models.CreateTierReview(ctx, &models.NewTierReview{
		CustomerTierId: customer.ID,
		ToScore:        800,
		ToTierCode:     "BRONZE",
		Reason:         "inactive for a year",
	})
	require.NoError(t, err)

	coordinator := NewReviewCoordinator(nil)
	require.False(t, coordinator.Enabled())
	require.NoError(t, coordinator.Start(ctx, review))
	assert.Empty(t, review.WorkflowId)

	reviewer := utils.SetUserNameInContext(utils.SetUserIdInContext(ctx, 5), "Su Su")
	decided, queued, err := coordinator.Decide(reviewer, review.ID, models.ReviewStatusRejected, "relationship manager objected")
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, models.ReviewStatusRejected, decided.Status)

	current, err := models.GetCustomerTier(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "GOLD", current.CurrentTierCode)
	assert.Equal(t, models.CustomerStatusActive, current.Status)
}

func TestReviewCoordinatorAppliesWhenWorkflowIsGone(t *testing.T) {
	ctx, _ := openTestDB(t)
	customer := seedCustomer(t, ctx, "C300", 2000)
	review, err := models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToTierCode: "GOLD"})
	require.NoError(t, err)
	workflowId := reviewWorkflowId(testBank, review.ID)
	require.NoError(t, models.SetTierReviewWorkflowId(ctx, review.ID, workflowId))

	temporalClient := &mocks.Client{}
	temporalClient.On("SignalWorkflow", mock.Anything, workflowId, "", TierReviewDecisionSignal, mock.Anything).
		Return(serviceerror.NewNotFound("workflow execution already completed")).Once()
	coordinator := &ReviewCoordinator{Client: temporalClient, TaskQueue: "test"}

	reviewer := utils.SetUserNameInContext(utils.SetUserIdInContext(ctx, 5), "Su Su")
	decided, queued, err := coordinator.Decide(reviewer, review.ID, models.ReviewStatusApproved, "statements verified")
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, models.ReviewStatusApproved, decided.Status)
	temporalClient.AssertExpectations(t)

	current, err := models.GetCustomerTier(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "GOLD", current.CurrentTierCode)
	assert.Equal(t, 5000, current.CurrentScore)
}

func TestReviewCoordinatorSurfacesSignalErrors(t *testing.T) {
	ctx, _ := openTestDB(t)
	customer := seedCustomer(t, ctx, "C400", 2000)
	review, err := models.CreateTierReview(ctx, &models.NewTierReview{CustomerTierId: customer.ID, ToTierCode: "GOLD"})
	require.NoError(t, err)
	workflowId := reviewWorkflowId(testBank, review.ID)
	require.NoError(t, models.SetTierReviewWorkflowId(ctx, review.ID, workflowId))

	temporalClient := &mocks.Client{}
	temporalClient.On("SignalWorkflow", mock.Anything, workflowId, "", TierReviewDecisionSignal, mock.Anything).
		Return(serviceerror.NewUnavailable("frontend unavailable")).Once()
	coordinator := &ReviewCoordinator{Client: temporalClient, TaskQueue: "test"}

	_, _, err = coordinator.Decide(ctx, review.ID, models.ReviewStatusApproved, "statements verified")
	require.Error(t, err)

	stored, err := models.GetTierReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, stored.Status)
}
