package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	TierReviewDecisionSignal = "TIER_REVIEW_DECISION_SIGNAL"
	TierReviewStateQuery     = "review_state"

	// activity error types
	errTypeAlreadyDecided = "ReviewAlreadyDecided"
	errTypeRefused        = "ReviewDecisionRefused"
)

type TierReviewInput struct {
	BankId   string `json:"bank_id"`
	ReviewId int    `json:"review_id"`
}

type TierReviewState struct {
	ReviewId     int    `json:"review_id"`
	Status       string `json:"status"`
	ReviewerName string `json:"reviewer_name,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// TierReviewWorkflow holds a pending review until a reviewer signals a decision,
// then applies it through the ApplyReviewDecision activity.
func TierReviewWorkflow(ctx workflow.Context, input TierReviewInput) (TierReviewState, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("tier review workflow started", "bankId", input.BankId, "reviewId", input.ReviewId)

	state := TierReviewState{ReviewId: input.ReviewId, Status: models.ReviewStatusPending}
	if err := workflow.SetQueryHandler(ctx, TierReviewStateQuery, func() (TierReviewState, error) {
		return state, nil
	}); err != nil {
		return state, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{errTypeAlreadyDecided, errTypeRefused},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var a *ReviewActivities
	sigCh := workflow.GetSignalChannel(ctx, TierReviewDecisionSignal)
	for {
		var decision models.ReviewDecision
		sigCh.Receive(ctx, &decision)

		var status string
		err := workflow.ExecuteActivity(ctx, a.ApplyReviewDecision, input, decision).Get(ctx, &status)
		if err == nil {
			state.Status = status
			state.ReviewerName = decision.ReviewerName
			state.LastError = ""
			logger.Info("tier review decided", "reviewId", input.ReviewId, "status", status)
			return state, nil
		}

		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) {
			switch appErr.Type() {
			case errTypeAlreadyDecided:
				// decided outside the workflow; nothing left to wait for
				state.Status = "decided"
				state.LastError = appErr.Error()
				return state, nil
			case errTypeRefused:
				state.LastError = appErr.Error()
				logger.Warn("tier review decision refused", "reviewId", input.ReviewId, "error", appErr.Error())
				continue
			}
		}
		// retries exhausted; the review stays open for the next decision
		state.LastError = err.Error()
		logger.Error("tier review decision failed", "reviewId", input.ReviewId, "error", err.Error())
	}
}

type ReviewActivities struct{}

// ApplyReviewDecision runs the guarded review update on behalf of the reviewer in decision.
func (a *ReviewActivities) ApplyReviewDecision(ctx context.Context, input TierReviewInput, decision models.ReviewDecision) (string, error) {
	ctx = utils.SetBankIdInContext(ctx, input.BankId)
	ctx = utils.SetUserIdInContext(ctx, decision.ReviewerId)
	ctx = utils.SetUserNameInContext(ctx, decision.ReviewerName)

	review, err := models.ApplyReviewDecision(ctx, input.ReviewId, decision)
	if err != nil {
		var validationErr *utils.ValidationError
		switch {
		case errors.Is(err, utils.ErrorInvalidTransition):
			return "", temporal.NewNonRetryableApplicationError(err.Error(), errTypeAlreadyDecided, err)
		case errors.Is(err, utils.ErrorCommentRequired), errors.Is(err, utils.ErrorRecordNotFound), errors.As(err, &validationErr):
			return "", temporal.NewNonRetryableApplicationError(err.Error(), errTypeRefused, err)
		}
		return "", err
	}
	return review.Status, nil
}

// ReviewCoordinator routes review decisions through Temporal when a client is configured,
// and applies them in-process otherwise.
type ReviewCoordinator struct {
	Client    client.Client
	TaskQueue string
}

func NewReviewCoordinator(c client.Client) *ReviewCoordinator {
	return &ReviewCoordinator{Client: c, TaskQueue: config.TemporalTaskQueue()}
}

func (r *ReviewCoordinator) Enabled() bool {
	return r != nil && r.Client != nil
}

func reviewWorkflowId(bankId string, reviewId int) string {
	return fmt.Sprintf("tier-review-%s-%d", bankId, reviewId)
}

// Start launches the workflow for a freshly created review.
func (r *ReviewCoordinator) Start(ctx context.Context, review *models.TierReview) error {
	if !r.Enabled() {
		return nil
	}
	opts := client.StartWorkflowOptions{
		ID:                                       reviewWorkflowId(review.BankId, review.ID),
		TaskQueue:                                r.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	run, err := r.Client.ExecuteWorkflow(ctx, opts, TierReviewWorkflow, TierReviewInput{BankId: review.BankId, ReviewId: review.ID})
	if err != nil {
		return err
	}
	review.WorkflowId = run.GetID()
	return models.SetTierReviewWorkflowId(ctx, review.ID, run.GetID())
}

// Decide records a reviewer's decision. queued is true when the decision was handed to the workflow.
func (r *ReviewCoordinator) Decide(ctx context.Context, id int, status string, comment string) (review *models.TierReview, queued bool, err error) {
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	decision := models.ReviewDecision{
		Status:       status,
		Comment:      comment,
		ReviewerId:   userId,
		ReviewerName: userName,
	}
	if !r.Enabled() {
		review, err = models.ApplyReviewDecision(ctx, id, decision)
		return review, false, err
	}
	review, err = models.CheckReviewDecidable(ctx, id, decision)
	if err != nil {
		return nil, false, err
	}
	if review.WorkflowId == "" {
		// opened before Temporal was switched on
		review, err = models.ApplyReviewDecision(ctx, id, decision)
		return review, false, err
	}
	if err := r.Client.SignalWorkflow(ctx, review.WorkflowId, "", TierReviewDecisionSignal, decision); err != nil {
		var notFound *serviceerror.NotFound
		if !errors.As(err, &notFound) {
			return nil, false, err
		}
		// the workflow closed while the review is still pending
		config.GetLogger().WithFields(config.RequestFields(ctx)).
			WithField("workflowId", review.WorkflowId).
			Warn("review workflow is gone, applying decision directly")
		review, err = models.ApplyReviewDecision(ctx, id, decision)
		return review, false, err
	}
	return review, true, nil
}
