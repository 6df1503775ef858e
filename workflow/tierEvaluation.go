package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	defaultEvaluationBatch   = 200
	defaultEvaluationWorkers = 4
)

// Scorer computes a customer's current loyalty score.
type Scorer func(ctx context.Context, customer *models.CustomerTier) (int, error)

// PointsScorer scores customers by lifetime earned points, keeping the stored score
// for customers without a points account.
func PointsScorer(ctx context.Context, customer *models.CustomerTier) (int, error) {
	account, err := models.GetPointsAccountByCustomer(ctx, customer.ID)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return customer.CurrentScore, nil
		}
		return 0, err
	}
	return int(account.LifetimeEarned), nil
}

type EvaluationSummary struct {
	Evaluated      int `json:"evaluated"`
	Unchanged      int `json:"unchanged"`
	ReviewsCreated int `json:"reviews_created"`
	PendingSkipped int `json:"pending_skipped"`
	Unresolved     int `json:"unresolved"`
	Failed         int `json:"failed"`
}

func (s EvaluationSummary) String() string {
	return fmt.Sprintf("evaluated %d: %d unchanged, %d reviews created, %d skipped (pending review), %d without tier, %d failed",
		s.Evaluated, s.Unchanged, s.ReviewsCreated, s.PendingSkipped, s.Unresolved, s.Failed)
}

type TierEvaluator struct {
	Logger    *logrus.Logger
	Scorer    Scorer
	Reviews   *ReviewCoordinator
	BatchSize int
	Workers   int
}

func NewTierEvaluator(logger *logrus.Logger, reviews *ReviewCoordinator) *TierEvaluator {
	return &TierEvaluator{
		Logger:    logger,
		Scorer:    PointsScorer,
		Reviews:   reviews,
		BatchSize: defaultEvaluationBatch,
		Workers:   defaultEvaluationWorkers,
	}
}

// RunTierEvaluation records a tier_evaluation task and evaluates the bank in the background.
func (e *TierEvaluator) RunTierEvaluation(ctx context.Context) (*models.Task, error) {
	task, err := e.createTask(ctx)
	if err != nil {
		return nil, err
	}
	bankId, _ := utils.GetBankIdFromContext(ctx)
	bg := utils.SetBankIdInContext(context.WithoutCancel(ctx), bankId)
	go func() {
		if _, err := e.Execute(bg, task.ID); err != nil {
			config.LogError(e.Logger, "TierEvaluator", "RunTierEvaluation", bankId, task.ID, err)
		}
	}()
	return task, nil
}

func (e *TierEvaluator) createTask(ctx context.Context) (*models.Task, error) {
	return models.CreateTask(ctx, &models.NewTask{
		Title:       "Tier evaluation",
		Description: "Re-score customers and open reviews for tier changes",
		TaskType:    models.TaskTypeTierEvaluation,
		Priority:    models.TaskPriorityMedium,
	})
}

// Evaluate runs a full evaluation in the caller's goroutine. Used by the CLI.
func (e *TierEvaluator) Evaluate(ctx context.Context) (*models.Task, *EvaluationSummary, error) {
	task, err := e.createTask(ctx)
	if err != nil {
		return nil, nil, err
	}
	summary, err := e.Execute(ctx, task.ID)
	return task, summary, err
}

// Execute moves the task through running to completed or failed.
func (e *TierEvaluator) Execute(ctx context.Context, taskId int) (*EvaluationSummary, error) {
	ctx, span := tracer.Start(ctx, "tier.evaluate")
	defer span.End()

	if _, err := models.UpdateTaskStatus(ctx, taskId, &models.TaskStatusInput{Status: models.TaskStatusRunning}); err != nil {
		return nil, err
	}
	summary, err := e.evaluateAll(ctx, taskId)
	if err != nil {
		e.finish(ctx, taskId, models.TaskStatusFailed, err.Error())
		return summary, err
	}
	span.SetAttributes(
		attribute.Int("evaluation.evaluated", summary.Evaluated),
		attribute.Int("evaluation.reviews_created", summary.ReviewsCreated),
	)
	e.finish(ctx, taskId, models.TaskStatusCompleted, summary.String())
	if e.Logger != nil {
		e.Logger.WithFields(logrus.Fields{
			"field":   "TierEvaluator",
			"task_id": taskId,
			"summary": summary.String(),
		}).Info("tier evaluation completed")
	}
	return summary, nil
}

func (e *TierEvaluator) finish(ctx context.Context, taskId int, status string, message string) {
	if _, err := models.UpdateTaskStatus(ctx, taskId, &models.TaskStatusInput{Status: status, ResultMessage: message}); err != nil {
		config.LogError(e.Logger, "TierEvaluator", "finish", status, taskId, err)
	}
}

func (e *TierEvaluator) evaluateAll(ctx context.Context, taskId int) (*EvaluationSummary, error) {
	total, err := models.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	batchSize := e.BatchSize
	if batchSize < 1 {
		batchSize = defaultEvaluationBatch
	}

	var (
		mu      sync.Mutex
		summary EvaluationSummary
	)
	processed := 0
	err = models.EachCustomerTier(ctx, batchSize, func(batch []*models.CustomerTier) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, customer := range batch {
			customer := customer
			g.Go(func() error {
				outcome := e.evaluateCustomer(gctx, customer)
				mu.Lock()
				summary.add(outcome)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		processed += len(batch)
		if total > 0 {
			progress := processed * 100 / int(total)
			if progress > 99 {
				progress = 99
			}
			if err := models.SetTaskProgress(ctx, taskId, progress); err != nil {
				return err
			}
		}
		return nil
	})
	return &summary, err
}

type evaluationOutcome int

const (
	outcomeUnchanged evaluationOutcome = iota
	outcomeReviewCreated
	outcomePendingSkipped
	outcomeUnresolved
	outcomeFailed
)

func (s *EvaluationSummary) add(o evaluationOutcome) {
	s.Evaluated++
	switch o {
	case outcomeUnchanged:
		s.Unchanged++
	case outcomeReviewCreated:
		s.ReviewsCreated++
	case outcomePendingSkipped:
		s.PendingSkipped++
	case outcomeUnresolved:
		s.Unresolved++
	default:
		s.Failed++
	}
}

func (e *TierEvaluator) evaluateCustomer(ctx context.Context, customer *models.CustomerTier) evaluationOutcome {
	score, err := e.Scorer(ctx, customer)
	if err != nil {
		config.LogError(e.Logger, "TierEvaluator", "score", customer.CustomerId, customer.ID, err)
		return outcomeFailed
	}
	tier, err := models.ResolveTierForScore(ctx, score)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return outcomeUnresolved
		}
		config.LogError(e.Logger, "TierEvaluator", "resolve", customer.CustomerId, score, err)
		return outcomeFailed
	}
	if tier.Code == customer.CurrentTierCode {
		if score != customer.CurrentScore {
			if err := models.RecordCustomerScore(ctx, customer.ID, score); err != nil {
				config.LogError(e.Logger, "TierEvaluator", "RecordCustomerScore", customer.CustomerId, score, err)
				return outcomeFailed
			}
		}
		return outcomeUnchanged
	}
	if pending, err := models.HasPendingReview(ctx, customer.ID); err != nil {
		config.LogError(e.Logger, "TierEvaluator", "HasPendingReview", customer.CustomerId, customer.ID, err)
		return outcomeFailed
	} else if pending {
		return outcomePendingSkipped
	}

	review, err := models.CreateTierReview(ctx, &models.NewTierReview{
		CustomerTierId: customer.ID,
		ToScore:        score,
		ToTierCode:     tier.Code,
		Reason:         fmt.Sprintf("tier evaluation: score %d falls in %s", score, tier.Code),
	})
	if err != nil {
		if errors.Is(err, utils.ErrorConflict) {
			return outcomePendingSkipped
		}
		config.LogError(e.Logger, "TierEvaluator", "CreateTierReview", customer.CustomerId, tier.Code, err)
		return outcomeFailed
	}
	if err := e.Reviews.Start(ctx, review); err != nil {
		// the review stays decidable synchronously
		config.LogError(e.Logger, "TierEvaluator", "StartReviewWorkflow", customer.CustomerId, review.ID, err)
	}
	return outcomeReviewCreated
}
